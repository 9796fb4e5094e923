package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ActivitySummary is one record from the platform's activity list endpoint.
// Garmin payloads are loosely typed, so it stays a raw JSON object; typed
// extraction happens at the merge step.
type ActivitySummary map[string]interface{}

// ActivityDetail is the full per-activity payload, a superset of the summary.
type ActivityDetail map[string]interface{}

// ActivityID returns the platform's activity identifier as a string.
// Garmin sends it as a JSON number; older payloads as a string.
func (a ActivitySummary) ActivityID() string {
	switch v := a["activityId"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	}
	return ""
}

// session is the parsed form of the persisted session blob
type session struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"` // unix seconds, 0 = unknown
}

// Client is a thin HTTP client over the two Garmin Connect operations the
// engine consumes: list activities by date range and fetch activity details.
// It performs no retries itself; retry policy belongs to the orchestrator.
type Client struct {
	BaseURL    string
	HttpClient *http.Client

	token string
	now   func() time.Time
}

// NewClient creates a new Garmin Connect client
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// UseSession restores client state from a persisted session blob. It fails
// on a corrupt blob or an expired token; the caller treats that as "no
// session" and falls through to a fresh login.
func (c *Client) UseSession(blob []byte) error {
	var s session
	if err := json.Unmarshal(blob, &s); err != nil {
		return fmt.Errorf("corrupt session blob: %w", err)
	}
	if s.AccessToken == "" {
		return fmt.Errorf("session blob has no access token")
	}
	if s.ExpiresAt != 0 && c.now().Unix() >= s.ExpiresAt {
		return fmt.Errorf("stored session expired")
	}
	c.token = s.AccessToken
	return nil
}

// Login performs a fresh credential login and returns the raw session blob
// for persistence. The client keeps the access token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var s session
	if err := json.Unmarshal(blob, &s); err != nil || s.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no usable session")
	}

	c.token = s.AccessToken
	return blob, nil
}

// ListActivities fetches activity summaries in [start, end], newest first as
// returned by the platform. It returns an empty slice, never nil, when the
// platform reports no activities.
func (c *Client) ListActivities(ctx context.Context, start, end time.Time, limit int) ([]ActivitySummary, error) {
	q := url.Values{}
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := c.BaseURL + "/activitylist-service/activities/search/activities?" + q.Encode()

	var activities []ActivitySummary
	if err := c.getJSON(ctx, endpoint, &activities); err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []ActivitySummary{}
	}
	return activities, nil
}

// GetActivityDetails fetches the full payload for one activity by its
// platform id. Single call, no internal retry.
func (c *Client) GetActivityDetails(ctx context.Context, activityID string) (ActivityDetail, error) {
	endpoint := c.BaseURL + "/activity-service/activity/" + url.PathEscape(activityID)

	var detail ActivityDetail
	if err := c.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// getJSON performs an authorized GET and decodes the JSON response,
// classifying failures into the engine's closed error kinds.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return NewAPIError("failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return NewAPIError("request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Message: fmt.Sprintf("session rejected with status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return &APIError{
			Message:    fmt.Sprintf("platform returned status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAPIError("malformed response", err)
	}
	return nil
}
