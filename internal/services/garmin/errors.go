package garmin

import "fmt"

// AuthError signals that the platform rejected or cannot establish a session:
// missing credentials, rejected login, or a session invalidated mid-run.
// When it survives the per-activity retry bound (or occurs during login or
// listing) it is fatal to the run and recorded as auth_failed.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an AuthError wrapping an underlying cause
func NewAuthError(message string, err error) *AuthError {
	return &AuthError{Message: message, Err: err}
}

// APIError signals any other platform-side failure: rate limiting,
// connectivity, malformed response, not-found. Detail fetches retry it a
// bounded number of times; a list-call APIError is fatal to the run.
type APIError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates an APIError wrapping an underlying cause
func NewAPIError(message string, err error) *APIError {
	return &APIError{Message: message, Err: err}
}
