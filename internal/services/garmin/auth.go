package garmin

import (
	"context"
	"log"
)

// SessionManager obtains a valid platform session: resume from the session
// store first, otherwise fresh login with credentials, persisting the new
// session before returning. Once a session is established in memory it is
// reused for the lifetime of the manager.
type SessionManager struct {
	client   *Client
	store    *SessionStore
	username string
	password string

	authenticated bool
}

// NewSessionManager creates a session manager for the given client and store
func NewSessionManager(client *Client, store *SessionStore, username, password string) *SessionManager {
	return &SessionManager{
		client:   client,
		store:    store,
		username: username,
		password: password,
	}
}

// Authenticate establishes a session. Resume failure (missing, corrupt or
// expired session) is not an error; it silently falls through to fresh login.
// All fresh-login failures surface as *AuthError.
func (m *SessionManager) Authenticate(ctx context.Context) error {
	if m.authenticated {
		return nil
	}

	if blob, err := m.store.Load(); err == nil {
		resumeErr := m.client.UseSession(blob)
		if resumeErr == nil {
			log.Println("✅ Garmin: resumed stored session")
			m.authenticated = true
			return nil
		}
		log.Printf("Garmin: stored session unusable (%v), performing fresh login", resumeErr)
	}

	if m.username == "" || m.password == "" {
		return &AuthError{Message: "credentials not configured"}
	}

	blob, err := m.client.Login(ctx, m.username, m.password)
	if err != nil {
		return NewAuthError("authentication failed", err)
	}

	// Persist before reporting success so the next run can resume.
	if err := m.store.Save(blob); err != nil {
		return err
	}

	log.Println("✅ Garmin: fresh login succeeded, session saved")
	m.authenticated = true
	return nil
}
