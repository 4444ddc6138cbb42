package broker

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/pkg/utils"
)

// Session is a persisted Kite access token.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// sessionAPI is the subset of the Kite Connect client used to log in and out.
type sessionAPI interface {
	GetLoginURL() string
	GenerateSession(requestToken, apiSecret string) (kiteconnect.UserSession, error)
	SetAccessToken(accessToken string)
	InvalidateAccessToken() (bool, error)
}

// Authenticator runs the Kite Connect login flow and keeps the resulting
// token in a session file.
type Authenticator struct {
	client      sessionAPI
	apiSecret   string
	sessionFile string
	now         func() time.Time
}

// NewAuthenticator creates an authenticator for the given app credentials.
func NewAuthenticator(apiKey, apiSecret, sessionFile string) (*Authenticator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperrors.NewBrokerError("config", "kite api_key is not set", apperrors.ErrNotAuthenticated)
	}
	return newAuthenticator(kiteconnect.New(apiKey), apiSecret, sessionFile), nil
}

func newAuthenticator(client sessionAPI, apiSecret, sessionFile string) *Authenticator {
	return &Authenticator{
		client:      client,
		apiSecret:   apiSecret,
		sessionFile: sessionFile,
		now:         time.Now,
	}
}

// LoginURL returns the Kite page that issues a request token.
func (a *Authenticator) LoginURL() string {
	return a.client.GetLoginURL()
}

// CompleteLogin exchanges a request token for an access token and saves it.
func (a *Authenticator) CompleteLogin(requestToken string) (*Session, error) {
	requestToken = strings.TrimSpace(requestToken)
	if requestToken == "" {
		return nil, apperrors.NewValidationError("request_token", requestToken, "request token is empty")
	}
	if strings.TrimSpace(a.apiSecret) == "" {
		return nil, apperrors.NewBrokerError("config", "kite api_secret is not set; set KITE_API_SECRET", apperrors.ErrNotAuthenticated)
	}

	us, err := a.client.GenerateSession(requestToken, a.apiSecret)
	if err != nil {
		return nil, classify("session/token", err)
	}

	now := a.now()
	s := &Session{
		AccessToken: us.AccessToken,
		UserID:      us.UserID,
		UserName:    us.UserName,
		CreatedAt:   now,
		ExpiresAt:   utils.SessionExpiry(now),
	}
	if err := saveSession(a.sessionFile, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Status returns the saved session. Expired sessions are returned along with
// an ErrNotAuthenticated error.
func (a *Authenticator) Status() (*Session, error) {
	s, err := readSession(a.sessionFile)
	if err != nil {
		return nil, apperrors.NewBrokerError("session", err.Error(), apperrors.ErrNotAuthenticated)
	}
	if s.Expired(a.now()) {
		return s, apperrors.NewBrokerError("session", "session expired", apperrors.ErrNotAuthenticated)
	}
	return s, nil
}

// Logout invalidates the saved token with Kite and removes the session file.
// A missing session file is not an error.
func (a *Authenticator) Logout() error {
	s, err := readSession(a.sessionFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err == nil && !s.Expired(a.now()) {
		a.client.SetAccessToken(s.AccessToken)
		if _, err := a.client.InvalidateAccessToken(); err != nil {
			// The file still goes; a token Kite already dropped is harmless.
			_ = os.Remove(a.sessionFile)
			return classify("session/token", err)
		}
	}
	if err := os.Remove(a.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(err, "removing session file")
	}
	return nil
}

func saveSession(path string, s *Session) error {
	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "encoding session")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return apperrors.Wrap(err, "creating session directory")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return apperrors.Wrap(err, "writing session file")
	}
	return nil
}

func readSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, errors.New("session file has no access_token")
	}
	return &s, nil
}

// loadSession reads a session that is still valid at now.
func loadSession(path string, now time.Time) (*Session, error) {
	s, err := readSession(path)
	if err != nil {
		return nil, err
	}
	// Kite tokens expire at 6 AM IST the next day.
	if s.Expired(now) {
		return nil, errors.New("session expired")
	}
	return s, nil
}
