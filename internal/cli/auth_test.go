package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-riskdesk/internal/broker"
	"kite-riskdesk/internal/config"
	apperrors "kite-riskdesk/internal/errors"
)

type fakeAuth struct {
	session   *broker.Session
	statusErr error
	loginErr  error
	tokens    []string
	loggedOut bool
}

func (f *fakeAuth) LoginURL() string { return "https://kite.zerodha.com/connect/login?api_key=key" }

func (f *fakeAuth) CompleteLogin(requestToken string) (*broker.Session, error) {
	f.tokens = append(f.tokens, requestToken)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.session = &broker.Session{AccessToken: "tok", UserID: "AB1234", ExpiresAt: time.Now().Add(3 * time.Hour)}
	return f.session, nil
}

func (f *fakeAuth) Status() (*broker.Session, error) { return f.session, f.statusErr }

func (f *fakeAuth) Logout() error {
	f.loggedOut = true
	return nil
}

func runAuth(t *testing.T, auth *fakeAuth, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&App{
		Config:        config.Default(),
		Logger:        zerolog.Nop(),
		authenticator: func(*App) (authenticator, error) { return auth, nil },
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLogin_WithTokenFlag(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	out, err := runAuth(t, auth, "", "login", "--token", "req-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"req-1"}, auth.tokens)
	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "AB1234")
	assert.NotContains(t, out, "Login URL")
}

func TestLogin_PromptsForToken(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	out, err := runAuth(t, auth, "req-2\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key=key")
	assert.Equal(t, []string{"req-2"}, auth.tokens)

	_, err = runAuth(t, &fakeAuth{}, "\n", "login")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	_, err = runAuth(t, &fakeAuth{}, "", "login", "--json")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)
}

func TestLogin_Failure(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{loginErr: apperrors.NewBrokerError("session/token", "Token is invalid", apperrors.ErrNotAuthenticated)}
	out, err := runAuth(t, auth, "", "login", "--token", "bad")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.Contains(t, out, "Login failed")
}

func TestAuthStatus(t *testing.T) {
	t.Parallel()

	out, err := runAuth(t, &fakeAuth{statusErr: apperrors.ErrNotAuthenticated}, "", "auth-status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	expired := &fakeAuth{
		session:   &broker.Session{UserID: "AB1234", ExpiresAt: time.Now().Add(-time.Hour)},
		statusErr: apperrors.ErrNotAuthenticated,
	}
	out, err = runAuth(t, expired, "", "auth-status")
	require.NoError(t, err)
	assert.Contains(t, out, "Session expired")
	assert.Contains(t, out, "expired)")

	live := &fakeAuth{session: &broker.Session{UserID: "AB1234", ExpiresAt: time.Now().Add(2*time.Hour + 30*time.Second)}}
	out, err = runAuth(t, live, "", "auth-status", "--json")
	require.NoError(t, err)
	var got struct {
		Authenticated bool          `json:"authenticated"`
		Session       sessionStatus `json:"session"`
	}
	require.NoError(t, sonic.UnmarshalString(out, &got))
	assert.True(t, got.Authenticated)
	assert.Equal(t, "AB1234", got.Session.UserID)
	assert.Equal(t, "2h 0m", got.Session.Remaining)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	out, err := runAuth(t, auth, "", "logout")
	require.NoError(t, err)
	assert.True(t, auth.loggedOut)
	assert.Contains(t, out, "Logged out")
}

func TestLogin_NeedsAPIKey(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Dir = t.TempDir()
	_, err := run(t, cfg, "login", "--token", "x")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}
