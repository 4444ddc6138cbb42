package broker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/pkg/utils"
)

type fakeSessionClient struct {
	token         string
	sessionErr    error
	invalidateErr error
	invalidated   []string
	gotRequest    string
	gotSecret     string
}

func (f *fakeSessionClient) GetLoginURL() string {
	return "https://kite.zerodha.com/connect/login?api_key=key&v=3"
}

func (f *fakeSessionClient) GenerateSession(requestToken, apiSecret string) (kiteconnect.UserSession, error) {
	f.gotRequest, f.gotSecret = requestToken, apiSecret
	if f.sessionErr != nil {
		return kiteconnect.UserSession{}, f.sessionErr
	}
	us := kiteconnect.UserSession{UserID: "AB1234"}
	us.AccessToken = "access-1"
	us.UserName = "Asha"
	return us, nil
}

func (f *fakeSessionClient) SetAccessToken(accessToken string) { f.token = accessToken }

func (f *fakeSessionClient) InvalidateAccessToken() (bool, error) {
	f.invalidated = append(f.invalidated, f.token)
	return f.invalidateErr == nil, f.invalidateErr
}

func testAuthenticator(t *testing.T, client sessionAPI, secret string, now time.Time) (*Authenticator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	a := newAuthenticator(client, secret, path)
	a.now = func() time.Time { return now }
	return a, path
}

func TestAuthenticator_CompleteLogin(t *testing.T) {
	t.Parallel()

	// 20:00 IST on 2 March
	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	client := &fakeSessionClient{}
	a, path := testAuthenticator(t, client, "secret", now)

	assert.Contains(t, a.LoginURL(), "api_key=key")

	s, err := a.CompleteLogin("  req-1 ")
	require.NoError(t, err)
	assert.Equal(t, "req-1", client.gotRequest)
	assert.Equal(t, "secret", client.gotSecret)
	assert.Equal(t, "access-1", s.AccessToken)
	assert.Equal(t, "AB1234", s.UserID)
	assert.Equal(t, "Asha", s.UserName)
	assert.True(t, s.ExpiresAt.Equal(time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC)), s.ExpiresAt)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loadSession(path, now)
	require.NoError(t, err)
	assert.Equal(t, "access-1", loaded.AccessToken)

	got, err := a.Status()
	require.NoError(t, err)
	assert.Equal(t, "AB1234", got.UserID)
}

func TestAuthenticator_LoginErrors(t *testing.T) {
	t.Parallel()

	now := time.Now()

	a, _ := testAuthenticator(t, &fakeSessionClient{}, "secret", now)
	_, err := a.CompleteLogin(" ")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	a, _ = testAuthenticator(t, &fakeSessionClient{}, "", now)
	_, err = a.CompleteLogin("req")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	client := &fakeSessionClient{sessionErr: kiteconnect.Error{Code: 403, ErrorType: "TokenException", Message: "Token is invalid or has expired."}}
	a, path := testAuthenticator(t, client, "secret", now)
	_, err = a.CompleteLogin("req")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no session written on failure")

	_, err = NewAuthenticator("", "secret", path)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestAuthenticator_StatusAndLogout(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	client := &fakeSessionClient{}
	a, path := testAuthenticator(t, client, "secret", now)

	_, err := a.Status()
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.NoError(t, a.Logout(), "logout without a session is a no-op")
	assert.Empty(t, client.invalidated)

	_, err = a.CompleteLogin("req")
	require.NoError(t, err)

	a.now = func() time.Time { return now.Add(12 * time.Hour) }
	s, err := a.Status()
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	require.NotNil(t, s, "expired sessions are still reported")
	require.NoError(t, a.Logout())
	assert.Empty(t, client.invalidated, "expired tokens are not sent to Kite")

	a.now = func() time.Time { return now }
	_, err = a.CompleteLogin("req")
	require.NoError(t, err)
	require.NoError(t, a.Logout())
	assert.Equal(t, []string{"access-1"}, client.invalidated)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAuthenticator_LogoutRemovesFileOnKiteError(t *testing.T) {
	t.Parallel()

	now := time.Now()
	client := &fakeSessionClient{invalidateErr: kiteconnect.Error{Code: 503, ErrorType: "NetworkException", Message: "down"}}
	a, path := testAuthenticator(t, client, "secret", now)
	_, err := a.CompleteLogin("req")
	require.NoError(t, err)

	err = a.Logout()
	assert.ErrorIs(t, err, apperrors.ErrConnectionFailed)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSessionExpiryMatchesSavedSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 0, 15, 0, 0, time.UTC) // 05:45 IST
	a, _ := testAuthenticator(t, &fakeSessionClient{}, "secret", now)
	s, err := a.CompleteLogin("req")
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Equal(utils.SessionExpiry(now)))
	assert.Equal(t, 15*time.Minute, s.ExpiresAt.Sub(now))
}
