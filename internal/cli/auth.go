package cli

import (
	"bufio"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kite-riskdesk/internal/broker"
	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/pkg/utils"
)

// authenticator is what the auth commands need from broker.Authenticator.
type authenticator interface {
	LoginURL() string
	CompleteLogin(requestToken string) (*broker.Session, error)
	Status() (*broker.Session, error)
	Logout() error
}

func kiteAuthenticator(app *App) (authenticator, error) {
	b := app.Config.Broker
	auth, err := broker.NewAuthenticator(b.APIKey, b.APISecret, app.Config.SessionFilePath())
	if err != nil {
		return nil, err
	}
	return auth, nil
}

func addAuthCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newAuthStatusCmd(app))
}

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Kite Connect and save the access token",
		Long: `Log in to Kite Connect.

Open the printed URL, sign in, and copy the request_token parameter from the
page Kite redirects to. Pass it with --token or paste it when asked. The
access token is saved to the session file and lasts until 6 AM IST.`,
		Example: `  riskdesk login
  riskdesk login --token <request_token>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			auth, err := app.authenticator(app)
			if err != nil {
				return err
			}

			token, _ := cmd.Flags().GetString("token")
			if token == "" && output.IsJSON() {
				return apperrors.NewValidationError("token", token, "--token is required with --json")
			}
			if token == "" {
				output.Bold("Login URL:")
				output.Println(auth.LoginURL())
				output.Println()
				output.Info("After logging in, copy request_token from the redirect URL.")
				output.Printf("request_token> ")
				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				token = strings.TrimSpace(line)
				if token == "" {
					return apperrors.NewValidationError("token", token, "no request token provided")
				}
			}

			s, err := auth.CompleteLogin(token)
			if err != nil {
				output.Error("Login failed: %v", err)
				return err
			}
			app.Logger.Info().Str("user_id", s.UserID).Time("expires_at", s.ExpiresAt).Msg("Kite session saved")

			if output.IsJSON() {
				return output.JSON(sessionView(s, time.Now()))
			}
			output.Success("✓ Login successful!")
			showSession(output, s, app.Config.SessionFilePath())
			return nil
		},
	}

	cmd.Flags().String("token", "", "Request token from the redirect URL")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the saved Kite session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			auth, err := app.authenticator(app)
			if err != nil {
				return err
			}
			if err := auth.Logout(); err != nil {
				output.Error("Logout failed: %v", err)
				return err
			}
			app.Logger.Info().Msg("Kite session removed")

			if output.IsJSON() {
				return output.JSON(map[string]any{
					"success":   true,
					"timestamp": time.Now().Format(time.RFC3339),
				})
			}
			output.Success("✓ Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-status",
		Short: "Show the saved Kite session and when it expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			auth, err := app.authenticator(app)
			if err != nil {
				return err
			}
			s, err := auth.Status()
			if output.IsJSON() {
				view := map[string]any{"authenticated": err == nil}
				if s != nil {
					view["session"] = sessionView(s, time.Now())
				}
				return output.JSON(view)
			}
			if s == nil {
				output.Warning("Not logged in. Run 'riskdesk login'.")
				return nil
			}
			if err != nil {
				output.Warning("Session expired. Run 'riskdesk login'.")
			}
			showSession(output, s, app.Config.SessionFilePath())
			return nil
		},
	}
}

type sessionStatus struct {
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Remaining string    `json:"remaining"`
}

func sessionView(s *broker.Session, now time.Time) sessionStatus {
	return sessionStatus{
		UserID:    s.UserID,
		UserName:  s.UserName,
		ExpiresAt: s.ExpiresAt,
		Remaining: utils.FormatRemaining(s.ExpiresAt.Sub(now)),
	}
}

func showSession(output *Output, s *broker.Session, path string) {
	v := sessionView(s, time.Now())
	output.Bold("Session")
	output.Printf("  User ID:    %s\n", orDash(v.UserID))
	if v.UserName != "" {
		output.Printf("  Name:       %s\n", v.UserName)
	}
	output.Printf("  Expires:    %s (%s)\n", v.ExpiresAt.In(utils.IndiaLocation).Format("02 Jan 2006, 03:04 PM"), v.Remaining)
	output.Dim("  File:       %s", path)
}
