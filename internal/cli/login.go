package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/travel-session/internal/apiclient"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/navigation"
	"github.com/spec-kit/travel-session/internal/session"
	"github.com/spec-kit/travel-session/internal/storage"
)

const passwordEnv = "SESSIONCTL_PASSWORD"

func newLoginCommand(e *env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if email == "" || password == "" {
				return errors.New("--email and --password (or " + passwordEnv + ") are required")
			}

			ctx := cmd.Context()
			cfg, backend, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			client := apiclient.New(apiclient.Options{
				BaseURL: cfg.API.BaseURL,
				Timeout: cfg.API.Timeout(),
				Logger:  e.logger,
			})
			resp, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}

			manager := e.manager(cfg, backend)
			defer manager.Close()
			if err := manager.SetSession(ctx, resp.Session()); err != nil {
				return err
			}

			sess := manager.GetSession()
			if sess == nil {
				return errors.New("session ended before it could be stored")
			}
			who := email
			if sess.User != nil && sess.User.Email != "" {
				who = sess.User.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s until %s\n", who, sess.ExpirationTime.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, backend, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			manager := e.manager(cfg, backend)
			defer manager.Close()
			manager.ClearSession(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

// manager builds a session manager over the durable store. sessionctl never
// bootstraps it, so its timers only live for the duration of one command.
func (e *env) manager(cfg *config.Config, backend *storage.Backend) *session.Manager {
	return session.NewManager(session.Dependencies{
		Store:     backend.Store,
		Decoder:   auth.NewDecoder(cfg.Session.TokenSecret),
		Navigator: navigation.NewHistory(navigation.HomePath, e.logger),
		Logger:    e.logger,
	}, session.Options{
		ValidationInterval: cfg.Session.ValidationInterval(),
		MaxTimerSegment:    cfg.Session.MaxTimerSegment(),
		LoginPath:          cfg.Session.LoginPath,
	})
}
