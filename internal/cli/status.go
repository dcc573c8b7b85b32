package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/domain"
)

// StatusReport is the stored session as seen by sessionctl.
type StatusReport struct {
	Storage       string              `json:"storage"`
	Authenticated bool                `json:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	Remaining     string              `json:"remaining,omitempty"`
	Problem       string              `json:"problem,omitempty"`
}

func newStatusCommand(e *env) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, backend, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer backend.Close()

			rec, err := backend.Store.Load(ctx)
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}

			report := StatusReport{Storage: cfg.Session.Storage, User: rec.User}
			if !rec.Empty() {
				claims, err := auth.NewDecoder(cfg.Session.TokenSecret).Decode(rec.Token)
				if err != nil {
					report.Problem = err.Error()
				} else {
					exp := claims.ExpiresAt()
					report.ExpiresAt = &exp
					if left := time.Until(exp); left > 0 {
						report.Authenticated = true
						report.Remaining = left.Truncate(time.Second).String()
					} else {
						report.Problem = "token expired"
					}
				}
			}
			return writeStatus(cmd.OutOrStdout(), format, report)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func writeStatus(w io.Writer, format string, report StatusReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "text":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "storage:  %s\n", report.Storage)
	if !report.Authenticated {
		fmt.Fprintln(w, "session:  anonymous")
		if report.Problem != "" {
			fmt.Fprintf(w, "problem:  %s\n", report.Problem)
		}
		return nil
	}
	fmt.Fprintln(w, "session:  authenticated")
	if report.User != nil {
		fmt.Fprintf(w, "user:     %s <%s> (%s)\n", report.User.Name, report.User.Email, report.User.Role)
	}
	fmt.Fprintf(w, "expires:  %s (in %s)\n", report.ExpiresAt.Format(time.RFC3339), report.Remaining)
	return nil
}
