// Package cli implements sessionctl, which inspects and edits the durable session.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-session/internal/config"
	"github.com/spec-kit/travel-session/internal/storage"
)

// ConfigLoader returns the configuration used by every command.
type ConfigLoader func() (*config.Config, error)

type env struct {
	load   ConfigLoader
	logger *zap.Logger
}

// NewRootCommand builds the sessionctl command tree.
func NewRootCommand(load ConfigLoader, logger *zap.Logger) *cobra.Command {
	if load == nil {
		load = config.Load
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &env{load: load, logger: logger}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Inspect and manage the stored travel session",
		Long: `sessionctl reads and writes the same durable storage as the session daemon.

Examples:
  # Show who is signed in and how long the token lives
  sessionctl status

  # Sign in against the configured API
  sessionctl login --email ana@example.com --password secret

  # Sign out everywhere this storage is shared
  sessionctl logout
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStatusCommand(e), newLoginCommand(e), newLogoutCommand(e))
	return root
}

// ExecuteContext runs sessionctl with the environment configuration.
func ExecuteContext(ctx context.Context, logger *zap.Logger) error {
	return NewRootCommand(config.Load, logger).ExecuteContext(ctx)
}

func (e *env) open(ctx context.Context) (*config.Config, *storage.Backend, error) {
	cfg, err := e.load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	backend, err := storage.Open(ctx, cfg, e.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", cfg.Session.Storage, err)
	}
	return cfg, backend, nil
}
