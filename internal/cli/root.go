// Package cli wires configuration, storage and services into the recall command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/msomdec/recall/internal/config"
	"github.com/msomdec/recall/internal/logger"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

// NewRootCommand returns the recall command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "recall",
		Short: "Spaced-repetition flashcards over GraphQL",
		Long: `recall stores prompt/solution cards and schedules their reviews.

A successful review doubles the time until the card is due again,
a failed one halves it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(a),
		newMigrateCommand(a),
		newInitStoreCommand(a),
		newUserCommand(a),
		newHashPasswordCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Options{
		Env:    cfg.Env,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Out:    cmd.OutOrStdout(),
		Err:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	slog.SetDefault(log)

	a.cfg, a.log = cfg, log
	return nil
}
