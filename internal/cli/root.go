// Package cli implements the loom command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loomchat/loom/internal/config"
	"github.com/loomchat/loom/internal/db"
	"github.com/loomchat/loom/internal/logging"
)

// appState carries what every subcommand needs after the root pre-run.
type appState struct {
	cfg   *config.Config
	plain bool
}

// Execute runs the loom CLI.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	state := &appState{}
	var configFile string

	cmd := &cobra.Command{
		Use:           "loom",
		Short:         "Reconstruct and merge chat conversation threads",
		Long:          "loom merges live-session and stored chat messages into stable, deduplicated conversation threads.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader()
			if configFile != "" {
				loader.SetConfigFile(configFile)
			}
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			state.cfg = cfg

			logging.Init(logging.Config{
				Level:        cfg.Logging.Level,
				Format:       cfg.Logging.Format,
				EnableCaller: cfg.Logging.EnableCaller,
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path")
	cmd.PersistentFlags().BoolVar(&state.plain, "plain", false, "Disable styled output")

	cmd.AddCommand(
		newThreadsCmd(state),
		newMergeCmd(state),
		newExportCmd(state),
	)

	return cmd
}

// openStore opens the configured database and returns the repository plus
// a cleanup func.
func (s *appState) openStore() (*db.MessageRepository, func(), error) {
	if err := s.cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	database, err := db.Open(s.cfg.DatabasePath(), s.cfg.Database.BusyTimeoutMs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to migrate store: %w", err)
	}
	return db.NewMessageRepository(database), func() { database.Close() }, nil
}

// styled reports whether output should carry ANSI styling.
func (s *appState) styled() bool {
	return !s.plain && hasTTY()
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
