package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomchat/loom/internal/logging"
	"github.com/loomchat/loom/internal/msg"
	"github.com/loomchat/loom/internal/thread"
)

func newMergeCmd(state *appState) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge <messages.json>",
		Short: "Merge a live-session message dump into the store",
		Long: "Read a JSON array of raw session messages, merge it against the stored set, " +
			"and persist the deduplicated, thread-stamped result.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.Component("merge")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			current, dropped, err := msg.DecodeJSON(data)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if dropped > 0 {
				log.Warn().Int("dropped", dropped).Msg("some records were not usable messages")
			}

			repo, cleanup, err := state.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			stored, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			merged := thread.Merge(current, stored, state.cfg.Engine.GapThreshold)
			threads := thread.Aggregate(thread.Pair(merged))

			if dryRun {
				cmd.Printf("Would persist %d messages across %d threads (%d records dropped)\n",
					len(merged), len(threads), dropped)
				return nil
			}

			batchID, err := repo.SaveMerged(cmd.Context(), merged, dropped)
			if err != nil {
				return err
			}

			log.Info().
				Str("batch_id", batchID).
				Int("messages", len(merged)).
				Int("threads", len(threads)).
				Msg("merge persisted")
			cmd.Printf("Merged %d messages into %d threads (batch %s)\n",
				len(merged), len(threads), shortID(batchID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the merge without persisting")
	return cmd
}
