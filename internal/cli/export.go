package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomchat/loom/internal/thread"
)

func newExportCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <thread-id>",
		Short: "Export one thread as a completion-ready transcript",
		Long:  "Print a thread's user/assistant turns as JSON, the shape the completion pipeline consumes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := state.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			messages, err := repo.LoadThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				return fmt.Errorf("thread %s not found", args[0])
			}

			turns := thread.BuildHistory(messages)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(turns)
		},
	}
	return cmd
}
