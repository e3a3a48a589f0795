package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomchat/loom/internal/thread"
)

const previewLimit = 48

func newThreadsCmd(state *appState) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List reconstructed conversation threads",
		Long:  "Load stored messages, reconstruct threads, and print them newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := state.openStore()
			if err != nil {
				return err
			}
			defer cleanup()

			stored, err := repo.Load(cmd.Context())
			if err != nil {
				return err
			}

			merged := thread.Merge(nil, stored, state.cfg.Engine.GapThreshold)
			threads := thread.Aggregate(thread.Pair(merged))

			max := limit
			if max <= 0 {
				max = state.cfg.Engine.MaxThreads
			}
			if max > 0 && len(threads) > max {
				threads = threads[:max]
			}

			return printThreads(cmd, threads, state.styled())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max threads to show (0 uses engine.max_threads)")
	return cmd
}

func printThreads(cmd *cobra.Command, threads []thread.Thread, styled bool) error {
	if len(threads) == 0 {
		cmd.Println("No threads.")
		return nil
	}

	headers := []string{"THREAD", "CARDS", "UPDATED", "SOURCE", "PREVIEW"}
	if styled {
		headers = styleHeaders(headers)
	}

	rows := make([][]string, 0, len(threads))
	for i := range threads {
		t := &threads[i]
		rows = append(rows, []string{
			shortID(t.ID),
			strconv.Itoa(t.ConversationCount),
			t.Timestamp.String(),
			styleSource(sourceLabel(t.IsCurrent, t.IsStored), styled),
			preview(t),
		})
	}

	return writeTable(cmd.OutOrStdout(), headers, rows)
}

func sourceLabel(isCurrent, isStored bool) string {
	switch {
	case isCurrent && isStored:
		return "both"
	case isCurrent:
		return "current"
	case isStored:
		return "stored"
	}
	return "-"
}

func preview(t *thread.Thread) string {
	text := t.UserContent
	if text == "" {
		text = t.AIContent
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "…"
	}
	return text
}

func shortID(id string) string {
	const limit = 24
	if len(id) <= limit {
		return id
	}
	return id[:limit]
}
