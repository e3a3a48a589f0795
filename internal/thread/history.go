package thread

import (
	"strings"

	"github.com/loomchat/loom/internal/msg"
)

// Turn is one role/content line of a transcript handed to an external
// completion request.
type Turn struct {
	Role    msg.Role `json:"role"`
	Content string   `json:"content"`
}

// BuildHistory reduces thread-stamped messages to the transcript shape the
// completion pipeline consumes: user and assistant turns only, with
// whitespace-only content dropped.
func BuildHistory(messages []msg.Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.Role != msg.RoleUser && m.Role != msg.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: content})
	}
	return turns
}

// BuildThreadHistory is BuildHistory restricted to one thread.
func BuildThreadHistory(messages []msg.Message, threadID string) []Turn {
	scoped := make([]msg.Message, 0, len(messages))
	for i := range messages {
		if messages[i].ThreadID == threadID {
			scoped = append(scoped, messages[i])
		}
	}
	return BuildHistory(scoped)
}
