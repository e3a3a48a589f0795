// Package thread reconstructs stable conversation threads from flat,
// loosely-ordered message collections: it resolves thread ids, merges the
// live-session and persisted provenances, pairs question/answer turns into
// cards, and aggregates cards into display threads.
package thread

import (
	"fmt"
	"time"

	"github.com/loomchat/loom/internal/msg"
)

// DefaultGapThreshold is the maximum silence between consecutive messages
// still considered part of the same thread absent other signals.
const DefaultGapThreshold = 30 * time.Minute

// Resolve assigns one thread id per message. Messages must arrive in their
// natural chronological order; the result is aligned by index.
//
// A message with an explicit grouping hint keeps it verbatim; session ids
// are the lowest-priority hint, so a session change splits threads through
// this path. A hint-less message inherits its predecessor's id unless the
// time gap exceeded the threshold, in which case a deterministic id is
// synthesized. When an assistant message carries an explicit id that
// disagrees with the hint-less user message directly before it, the user
// message is retroactively pulled into the assistant's thread.
//
// Resolve is pure: same (messages, gapThreshold) in, same ids out.
func Resolve(messages []msg.Message, gapThreshold time.Duration) []string {
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}

	ids := make([]string, len(messages))

	var (
		lastThreadID  string
		lastTimestamp msg.Timestamp
	)

	for i := range messages {
		m := &messages[i]

		// Malformed entries inherit without advancing any state.
		if m.Validate() != nil {
			if lastThreadID != "" {
				ids[i] = lastThreadID
			} else {
				ids[i] = synthesizeID(m, i)
			}
			continue
		}

		explicit := m.GroupingHint()
		switch {
		case explicit != "":
			ids[i] = explicit
			repairPrecedingUser(messages, ids, i, explicit)
		case lastThreadID == "" || gapExceeded(m.Timestamp, lastTimestamp, gapThreshold):
			ids[i] = synthesizeID(m, i)
		default:
			ids[i] = lastThreadID
		}

		lastThreadID = ids[i]
		lastTimestamp = m.Timestamp
	}

	return ids
}

// gapExceeded reports whether two valid timestamps are further apart than
// the threshold. Either side invalid means no gap evidence, so inherit.
func gapExceeded(current, previous msg.Timestamp, threshold time.Duration) bool {
	gap, ok := current.Gap(previous)
	return ok && gap > threshold
}

// repairPrecedingUser reassigns the immediately preceding user message to
// an assistant's explicit thread, keeping a question glued to its answer
// when only the answer carries metadata. Only the adjacent predecessor is
// repaired; anything further back keeps its resolved id.
func repairPrecedingUser(messages []msg.Message, ids []string, i int, explicit string) {
	if i == 0 || messages[i].Role != msg.RoleAssistant {
		return
	}
	prev := &messages[i-1]
	if prev.Role != msg.RoleUser || prev.HasExplicitThread() {
		return
	}
	if ids[i-1] != explicit {
		ids[i-1] = explicit
	}
}

// synthesizeID builds a deterministic fallback id from the message's
// timestamp (or its index when no timestamp) and its own id (or the index
// when it has none). Stable and collision-free within a run.
func synthesizeID(m *msg.Message, index int) string {
	var stamp int64
	if m.Timestamp.Valid {
		stamp = m.Timestamp.Millis
	} else {
		stamp = int64(index)
	}
	suffix := m.ID
	if suffix == "" {
		suffix = fmt.Sprintf("seq%d", index)
	}
	return fmt.Sprintf("thread-%d-%s", stamp, suffix)
}
