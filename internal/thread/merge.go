package thread

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loomchat/loom/internal/msg"
)

// noConversationKey stands in for a grouping hint in identity keys when a
// message carries none.
const noConversationKey = "no-conversation"

// IdentityKey derives the deduplication key for a message: the key pinned
// by an earlier merge when present, else its own id, else grouping hint +
// timestamp + role + content fingerprint. Two records with the same key
// are the same message seen from different provenances. The pinned key
// takes precedence because merge stamps resolved thread ids onto the
// grouping fields, which would shift the fallback key on the next pass.
func IdentityKey(m *msg.Message) string {
	if m.IdentityKey != "" {
		return m.IdentityKey
	}
	if m.ID != "" {
		return "id:" + m.ID
	}

	hint := m.GroupingHint()
	if hint == "" {
		hint = noConversationKey
	}

	var stamp string
	switch {
	case m.Timestamp.Valid:
		stamp = strconv.FormatInt(m.Timestamp.Millis, 10)
	case strings.TrimSpace(m.RawTimestamp) != "":
		stamp = m.RawTimestamp
	default:
		stamp = "no-timestamp"
	}

	return strings.Join([]string{hint, stamp, string(m.Role), m.Fingerprint()}, "|")
}

// Merge unions the live-session and persisted message sets into one
// deduplicated, chronologically ordered, thread-stamped sequence.
//
// Stored records are inserted first, current records second; a later
// insertion with an existing identity key merges into the earlier record:
// provenance flags are OR-combined, every other field takes the
// most-recently-inserted value. Records without a usable timestamp are
// dropped before sorting. Merge is idempotent and commutative with
// respect to membership.
func Merge(current, stored []msg.Message, gapThreshold time.Duration) []msg.Message {
	type entry struct {
		message msg.Message
		order   int
	}

	entries := make(map[string]*entry, len(current)+len(stored))
	order := make([]string, 0, len(current)+len(stored))

	insert := func(m msg.Message) {
		if m.Validate() != nil {
			return
		}
		key := IdentityKey(&m)
		// Pin the key before thread ids get stamped on, so the record
		// still deduplicates against a fresh copy of itself next run.
		m.IdentityKey = key
		if existing, ok := entries[key]; ok {
			m.IsCurrent = m.IsCurrent || existing.message.IsCurrent
			m.IsStored = m.IsStored || existing.message.IsStored
			existing.message = m
			return
		}
		entries[key] = &entry{message: m, order: len(order)}
		order = append(order, key)
	}

	for i := range stored {
		m := stored[i].Clone()
		m.IsStored = true
		m.IsCurrent = false
		insert(m)
	}
	for i := range current {
		m := current[i].Clone()
		m.IsCurrent = true
		insert(m)
	}

	merged := make([]msg.Message, 0, len(order))
	for _, key := range order {
		m := entries[key].message
		if !m.Timestamp.Valid {
			continue
		}
		merged = append(merged, m)
	}

	// Stable: equal timestamps keep insertion order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Millis < merged[j].Timestamp.Millis
	})

	ids := Resolve(merged, gapThreshold)
	for i := range merged {
		stampThreadID(&merged[i], ids[i])
	}

	return merged
}

// stampThreadID fills the grouping fields that had no explicit value with
// the resolved thread id, so every surviving message groups consistently.
func stampThreadID(m *msg.Message, resolved string) {
	if m.ThreadID == "" {
		m.ThreadID = resolved
	}
	if m.ConversationThreadID == "" {
		m.ConversationThreadID = resolved
	}
	if m.ConversationID == "" {
		m.ConversationID = resolved
	}
}
