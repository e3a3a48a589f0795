// Package msg defines the canonical chat message model and the
// normalization steps that turn loosely-shaped records into it.
package msg

import (
	"errors"
	"strings"
)

// Message validation errors.
var (
	ErrMissingRole    = errors.New("missing role")
	ErrMissingContent = errors.New("missing content")
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a role or legacy type value onto the canonical role space.
// "ai" is an accepted synonym for assistant. Returns false for anything else.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "user":
		return RoleUser, true
	case "assistant", "ai":
		return RoleAssistant, true
	case "system":
		return RoleSystem, true
	}
	return "", false
}

// Resource is a reference attached to a message (a cited document, link, ...).
type Resource struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// Key returns the dedup key for a resource: id, else url, else title.
func (r Resource) Key() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	if r.URL != "" {
		return "url:" + r.URL
	}
	if r.Title != "" {
		return "title:" + r.Title
	}
	return ""
}

// Message is the canonical message shape every component downstream of
// ingestion operates on.
type Message struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Timestamp is the normalized creation time. RawTimestamp preserves the
	// original textual form for identity keys when normalization failed.
	Timestamp    Timestamp `json:"timestamp"`
	RawTimestamp string    `json:"rawTimestamp,omitempty"`

	// Grouping hints, in descending priority. None is guaranteed present.
	ThreadID             string `json:"threadId,omitempty"`
	ConversationThreadID string `json:"conversationThreadId,omitempty"`
	ConversationID       string `json:"conversationId,omitempty"`
	ParentConversationID string `json:"parentConversationId,omitempty"`
	SessionID            string `json:"sessionId,omitempty"`

	Resources []Resource `json:"resources,omitempty"`

	// IdentityKey pins the deduplication identity computed when the message
	// first went through a merge. The grouping fields above are
	// resolver-stamped after merging, so a fallback key recomputed from a
	// stamped record would never match a fresh copy of the same message;
	// the original key has to travel with the record instead.
	IdentityKey string `json:"identityKey,omitempty"`

	// Provenance. Not mutually exclusive: a message that has been synced is
	// both current and stored.
	IsCurrent bool `json:"isCurrent"`
	IsStored  bool `json:"isStored"`
}

// GroupingHint returns the first explicit grouping id in priority order,
// or "" when the message carries none.
func (m *Message) GroupingHint() string {
	for _, candidate := range []string{
		m.ThreadID,
		m.ConversationThreadID,
		m.ConversationID,
		m.ParentConversationID,
		m.SessionID,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// HasExplicitThread reports whether the message carries a grouping hint of
// its own, as opposed to a thread id stamped on by the resolver.
func (m *Message) HasExplicitThread() bool {
	return m.GroupingHint() != ""
}

// Validate checks the invariants every message must satisfy after merge.
func (m *Message) Validate() error {
	if m.Role == "" {
		return ErrMissingRole
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrMissingContent
	}
	return nil
}

// Clone returns a deep copy; the engine hands out copies so callers can
// never mutate each other's view of a message.
func (m *Message) Clone() Message {
	out := *m
	if m.Resources != nil {
		out.Resources = append([]Resource(nil), m.Resources...)
	}
	return out
}
