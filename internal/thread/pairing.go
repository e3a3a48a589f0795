package thread

import (
	"github.com/loomchat/loom/internal/msg"
)

// Card is one display unit: a user turn paired with its assistant answer,
// or a standalone turn. Merge guarantees surviving messages have non-empty
// content, so an empty UserContent/AIContent means that side is absent.
type Card struct {
	ID          string         `json:"id"`
	UserContent string         `json:"userContent,omitempty"`
	AIContent   string         `json:"aiContent,omitempty"`
	Timestamp   msg.Timestamp  `json:"timestamp"`
	Resources   []msg.Resource `json:"resources,omitempty"`

	ThreadID       string `json:"threadId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`

	IsCurrent bool `json:"isCurrent"`
	IsStored  bool `json:"isStored"`
}

// HasContent reports whether either side of the card carries text.
func (c *Card) HasContent() bool {
	return c.UserContent != "" || c.AIContent != ""
}

// Pair walks a time-ordered, thread-stamped message sequence and emits
// conversation cards. A user message directly followed by an assistant
// message becomes one paired card; unpaired user and assistant messages
// become standalone cards. System messages feed the chat-history builder,
// not this stage, and are dropped before scanning.
func Pair(messages []msg.Message) []Card {
	turns := make([]msg.Message, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.Validate() != nil || m.Role == msg.RoleSystem {
			continue
		}
		turns = append(turns, *m)
	}

	cards := make([]Card, 0, len(turns))
	for i := 0; i < len(turns); i++ {
		m := &turns[i]

		if m.Role == msg.RoleUser && i+1 < len(turns) && turns[i+1].Role == msg.RoleAssistant {
			cards = append(cards, pairedCard(m, &turns[i+1]))
			i++
			continue
		}

		cards = append(cards, standaloneCard(m))
	}
	return cards
}

func pairedCard(user, assistant *msg.Message) Card {
	threadID := assistant.ThreadID
	if threadID == "" {
		threadID = user.ThreadID
	}
	conversationID := assistant.ConversationID
	if conversationID == "" {
		conversationID = user.ConversationID
	}

	return Card{
		ID:          user.ID + assistant.ID,
		UserContent: user.Content,
		AIContent:   assistant.Content,
		Timestamp:   assistant.Timestamp,
		Resources:   append([]msg.Resource(nil), assistant.Resources...),

		ThreadID:       threadID,
		ConversationID: conversationID,

		IsCurrent: user.IsCurrent || assistant.IsCurrent,
		// A half-synced pair is not durable: the card is stored only when
		// both contributing messages are.
		IsStored: user.IsStored && assistant.IsStored,
	}
}

func standaloneCard(m *msg.Message) Card {
	card := Card{
		ID:        m.ID,
		Timestamp: m.Timestamp,

		ThreadID:       m.ThreadID,
		ConversationID: m.ConversationID,

		IsCurrent: m.IsCurrent,
		IsStored:  m.IsStored,
	}
	if m.Role == msg.RoleAssistant {
		card.AIContent = m.Content
		card.Resources = append([]msg.Resource(nil), m.Resources...)
	} else {
		card.UserContent = m.Content
	}
	return card
}
