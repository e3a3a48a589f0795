package thread

import (
	"testing"
	"time"

	"github.com/loomchat/loom/internal/msg"
)

func TestPair_UserFollowedByAssistant(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "u1", Role: msg.RoleUser, Content: "question", Timestamp: msg.TimestampAt(base), ThreadID: "t-1"},
		{ID: "a1", Role: msg.RoleAssistant, Content: "answer", Timestamp: msg.TimestampAt(base.Add(time.Second)), ThreadID: "t-1",
			Resources: []msg.Resource{{URL: "https://example.com/source"}}},
	}

	cards := Pair(messages)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	card := cards[0]
	if card.ID != "u1a1" {
		t.Fatalf("expected concatenated id, got %q", card.ID)
	}
	if card.UserContent != "question" || card.AIContent != "answer" {
		t.Fatalf("unexpected card contents: %+v", card)
	}
	if card.ThreadID != "t-1" {
		t.Fatalf("expected assistant's thread id, got %q", card.ThreadID)
	}
	if !card.Timestamp.Valid || card.Timestamp.Millis != base.Add(time.Second).UnixMilli() {
		t.Fatalf("expected assistant timestamp, got %v", card.Timestamp)
	}
	if len(card.Resources) != 1 {
		t.Fatalf("expected assistant resources, got %+v", card.Resources)
	}
}

func TestPair_CardThreadFallsBackToUser(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "u1", Role: msg.RoleUser, Content: "question", Timestamp: msg.TimestampAt(base), ThreadID: "t-user"},
		{ID: "a1", Role: msg.RoleAssistant, Content: "answer", Timestamp: msg.TimestampAt(base.Add(time.Second))},
	}

	cards := Pair(messages)
	if cards[0].ThreadID != "t-user" {
		t.Fatalf("expected fallback to user thread id, got %q", cards[0].ThreadID)
	}
}

func TestPair_StandaloneUser(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "u1", Role: msg.RoleUser, Content: "first", Timestamp: msg.TimestampAt(base)},
		{ID: "u2", Role: msg.RoleUser, Content: "second", Timestamp: msg.TimestampAt(base.Add(time.Second))},
	}

	cards := Pair(messages)
	if len(cards) != 2 {
		t.Fatalf("expected 2 standalone cards, got %d", len(cards))
	}
	for _, card := range cards {
		if card.AIContent != "" {
			t.Fatalf("standalone user card must have no AI side: %+v", card)
		}
	}
}

func TestPair_StandaloneAssistantWelcome(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "a0", Role: msg.RoleAssistant, Content: "Welcome! How can I help?", Timestamp: msg.TimestampAt(base)},
	}

	cards := Pair(messages)
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].UserContent != "" || cards[0].AIContent == "" {
		t.Fatalf("expected assistant-only card, got %+v", cards[0])
	}
}

func TestPair_SystemMessagesSkipped(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "s1", Role: msg.RoleSystem, Content: "system prompt", Timestamp: msg.TimestampAt(base)},
		{ID: "u1", Role: msg.RoleUser, Content: "question", Timestamp: msg.TimestampAt(base.Add(time.Second))},
		{ID: "a1", Role: msg.RoleAssistant, Content: "answer", Timestamp: msg.TimestampAt(base.Add(2 * time.Second))},
	}

	cards := Pair(messages)
	if len(cards) != 1 {
		t.Fatalf("expected system message to vanish, got %d cards", len(cards))
	}
	if cards[0].UserContent != "question" || cards[0].AIContent != "answer" {
		t.Fatalf("expected the pair to survive, got %+v", cards[0])
	}
}

func TestPair_HalfSyncedPairIsNotStored(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "u1", Role: msg.RoleUser, Content: "q", Timestamp: msg.TimestampAt(base), IsStored: true, IsCurrent: true},
		{ID: "a1", Role: msg.RoleAssistant, Content: "a", Timestamp: msg.TimestampAt(base.Add(time.Second)), IsCurrent: true},
	}

	cards := Pair(messages)
	if cards[0].IsStored {
		t.Fatal("a half-synced pair must not be marked stored")
	}
	if !cards[0].IsCurrent {
		t.Fatal("expected OR-combined current flag")
	}
}

func TestPair_FullySyncedPairIsStored(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "u1", Role: msg.RoleUser, Content: "q", Timestamp: msg.TimestampAt(base), IsStored: true},
		{ID: "a1", Role: msg.RoleAssistant, Content: "a", Timestamp: msg.TimestampAt(base.Add(time.Second)), IsStored: true},
	}

	cards := Pair(messages)
	if !cards[0].IsStored {
		t.Fatal("expected pair with both sides stored to be stored")
	}
	if cards[0].IsCurrent {
		t.Fatal("expected no current flag")
	}
}
