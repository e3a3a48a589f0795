package thread

import (
	"testing"
	"time"

	"github.com/loomchat/loom/internal/msg"
)

func at(t time.Time) msg.Timestamp {
	return msg.TimestampAt(t)
}

func TestResolve_ExplicitHintWinsVerbatim(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q", Timestamp: at(base), ThreadID: "t-1"},
		{Role: msg.RoleAssistant, Content: "a", Timestamp: at(base.Add(time.Second)), ConversationID: "c-9"},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[0] != "t-1" {
		t.Fatalf("expected explicit threadId, got %q", ids[0])
	}
	if ids[1] != "c-9" {
		t.Fatalf("expected conversationId hint, got %q", ids[1])
	}
}

func TestResolve_HintPriorityOrder(t *testing.T) {
	m := msg.Message{
		Role: msg.RoleUser, Content: "q",
		ThreadID:             "a",
		ConversationThreadID: "b",
		ConversationID:       "c",
	}
	if got := m.GroupingHint(); got != "a" {
		t.Fatalf("expected threadId first, got %q", got)
	}
	m.ThreadID = ""
	if got := m.GroupingHint(); got != "b" {
		t.Fatalf("expected conversationThreadId second, got %q", got)
	}
	m.ConversationThreadID = ""
	if got := m.GroupingHint(); got != "c" {
		t.Fatalf("expected conversationId third, got %q", got)
	}
}

func TestResolve_InheritsWithinGap(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base)},
		{Role: msg.RoleAssistant, Content: "a1", Timestamp: at(base.Add(29 * time.Minute))},
	}

	ids := Resolve(messages, 30*time.Minute)
	if ids[0] != ids[1] {
		t.Fatalf("expected same thread within gap, got %q vs %q", ids[0], ids[1])
	}
}

func TestResolve_GapSegmentation(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base)},
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(31 * time.Minute))},
	}

	ids := Resolve(messages, 30*time.Minute)
	if ids[0] == ids[1] {
		t.Fatalf("expected gap to start a new thread, both got %q", ids[0])
	}
}

func TestResolve_SessionChangeStartsNewThread(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base), SessionID: "s-1"},
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(time.Minute)), SessionID: "s-2"},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[0] == ids[1] {
		t.Fatalf("expected session change to split threads, both got %q", ids[0])
	}
}

func TestResolve_SessionIDIsAGroupingHint(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base), SessionID: "s-1"},
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(time.Minute))},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[0] != "s-1" {
		t.Fatalf("session id must resolve verbatim as the lowest-priority hint, got %q", ids[0])
	}
	if ids[1] != "s-1" {
		t.Fatalf("hint-less successor must inherit the session thread, got %q", ids[1])
	}
}

func TestResolve_BackwardRepairPullsUserToAnswer(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q", Timestamp: at(base)},
		{Role: msg.RoleAssistant, Content: "a", Timestamp: at(base.Add(time.Second)), ThreadID: "t-answer"},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[1] != "t-answer" {
		t.Fatalf("expected assistant to keep explicit id, got %q", ids[1])
	}
	if ids[0] != "t-answer" {
		t.Fatalf("expected user repaired to answer's thread, got %q", ids[0])
	}
}

func TestResolve_BackwardRepairSkipsExplicitUser(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q", Timestamp: at(base), ThreadID: "t-user"},
		{Role: msg.RoleAssistant, Content: "a", Timestamp: at(base.Add(time.Second)), ThreadID: "t-answer"},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[0] != "t-user" {
		t.Fatalf("user with its own hint must not be repaired, got %q", ids[0])
	}
}

func TestResolve_BackwardRepairOnlyAdjacent(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base)},
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(time.Second))},
		{Role: msg.RoleAssistant, Content: "a", Timestamp: at(base.Add(2 * time.Second)), ThreadID: "t-answer"},
	}

	ids := Resolve(messages, DefaultGapThreshold)
	if ids[2] != "t-answer" || ids[1] != "t-answer" {
		t.Fatalf("expected adjacent user repaired, got %q %q", ids[1], ids[2])
	}
	if ids[0] == "t-answer" {
		t.Fatal("repair must not reach past the adjacent predecessor")
	}
}

func TestResolve_MalformedInheritsWithoutAdvancingState(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base)},
		{Role: msg.RoleUser, Content: "", Timestamp: at(base.Add(time.Hour))}, // malformed: no content
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(time.Minute))},
	}

	ids := Resolve(messages, 30*time.Minute)
	if ids[1] != ids[0] {
		t.Fatalf("malformed entry should inherit, got %q vs %q", ids[1], ids[0])
	}
	// The malformed entry's timestamp must not have fed the gap check.
	if ids[2] != ids[0] {
		t.Fatalf("expected q2 to stay in thread, got %q vs %q", ids[2], ids[0])
	}
}

func TestResolve_DeterministicAcrossRuns(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{ID: "m1", Role: msg.RoleUser, Content: "q1", Timestamp: at(base)},
		{Role: msg.RoleAssistant, Content: "a1", Timestamp: at(base.Add(time.Second))},
		{Role: msg.RoleUser, Content: "q2", Timestamp: at(base.Add(2 * time.Hour))},
	}

	first := Resolve(messages, DefaultGapThreshold)
	second := Resolve(messages, DefaultGapThreshold)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("resolution not deterministic at %d: %q vs %q", i, first[i], second[i])
		}
	}
	if first[0] == first[2] {
		t.Fatal("expected the 2h gap to split threads")
	}
}

func TestResolve_StableUnderAppend(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1", Timestamp: at(base), ThreadID: "t-1"},
		{Role: msg.RoleAssistant, Content: "a1", Timestamp: at(base.Add(time.Second)), ThreadID: "t-1"},
	}

	before := Resolve(messages, DefaultGapThreshold)

	appended := append(append([]msg.Message(nil), messages...), msg.Message{
		Role: msg.RoleUser, Content: "q2",
		Timestamp: at(base.Add(2 * time.Second)),
		ThreadID:  "t-1",
	})
	after := Resolve(appended, DefaultGapThreshold)

	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("append changed resolution at %d: %q vs %q", i, after[i], before[i])
		}
	}
	if after[2] != "t-1" {
		t.Fatalf("appended message must join its explicit thread, got %q", after[2])
	}
}

func TestResolve_NoTimestampSynthesisUsesIndex(t *testing.T) {
	messages := []msg.Message{
		{Role: msg.RoleUser, Content: "q1"},
	}
	ids := Resolve(messages, DefaultGapThreshold)
	if ids[0] == "" {
		t.Fatal("expected a synthesized id")
	}
	again := Resolve(messages, DefaultGapThreshold)
	if ids[0] != again[0] {
		t.Fatalf("synthesized id not stable: %q vs %q", ids[0], again[0])
	}
}
