package msg

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Decode normalizes one loosely-shaped record into the canonical Message.
// It accepts the field synonyms that show up across the two provenances
// ("type" for "role", "conversationThreadId" for "threadId", nested
// conversation and metadata objects, content as a string or part list).
// Returns ok=false for records that are not usable at all: not an object,
// no recognizable role, or no content. Never errors, never panics.
func Decode(raw map[string]any) (Message, bool) {
	if raw == nil {
		return Message{}, false
	}

	role, ok := decodeRole(raw)
	if !ok {
		return Message{}, false
	}

	content := NormalizeContent(raw["content"])
	if strings.TrimSpace(content) == "" {
		return Message{}, false
	}

	tsValue, hasTS := firstValue(raw, "timestamp", "createdAt", "created_at", "time")
	m := Message{
		ID:        stringField(raw, "id"),
		Role:      role,
		Content:   content,
		Timestamp: NormalizeTimestamp(tsValue),

		ThreadID:             stringField(raw, "threadId"),
		ConversationThreadID: stringField(raw, "conversationThreadId"),
		ConversationID:       stringField(raw, "conversationId"),
		ParentConversationID: stringField(raw, "parentConversationId"),
		SessionID:            stringField(raw, "sessionId"),

		Resources: decodeResources(raw["resources"]),
		IsCurrent: boolField(raw, "isCurrent"),
		IsStored:  boolField(raw, "isStored"),
	}
	if hasTS {
		m.RawTimestamp = RawTimestampString(tsValue)
	}

	// Nested variants fill holes, never override a top-level value.
	if conv, ok := raw["conversation"].(map[string]any); ok && m.ConversationID == "" {
		m.ConversationID = stringField(conv, "id")
	}
	if meta, ok := raw["metadata"].(map[string]any); ok {
		if m.SessionID == "" {
			m.SessionID = stringField(meta, "sessionId")
		}
		if m.ThreadID == "" {
			m.ThreadID = stringField(meta, "threadId")
		}
	}

	return m, true
}

// DecodeAll normalizes a batch, dropping unusable records. The returned
// count of dropped records lets callers log without inspecting the batch.
func DecodeAll(raws []map[string]any) (messages []Message, dropped int) {
	messages = make([]Message, 0, len(raws))
	for _, raw := range raws {
		m, ok := Decode(raw)
		if !ok {
			dropped++
			continue
		}
		messages = append(messages, m)
	}
	return messages, dropped
}

// DecodeJSON parses a JSON array of raw records and normalizes it.
func DecodeJSON(data []byte) ([]Message, int, error) {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, 0, err
	}
	messages, dropped := DecodeAll(raws)
	return messages, dropped, nil
}

func decodeRole(raw map[string]any) (Role, bool) {
	if value := stringField(raw, "role"); value != "" {
		return ParseRole(value)
	}
	if value := stringField(raw, "type"); value != "" {
		return ParseRole(value)
	}
	return "", false
}

func decodeResources(value any) []Resource {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	resources := make([]Resource, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		r := Resource{
			ID:    stringField(entry, "id"),
			URL:   stringField(entry, "url"),
			Title: stringField(entry, "title"),
		}
		if r.Key() == "" {
			continue
		}
		resources = append(resources, r)
	}
	if len(resources) == 0 {
		return nil
	}
	return resources
}

func firstValue(raw map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func stringField(raw map[string]any, key string) string {
	value, ok := raw[key]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		// JSON numbers used as ids.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

func boolField(raw map[string]any, key string) bool {
	b, _ := raw[key].(bool)
	return b
}
