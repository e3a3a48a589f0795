package msg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NoContentFingerprint is returned for messages with empty or absent content.
const NoContentFingerprint = "no-content"

// fingerprintLength is how many characters of normalized content identify a
// message. Long enough to separate real conversations, short enough that
// identity keys stay cheap to build and compare.
const fingerprintLength = 60

// Fingerprint returns a short deterministic digest of a message's content,
// used for identity comparison when no reliable id exists.
func (m *Message) Fingerprint() string {
	return FingerprintContent(m.Content)
}

// FingerprintContent digests an already-normalized content string.
func FingerprintContent(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return NoContentFingerprint
	}
	runes := []rune(trimmed)
	if len(runes) > fingerprintLength {
		runes = runes[:fingerprintLength]
	}
	return string(runes)
}

// NormalizeContent flattens a raw content value into a single string:
// strings pass through, sequences are joined with spaces (non-string parts
// serialized), anything else is serialized. Empty or absent content
// normalizes to "".
func NormalizeContent(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, part := range v {
			if s, ok := part.(string); ok {
				parts = append(parts, s)
				continue
			}
			parts = append(parts, serializePart(part))
		}
		return strings.Join(parts, " ")
	default:
		return serializePart(v)
	}
}

func serializePart(part any) string {
	if part == nil {
		return ""
	}
	if data, err := json.Marshal(part); err == nil {
		return string(data)
	}
	return fmt.Sprint(part)
}
