package msg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a normalized point in time in epoch milliseconds.
// Valid is false when the source value was missing or unparseable; callers
// apply their own documented tie-break instead of erroring.
type Timestamp struct {
	Millis int64 `json:"millis"`
	Valid  bool  `json:"valid"`
}

// TimestampAt wraps a concrete time.
func TimestampAt(t time.Time) Timestamp {
	return Timestamp{Millis: t.UnixMilli(), Valid: true}
}

// Time converts back to time.Time. Only meaningful when Valid.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.Millis).UTC()
}

// Before reports whether t precedes other. Either side being invalid
// returns false; ordering of invalid timestamps is the caller's rule.
func (t Timestamp) Before(other Timestamp) bool {
	return t.Valid && other.Valid && t.Millis < other.Millis
}

// Gap returns the absolute distance between two valid timestamps and
// whether both sides were valid.
func (t Timestamp) Gap(other Timestamp) (time.Duration, bool) {
	if !t.Valid || !other.Valid {
		return 0, false
	}
	delta := t.Millis - other.Millis
	if delta < 0 {
		delta = -delta
	}
	return time.Duration(delta) * time.Millisecond, true
}

// String implements fmt.Stringer for log output.
func (t Timestamp) String() string {
	if !t.Valid {
		return "invalid"
	}
	return t.Time().Format(time.RFC3339Nano)
}

// Layouts accepted for string timestamps, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // RFC3339 without zone
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.UnixDate,
}

// epochSecondsCutoff separates epoch-second values from epoch-millisecond
// values. Anything below it is treated as seconds. The cutoff corresponds
// to roughly the year 2255 in seconds and 1971 in milliseconds.
const epochSecondsCutoff = int64(9_000_000_000)

// NormalizeTimestamp converts a heterogeneous timestamp value into a
// Timestamp. Numbers are read as epoch seconds or milliseconds depending
// on magnitude; strings are tried first as numbers, then as dates.
// Anything else yields an invalid Timestamp; it never returns an error.
func NormalizeTimestamp(value any) Timestamp {
	switch v := value.(type) {
	case nil:
		return Timestamp{}
	case Timestamp:
		return v
	case time.Time:
		if v.IsZero() {
			return Timestamp{}
		}
		return TimestampAt(v)
	case int:
		return fromEpoch(int64(v))
	case int32:
		return fromEpoch(int64(v))
	case int64:
		return fromEpoch(v)
	case float32:
		return fromEpochFloat(float64(v))
	case float64:
		return fromEpochFloat(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromEpochFloat(f)
		}
		return Timestamp{}
	case string:
		return normalizeString(v)
	}
	return Timestamp{}
}

func fromEpoch(v int64) Timestamp {
	if v <= 0 {
		return Timestamp{}
	}
	if v < epochSecondsCutoff {
		return Timestamp{Millis: v * 1000, Valid: true}
	}
	return Timestamp{Millis: v, Valid: true}
}

func fromEpochFloat(v float64) Timestamp {
	if v != v || v <= 0 { // NaN or non-positive
		return Timestamp{}
	}
	if v < float64(epochSecondsCutoff) {
		return Timestamp{Millis: int64(v * 1000), Valid: true}
	}
	return Timestamp{Millis: int64(v), Valid: true}
}

func normalizeString(raw string) Timestamp {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Timestamp{}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpochFloat(n)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampAt(t)
		}
	}
	return Timestamp{}
}

// RawTimestampString renders the original value for use in identity keys:
// the raw string when the value was textual, a stable rendering otherwise,
// or "no-timestamp" when absent.
func RawTimestampString(value any) string {
	switch v := value.(type) {
	case nil:
		return "no-timestamp"
	case string:
		if strings.TrimSpace(v) == "" {
			return "no-timestamp"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
