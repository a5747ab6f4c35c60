package logscan

import (
	"strings"
	"time"
)

// parseLayouts cover the timestamp shapes the timestamp grammar accepts:
// RFC3339 with or without fractional seconds, and zone-less variants which
// are interpreted as UTC.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses a raw timestamp string extracted by Timestamps into
// a UTC time. It tolerates a space separator between date and time and a
// trailing Z. Returns false when the string does not parse.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	raw = strings.Replace(raw, " ", "T", 1)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
