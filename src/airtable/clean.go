package airtable

import (
	"strings"
	"time"
	_ "time/tzdata" // display zone must not depend on the host's zoneinfo
)

const (
	// DisplayLayout renders e.g. "March 04 at 14:05".
	DisplayLayout = "January 02 at 15:04"
	displayZone   = "America/Los_Angeles"
)

var displayLocation = mustLoadLocation(displayZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// StripMarkers removes the leading "*" (required) and "**" (system) markers
// that decorate field names in the base.
func StripMarkers(key string) string {
	return strings.TrimLeft(key, "*")
}

// CleanRecord returns a copy of rec with its fields cleaned.
func CleanRecord(rec Record, forDisplay bool) Record {
	fields, _ := Clean(rec.Fields, forDisplay).(map[string]any)
	return Record{ID: rec.ID, CreatedTime: rec.CreatedTime, Fields: fields}
}

// Clean strips field markers from every mapping key and normalizes ISO-8601
// UTC timestamps stored under keys ending in "date" or "time". With forDisplay
// the instant is rendered in Pacific time using DisplayLayout, otherwise it is
// re-rendered as RFC 3339 UTC. Values that do not parse are left untouched.
func Clean(value any, forDisplay bool) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			key := StripMarkers(k)
			if s, ok := inner.(string); ok && isTimestampKey(k) {
				out[key] = normalizeTimestamp(s, forDisplay)
				continue
			}
			out[key] = Clean(inner, forDisplay)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = Clean(inner, forDisplay)
		}
		return out
	default:
		return value
	}
}

func isTimestampKey(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "date") || strings.HasSuffix(k, "time")
}

func normalizeTimestamp(s string, forDisplay bool) string {
	if !strings.Contains(s, "T") || !strings.HasSuffix(s, "Z") {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	if forDisplay {
		return t.In(displayLocation).Format(DisplayLayout)
	}
	return t.UTC().Format(time.RFC3339Nano)
}
