package tui

import "time"

// shortTime shows the clock part of an RFC 3339 timestamp in local time, or
// the raw value when it does not parse.
func shortTime(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Local().Format("15:04:05")
		}
	}
	return raw
}
