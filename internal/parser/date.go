package parser

import (
	"net/mail"
	"strings"
	"time"
)

// Layouts tried after net/mail.ParseDate. Layouts without a zone parse as UTC.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05",
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate parses a mail date header value into a timezone-aware instant.
// A value without a zone is taken as UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := mail.ParseDate(value); err == nil {
		return t, true
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// receivedDate returns the date part of a Received header, which follows the last ';'.
func receivedDate(value string) string {
	if i := strings.LastIndex(value, ";"); i != -1 {
		return strings.TrimSpace(value[i+1:])
	}
	return value
}
