package parser

import (
	"mime"
	"strings"
)

var wordDecoder = &mime.WordDecoder{}

// decodeHeader decodes RFC 2047 encoded words, returning the input on failure.
func decodeHeader(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// ParseSender splits a From header into its display name and lowercased address.
// The address is taken from inside angle brackets or, failing that, from the last
// whitespace-delimited token containing '@'. Either value may be empty.
func ParseSender(from string) (display, email string) {
	from = strings.TrimSpace(decodeHeader(from))
	if from == "" {
		return "", ""
	}

	if open := strings.LastIndex(from, "<"); open != -1 {
		if end := strings.Index(from[open:], ">"); end != -1 {
			email = strings.TrimSpace(from[open+1 : open+end])
			display = strings.TrimSpace(from[:open])
			display = strings.Trim(display, `"' `)
			if strings.Contains(email, "@") {
				return display, strings.ToLower(email)
			}
			email = ""
		}
	}

	fields := strings.Fields(from)
	for i := len(fields) - 1; i >= 0; i-- {
		if strings.Contains(fields[i], "@") {
			email = strings.Trim(fields[i], `<>()[],;:"'`)
			display = strings.Trim(strings.TrimSpace(strings.Join(fields[:i], " ")), `"' `)
			return display, strings.ToLower(email)
		}
	}

	return from, ""
}
