package parser

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
)

// DecodeTransportBody reverses the transport's URL-safe base64 encoding and, when the
// part declares quoted-printable transfer encoding, the quoted-printable layer too.
// It never fails: undecodable input is returned as-is so body extraction can go on.
func DecodeTransportBody(encoded, transferEncoding string) []byte {
	if encoded == "" {
		return nil
	}

	raw, ok := decodeBase64URL(encoded)
	if !ok {
		raw = []byte(encoded)
	}

	if strings.EqualFold(strings.TrimSpace(transferEncoding), "quoted-printable") {
		if decoded, ok := decodeQuotedPrintable(raw); ok {
			raw = decoded
		}
	}

	return raw
}

// decodeBase64URL decodes URL-safe base64 with or without padding.
// Standard-alphabet input is accepted as a fallback.
func decodeBase64URL(s string) ([]byte, bool) {
	s = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimRight(s, "=")

	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}

func decodeQuotedPrintable(b []byte) ([]byte, bool) {
	decoded, err := io.ReadAll(newQPReader(b))
	if err != nil {
		return nil, false
	}
	return decoded, true
}

// DecodeText converts body bytes to a UTF-8 string using the charset parameter of
// contentType. Invalid sequences become U+FFFD.
func DecodeText(b []byte, contentType string) string {
	if len(b) == 0 {
		return ""
	}

	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = strings.ToLower(strings.TrimSpace(params["charset"]))
	}

	if label != "" && label != "utf-8" && label != "utf8" && label != "us-ascii" {
		if r, err := charset.NewReaderLabel(label, bytes.NewReader(b)); err == nil {
			if converted, err := io.ReadAll(r); err == nil {
				b = converted
			}
		}
	}

	return strings.ToValidUTF8(string(b), "�")
}
