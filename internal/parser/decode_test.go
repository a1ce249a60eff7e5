package parser

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTransportBody(t *testing.T) {
	t.Run("recovers bytes with any amount of missing padding", func(t *testing.T) {
		inputs := [][]byte{
			[]byte(""),
			[]byte("a"),
			[]byte("ab"),
			[]byte("abc"),
			[]byte("abcd"),
			[]byte("Hello, world?>>"),
			{0xff, 0xfe, 0xfd, 0x00, 0x3f},
			[]byte(strings.Repeat("xyz", 101)),
		}

		for _, input := range inputs {
			padded := base64.URLEncoding.EncodeToString(input)
			for missing := 0; missing <= 3; missing++ {
				encoded := padded
				trimmed := strings.TrimRight(padded, "=")
				if missing <= len(padded)-len(trimmed) {
					encoded = padded[:len(padded)-missing]
				}
				if len(input) == 0 {
					assert.Empty(t, DecodeTransportBody(encoded, ""))
					continue
				}
				assert.Equal(t, input, DecodeTransportBody(encoded, ""), "encoded=%q", encoded)
			}
		}
	})

	t.Run("accepts the standard alphabet", func(t *testing.T) {
		input := []byte{0xfb, 0xff, 0xbf}
		encoded := base64.StdEncoding.EncodeToString(input)
		assert.Equal(t, input, DecodeTransportBody(encoded, ""))
	})

	t.Run("ignores line breaks inside the encoded data", func(t *testing.T) {
		encoded := base64.RawURLEncoding.EncodeToString([]byte("line one and line two"))
		wrapped := encoded[:10] + "\r\n" + encoded[10:]
		assert.Equal(t, "line one and line two", string(DecodeTransportBody(wrapped, "")))
	})

	t.Run("decodes quoted-printable after base64", func(t *testing.T) {
		qp := "Caf=C3=A9 au lait, soft=\r\nbreak"
		encoded := base64.RawURLEncoding.EncodeToString([]byte(qp))
		assert.Equal(t, "Café au lait, softbreak", string(DecodeTransportBody(encoded, "Quoted-Printable")))
	})

	t.Run("leaves the base64 result alone for other encodings", func(t *testing.T) {
		encoded := base64.RawURLEncoding.EncodeToString([]byte("a=3Db"))
		assert.Equal(t, "a=3Db", string(DecodeTransportBody(encoded, "7bit")))
	})

	t.Run("falls back to the input instead of failing", func(t *testing.T) {
		assert.Equal(t, "not base64!!", string(DecodeTransportBody("not base64!!", "")))
	})
}

func TestDecodeText(t *testing.T) {
	t.Run("converts declared charsets to UTF-8", func(t *testing.T) {
		latin1 := []byte{'c', 'a', 'f', 0xe9}
		assert.Equal(t, "café", DecodeText(latin1, "text/plain; charset=ISO-8859-1"))
	})

	t.Run("replaces invalid UTF-8", func(t *testing.T) {
		assert.Equal(t, "a�b", DecodeText([]byte{'a', 0xff, 'b'}, "text/plain; charset=utf-8"))
	})

	t.Run("handles missing content type", func(t *testing.T) {
		assert.Equal(t, "plain", DecodeText([]byte("plain"), ""))
	})
}
