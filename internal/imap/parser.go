package imap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"net/textproto"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/vdavid/replydesk/internal/models"
)

// ParseMessage converts the source of an IMAP message into a RawMessage.
// Bodies are decoded by enmime and stored back as base64url UTF-8, so the
// transfer encoding header is dropped from leaves.
func ParseMessage(raw *RawMessage) (*models.RawMessage, error) {
	if raw == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email body: %w", err)
	}

	msg := &models.RawMessage{ID: fmt.Sprint(raw.UID)}
	if !raw.InternalDate.IsZero() {
		internal := raw.InternalDate.UTC()
		msg.InternalDate = &internal
	}
	if envelope.Root != nil {
		msg.Headers = convertHeader(envelope.Root.Header, false)
		msg.Root = convertPart(envelope.Root)
	}
	msg.ThreadID = ExtractStableThreadID(msg.Headers)

	return msg, nil
}

func convertPart(part *enmime.Part) models.Part {
	headers := convertHeader(part.Header, true)

	if part.FirstChild != nil {
		container := &models.Container{MimeType: part.ContentType, Headers: headers}
		for child := part.FirstChild; child != nil; child = child.NextSibling {
			container.Children = append(container.Children, convertPart(child))
		}
		return container
	}

	if strings.HasPrefix(part.ContentType, "text/") {
		headers = setHeader(headers, "Content-Type", mime.FormatMediaType(part.ContentType, map[string]string{"charset": "utf-8"}))
	}

	return &models.Leaf{
		MimeType: part.ContentType,
		Headers:  headers,
		Data:     base64.RawURLEncoding.EncodeToString(part.Content),
	}
}

// convertHeader flattens a MIME header in a stable order. enmime has already
// decoded the content, so the transfer encoding is optionally dropped.
func convertHeader(h textproto.MIMEHeader, dropTransferEncoding bool) []models.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		if dropTransferEncoding && strings.EqualFold(name, "Content-Transfer-Encoding") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]models.Header, 0, len(names))
	for _, name := range names {
		for _, value := range h[name] {
			result = append(result, models.Header{Name: name, Value: value})
		}
	}
	return result
}

func setHeader(headers []models.Header, name, value string) []models.Header {
	for i := range headers {
		if strings.EqualFold(headers[i].Name, name) {
			headers[i].Value = value
			return headers
		}
	}
	return append(headers, models.Header{Name: name, Value: value})
}

// ExtractStableThreadID derives a thread ID from the message headers: the first
// References entry, else In-Reply-To, else the message's own Message-ID.
func ExtractStableThreadID(headers []models.Header) string {
	if refs, ok := models.HeaderValue(headers, "References"); ok {
		if ids := strings.Fields(refs); len(ids) > 0 {
			return ids[0]
		}
	}
	if parent, ok := models.HeaderValue(headers, "In-Reply-To"); ok && strings.TrimSpace(parent) != "" {
		return strings.Fields(parent)[0]
	}
	if id, ok := models.HeaderValue(headers, "Message-Id", "Message-ID"); ok {
		return strings.TrimSpace(id)
	}
	return ""
}
