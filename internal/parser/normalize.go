package parser

import (
	"strings"
	"time"

	"github.com/vdavid/replydesk/internal/models"
)

// Normalizer turns transport messages into NormalizedMessages.
type Normalizer struct {
	stripper *Stripper
}

// NewNormalizer creates a Normalizer that cleans bodies with the given stripper.
func NewNormalizer(stripper *Stripper) *Normalizer {
	if stripper == nil {
		stripper = NewStripper(DefaultPatterns())
	}
	return &Normalizer{stripper: stripper}
}

// Normalize extracts sender, subject, date and clean body text from raw.
// It always returns a value; missing fields are left empty.
func (n *Normalizer) Normalize(raw *models.RawMessage) models.NormalizedMessage {
	if raw == nil {
		return models.NormalizedMessage{}
	}

	headers := raw.Headers
	if len(headers) == 0 && raw.Root != nil {
		headers = raw.Root.PartHeaders()
	}

	msg := models.NormalizedMessage{
		MessageID: raw.ID,
		ThreadID:  raw.ThreadID,
		Headers:   headers,
	}

	if from, ok := models.HeaderValue(headers, "From"); ok {
		msg.SenderDisplay, msg.SenderEmail = ParseSender(from)
	}
	if subject, ok := models.HeaderValue(headers, "Subject"); ok {
		msg.Subject = strings.TrimSpace(decodeHeader(subject))
	}

	msg.ReceivedAt, msg.RawDate = messageDate(headers, raw.InternalDate)
	msg.BodyText = n.stripper.Strip(ExtractBody(raw))

	return msg
}

// messageDate tries Date, then Sent, then Received. If a header exists but cannot be
// parsed, its raw value is returned with a nil instant, unless the transport supplied
// its own receive time.
func messageDate(headers []models.Header, internal *time.Time) (*time.Time, string) {
	rawDate := ""
	for _, name := range []string{"Date", "Sent", "Received"} {
		value, ok := models.HeaderValue(headers, name)
		if !ok {
			continue
		}
		if name == "Received" {
			value = receivedDate(value)
		}
		if t, ok := ParseDate(value); ok {
			return &t, ""
		}
		if rawDate == "" {
			rawDate = value
		}
	}

	if internal != nil && !internal.IsZero() {
		t := internal.UTC()
		return &t, rawDate
	}
	return nil, rawDate
}
