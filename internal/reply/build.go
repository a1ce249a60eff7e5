package reply

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vdavid/replydesk/internal/models"
)

const replyPrefix = "Re: "

// Build composes a reply to the message whose headers are originalHeaders.
// When the original has no Message-Id the reply is still built, just unthreaded.
func Build(originalHeaders []models.Header, from, to, subject, body string) models.ReplyEnvelope {
	messageID, _ := models.HeaderValue(originalHeaders, "Message-Id", "Message-ID")
	messageID = strings.TrimSpace(messageID)
	previous, _ := models.HeaderValue(originalHeaders, "References")
	previous = strings.TrimSpace(previous)

	env := models.ReplyEnvelope{
		From:      from,
		To:        to,
		Subject:   ReplySubject(subject),
		Body:      body,
		MessageID: NewMessageID(from),
		InReplyTo: messageID,
		Date:      time.Now().UTC(),
	}

	switch {
	case previous != "" && messageID != "":
		env.References = previous + " " + messageID
	case messageID != "":
		env.References = messageID
	default:
		env.References = previous
	}

	return env
}

// ReplySubject prefixes subject with "Re: " unless it already has it.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return replyPrefix + subject
}

// NewMessageID returns a fresh Message-ID using the domain of from.
func NewMessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		if d := strings.Trim(from[at+1:], "<> \t"); d != "" {
			domain = strings.ToLower(d)
		}
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}
