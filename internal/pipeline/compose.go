package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/vdavid/replydesk/internal/models"
	"github.com/vdavid/replydesk/internal/reply"
)

var fieldLabels = map[string]string{
	"full_name":        "full name",
	"admission_number": "admission number",
	"course":           "course",
	"year":             "year of study",
	"semester":         "semester",
	"group":            "group",
}

// FollowUpText asks the sender for the details that are still missing.
func FollowUpText(name string, missing []string) string {
	greeting := "Hello,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}
	if len(missing) == 0 {
		missing = []string{"full_name", "admission_number", "course", "year", "semester", "group"}
	}

	labels := make([]string, 0, len(missing))
	for _, field := range missing {
		if label, ok := fieldLabels[field]; ok {
			labels = append(labels, label)
		}
	}

	var list string
	switch len(labels) {
	case 0:
		list = "your student details"
	case 1:
		list = "your " + labels[0]
	default:
		list = "your " + strings.Join(labels[:len(labels)-1], ", ") + " and " + labels[len(labels)-1]
	}

	return fmt.Sprintf("%s\n\nThank you for your email. Could you please share %s so we can assist you better?", greeting, list)
}

// send composes a threaded reply to msg and hands it to the transport.
func (o *Orchestrator) send(ctx context.Context, msg models.NormalizedMessage, body string) (*models.SentMessage, error) {
	if msg.SenderEmail == "" {
		return nil, fmt.Errorf("failed to compose reply: no sender address")
	}

	env := reply.Build(msg.Headers, o.opts.ReplyFrom, msg.SenderEmail, msg.Subject, body)
	raw := reply.Encode(env)

	var sent *models.SentMessage
	err := o.call(ctx, "send", func(ctx context.Context) error {
		var err error
		sent, err = o.deps.Transport.Send(ctx, raw, msg.ThreadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if sent == nil {
		sent = &models.SentMessage{ID: env.MessageID, ThreadID: msg.ThreadID}
	}
	return sent, nil
}

// ReplyToMessage sends an operator-written reply to a single message, threaded
// the same way as automatic replies.
func (o *Orchestrator) ReplyToMessage(ctx context.Context, messageID, body string) (*models.SentMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("failed to reply: empty body")
	}

	var raw *models.RawMessage
	err := o.call(ctx, "get_message", func(ctx context.Context) error {
		var err error
		raw, err = o.deps.Transport.GetMessage(ctx, messageID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch original message: %w", err)
	}

	msg := o.deps.Normalizer.Normalize(raw)
	sent, err := o.send(ctx, msg, body)
	if err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}

	o.deps.Logger.Info().Str("message_id", messageID).Str("sent_id", sent.ID).Msg("manual reply sent")
	return sent, nil
}
