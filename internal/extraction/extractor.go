package extraction

import (
	"context"

	"github.com/vdavid/replydesk/internal/models"
)

// Extractor turns a message body into structured student details.
type Extractor interface {
	Extract(ctx context.Context, body string) (models.ExtractedFields, error)
}

// ReplyRequest is what the reply generator knows about the incoming message.
type ReplyRequest struct {
	SenderName  string
	SenderEmail string
	Subject     string
	Body        string
	// Summary is the thread summary from extraction, if any.
	Summary string
}

// ReplyGenerator writes the text of a reply.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// Extract asks the model for student details. Only transport and API failures
// are returned as errors; output that does not parse yields empty fields.
func (c *Client) Extract(ctx context.Context, body string) (models.ExtractedFields, error) {
	text, err := c.complete(ctx, extractionPrompt, body, c.cfg.MaxTokens)
	if err != nil {
		return models.ExtractedFields{Status: models.ExtractionEmpty}, err
	}
	return ParseFields(text), nil
}

// GenerateReply asks the model for a reply addressed to the sender.
func (c *Client) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	text, err := c.complete(ctx, "", replyPrompt(c.cfg.AssistantName, c.cfg.Organization, req), replyMaxTokens)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrExtraction
	}
	return text, nil
}
