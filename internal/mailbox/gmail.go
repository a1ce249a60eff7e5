package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/vdavid/replydesk/internal/models"
	"google.golang.org/api/gmail/v1"
)

const (
	gmailUser        = "me"
	gmailUnreadQuery = "is:unread in:inbox"
	gmailUnreadLabel = "UNREAD"
	gmailInboxLabel  = "INBOX"
)

// GmailTransport implements Transport on top of the Gmail API.
type GmailTransport struct {
	srv *gmail.Service
}

// NewGmailTransport wraps an authenticated Gmail service.
func NewGmailTransport(srv *gmail.Service) *GmailTransport {
	return &GmailTransport{srv: srv}
}

// ListUnread lists unread inbox messages, newest first as Gmail returns them.
func (g *GmailTransport) ListUnread(ctx context.Context, max int) ([]models.MessageRef, error) {
	call := g.srv.Users.Messages.List(gmailUser).
		Q(gmailUnreadQuery).
		LabelIds(gmailInboxLabel).
		Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, transportError("list unread messages", err)
	}

	refs := make([]models.MessageRef, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		refs = append(refs, models.MessageRef{ID: m.Id, ThreadID: m.ThreadId})
		if max > 0 && len(refs) == max {
			break
		}
	}
	return refs, nil
}

// GetMessage fetches the full message payload.
func (g *GmailTransport) GetMessage(ctx context.Context, id string) (*models.RawMessage, error) {
	msg, err := g.srv.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, transportError(fmt.Sprintf("get message %s", id), err)
	}
	return convertGmailMessage(msg), nil
}

// MarkRead removes the UNREAD label.
func (g *GmailTransport) MarkRead(ctx context.Context, id string) error {
	req := &gmail.ModifyMessageRequest{RemoveLabelIds: []string{gmailUnreadLabel}}
	if _, err := g.srv.Users.Messages.Modify(gmailUser, id, req).Context(ctx).Do(); err != nil {
		return transportError(fmt.Sprintf("mark message %s as read", id), err)
	}
	return nil
}

// Send sends raw into threadID. An empty threadID starts a new conversation.
func (g *GmailTransport) Send(ctx context.Context, raw string, threadID string) (*models.SentMessage, error) {
	sent, err := g.srv.Users.Messages.Send(gmailUser, &gmail.Message{Raw: raw, ThreadId: threadID}).Context(ctx).Do()
	if err != nil {
		return nil, transportError("send message", err)
	}
	return &models.SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// GetThread returns every message of a thread.
func (g *GmailTransport) GetThread(ctx context.Context, threadID string) ([]*models.RawMessage, error) {
	thread, err := g.srv.Users.Threads.Get(gmailUser, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, transportError(fmt.Sprintf("get thread %s", threadID), err)
	}

	messages := make([]*models.RawMessage, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		messages = append(messages, convertGmailMessage(m))
	}
	return messages, nil
}

func convertGmailMessage(msg *gmail.Message) *models.RawMessage {
	raw := &models.RawMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
	}
	if msg.InternalDate > 0 {
		internal := time.UnixMilli(msg.InternalDate).UTC()
		raw.InternalDate = &internal
	}
	if msg.Payload != nil {
		raw.Headers = convertGmailHeaders(msg.Payload.Headers)
		raw.Root = convertGmailPart(msg.Payload)
	}
	return raw
}

func convertGmailHeaders(headers []*gmail.MessagePartHeader) []models.Header {
	result := make([]models.Header, 0, len(headers))
	for _, h := range headers {
		if h == nil {
			continue
		}
		result = append(result, models.Header{Name: h.Name, Value: h.Value})
	}
	return result
}

// convertGmailPart maps the Gmail payload tree onto the part variant. Gmail body
// data is already base64url, so it is passed through untouched.
func convertGmailPart(part *gmail.MessagePart) models.Part {
	headers := convertGmailHeaders(part.Headers)

	if len(part.Parts) > 0 {
		container := &models.Container{MimeType: part.MimeType, Headers: headers}
		for _, child := range part.Parts {
			if child != nil {
				container.Children = append(container.Children, convertGmailPart(child))
			}
		}
		return container
	}

	leaf := &models.Leaf{MimeType: part.MimeType, Headers: headers}
	if part.Body != nil {
		leaf.Data = part.Body.Data
	}
	return leaf
}
