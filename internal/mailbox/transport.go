package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/vdavid/replydesk/internal/models"
)

// ErrTransport wraps every failure to talk to the mailbox provider.
var ErrTransport = errors.New("mailbox transport error")

// Transport is the mailbox the pipeline reads from and replies through.
type Transport interface {
	// ListUnread returns at most max unread inbox messages.
	ListUnread(ctx context.Context, max int) ([]models.MessageRef, error)
	GetMessage(ctx context.Context, id string) (*models.RawMessage, error)
	MarkRead(ctx context.Context, id string) error
	// Send hands over a message encoded as unpadded URL-safe base64.
	Send(ctx context.Context, raw string, threadID string) (*models.SentMessage, error)
	GetThread(ctx context.Context, threadID string) ([]*models.RawMessage, error)
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", ErrTransport, op, err)
}
