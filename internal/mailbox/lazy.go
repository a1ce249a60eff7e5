package mailbox

import (
	"context"
	"sync"

	"github.com/vdavid/replydesk/internal/models"
)

// LazyTransport builds its underlying transport on first use and retries the
// build on later calls until it succeeds. It lets the service start before the
// mailbox account has been authorized.
type LazyTransport struct {
	build func(ctx context.Context) (Transport, error)

	mu    sync.Mutex
	inner Transport
}

// NewLazyTransport creates a LazyTransport around build.
func NewLazyTransport(build func(ctx context.Context) (Transport, error)) *LazyTransport {
	return &LazyTransport{build: build}
}

func (l *LazyTransport) get(ctx context.Context, op string) (Transport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inner != nil {
		return l.inner, nil
	}
	inner, err := l.build(ctx)
	if err != nil {
		return nil, transportError(op, err)
	}
	l.inner = inner
	return inner, nil
}

func (l *LazyTransport) ListUnread(ctx context.Context, max int) ([]models.MessageRef, error) {
	t, err := l.get(ctx, "list unread messages")
	if err != nil {
		return nil, err
	}
	return t.ListUnread(ctx, max)
}

func (l *LazyTransport) GetMessage(ctx context.Context, id string) (*models.RawMessage, error) {
	t, err := l.get(ctx, "get message")
	if err != nil {
		return nil, err
	}
	return t.GetMessage(ctx, id)
}

func (l *LazyTransport) MarkRead(ctx context.Context, id string) error {
	t, err := l.get(ctx, "mark message as read")
	if err != nil {
		return err
	}
	return t.MarkRead(ctx, id)
}

func (l *LazyTransport) Send(ctx context.Context, raw string, threadID string) (*models.SentMessage, error) {
	t, err := l.get(ctx, "send message")
	if err != nil {
		return nil, err
	}
	return t.Send(ctx, raw, threadID)
}

func (l *LazyTransport) GetThread(ctx context.Context, threadID string) ([]*models.RawMessage, error) {
	t, err := l.get(ctx, "get thread")
	if err != nil {
		return nil, err
	}
	return t.GetThread(ctx, threadID)
}
