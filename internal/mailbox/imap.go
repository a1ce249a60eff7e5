package mailbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	imapconn "github.com/vdavid/replydesk/internal/imap"
	"github.com/vdavid/replydesk/internal/models"
)

// IMAPConfig configures the IMAP/SMTP mailbox.
type IMAPConfig struct {
	Server   string
	Username string
	Password string
	UseTLS   bool
	// Mailbox defaults to INBOX.
	Mailbox string

	SMTP SMTPConfig
}

// IMAPTransport implements Transport for a plain IMAP mailbox, sending through SMTP.
// Message IDs are IMAP UIDs.
type IMAPTransport struct {
	cfg    IMAPConfig
	sender *SMTPSender

	mu   sync.Mutex
	conn *imapconn.Conn
	// threadIDs caches the thread of UIDs seen by THREAD at ListUnread time.
	threadIDs map[uint32]string
}

// NewIMAPTransport creates a transport. The connection is opened lazily.
func NewIMAPTransport(cfg IMAPConfig) *IMAPTransport {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPTransport{
		cfg:       cfg,
		sender:    NewSMTPSender(cfg.SMTP),
		threadIDs: make(map[uint32]string),
	}
}

// Close logs out of the IMAP server.
func (t *IMAPTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *IMAPTransport) getConn() (*imapconn.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		if t.conn.Usable(imapconn.IdleTimeout) {
			return t.conn, nil
		}
		_ = t.conn.Terminate()
		t.conn = nil
	}

	conn, err := imapconn.Dial(t.cfg.Server, t.cfg.UseTLS, t.cfg.Username, t.cfg.Password)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}

// dropConn forgets conn so the next call reconnects.
func (t *IMAPTransport) dropConn(conn *imapconn.Conn) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()
	_ = conn.Terminate()
}

// do runs fn on the selected mailbox while holding the connection lock. go-imap
// v1 has no context support, so on cancellation the connection is abandoned.
func (t *IMAPTransport) do(ctx context.Context, op string, fn func(conn *imapconn.Conn) error) error {
	if err := ctx.Err(); err != nil {
		return transportError(op, err)
	}

	conn, err := t.getConn()
	if err != nil {
		return transportError(op, err)
	}

	done := make(chan error, 1)
	go func() {
		conn.Lock()
		defer conn.Unlock()
		if err := conn.Select(t.cfg.Mailbox); err != nil {
			done <- err
			return
		}
		done <- fn(conn)
	}()

	select {
	case err := <-done:
		if err != nil {
			return transportError(op, err)
		}
		return nil
	case <-ctx.Done():
		t.dropConn(conn)
		return transportError(op, ctx.Err())
	}
}

// ListUnread returns the oldest max unseen messages.
func (t *IMAPTransport) ListUnread(ctx context.Context, max int) ([]models.MessageRef, error) {
	var refs []models.MessageRef

	err := t.do(ctx, "list unread messages", func(conn *imapconn.Conn) error {
		c := conn.GetClient()

		uids, err := imapconn.SearchUnseen(c)
		if err != nil {
			return err
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
		if max > 0 && len(uids) > max {
			uids = uids[:max]
		}

		threadIDs, err := t.threadIDsFor(conn, uids)
		if err != nil {
			return err
		}

		refs = make([]models.MessageRef, 0, len(uids))
		for _, uid := range uids {
			refs = append(refs, models.MessageRef{ID: strconv.FormatUint(uint64(uid), 10), ThreadID: threadIDs[uid]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// threadIDsFor resolves thread IDs via THREAD=REFERENCES when the server has it.
// A thread's ID is its root message's Message-ID. Servers without THREAD leave
// the map empty and GetMessage falls back to the References header.
func (t *IMAPTransport) threadIDsFor(conn *imapconn.Conn, uids []uint32) (map[uint32]string, error) {
	result := make(map[uint32]string)
	if len(uids) == 0 {
		return result, nil
	}

	c := conn.GetClient()
	supported, err := imapconn.SupportsThread(c)
	if err != nil || !supported {
		return result, err
	}

	threads, err := imapconn.RunThreadCommand(c)
	if err != nil {
		return nil, err
	}
	roots := imapconn.ThreadRoots(threads)

	rootSet := make(map[uint32]struct{})
	for _, uid := range uids {
		if root, ok := roots[uid]; ok {
			rootSet[root] = struct{}{}
		}
	}
	rootUIDs := make([]uint32, 0, len(rootSet))
	for root := range rootSet {
		rootUIDs = append(rootUIDs, root)
	}

	envelopes, err := imapconn.FetchMessageHeaders(c, rootUIDs)
	if err != nil {
		return nil, err
	}
	rootIDs := make(map[uint32]string, len(envelopes))
	for _, msg := range envelopes {
		if msg.Envelope != nil && msg.Envelope.MessageId != "" {
			rootIDs[msg.Uid] = msg.Envelope.MessageId
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, uid := range uids {
		if id, ok := rootIDs[roots[uid]]; ok {
			result[uid] = id
			t.threadIDs[uid] = id
		}
	}
	return result, nil
}

// GetMessage fetches a message without marking it seen.
func (t *IMAPTransport) GetMessage(ctx context.Context, id string) (*models.RawMessage, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, transportError("get message", err)
	}

	var msg *models.RawMessage
	err = t.do(ctx, fmt.Sprintf("get message %s", id), func(conn *imapconn.Conn) error {
		raw, err := imapconn.FetchRawMessage(conn.GetClient(), uid)
		if err != nil {
			return err
		}
		msg, err = imapconn.ParseMessage(raw)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if threadID, ok := t.threadIDs[uid]; ok {
		msg.ThreadID = threadID
	}
	t.mu.Unlock()

	return msg, nil
}

// MarkRead sets \Seen.
func (t *IMAPTransport) MarkRead(ctx context.Context, id string) error {
	uid, err := parseUID(id)
	if err != nil {
		return transportError("mark message as read", err)
	}

	return t.do(ctx, fmt.Sprintf("mark message %s as read", id), func(conn *imapconn.Conn) error {
		return imapconn.MarkSeen(conn.GetClient(), uid)
	})
}

// Send delivers raw through SMTP. IMAP threads by headers, so threadID is only echoed back.
func (t *IMAPTransport) Send(ctx context.Context, raw string, threadID string) (*models.SentMessage, error) {
	messageID, err := t.sender.Send(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &models.SentMessage{ID: messageID, ThreadID: threadID}, nil
}

// GetThread returns the root message and every message referencing it.
func (t *IMAPTransport) GetThread(ctx context.Context, threadID string) ([]*models.RawMessage, error) {
	var messages []*models.RawMessage

	err := t.do(ctx, fmt.Sprintf("get thread %s", threadID), func(conn *imapconn.Conn) error {
		c := conn.GetClient()

		seen := make(map[uint32]struct{})
		var uids []uint32
		for _, header := range []string{"Message-Id", "References"} {
			found, err := imapconn.SearchHeader(c, header, threadID)
			if err != nil {
				return err
			}
			for _, uid := range found {
				if _, ok := seen[uid]; !ok {
					seen[uid] = struct{}{}
					uids = append(uids, uid)
				}
			}
		}
		sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

		for _, uid := range uids {
			raw, err := imapconn.FetchRawMessage(c, uid)
			if err != nil {
				return err
			}
			msg, err := imapconn.ParseMessage(raw)
			if err != nil {
				return err
			}
			msg.ThreadID = threadID
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message id %q", id)
	}
	return uint32(uid), nil
}
