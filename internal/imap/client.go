package imap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// IdleTimeout is how long a connection may sit unused before it is replaced.
// Servers commonly drop idle sessions after 30 minutes.
const IdleTimeout = 10 * time.Minute

// Conn wraps an IMAP client with a mutex for thread-safe access.
// go-imap clients run one command at a time, so every caller holds the lock
// for the duration of its command.
type Conn struct {
	client   *client.Client
	mu       sync.Mutex
	lastUsed atomic.Int64
	selected string
}

// Dial connects and logs in.
func Dial(server string, useTLS bool, username, password string) (*Conn, error) {
	c, err := ConnectToIMAP(server, useTLS)
	if err != nil {
		return nil, err
	}
	if err := Login(c, username, password); err != nil {
		_ = c.Logout()
		return nil, err
	}
	conn := &Conn{client: c}
	conn.lastUsed.Store(time.Now().UnixNano())
	return conn, nil
}

// Lock acquires the mutex for thread-safe access to the underlying client.
func (c *Conn) Lock() {
	c.mu.Lock()
}

// Unlock releases the mutex.
func (c *Conn) Unlock() {
	c.mu.Unlock()
}

// GetClient returns the underlying IMAP client.
// Caller must hold the lock before calling this.
func (c *Conn) GetClient() *client.Client {
	c.lastUsed.Store(time.Now().UnixNano())
	return c.client
}

// GetLastUsed returns when the client was last handed out.
func (c *Conn) GetLastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// Usable reports whether the connection is still logged in and was used within
// maxIdle. It does not need the lock.
func (c *Conn) Usable(maxIdle time.Duration) bool {
	switch c.client.State() {
	case imap.AuthenticatedState, imap.SelectedState:
	default:
		return false
	}
	return time.Since(c.GetLastUsed()) <= maxIdle
}

// Select opens mailbox read-write unless it is already selected.
// Caller must hold the lock.
func (c *Conn) Select(mailbox string) error {
	if c.selected == mailbox {
		return nil
	}
	if _, err := c.client.Select(mailbox, false); err != nil {
		return fmt.Errorf("failed to select %s: %w", mailbox, err)
	}
	c.selected = mailbox
	return nil
}

// Close logs out. The connection is closed even if LOGOUT fails.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.client.Logout()
	_ = c.client.Terminate()
	return err
}

// Terminate closes the network connection without waiting for the lock, which
// unblocks a command stuck on a dead server.
func (c *Conn) Terminate() error {
	return c.client.Terminate()
}
