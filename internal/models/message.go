package models

import (
	"strings"
	"time"
)

// Header is a single message header. Header lists keep transport order.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HeaderValue returns the first header whose name matches one of the given names,
// compared case-insensitively. Names are tried in order, so callers can pass aliases.
func HeaderValue(headers []Header, names ...string) (string, bool) {
	for _, name := range names {
		for _, h := range headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value, true
			}
		}
	}
	return "", false
}

// Part is a node of a message's MIME tree. It is either a *Leaf or a *Container.
type Part interface {
	ContentType() string
	PartHeaders() []Header
}

// Leaf is a single-bodied part. Data holds the body as URL-safe base64,
// the way the mailbox transport hands it over.
type Leaf struct {
	MimeType string
	Headers  []Header
	Data     string
}

// Container is a multipart node.
type Container struct {
	MimeType string
	Headers  []Header
	Children []Part
}

func (l *Leaf) ContentType() string      { return l.MimeType }
func (l *Leaf) PartHeaders() []Header    { return l.Headers }
func (c *Container) ContentType() string { return c.MimeType }
func (c *Container) PartHeaders() []Header {
	return c.Headers
}

// RawMessage is a message as returned by the mailbox transport. It is never modified.
type RawMessage struct {
	ID       string
	ThreadID string
	Headers  []Header
	Root     Part
	// InternalDate is the transport's receive time, used when no usable date header exists.
	InternalDate *time.Time
}

// MessageRef identifies a message in the mailbox.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// SentMessage is what the transport returns after sending.
type SentMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// NormalizedMessage is the flat, clean form of a RawMessage.
// BodyText holds only the newest authored content: no quoted history, no known footers.
type NormalizedMessage struct {
	MessageID     string     `json:"message_id"`
	ThreadID      string     `json:"thread_id"`
	SenderDisplay string     `json:"sender_display"`
	SenderEmail   string     `json:"sender_email"`
	Subject       string     `json:"subject"`
	BodyText      string     `json:"body_text"`
	ReceivedAt    *time.Time `json:"received_at"`
	// RawDate keeps the source date string when it could not be parsed.
	RawDate string   `json:"raw_date,omitempty"`
	Headers []Header `json:"-"`
}
