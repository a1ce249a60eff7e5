package mailbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// SMTPConfig configures outbound delivery.
type SMTPConfig struct {
	Server   string
	Username string
	Password string
	// ImplicitTLS dials TLS directly (port 465). Otherwise STARTTLS is used when offered.
	ImplicitTLS bool
}

// SMTPSender delivers wire-encoded replies.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send decodes raw (unpadded URL-safe base64), reads the envelope from its
// headers and delivers it. It returns the Message-ID of the sent message.
func (s *SMTPSender) Send(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transportError("send message", err)
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return "", transportError("decode outgoing message", err)
	}

	from, to, messageID, err := envelopeOf(data)
	if err != nil {
		return "", transportError("read outgoing message headers", err)
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	done := make(chan error, 1)
	go func() {
		if s.cfg.ImplicitTLS {
			done <- smtp.SendMailTLS(s.cfg.Server, auth, from, to, bytes.NewReader(data))
			return
		}
		done <- smtp.SendMail(s.cfg.Server, auth, from, to, bytes.NewReader(data))
	}()

	select {
	case err := <-done:
		if err != nil {
			return "", transportError("send message", err)
		}
		return messageID, nil
	case <-ctx.Done():
		return "", transportError("send message", ctx.Err())
	}
}

func envelopeOf(data []byte) (string, []string, string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return "", nil, "", err
	}

	fromList, err := mail.ParseAddressList(msg.Header.Get("From"))
	if err != nil || len(fromList) == 0 {
		return "", nil, "", fmt.Errorf("invalid From header %q", msg.Header.Get("From"))
	}

	var to []string
	for _, field := range []string{"To", "Cc"} {
		if msg.Header.Get(field) == "" {
			continue
		}
		list, err := mail.ParseAddressList(msg.Header.Get(field))
		if err != nil {
			return "", nil, "", fmt.Errorf("invalid %s header: %w", field, err)
		}
		for _, addr := range list {
			to = append(to, addr.Address)
		}
	}
	if len(to) == 0 {
		return "", nil, "", fmt.Errorf("message has no recipients")
	}

	return fromList[0].Address, to, msg.Header.Get("Message-Id"), nil
}
