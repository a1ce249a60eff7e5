package reply

import (
	"bytes"
	"encoding/base64"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/vdavid/replydesk/internal/models"
)

// Encode serializes env as an RFC 5322 message and returns it as unpadded
// URL-safe base64, which is what the mailbox transports accept for sending.
func Encode(env models.ReplyEnvelope) string {
	return base64.RawURLEncoding.EncodeToString(Render(env))
}

// Render returns the raw RFC 5322 bytes of env with CRLF line endings.
func Render(env models.ReplyEnvelope) []byte {
	date := env.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	var buf bytes.Buffer
	writeHeader(&buf, "To", env.To)
	writeHeader(&buf, "From", env.From)
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("UTF-8", env.Subject))
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "Message-ID", env.MessageID)
	if env.InReplyTo != "" {
		writeHeader(&buf, "In-Reply-To", env.InReplyTo)
	}
	if env.References != "" {
		writeHeader(&buf, "References", env.References)
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", "text/plain; charset=UTF-8")
	writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(env.Body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")

	qp := quotedprintable.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_, _ = qp.Write([]byte(body))
	_ = qp.Close()

	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	// Header values must not smuggle extra header lines.
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
