package reply

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/replydesk/internal/models"
)

func TestBuild_Threading(t *testing.T) {
	t.Run("message id only", func(t *testing.T) {
		env := Build([]models.Header{{Name: "Message-Id", Value: "<abc>"}}, "desk@school.edu", "jane@school.edu", "Hi", "body")
		assert.Equal(t, "<abc>", env.InReplyTo)
		assert.Equal(t, "<abc>", env.References)
	})

	t.Run("references and message id", func(t *testing.T) {
		headers := []models.Header{
			{Name: "references", Value: "<x>"},
			{Name: "MESSAGE-ID", Value: "<abc>"},
		}
		env := Build(headers, "desk@school.edu", "jane@school.edu", "Hi", "body")
		assert.Equal(t, "<abc>", env.InReplyTo)
		assert.Equal(t, "<x> <abc>", env.References)
	})

	t.Run("references only", func(t *testing.T) {
		env := Build([]models.Header{{Name: "References", Value: "<x>"}}, "desk@school.edu", "jane@school.edu", "Hi", "body")
		assert.Empty(t, env.InReplyTo)
		assert.Equal(t, "<x>", env.References)
	})

	t.Run("no threading headers is degraded, not an error", func(t *testing.T) {
		env := Build(nil, "desk@school.edu", "jane@school.edu", "Hi", "body")
		assert.Empty(t, env.InReplyTo)
		assert.Empty(t, env.References)
		assert.NotEmpty(t, env.MessageID)
	})

	t.Run("fresh message id every time", func(t *testing.T) {
		a := Build(nil, "desk@school.edu", "x@y.z", "s", "b")
		b := Build(nil, "desk@school.edu", "x@y.z", "s", "b")
		assert.NotEqual(t, a.MessageID, b.MessageID)
		assert.Regexp(t, regexp.MustCompile(`^<[0-9a-f-]{36}@school\.edu>$`), a.MessageID)
	})
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello", "Re: Hello"},
		{"Re: Hello", "Re: Hello"},
		{"RE: Hello", "RE: Hello"},
		{"re:Hello", "re:Hello"},
		{"", "Re: "},
		{"Regarding fees", "Re: Regarding fees"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplySubject(tt.in))
		})
	}
}

func TestNewMessageID_NoDomain(t *testing.T) {
	assert.True(t, strings.HasSuffix(NewMessageID("nobody"), "@localhost>"))
}

func TestEncode(t *testing.T) {
	env := models.ReplyEnvelope{
		From:       "desk@school.edu",
		To:         "jane@school.edu",
		Subject:    "Re: Résultats",
		Body:       "Hello Jane,\nYour fee balance is 0 €.",
		MessageID:  "<new@school.edu>",
		InReplyTo:  "<abc>",
		References: "<x> <abc>",
		Date:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	encoded := Encode(env)
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\r\n\r\n")
	assert.True(t, strings.HasPrefix(string(raw), "To: jane@school.edu\r\nFrom: desk@school.edu\r\n"))

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "<abc>", msg.Header.Get("In-Reply-To"))
	assert.Equal(t, "<x> <abc>", msg.Header.Get("References"))
	assert.Equal(t, "<new@school.edu>", msg.Header.Get("Message-ID"))
	assert.Equal(t, "quoted-printable", msg.Header.Get("Content-Transfer-Encoding"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Re: Résultats", subject)

	date, err := msg.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(env.Date))

	body, err := io.ReadAll(quotedprintable.NewReader(msg.Body))
	require.NoError(t, err)
	assert.Equal(t, "Hello Jane,\r\nYour fee balance is 0 €.", string(body))
}

func TestEncode_OmitsMissingThreadingHeaders(t *testing.T) {
	raw, err := base64.RawURLEncoding.DecodeString(Encode(models.ReplyEnvelope{
		From: "desk@school.edu", To: "jane@school.edu", Subject: "Re: Hi", Body: "ok", MessageID: "<m@school.edu>",
	}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "In-Reply-To")
	assert.NotContains(t, string(raw), "References")
	assert.Contains(t, string(raw), "Date: ")
}

func TestEncode_HeaderInjection(t *testing.T) {
	raw := Render(models.ReplyEnvelope{
		From: "desk@school.edu", To: "jane@school.edu\r\nBcc: evil@x.com", Subject: "s", MessageID: "<m>",
	})
	assert.NotContains(t, string(raw), "\r\nBcc:")
}
