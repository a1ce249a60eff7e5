package mailbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/replydesk/internal/models"
)

type stubTransport struct {
	Transport
	refs []models.MessageRef
}

func (s *stubTransport) ListUnread(context.Context, int) ([]models.MessageRef, error) {
	return s.refs, nil
}

func TestLazyTransport(t *testing.T) {
	ctx := context.Background()
	builds := 0
	authorized := false

	lazy := NewLazyTransport(func(context.Context) (Transport, error) {
		builds++
		if !authorized {
			return nil, errors.New("no token")
		}
		return &stubTransport{refs: []models.MessageRef{{ID: "m-1"}}}, nil
	})

	_, err := lazy.ListUnread(ctx, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)

	authorized = true
	refs, err := lazy.ListUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "m-1", refs[0].ID)

	_, err = lazy.ListUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}
