package api

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/mock"
	"github.com/vdavid/replydesk/internal/models"
)

const testToken = "test-token"

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListThreads(ctx context.Context, page, perPage int) (*models.ThreadsResponse, error) {
	args := m.Called(ctx, page, perPage)
	resp, _ := args.Get(0).(*models.ThreadsResponse)
	return resp, args.Error(1)
}

func (m *mockStore) GetThreadState(ctx context.Context, threadID string) (*models.ThreadState, error) {
	args := m.Called(ctx, threadID)
	state, _ := args.Get(0).(*models.ThreadState)
	return state, args.Error(1)
}

func (m *mockStore) ListOutcomes(ctx context.Context, limit int) ([]*models.Outcome, error) {
	args := m.Called(ctx, limit)
	outcomes, _ := args.Get(0).([]*models.Outcome)
	return outcomes, args.Error(1)
}

type mockReplier struct {
	mock.Mock
}

func (m *mockReplier) ReplyToMessage(ctx context.Context, messageID, body string) (*models.SentMessage, error) {
	args := m.Called(ctx, messageID, body)
	sent, _ := args.Get(0).(*models.SentMessage)
	return sent, args.Error(1)
}

type mockTrigger struct {
	mock.Mock
}

func (m *mockTrigger) Trigger() { m.Called() }

func (m *mockTrigger) Running() bool { return m.Called().Bool(0) }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func authedRequest(method, target string, body *string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, stringReader(*body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}
