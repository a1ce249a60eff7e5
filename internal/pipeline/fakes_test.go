package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vdavid/replydesk/internal/extraction"
	"github.com/vdavid/replydesk/internal/models"
)

func rawMessage(id, threadID, from, subject, body string, headers ...models.Header) *models.RawMessage {
	hs := []models.Header{
		{Name: "From", Value: from},
		{Name: "To", Value: "office@example.edu"},
		{Name: "Subject", Value: subject},
		{Name: "Message-Id", Value: "<" + id + "@mail.example.com>"},
	}
	hs = append(hs, headers...)
	return &models.RawMessage{
		ID:       id,
		ThreadID: threadID,
		Headers:  hs,
		Root: &models.Leaf{
			MimeType: "text/plain",
			Headers:  []models.Header{{Name: "Content-Type", Value: "text/plain; charset=utf-8"}},
			Data:     base64.URLEncoding.EncodeToString([]byte(body)),
		},
	}
}

func dated(raw *models.RawMessage, at time.Time) *models.RawMessage {
	raw.Headers = append(raw.Headers, models.Header{Name: "Date", Value: at.Format(time.RFC1123Z)})
	return raw
}

type sentCall struct {
	Raw      string
	ThreadID string
}

type fakeTransport struct {
	mu       sync.Mutex
	order    []string
	messages map[string]*models.RawMessage
	getErr   map[string]error
	listErr  error
	sendErr  error
	listGate chan struct{}
	entered  chan struct{}
	marked   []string
	sent     []sentCall
}

func newFakeTransport(msgs ...*models.RawMessage) *fakeTransport {
	f := &fakeTransport{messages: map[string]*models.RawMessage{}, getErr: map[string]error{}}
	for _, m := range msgs {
		f.order = append(f.order, m.ID)
		f.messages[m.ID] = m
	}
	return f
}

func (f *fakeTransport) ListUnread(ctx context.Context, max int) ([]models.MessageRef, error) {
	if f.listGate != nil {
		if f.entered != nil {
			close(f.entered)
			f.entered = nil
		}
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []models.MessageRef
	for _, id := range f.order {
		threadID := ""
		if m, ok := f.messages[id]; ok {
			threadID = m.ThreadID
		}
		refs = append(refs, models.MessageRef{ID: id, ThreadID: threadID})
		if len(refs) == max {
			break
		}
	}
	return refs, nil
}

func (f *fakeTransport) GetMessage(_ context.Context, id string) (*models.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return m, nil
}

func (f *fakeTransport) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeTransport) Send(_ context.Context, raw string, threadID string) (*models.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentCall{Raw: raw, ThreadID: threadID})
	return &models.SentMessage{ID: fmt.Sprintf("sent-%d", len(f.sent)), ThreadID: threadID}, nil
}

func (f *fakeTransport) GetThread(context.Context, string) ([]*models.RawMessage, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTransport) sentCalls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.sent...)
}

type fakeStore struct {
	mu       sync.Mutex
	states   map[string]models.ThreadState
	students map[string]models.Student
	outcomes []models.Outcome
	loadErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: map[string]models.ThreadState{}, students: map[string]models.Student{}}
}

func (s *fakeStore) LoadThreadStates(_ context.Context, ids []string) (map[string]models.ThreadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := map[string]models.ThreadState{}
	for _, id := range ids {
		if st, ok := s.states[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (s *fakeStore) SaveThreadStates(_ context.Context, states map[string]models.ThreadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, st := range states {
		s.states[id] = st
	}
	return nil
}

func (s *fakeStore) UpdateExtraction(_ context.Context, threadID string, fields models.ExtractedFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[threadID]
	st.Fields = &fields
	st.ExtractionStatus = st.ExtractionStatus.Advance(fields.Status)
	s.states[threadID] = st
	return nil
}

func (s *fakeStore) UpsertStudent(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.Email] = *student
	return nil
}

func (s *fakeStore) SaveOutcome(_ context.Context, outcome *models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, *outcome)
	return nil
}

type fakeExtractor struct {
	mu     sync.Mutex
	fields models.ExtractedFields
	byBody map[string]models.ExtractedFields
	err    error
	panics bool
	calls  int
}

func (e *fakeExtractor) Extract(_ context.Context, body string) (models.ExtractedFields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.panics {
		panic("extractor exploded")
	}
	if f, ok := e.byBody[body]; ok {
		return f, e.err
	}
	return e.fields, e.err
}

func (e *fakeExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeReplies struct {
	mu   sync.Mutex
	text string
	err  error
	reqs []extraction.ReplyRequest
}

func (r *fakeReplies) GenerateReply(_ context.Context, req extraction.ReplyRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.text, r.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []models.Outcome
}

func (n *recordingNotifier) NotifyOutcome(o models.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, o)
}

func completeFields() models.ExtractedFields {
	return models.ExtractedFields{
		FullName:        "Jane Doe",
		AdmissionNumber: "123456",
		Course:          "BBIT",
		Year:            "2",
		Semester:        "1",
		Group:           "A",
		Status:          models.ExtractionComplete,
		MissingFields:   []string{},
		Summary:         "Asks about exam dates",
	}
}
