package pipeline

import (
	"context"
	"time"

	"github.com/vdavid/replydesk/internal/models"
)

// Normalizer flattens a transport message.
type Normalizer interface {
	Normalize(raw *models.RawMessage) models.NormalizedMessage
}

// Admission decides whether a sender gets an automatic reply.
type Admission interface {
	Decide(email string) models.AdmissionDecision
}

// ThreadStore persists thread states.
type ThreadStore interface {
	LoadThreadStates(ctx context.Context, threadIDs []string) (map[string]models.ThreadState, error)
	SaveThreadStates(ctx context.Context, states map[string]models.ThreadState) error
	UpdateExtraction(ctx context.Context, threadID string, fields models.ExtractedFields) error
}

// StudentStore persists extracted student details.
type StudentStore interface {
	UpsertStudent(ctx context.Context, student *models.Student) error
}

// OutcomeStore records message outcomes.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, outcome *models.Outcome) error
}

// Notifier is told about every outcome as it happens.
type Notifier interface {
	NotifyOutcome(outcome models.Outcome)
}

// Metrics receives pipeline observations.
type Metrics interface {
	ObserveOutcome(state string)
	ObserveRun(d time.Duration, err error)
	ObserveCall(call string, d time.Duration, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOutcome(models.Outcome) {}

type nopMetrics struct{}

func (nopMetrics) ObserveOutcome(string)                    {}
func (nopMetrics) ObserveRun(time.Duration, error)          {}
func (nopMetrics) ObserveCall(string, time.Duration, error) {}
