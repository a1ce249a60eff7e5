package threads

import (
	"sync"

	"github.com/vdavid/replydesk/internal/models"
)

// Latest returns the newest message of every thread in batch, keyed by thread ID.
// Messages without a thread ID are ignored. Unknown receive times sort before any
// known time, and ties go to the lexically smaller message ID.
func Latest(batch []models.NormalizedMessage) map[string]models.NormalizedMessage {
	latest := make(map[string]models.NormalizedMessage)
	for _, msg := range batch {
		if msg.ThreadID == "" {
			continue
		}
		current, ok := latest[msg.ThreadID]
		if !ok || Newer(msg, current) {
			latest[msg.ThreadID] = msg
		}
	}
	return latest
}

// Newer reports whether a sorts after b.
func Newer(a, b models.NormalizedMessage) bool {
	switch {
	case a.ReceivedAt == nil && b.ReceivedAt == nil:
	case a.ReceivedAt == nil:
		return false
	case b.ReceivedAt == nil:
		return true
	case !a.ReceivedAt.Equal(*b.ReceivedAt):
		return a.ReceivedAt.After(*b.ReceivedAt)
	}
	return a.MessageID < b.MessageID
}

// Merge folds latest into prev. Text fields are only overwritten by non-empty
// values from a message that is not older than prev.LastSeenAt, and LastSeenAt
// never moves backwards. Extraction data is left alone.
func Merge(prev models.ThreadState, latest models.NormalizedMessage) models.ThreadState {
	next := prev
	next.ThreadID = latest.ThreadID
	stale := latest.ReceivedAt != nil && prev.LastSeenAt != nil && latest.ReceivedAt.Before(*prev.LastSeenAt)
	if latest.Subject != "" && !stale {
		next.Subject = latest.Subject
	}
	if latest.BodyText != "" && !stale {
		next.LatestBody = latest.BodyText
	}
	if latest.ReceivedAt != nil && (next.LastSeenAt == nil || latest.ReceivedAt.After(*next.LastSeenAt)) {
		seen := *latest.ReceivedAt
		next.LastSeenAt = &seen
	}
	if !next.ExtractionStatus.Valid() {
		next.ExtractionStatus = models.ExtractionEmpty
	}
	return next
}

// MergeFields folds a new extraction result into the stored one. Known values
// are never replaced by empty ones and the status never moves backwards.
func MergeFields(prev *models.ExtractedFields, next models.ExtractedFields) models.ExtractedFields {
	if prev == nil {
		next.Status = models.ExtractionEmpty.Advance(next.Status)
		next.MissingFields = next.Missing()
		return next
	}

	merged := *prev
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&merged.FullName, next.FullName},
		{&merged.AdmissionNumber, next.AdmissionNumber},
		{&merged.Course, next.Course},
		{&merged.Year, next.Year},
		{&merged.Semester, next.Semester},
		{&merged.Group, next.Group},
		{&merged.FollowUpMessage, next.FollowUpMessage},
		{&merged.Summary, next.Summary},
	} {
		if f.src != "" {
			*f.dst = f.src
		}
	}
	merged.Status = prev.Status.Advance(next.Status)
	merged.MissingFields = merged.Missing()
	return merged
}

// Reconcile returns the updated state of every thread touched by batch.
// Threads in existing that the batch does not touch are not included.
func Reconcile(batch []models.NormalizedMessage, existing map[string]models.ThreadState) map[string]models.ThreadState {
	updated := make(map[string]models.ThreadState)
	for threadID, msg := range Latest(batch) {
		updated[threadID] = Merge(existing[threadID], msg)
	}
	return updated
}

// Reconciler serializes reconciliation so concurrent batches cannot interleave
// their read-merge-write of the same thread.
type Reconciler struct {
	mu sync.Mutex
}

// NewReconciler creates a Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Apply loads the current state of the touched threads with load, merges the
// batch and hands the result to save, all under one lock.
func (r *Reconciler) Apply(
	batch []models.NormalizedMessage,
	load func(threadIDs []string) (map[string]models.ThreadState, error),
	save func(states map[string]models.ThreadState) error,
) (map[string]models.ThreadState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := Latest(batch)
	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}

	existing, err := load(ids)
	if err != nil {
		return nil, err
	}

	updated := make(map[string]models.ThreadState, len(latest))
	for threadID, msg := range latest {
		updated[threadID] = Merge(existing[threadID], msg)
	}

	if err := save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}
