package threads

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/replydesk/internal/models"
)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func msg(id, thread, subject, body string, received *time.Time) models.NormalizedMessage {
	return models.NormalizedMessage{
		MessageID:  id,
		ThreadID:   thread,
		Subject:    subject,
		BodyText:   body,
		ReceivedAt: received,
	}
}

func TestReconcile(t *testing.T) {
	t.Run("latest message of the thread wins", func(t *testing.T) {
		batch := []models.NormalizedMessage{
			msg("m2", "T", "Re: Hi", "second", at("2024-03-01T11:00:00Z")),
			msg("m1", "T", "Hi", "first", at("2024-03-01T10:00:00Z")),
		}

		got := Reconcile(batch, nil)

		require.Len(t, got, 1)
		state := got["T"]
		assert.Equal(t, "T", state.ThreadID)
		assert.Equal(t, "Re: Hi", state.Subject)
		assert.Equal(t, "second", state.LatestBody)
		assert.True(t, state.LastSeenAt.Equal(*at("2024-03-01T11:00:00Z")))
		assert.Equal(t, models.ExtractionEmpty, state.ExtractionStatus)
	})

	t.Run("last seen is the max across the batch", func(t *testing.T) {
		batch := []models.NormalizedMessage{
			msg("a", "T", "s", "b", at("2024-01-02T00:00:00Z")),
			msg("b", "T", "s", "b", at("2024-01-05T00:00:00Z")),
			msg("c", "T", "s", "b", at("2024-01-03T00:00:00Z")),
			msg("d", "T", "s", "b", nil),
		}

		got := Reconcile(batch, nil)
		assert.True(t, got["T"].LastSeenAt.Equal(*at("2024-01-05T00:00:00Z")))
	})

	t.Run("last seen never decreases across batches", func(t *testing.T) {
		existing := map[string]models.ThreadState{
			"T": {ThreadID: "T", Subject: "old", LatestBody: "old body", LastSeenAt: at("2024-06-01T00:00:00Z")},
		}
		batch := []models.NormalizedMessage{msg("m", "T", "new", "new body", at("2024-05-01T00:00:00Z"))}

		got := Reconcile(batch, existing)
		assert.True(t, got["T"].LastSeenAt.Equal(*at("2024-06-01T00:00:00Z")))
		assert.Equal(t, "old", got["T"].Subject)
		assert.Equal(t, "old body", got["T"].LatestBody)
	})

	t.Run("newer message replaces preview", func(t *testing.T) {
		existing := map[string]models.ThreadState{
			"T": {ThreadID: "T", Subject: "old", LatestBody: "old body", LastSeenAt: at("2024-06-01T00:00:00Z")},
		}
		batch := []models.NormalizedMessage{msg("m", "T", "new", "new body", at("2024-07-01T00:00:00Z"))}

		got := Reconcile(batch, existing)
		assert.Equal(t, "new", got["T"].Subject)
		assert.Equal(t, "new body", got["T"].LatestBody)
	})

	t.Run("empty values do not overwrite", func(t *testing.T) {
		existing := map[string]models.ThreadState{
			"T": {ThreadID: "T", Subject: "keep", LatestBody: "keep body", ExtractionStatus: models.ExtractionPartial},
		}
		got := Reconcile([]models.NormalizedMessage{msg("m", "T", "", "", nil)}, existing)

		assert.Equal(t, "keep", got["T"].Subject)
		assert.Equal(t, "keep body", got["T"].LatestBody)
		assert.Equal(t, models.ExtractionPartial, got["T"].ExtractionStatus)
	})

	t.Run("tie goes to the smaller message id", func(t *testing.T) {
		same := at("2024-01-01T00:00:00Z")
		batch := []models.NormalizedMessage{
			msg("m9", "T", "", "nine", same),
			msg("m1", "T", "", "one", same),
		}
		assert.Equal(t, "one", Reconcile(batch, nil)["T"].LatestBody)
	})

	t.Run("unknown time sorts before known", func(t *testing.T) {
		batch := []models.NormalizedMessage{
			msg("a", "T", "", "unknown", nil),
			msg("b", "T", "", "known", at("2000-01-01T00:00:00Z")),
		}
		assert.Equal(t, "known", Reconcile(batch, nil)["T"].LatestBody)
	})

	t.Run("messages without thread are excluded", func(t *testing.T) {
		got := Reconcile([]models.NormalizedMessage{msg("a", "", "s", "b", nil)}, nil)
		assert.Empty(t, got)
	})

	t.Run("untouched threads are not returned", func(t *testing.T) {
		existing := map[string]models.ThreadState{"other": {ThreadID: "other"}}
		got := Reconcile([]models.NormalizedMessage{msg("a", "T", "s", "b", nil)}, existing)
		assert.NotContains(t, got, "other")
		assert.Contains(t, got, "T")
	})
}

func TestMerge_DoesNotAliasTime(t *testing.T) {
	received := at("2024-01-01T00:00:00Z")
	state := Merge(models.ThreadState{}, msg("m", "T", "", "", received))
	*received = received.Add(time.Hour)
	assert.True(t, state.LastSeenAt.Equal(*at("2024-01-01T00:00:00Z")))
}

func TestReconciler_Apply(t *testing.T) {
	t.Run("concurrent batches keep the max", func(t *testing.T) {
		r := NewReconciler()
		store := map[string]models.ThreadState{}
		load := func(ids []string) (map[string]models.ThreadState, error) {
			out := make(map[string]models.ThreadState)
			for _, id := range ids {
				if s, ok := store[id]; ok {
					out[id] = s
				}
			}
			return out, nil
		}
		save := func(states map[string]models.ThreadState) error {
			for id, s := range states {
				store[id] = s
			}
			return nil
		}

		base := *at("2024-01-01T00:00:00Z")
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				received := base.Add(time.Duration(i) * time.Minute)
				_, err := r.Apply([]models.NormalizedMessage{msg("m", "T", "s", "b", &received)}, load, save)
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		assert.True(t, store["T"].LastSeenAt.Equal(base.Add(19*time.Minute)))
	})

	t.Run("load error is returned", func(t *testing.T) {
		loadErr := errors.New("boom")
		_, err := NewReconciler().Apply(
			[]models.NormalizedMessage{msg("m", "T", "", "", nil)},
			func([]string) (map[string]models.ThreadState, error) { return nil, loadErr },
			func(map[string]models.ThreadState) error { return nil },
		)
		assert.ErrorIs(t, err, loadErr)
	})
}

func TestMergeFields(t *testing.T) {
	t.Run("first extraction is taken as is", func(t *testing.T) {
		got := MergeFields(nil, models.ExtractedFields{FullName: "Jane Doe", Status: models.ExtractionPartial})
		assert.Equal(t, "Jane Doe", got.FullName)
		assert.Equal(t, models.ExtractionPartial, got.Status)
		assert.Contains(t, got.MissingFields, "admission_number")
		assert.NotContains(t, got.MissingFields, "full_name")
	})

	t.Run("empty result keeps known values", func(t *testing.T) {
		prev := &models.ExtractedFields{FullName: "Jane Doe", Course: "BBIT", Summary: "Exams", Status: models.ExtractionPartial}

		got := MergeFields(prev, models.ExtractedFields{Status: models.ExtractionEmpty})
		assert.Equal(t, "Jane Doe", got.FullName)
		assert.Equal(t, "BBIT", got.Course)
		assert.Equal(t, "Exams", got.Summary)
		assert.Equal(t, models.ExtractionPartial, got.Status)
		assert.Equal(t, "Jane Doe", prev.FullName)
	})

	t.Run("new values fill gaps and replace old ones", func(t *testing.T) {
		prev := &models.ExtractedFields{FullName: "Jane", Status: models.ExtractionPartial}

		got := MergeFields(prev, models.ExtractedFields{
			FullName:        "Jane Doe",
			AdmissionNumber: "123456",
			Status:          models.ExtractionComplete,
		})
		assert.Equal(t, "Jane Doe", got.FullName)
		assert.Equal(t, "123456", got.AdmissionNumber)
		assert.Equal(t, models.ExtractionComplete, got.Status)
		assert.NotContains(t, got.MissingFields, "admission_number")
	})
}

func TestNewer(t *testing.T) {
	early := msg("b", "T", "", "", at("2024-01-01T00:00:00Z"))
	late := msg("a", "T", "", "", at("2024-01-02T00:00:00Z"))

	assert.True(t, Newer(late, early))
	assert.False(t, Newer(early, late))
	assert.True(t, Newer(early, msg("c", "T", "", "", nil)))
}
