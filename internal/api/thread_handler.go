package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/db"
	"github.com/vdavid/replydesk/internal/models"
)

// ThreadGetter reads one stored thread state.
type ThreadGetter interface {
	GetThreadState(ctx context.Context, threadID string) (*models.ThreadState, error)
}

// ThreadHandler serves a single thread.
type ThreadHandler struct {
	threads ThreadGetter
	logger  zerolog.Logger
}

func NewThreadHandler(threads ThreadGetter, logger zerolog.Logger) *ThreadHandler {
	return &ThreadHandler{threads: threads, logger: logger}
}

// GetThread handles GET /api/v1/thread/{thread_id}.
func (h *ThreadHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread_id")
	if threadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	thread, err := h.threads.GetThreadState(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, db.ErrThreadNotFound) {
			http.Error(w, "Thread not found", http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("thread_id", threadID).Msg("ThreadHandler: failed to get thread")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, h.logger, thread)
}
