package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/models"
)

// ThreadLister reads stored thread states.
type ThreadLister interface {
	ListThreads(ctx context.Context, page, perPage int) (*models.ThreadsResponse, error)
}

// ThreadsHandler handles thread-list-related API requests.
type ThreadsHandler struct {
	threads ThreadLister
	logger  zerolog.Logger
}

// NewThreadsHandler creates a new ThreadsHandler instance.
func NewThreadsHandler(threads ThreadLister, logger zerolog.Logger) *ThreadsHandler {
	return &ThreadsHandler{threads: threads, logger: logger}
}

// GetThreads returns a paginated list of threads, most recently active first.
func (h *ThreadsHandler) GetThreads(w http.ResponseWriter, r *http.Request) {
	page, limit := ParsePaginationParams(r, 50, 200)

	response, err := h.threads.ListThreads(r.Context(), page, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("ThreadsHandler: failed to list threads")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, h.logger, response)
}
