package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/models"
)

// OutcomeLister reads recorded message outcomes.
type OutcomeLister interface {
	ListOutcomes(ctx context.Context, limit int) ([]*models.Outcome, error)
}

// Trigger starts a pipeline run without waiting for it.
type Trigger interface {
	Trigger()
	Running() bool
}

// OutcomesHandler serves recorded outcomes and lets operators start a run.
type OutcomesHandler struct {
	outcomes OutcomeLister
	trigger  Trigger
	logger   zerolog.Logger
}

func NewOutcomesHandler(outcomes OutcomeLister, trigger Trigger, logger zerolog.Logger) *OutcomesHandler {
	return &OutcomesHandler{outcomes: outcomes, trigger: trigger, logger: logger}
}

// GetOutcomes returns the most recent outcomes, newest first.
func (h *OutcomesHandler) GetOutcomes(w http.ResponseWriter, r *http.Request) {
	_, limit := ParsePaginationParams(r, 100, 500)

	outcomes, err := h.outcomes.ListOutcomes(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("OutcomesHandler: failed to list outcomes")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, h.logger, outcomes)
}

// RunStatus is the body returned by POST /api/v1/run.
type RunStatus struct {
	Queued  bool `json:"queued"`
	Running bool `json:"running"`
}

// PostRun asks the scheduler for an immediate run.
func (h *OutcomesHandler) PostRun(w http.ResponseWriter, _ *http.Request) {
	running := h.trigger.Running()
	if !running {
		h.trigger.Trigger()
	}
	WriteJSONStatus(w, h.logger, http.StatusAccepted, RunStatus{Queued: !running, Running: running})
}
