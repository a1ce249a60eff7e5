package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/mailbox"
	"github.com/vdavid/replydesk/internal/models"
)

// Replier sends an operator-written reply to a message.
type Replier interface {
	ReplyToMessage(ctx context.Context, messageID, body string) (*models.SentMessage, error)
}

// ReplyRequest is the body of POST /api/v1/reply.
type ReplyRequest struct {
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

// ReplyHandler handles manual replies.
type ReplyHandler struct {
	replier Replier
	logger  zerolog.Logger
}

func NewReplyHandler(replier Replier, logger zerolog.Logger) *ReplyHandler {
	return &ReplyHandler{replier: replier, logger: logger}
}

// PostReply sends a reply threaded under the given message.
func (h *ReplyHandler) PostReply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.MessageID) == "" || strings.TrimSpace(req.Body) == "" {
		http.Error(w, "message_id and body are required", http.StatusBadRequest)
		return
	}

	sent, err := h.replier.ReplyToMessage(r.Context(), req.MessageID, req.Body)
	if err != nil {
		h.logger.Error().Err(err).Str("message_id", req.MessageID).Msg("ReplyHandler: failed to send reply")
		if errors.Is(err, mailbox.ErrTransport) {
			http.Error(w, "Mailbox unavailable", http.StatusBadGateway)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	WriteJSONResponse(w, h.logger, sent)
}
