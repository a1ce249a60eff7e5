package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// WriteJSONResponse encodes v into a buffer first so a failed encoding never
// leaves a partial body. It reports whether the response was written.
func WriteJSONResponse(w http.ResponseWriter, logger zerolog.Logger, v any) bool {
	return WriteJSONStatus(w, logger, http.StatusOK, v)
}

// WriteJSONStatus is WriteJSONResponse with an explicit status code.
func WriteJSONStatus(w http.ResponseWriter, logger zerolog.Logger, status int, v any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Error().Err(err).Msg("API: failed to encode response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debug().Err(err).Msg("API: failed to write response")
		return false
	}
	return true
}

// ParsePaginationParams parses page and limit from query parameters.
// Returns default values (page=1, limit=defaultLimit) if parameters are missing or invalid.
// The limit is capped at maxLimit.
func ParsePaginationParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed > 0 {
			page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit
}
