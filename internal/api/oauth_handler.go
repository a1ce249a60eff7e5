package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/mailbox"
	"golang.org/x/oauth2"
)

// stateTTL is how long an OAuth state value stays valid.
const stateTTL = 10 * time.Minute

// OAuthHandler runs the Gmail consent flow and stores the resulting token.
type OAuthHandler struct {
	cfg    *oauth2.Config
	store  mailbox.TokenStore
	logger zerolog.Logger

	mu     sync.Mutex
	states map[string]time.Time
}

func NewOAuthHandler(cfg *oauth2.Config, store mailbox.TokenStore, logger zerolog.Logger) *OAuthHandler {
	return &OAuthHandler{cfg: cfg, store: store, logger: logger, states: make(map[string]time.Time)}
}

// Login redirects to the Google consent screen.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := h.newState()
	if err != nil {
		h.logger.Error().Err(err).Msg("OAuthHandler: failed to create state")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, mailbox.AuthCodeURL(h.cfg, state), http.StatusFound)
}

// Callback exchanges the authorization code and stores the token.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !h.consumeState(query.Get("state")) {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}
	code := query.Get("code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	if err := mailbox.ExchangeAndStore(r.Context(), h.cfg, h.store, code); err != nil {
		h.logger.Error().Err(err).Msg("OAuthHandler: failed to exchange code")
		http.Error(w, "Failed to complete authorization", http.StatusBadGateway)
		return
	}

	h.logger.Info().Msg("mailbox authorization stored")
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Authorization complete. You can close this window."))
}

func (h *OAuthHandler) newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	now := time.Now()
	for s, exp := range h.states {
		if now.After(exp) {
			delete(h.states, s)
		}
	}
	h.states[state] = now.Add(stateTTL)
	return state, nil
}

func (h *OAuthHandler) consumeState(state string) bool {
	if state == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	exp, ok := h.states[state]
	delete(h.states, state)
	return ok && time.Now().Before(exp)
}
