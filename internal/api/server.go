package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/auth"
	"github.com/vdavid/replydesk/internal/mailbox"
	ws "github.com/vdavid/replydesk/internal/websocket"
	"golang.org/x/oauth2"
)

// Store is everything the API reads from persistence.
type Store interface {
	ThreadLister
	ThreadGetter
	OutcomeLister
}

// Pinger checks a dependency for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerDeps are the collaborators of the operator API. OAuth and OAuthTokens are
// only set when the Gmail mailbox is used.
type ServerDeps struct {
	Auth        *auth.Authenticator
	Store       Store
	Replier     Replier
	Trigger     Trigger
	Hub         *ws.Hub
	Metrics     http.Handler
	Health      Pinger
	OAuth       *oauth2.Config
	OAuthTokens mailbox.TokenStore
	Logger      zerolog.Logger
}

// NewServer creates and returns the HTTP handler for the operator API.
func NewServer(deps ServerDeps) http.Handler {
	threadsHandler := NewThreadsHandler(deps.Store, deps.Logger)
	threadHandler := NewThreadHandler(deps.Store, deps.Logger)
	replyHandler := NewReplyHandler(deps.Replier, deps.Logger)
	outcomesHandler := NewOutcomesHandler(deps.Store, deps.Trigger, deps.Logger)
	wsHandler := NewWebSocketHandler(deps.Auth, deps.Hub, deps.Logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth(deps.Health, deps.Logger))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	mux.Handle("GET /api/v1/threads", deps.Auth.RequireAuth(http.HandlerFunc(threadsHandler.GetThreads)))
	mux.Handle("GET /api/v1/thread/{thread_id}", deps.Auth.RequireAuth(http.HandlerFunc(threadHandler.GetThread)))
	mux.Handle("GET /api/v1/outcomes", deps.Auth.RequireAuth(http.HandlerFunc(outcomesHandler.GetOutcomes)))
	mux.Handle("POST /api/v1/reply", deps.Auth.RequireAuth(http.HandlerFunc(replyHandler.PostReply)))
	mux.Handle("POST /api/v1/run", deps.Auth.RequireAuth(http.HandlerFunc(outcomesHandler.PostRun)))
	// WebSocket handler handles its own authentication via query parameter
	// (since browsers can't set headers on WebSocket connections).
	mux.HandleFunc("GET /api/v1/ws", wsHandler.Handle)

	if deps.OAuth != nil && deps.OAuthTokens != nil {
		oauthHandler := NewOAuthHandler(deps.OAuth, deps.OAuthTokens, deps.Logger)
		mux.HandleFunc("GET /auth/login", oauthHandler.Login)
		mux.HandleFunc("GET /auth/callback", oauthHandler.Callback)
	}

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "ReplyDesk API is running")
}

func handleHealth(p Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.Ping(r.Context()); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}
