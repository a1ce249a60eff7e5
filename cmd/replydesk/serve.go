package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vdavid/replydesk/internal/api"
	"github.com/vdavid/replydesk/internal/auth"
	"github.com/vdavid/replydesk/internal/logging"
	"github.com/vdavid/replydesk/internal/scheduler"
	ws "github.com/vdavid/replydesk/internal/websocket"
)

const shutdownTimeout = 15 * time.Second

// Serve command flags.
var (
	serveNoPoll bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the operator API and the polling scheduler",
	Long: `Start the HTTP API and poll the mailbox every REPLYDESK_POLL_INTERVAL.

Runs never overlap: a tick that arrives while a run is still going is skipped.
POST /api/v1/run asks for an immediate run.

Examples:
  replydesk serve
  replydesk serve --no-poll   # one run at startup, then only on demand`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "do not poll on a timer; after the startup run, runs happen only when triggered")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	hub := ws.NewHub(10, logging.Component(logger, "websocket"))

	orch, err := a.newOrchestrator(hub)
	if err != nil {
		return err
	}

	interval := a.cfg.PollInterval
	if serveNoPoll {
		// Effectively never; Trigger still starts runs.
		interval = 100 * 365 * 24 * time.Hour
	}
	sched := scheduler.New(func(ctx context.Context) error {
		_, err := orch.Run(ctx)
		return err
	}, interval, a.cfg.RunTimeout, a.metrics, logging.Component(logger, "scheduler"))

	handler := api.NewServer(api.ServerDeps{
		Auth:        auth.NewAuthenticator(a.cfg.APIToken, logging.Component(logger, "auth")),
		Store:       a.store,
		Replier:     orch,
		Trigger:     sched,
		Hub:         hub,
		Metrics:     a.metricsHandler(),
		Health:      a.pool,
		OAuth:       a.oauth,
		OAuthTokens: a.tokens,
		Logger:      logging.Component(logger, "api"),
	})

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", server.Addr).Str("mailbox", a.cfg.Mailbox).Msg("ReplyDesk server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
