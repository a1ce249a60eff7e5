package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/vdavid/replydesk/internal/admission"
	"github.com/vdavid/replydesk/internal/config"
	"github.com/vdavid/replydesk/internal/crypto"
	"github.com/vdavid/replydesk/internal/db"
	"github.com/vdavid/replydesk/internal/extraction"
	"github.com/vdavid/replydesk/internal/logging"
	"github.com/vdavid/replydesk/internal/mailbox"
	"github.com/vdavid/replydesk/internal/metrics"
	"github.com/vdavid/replydesk/internal/parser"
	"github.com/vdavid/replydesk/internal/pipeline"
	"github.com/vdavid/replydesk/internal/threads"
	"github.com/vdavid/replydesk/migrations"
)

// tokenProvider is the oauth_tokens key of the Gmail account.
const tokenProvider = "gmail"

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool      *pgxpool.Pool
	store     *db.Store
	tokens    *db.TokenStore
	oauth     *oauth2.Config
	transport mailbox.Transport

	registry *prometheus.Registry
	metrics  *metrics.PipelineMetrics

	closers []func() error
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Environment: cfg.Environment})
	return cfg, logger, nil
}

// newApp connects to the database, applies migrations and builds the mailbox transport.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error {
		db.CloseConnection(pool)
		return nil
	})

	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug().Strs("migrations", applied).Msg("Schema up to date")

	a.store = db.NewStore(pool)
	a.tokens = db.NewTokenStore(pool, encryptor, tokenProvider)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewPipelineMetrics(a.registry)

	if err := a.buildTransport(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildTransport(ctx context.Context) error {
	switch a.cfg.Mailbox {
	case config.MailboxIMAP:
		t := mailbox.NewIMAPTransport(imapConfig(a.cfg))
		a.transport = t
		a.closers = append(a.closers, t.Close)
		return nil
	default:
		oauthCfg, err := mailbox.LoadOAuthConfig(a.cfg.GoogleCredentialsPath, a.cfg.OAuthRedirectURL)
		if err != nil {
			return err
		}
		a.oauth = oauthCfg

		if _, err := a.tokens.LoadToken(ctx); errors.Is(err, db.ErrTokenNotFound) {
			a.logger.Warn().Msg("Mailbox is not authorized yet; visit /auth/login or run 'replydesk auth url'")
		} else if err != nil {
			return fmt.Errorf("failed to check mailbox token: %w", err)
		}

		// The Gmail client outlives any single request, so it gets an uncancelled context.
		base := context.WithoutCancel(ctx)
		a.transport = mailbox.NewLazyTransport(func(context.Context) (mailbox.Transport, error) {
			srv, err := mailbox.NewGmailService(base, oauthCfg, a.tokens)
			if err != nil {
				return nil, err
			}
			return mailbox.NewGmailTransport(srv), nil
		})
		return nil
	}
}

func imapConfig(cfg *config.Config) mailbox.IMAPConfig {
	return mailbox.IMAPConfig{
		Server:   cfg.IMAPServer,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
		UseTLS:   cfg.IMAPUseTLS,
		Mailbox:  cfg.IMAPMailbox,
		SMTP: mailbox.SMTPConfig{
			Server:      cfg.SMTPServer,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			ImplicitTLS: cfg.SMTPImplicitTLS,
		},
	}
}

// newOrchestrator wires the pipeline. notifier may be nil.
func (a *app) newOrchestrator(notifier pipeline.Notifier) (*pipeline.Orchestrator, error) {
	patterns, err := parser.DefaultPatterns().WithExtraFooters(a.cfg.ExtraFooterPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile footer patterns: %w", err)
	}

	client := extraction.NewClient(extraction.Config{
		APIKey:        a.cfg.LLMAPIKey,
		BaseURL:       a.cfg.LLMBaseURL,
		Model:         a.cfg.LLMModel,
		Timeout:       a.cfg.CallTimeout,
		AssistantName: a.cfg.AssistantName,
		Organization:  a.cfg.Organization,
	})

	deps := pipeline.Deps{
		Transport:  a.transport,
		Normalizer: parser.NewNormalizer(parser.NewStripper(patterns)),
		Admission: admission.NewPolicy(admission.Rules{
			AllowedDomains:   a.cfg.AllowedDomains,
			AllowedAddresses: a.cfg.AllowedAddresses,
			BlockedAddresses: a.cfg.BlockedAddresses,
		}),
		Reconciler: threads.NewReconciler(),
		Extractor:  client,
		Replies:    client,
		Threads:    a.store,
		Students:   a.store,
		Outcomes:   a.store,
		Metrics:    a.metrics,
		Logger:     logging.Component(a.logger, "pipeline"),
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return pipeline.New(deps, pipeline.OptionsFromConfig(a.cfg)), nil
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	a.closers = nil
}
