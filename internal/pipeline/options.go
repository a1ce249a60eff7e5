package pipeline

import (
	"time"

	"github.com/vdavid/replydesk/internal/config"
)

// Options bound and tune a pipeline run.
type Options struct {
	// ReplyFrom is the From address of outgoing replies.
	ReplyFrom  string
	MaxBatch   int
	MaxWorkers int
	// CallTimeout bounds each mailbox and model call.
	CallTimeout time.Duration
	// RunTimeout bounds a whole run.
	RunTimeout time.Duration
	// ReextractPartial also runs extraction for threads whose details are partial.
	ReextractPartial bool
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		MaxBatch:    25,
		MaxWorkers:  4,
		CallTimeout: 30 * time.Second,
		RunTimeout:  2 * time.Minute,
	}
}

// OptionsFromConfig reads the pipeline options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReplyFrom:        cfg.ReplyFrom,
		MaxBatch:         cfg.MaxBatch,
		MaxWorkers:       cfg.MaxWorkers,
		CallTimeout:      cfg.CallTimeout,
		RunTimeout:       cfg.RunTimeout,
		ReextractPartial: cfg.ReextractPartial,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxBatch <= 0 {
		o.MaxBatch = d.MaxBatch
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = d.MaxWorkers
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = d.RunTimeout
	}
	return o
}
