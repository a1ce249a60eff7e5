package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vdavid/replydesk/internal/extraction"
	"github.com/vdavid/replydesk/internal/mailbox"
	"github.com/vdavid/replydesk/internal/models"
	"github.com/vdavid/replydesk/internal/threads"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when Run is called while another run is still going.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Deps are the collaborators of an Orchestrator. Notifier and Metrics may be nil.
type Deps struct {
	Transport  mailbox.Transport
	Normalizer Normalizer
	Admission  Admission
	Reconciler *threads.Reconciler
	Extractor  extraction.Extractor
	Replies    extraction.ReplyGenerator
	Threads    ThreadStore
	Students   StudentStore
	Outcomes   OutcomeStore
	Notifier   Notifier
	Metrics    Metrics
	Logger     zerolog.Logger
}

// Orchestrator runs one pass of the reply pipeline over the unread inbox.
type Orchestrator struct {
	deps    Deps
	opts    Options
	running sync.Mutex
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Reconciler == nil {
		deps.Reconciler = threads.NewReconciler()
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Orchestrator{deps: deps, opts: opts.withDefaults()}
}

// Report summarizes a run.
type Report struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Outcomes   []models.Outcome `json:"outcomes"`
}

// Count returns the number of outcomes in the given state.
func (r *Report) Count(state models.MessageState) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

// item tracks one message through a run.
type item struct {
	ref    models.MessageRef
	msg    models.NormalizedMessage
	state  models.MessageState
	reason string
	sentID string
}

// Run lists unread messages, processes each one and returns what happened.
// An error is returned only when the run could not start or list the inbox;
// per-message failures show up as outcomes.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.running.Unlock()

	report := &Report{StartedAt: time.Now().UTC()}
	// Outcomes are still recorded after the run deadline hits.
	reportCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	log := o.deps.Logger

	var refs []models.MessageRef
	err := o.call(ctx, "list_unread", func(ctx context.Context) error {
		var err error
		refs, err = o.deps.Transport.ListUnread(ctx, o.opts.MaxBatch)
		return err
	})
	if err != nil {
		report.FinishedAt = time.Now().UTC()
		o.deps.Metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt), err)
		return report, fmt.Errorf("failed to list unread messages: %w", err)
	}
	if len(refs) > o.opts.MaxBatch {
		refs = refs[:o.opts.MaxBatch]
	}
	log.Info().Int("count", len(refs)).Msg("processing unread messages")

	items := make([]*item, len(refs))
	var g errgroup.Group
	g.SetLimit(o.opts.MaxWorkers)
	for i, ref := range refs {
		items[i] = &item{ref: ref, state: models.StateReceived}
		it := items[i]
		g.Go(func() error {
			o.prepare(ctx, it)
			return nil
		})
	}
	_ = g.Wait()

	batch := make([]models.NormalizedMessage, 0, len(items))
	for _, it := range items {
		if it.state == models.StateAdmitted || it.state == models.StateBlocked {
			batch = append(batch, it.msg)
		}
	}

	states, err := o.deps.Reconciler.Apply(batch,
		func(ids []string) (map[string]models.ThreadState, error) {
			return o.deps.Threads.LoadThreadStates(ctx, ids)
		},
		func(states map[string]models.ThreadState) error {
			return o.deps.Threads.SaveThreadStates(ctx, states)
		},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to reconcile thread states")
		for _, it := range items {
			if it.state == models.StateAdmitted {
				it.state = models.StateReplyPending
				it.reason = "thread state unavailable"
			}
		}
		states = map[string]models.ThreadState{}
	}

	o.respondAll(ctx, items, states)

	for _, it := range items {
		report.Outcomes = append(report.Outcomes, o.report(reportCtx, it))
	}
	report.FinishedAt = time.Now().UTC()
	o.deps.Metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt), nil)

	log.Info().
		Int("replied", report.Count(models.StateReplied)).
		Int("reply_pending", report.Count(models.StateReplyPending)).
		Int("blocked", report.Count(models.StateBlocked)).
		Int("failed", report.Count(models.StateFailed)).
		Dur("took", report.FinishedAt.Sub(report.StartedAt)).
		Msg("pipeline run finished")

	return report, nil
}

// prepare fetches, normalizes, marks read and admits one message.
func (o *Orchestrator) prepare(ctx context.Context, it *item) {
	log := o.deps.Logger.With().Str("message_id", it.ref.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while preparing message")
			it.state = models.StateFailed
			it.reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	var raw *models.RawMessage
	err := o.call(ctx, "get_message", func(ctx context.Context) error {
		var err error
		raw, err = o.deps.Transport.GetMessage(ctx, it.ref.ID)
		return err
	})
	if err == nil && raw == nil {
		err = fmt.Errorf("%w: empty message", mailbox.ErrTransport)
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch message")
		it.state = models.StateFailed
		it.reason = err.Error()
		return
	}

	it.msg = o.deps.Normalizer.Normalize(raw)
	if it.msg.MessageID == "" {
		it.msg.MessageID = it.ref.ID
	}
	if it.msg.ThreadID == "" {
		it.msg.ThreadID = it.ref.ThreadID
	}
	it.state = models.StateNormalized

	err = o.call(ctx, "mark_read", func(ctx context.Context) error {
		return o.deps.Transport.MarkRead(ctx, it.ref.ID)
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to mark message as read")
	}

	decision := o.deps.Admission.Decide(it.msg.SenderEmail)
	if !decision.Allowed {
		it.state = models.StateBlocked
		it.reason = decision.Reason
		return
	}
	it.state = models.StateAdmitted
}

// respondAll sends at most one reply per thread, to its newest admitted message.
// Older messages of the same thread share the outcome of that reply. Messages
// without a thread ID are answered on their own with a fresh thread state.
func (o *Orchestrator) respondAll(ctx context.Context, items []*item, states map[string]models.ThreadState) {
	groups := make(map[string][]*item)
	var order []string
	for _, it := range items {
		if it.state != models.StateAdmitted {
			continue
		}
		key := it.msg.ThreadID
		if key == "" {
			key = "message:" + it.ref.ID
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], it)
	}
	sort.Strings(order)

	var g errgroup.Group
	g.SetLimit(o.opts.MaxWorkers)
	for _, key := range order {
		group := groups[key]
		leader := group[0]
		for _, it := range group[1:] {
			if threads.Newer(it.msg, leader.msg) {
				leader = it
			}
		}

		state := models.ThreadState{ThreadID: leader.msg.ThreadID, ExtractionStatus: models.ExtractionEmpty}
		if leader.msg.ThreadID != "" {
			if stored, ok := states[leader.msg.ThreadID]; ok {
				state = stored
			}
		}

		g.Go(func() error {
			o.respond(ctx, leader, &state)
			for _, it := range group {
				if it != leader {
					supersede(it, leader)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// supersede gives an older message the outcome of the reply sent for its thread.
func supersede(it, leader *item) {
	it.state = leader.state
	it.sentID = leader.sentID
	it.reason = "superseded by " + leader.ref.ID
	if leader.reason != "" {
		it.reason += ": " + leader.reason
	}
}

// respond runs extraction if needed, then composes and sends the reply.
// Any failure leaves the message reply_pending.
func (o *Orchestrator) respond(ctx context.Context, it *item, state *models.ThreadState) {
	log := o.deps.Logger.With().Str("message_id", it.msg.MessageID).Str("thread_id", it.msg.ThreadID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while replying")
			it.state = models.StateReplyPending
			it.reason = fmt.Sprintf("panic: %v", r)
		}
	}()

	if o.needsExtraction(state.ExtractionStatus) {
		if err := o.extract(ctx, it, state); err != nil {
			log.Warn().Err(err).Msg("failed to extract student details")
			it.state = models.StateReplyPending
			it.reason = err.Error()
			return
		}
	}

	text, err := o.replyText(ctx, it, state)
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate reply")
		it.state = models.StateReplyPending
		it.reason = err.Error()
		return
	}

	sent, err := o.send(ctx, it.msg, text)
	if err != nil {
		log.Warn().Err(err).Msg("failed to send reply")
		it.state = models.StateReplyPending
		it.reason = err.Error()
		return
	}

	it.state = models.StateReplied
	it.sentID = sent.ID
}

func (o *Orchestrator) needsExtraction(status models.ExtractionStatus) bool {
	switch status {
	case models.ExtractionComplete:
		return false
	case models.ExtractionPartial:
		return o.opts.ReextractPartial
	default:
		return true
	}
}

// extract asks for student details and merges them into the thread state.
// A failed call leaves the thread state untouched and is returned.
func (o *Orchestrator) extract(ctx context.Context, it *item, state *models.ThreadState) error {
	log := o.deps.Logger.With().Str("thread_id", it.msg.ThreadID).Logger()

	var extracted models.ExtractedFields
	err := o.call(ctx, "extract", func(ctx context.Context) error {
		var err error
		extracted, err = o.deps.Extractor.Extract(ctx, it.msg.BodyText)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to extract student details: %w", err)
	}

	fields := threads.MergeFields(state.Fields, extracted)
	state.ExtractionStatus = state.ExtractionStatus.Advance(fields.Status)
	state.Fields = &fields

	if it.msg.ThreadID != "" {
		if err := o.deps.Threads.UpdateExtraction(ctx, it.msg.ThreadID, fields); err != nil {
			log.Warn().Err(err).Msg("failed to store extracted fields")
		}
	}

	if it.msg.SenderEmail != "" {
		student := &models.Student{
			Email:           it.msg.SenderEmail,
			FullName:        fields.FullName,
			AdmissionNumber: fields.AdmissionNumber,
			Course:          fields.Course,
			Year:            fields.Year,
			Semester:        fields.Semester,
			Group:           fields.Group,
			Summary:         fields.Summary,
		}
		if err := o.deps.Students.UpsertStudent(ctx, student); err != nil {
			log.Warn().Err(err).Msg("failed to save student")
		}
	}
	return nil
}

// replyText returns the follow-up question while details are incomplete and a
// generated reply once they are complete.
func (o *Orchestrator) replyText(ctx context.Context, it *item, state *models.ThreadState) (string, error) {
	var fields models.ExtractedFields
	if state.Fields != nil {
		fields = *state.Fields
	}

	if state.ExtractionStatus != models.ExtractionComplete {
		if fields.FollowUpMessage != "" {
			return fields.FollowUpMessage, nil
		}
		return FollowUpText(it.msg.SenderDisplay, fields.Missing()), nil
	}

	var text string
	err := o.call(ctx, "generate_reply", func(ctx context.Context) error {
		var err error
		text, err = o.deps.Replies.GenerateReply(ctx, extraction.ReplyRequest{
			SenderName:  firstNonEmpty(fields.FullName, it.msg.SenderDisplay),
			SenderEmail: it.msg.SenderEmail,
			Subject:     it.msg.Subject,
			Body:        it.msg.BodyText,
			Summary:     fields.Summary,
		})
		return err
	})
	return text, err
}

// report records, logs, counts and broadcasts the final state of it.
func (o *Orchestrator) report(ctx context.Context, it *item) models.Outcome {
	outcome := models.Outcome{
		MessageID:   it.ref.ID,
		ThreadID:    firstNonEmpty(it.msg.ThreadID, it.ref.ThreadID),
		SenderEmail: it.msg.SenderEmail,
		Subject:     it.msg.Subject,
		State:       it.state,
		Reason:      it.reason,
		SentID:      it.sentID,
		RecordedAt:  time.Now().UTC(),
	}
	if !outcome.State.Terminal() {
		outcome.State = models.StateReplyPending
	}

	saveCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()
	if err := o.deps.Outcomes.SaveOutcome(saveCtx, &outcome); err != nil {
		o.deps.Logger.Warn().Err(err).Str("message_id", outcome.MessageID).Msg("failed to save outcome")
	}
	o.deps.Metrics.ObserveOutcome(string(outcome.State))
	o.deps.Notifier.NotifyOutcome(outcome)

	o.deps.Logger.Info().
		Str("message_id", outcome.MessageID).
		Str("thread_id", outcome.ThreadID).
		Str("sender", outcome.SenderEmail).
		Str("state", string(outcome.State)).
		Str("reason", outcome.Reason).
		Msg("message processed")

	return outcome
}

// call runs fn with the per-call timeout and records its latency.
func (o *Orchestrator) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	o.deps.Metrics.ObserveCall(name, time.Since(start), err)
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
