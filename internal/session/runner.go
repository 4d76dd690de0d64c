package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/aptitude/internal/adaptive"
	"github.com/abhisek/aptitude/internal/bank"
	"github.com/abhisek/aptitude/internal/logger"
	"github.com/abhisek/aptitude/internal/metrics"
	"github.com/abhisek/aptitude/internal/results"
	"github.com/abhisek/aptitude/internal/telemetry"
)

// Starter obtains a session id from the scoring service.
type Starter interface {
	StartSession(ctx context.Context) (string, error)
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(ctx context.Context) (string, error)

func (f StarterFunc) StartSession(ctx context.Context) (string, error) { return f(ctx) }

// Analyzer produces the final profile. It must not fail.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string, req results.Request) *results.Profile
}

// Telemetry is the capture surface the Runner drives.
type Telemetry interface {
	telemetry.Recorder
	Start(sessionID string)
	Stop() telemetry.Summary
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Bank      *bank.Bank
	Starter   Starter
	Questions adaptive.Source
	Analyzer  Analyzer
	Telemetry Telemetry
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock replaces time.Now for timestamps and budget checks.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithObserver registers a callback invoked on the loop goroutine with every
// snapshot, including ones the stream coalesces away.
func WithObserver(fn func(Snapshot)) RunnerOption {
	return func(r *Runner) { r.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) RunnerOption {
	return func(r *Runner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// Runner owns a Machine and executes its effects on one goroutine. Public
// methods only post messages and are safe to call from any goroutine.
//
// Collaborator calls run on their own goroutines and post results back
// tagged with the epoch and session id they were issued for; results for an
// older epoch or another session are dropped.
type Runner struct {
	deps     Deps
	cfg      Config
	now      func() time.Time
	observer func(Snapshot)
	log      logger.Logger
	metrics  *metrics.Manager

	inbox     chan any
	snapshots chan Snapshot
	done      chan struct{}

	// owned by the loop goroutine
	ctx          context.Context
	epoch        int
	machine      *Machine
	ctrl         *adaptive.Controller
	ticker       *time.Ticker
	tickC        <-chan time.Time
	timers       []*time.Timer
	initializing bool
	initErr      error
}

// NewRunner creates a Runner. Call Run to start its loop.
func NewRunner(deps Deps, cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		deps:      deps,
		cfg:       cfg,
		now:       time.Now,
		log:       logger.Nop(),
		metrics:   metrics.Default(),
		inbox:     make(chan any, 64),
		snapshots: make(chan Snapshot, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.machine = NewMachine(deps.Bank, cfg)
	return r
}

type (
	initializeCmd struct{}
	selectModeCmd struct{ mode Mode }
	chooseCmd     struct{ choice int }
	submitTextCmd struct{ text string }
	finishCmd     struct{}
	restartCmd    struct{}

	initResult struct {
		epoch     int
		sessionID string
		err       error
	}
	questionResult struct {
		epoch     int
		sessionID string
		question  *adaptive.Question
		err       error
	}
	profileResult struct {
		epoch     int
		sessionID string
		profile   *results.Profile
	}
	timerFired struct {
		epoch int
		timer TimerKind
	}
)

// Initialize starts a session.
func (r *Runner) Initialize() { r.post(initializeCmd{}) }

// SelectMode picks the testing mode.
func (r *Runner) SelectMode(m Mode) { r.post(selectModeCmd{mode: m}) }

// Choose answers the current stage.
func (r *Runner) Choose(choice int) { r.post(chooseCmd{choice: choice}) }

// SubmitText answers a free-text stage.
func (r *Runner) SubmitText(text string) { r.post(submitTextCmd{text: text}) }

// Finish ends the session early.
func (r *Runner) Finish() { r.post(finishCmd{}) }

// Restart discards the session and initializes a new one. Results still in
// flight for the old session are ignored.
func (r *Runner) Restart() { r.post(restartCmd{}) }

// Snapshots streams the latest state. Intermediate snapshots may be
// coalesced; the last one is never lost.
func (r *Runner) Snapshots() <-chan Snapshot { return r.snapshots }

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) post(msg any) {
	select {
	case r.inbox <- msg:
	case <-r.done:
	}
}

// Run processes messages until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	defer close(r.done)
	defer r.reset()

	r.publish()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-r.inbox:
			r.handle(msg)
		case <-r.tickC:
			r.apply(r.machine.Tick(r.now()))
		}
		r.publish()
	}
}

func (r *Runner) handle(msg any) {
	now := r.now()
	switch m := msg.(type) {
	case initializeCmd:
		r.initialize()
	case restartCmd:
		r.log.Info(r.ctx, "restarting session", logger.String("session_id", r.machine.Session().ID))
		r.reset()
		r.epoch++
		r.machine = NewMachine(r.deps.Bank, r.cfg)
		r.ctrl = nil
		r.initErr = nil
		r.initialize()
	case selectModeCmd:
		r.apply(r.machine.SelectMode(m.mode, now))
	case chooseCmd:
		r.apply(r.machine.Choose(m.choice, now))
	case submitTextCmd:
		r.apply(r.machine.SubmitText(m.text, now))
	case finishCmd:
		r.apply(r.machine.Finish(now, false))

	case initResult:
		if m.epoch != r.epoch {
			return
		}
		r.initializing = false
		if m.err != nil {
			r.initErr = fmt.Errorf("%w: %v", ErrInitFailed, m.err)
			r.log.Error(r.ctx, "session initialization failed", logger.Error(m.err))
			return
		}
		r.ctrl = adaptive.NewController(r.deps.Questions,
			adaptive.WithRecorder(r.deps.Telemetry),
			adaptive.WithLogger(r.log),
			adaptive.WithMetrics(r.metrics),
		)
		fx, err := r.machine.Initialize(m.sessionID, now)
		if err != nil {
			r.initErr = err
			return
		}
		r.log.Info(r.ctx, "session started", logger.String("session_id", m.sessionID))
		r.execute(fx)

	case questionResult:
		if r.stale(m.epoch, m.sessionID) {
			return
		}
		if m.err != nil {
			r.log.Warn(r.ctx, "adaptive question failed, switching to fixed mode",
				logger.String("session_id", m.sessionID), logger.Error(m.err))
			r.apply(r.machine.QuestionFailed(m.err, now))
			return
		}
		r.apply(r.machine.QuestionReady(m.question, now))

	case profileResult:
		if r.stale(m.epoch, m.sessionID) {
			return
		}
		r.apply(r.machine.ProfileReady(m.profile))

	case timerFired:
		if m.epoch != r.epoch {
			return
		}
		switch m.timer {
		case TimerAdvance:
			r.apply(r.machine.Advance(now))
		case TimerSettle:
			r.apply(r.machine.Settle(now))
		}
	}
}

func (r *Runner) stale(epoch int, sessionID string) bool {
	return epoch != r.epoch || sessionID != r.machine.Session().ID
}

func (r *Runner) initialize() {
	if r.initializing || r.machine.State().Phase != PhaseIdle {
		return
	}
	r.initializing = true
	r.initErr = nil
	epoch, ctx := r.epoch, r.ctx
	go func() {
		id, err := r.deps.Starter.StartSession(ctx)
		r.post(initResult{epoch: epoch, sessionID: id, err: err})
	}()
}

func (r *Runner) apply(fx []Effect, err error) {
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			r.log.Debug(r.ctx, "ignored transition", logger.Error(err))
		} else {
			r.log.Warn(r.ctx, "rejected input", logger.Error(err))
		}
		if errors.Is(err, ErrInvalidAnswer) {
			r.deps.Telemetry.Record(telemetry.EventError, map[string]any{
				"reason": "invalid_answer",
				"state":  r.machine.State().String(),
				"detail": err.Error(),
			})
		}
		return
	}
	r.execute(fx)
}

func (r *Runner) execute(fx []Effect) {
	for _, e := range fx {
		switch e := e.(type) {
		case StartTelemetry:
			r.deps.Telemetry.Start(e.SessionID)
		case StopTelemetry:
			r.deps.Telemetry.Stop()
		case StartTimer:
			r.startTimer()
		case StopTimer:
			r.stopTimer()
		case Record:
			r.deps.Telemetry.Record(e.Type, e.Data)
		case RecordResponse:
			r.deps.Telemetry.RecordResponse(e.Key, e.Value)
		case Schedule:
			r.schedule(e)
		case RequestQuestion:
			r.requestQuestion(e)
		case QuestionDisplayed:
			r.ctrl.MarkDisplayed(e.Question, e.At)
		case AdaptiveChoice:
			if _, err := r.ctrl.RecordChoice(e.Question, e.Choice, e.At); err != nil {
				r.log.Warn(r.ctx, "failed to record adaptive choice", logger.Error(err))
			}
		case Downgrade:
			r.ctrl.Downgrade(e.Cause)
		case Analyze:
			r.analyze(e)
		case Transition:
			r.metrics.Transition(e.To.Phase.String())
			r.log.Debug(r.ctx, "transition",
				logger.String("from", e.From.String()),
				logger.String("to", e.To.String()),
			)
		}
	}
}

func (r *Runner) requestQuestion(e RequestQuestion) {
	epoch, sid, ctrl := r.epoch, r.machine.Session().ID, r.ctrl
	ctx := r.ctx
	go func() {
		if r.cfg.QuestionTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.QuestionTimeout)
			defer cancel()
		}
		q, err := ctrl.RequestNext(ctx, sid, e.StageTag, e.Completed, e.Elapsed)
		r.post(questionResult{epoch: epoch, sessionID: sid, question: q, err: err})
	}()
}

func (r *Runner) analyze(e Analyze) {
	epoch, sid, ctx := r.epoch, r.machine.Session().ID, r.ctx
	go func() {
		p := r.deps.Analyzer.Analyze(ctx, sid, e.Request)
		r.post(profileResult{epoch: epoch, sessionID: sid, profile: p})
	}()
}

func (r *Runner) schedule(e Schedule) {
	epoch := r.epoch
	t := time.AfterFunc(e.After, func() {
		r.post(timerFired{epoch: epoch, timer: e.Timer})
	})
	r.timers = append(r.timers, t)
}

func (r *Runner) startTimer() {
	if r.ticker != nil {
		return
	}
	interval := r.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	r.ticker = time.NewTicker(interval)
	r.tickC = r.ticker.C
}

func (r *Runner) stopTimer() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	r.tickC = nil
}

// reset stops every timer and, if capture is on, the telemetry session.
func (r *Runner) reset() {
	r.stopTimer()
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
	r.initializing = false
	if s := r.machine.Session(); s.ID != "" && !s.Finished {
		r.deps.Telemetry.Stop()
	}
}

func (r *Runner) publish() {
	s := r.snapshot()
	if r.observer != nil {
		r.observer(s)
	}
	select {
	case r.snapshots <- s:
		return
	default:
	}
	select {
	case <-r.snapshots:
	default:
	}
	select {
	case r.snapshots <- s:
	default:
	}
}
