package upload

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts  = 3
	DefaultPollInterval = 3 * time.Second
)

// PollConfig controls the tag polling loop. The interval is fixed, not a backoff.
type PollConfig struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollConfig returns three attempts every three seconds.
func DefaultPollConfig() PollConfig {
	return PollConfig{MaxAttempts: DefaultMaxAttempts, Interval: DefaultPollInterval}
}

func (c PollConfig) normalized() PollConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	return c
}

// PollOutcome is the result of a finished poll. Tags is empty when Exhausted.
type PollOutcome struct {
	Tags      []TagRecord
	Attempts  int
	Exhausted bool
}

// AttemptFunc observes an unsuccessful, non-final attempt.
type AttemptFunc func(attempt int, result OracleResult)

// Poller queries the Oracle on a fixed timer until tags appear or attempts run out.
type Poller struct {
	oracle Oracle
	cfg    PollConfig
	clock  clockwork.Clock
	log    zerolog.Logger
}

func NewPoller(oracle Oracle, cfg PollConfig, clock clockwork.Clock, log zerolog.Logger) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		oracle: oracle,
		cfg:    cfg.normalized(),
		clock:  clock,
		log:    log.With().Str("component", "tag-poller").Logger(),
	}
}

// Config returns the effective configuration.
func (p *Poller) Config() PollConfig { return p.cfg }

// PollHandle controls one running poll. Each handle owns its attempt counter and timer.
type PollHandle struct {
	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	cancelQ  context.CancelFunc

	outcome PollOutcome
	err     error
}

// Start launches a poll for filename and returns immediately. The first query fires one
// interval after Start. onAttempt may be nil.
func (p *Poller) Start(ctx context.Context, filename string, onAttempt AttemptFunc) *PollHandle {
	qctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		cancelQ:  cancel,
	}
	go p.run(qctx, h, filename, onAttempt)
	return h
}

func (p *Poller) run(ctx context.Context, h *PollHandle, filename string, onAttempt AttemptFunc) {
	defer close(h.finished)
	defer h.cancelQ()

	log := p.log.With().Str("filename", filename).Logger()
	log.Debug().Int("max_attempts", p.cfg.MaxAttempts).Dur("interval", p.cfg.Interval).Msg("starting tag poll")

	timer := p.clock.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-h.stop:
			h.err = ErrPollCancelled
			return
		case <-ctx.Done():
			h.err = ctx.Err()
			return
		case <-timer.Chan():
		}

		// The next tick is armed only after this query returns, so attempts never overlap.
		result := p.oracle.QueryTag(ctx, filename)
		if h.stopped() {
			h.err = ErrPollCancelled
			return
		}
		if err := ctx.Err(); err != nil {
			h.err = err
			return
		}
		log.Debug().Int("attempt", attempt).Str("result", result.Kind.String()).Msg("poll attempt")

		// A duplicate reported mid-poll is still just a tag answer here.
		if result.HasTags() {
			h.outcome = PollOutcome{Tags: result.Tags, Attempts: attempt}
			return
		}
		if attempt >= p.cfg.MaxAttempts {
			h.outcome = PollOutcome{Attempts: attempt, Exhausted: true}
			log.Info().Int("attempts", attempt).Msg("tag poll exhausted")
			return
		}
		if onAttempt != nil {
			onAttempt(attempt, result)
		}
		timer.Reset(p.cfg.Interval)
	}
}

func (h *PollHandle) stopped() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}

// Cancel halts the timer and any in-flight query, and returns once the loop has exited.
// Safe to call multiple times and after completion.
func (h *PollHandle) Cancel() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.cancelQ()
	})
	<-h.finished
}

// Done is closed when the poll has finished for any reason.
func (h *PollHandle) Done() <-chan struct{} { return h.finished }

// Result returns the outcome. Only meaningful after Done is closed.
func (h *PollHandle) Result() (PollOutcome, error) {
	select {
	case <-h.finished:
		return h.outcome, h.err
	default:
		return PollOutcome{}, ErrUploadInProgress
	}
}
