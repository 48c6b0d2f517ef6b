package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/logger"
	"github.com/jdh4601/ClosetBot/internal/utils"
)

// DefaultInterval is the pause between the end of one status request and the
// start of the next.
const DefaultInterval = 2 * time.Second

// ErrJobIDRequired is returned by Start when no job identifier is given.
var ErrJobIDRequired = errors.New("job id is required to start polling")

// StatusGetter fetches one status snapshot of a job.
type StatusGetter interface {
	GetJobStatus(ctx context.Context, jobID string) (*analysis.JobStatus, error)
}

// PollState is the state of a polling session.
type PollState int

const (
	PollIdle PollState = iota
	PollPolling
	PollDone
	PollFailed
	PollCancelled
	PollErrored
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollPolling:
		return "polling"
	case PollDone:
		return "done"
	case PollFailed:
		return "failed"
	case PollCancelled:
		return "cancelled"
	case PollErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer produce updates.
func (s PollState) Terminal() bool {
	return s != PollIdle && s != PollPolling
}

// Update is delivered to the onUpdate callback after every accepted snapshot
// and on the transition into a terminal state.
type Update struct {
	JobID  string
	State  PollState
	Status *analysis.JobStatus
	Err    error
}

// Poller tracks one job at a time. A session runs a single goroutine that
// issues a status request, waits for the response, then sleeps Interval
// before the next request, so two requests for the same job are never in
// flight together.
//
// Every session carries a generation number. Stop and Start bump it, and a
// response whose generation is stale is dropped on arrival.
type Poller struct {
	api      StatusGetter
	interval time.Duration
	logger   *zap.Logger
	wait     func(ctx context.Context, d time.Duration) error

	// deliver serializes the generation check with the callback so that once
	// Stop returns no callback of the stopped session can run.
	deliver sync.Mutex

	mu         sync.Mutex
	jobID      string
	state      PollState
	generation uint64
	status     *analysis.JobStatus
	err        error
	cancel     context.CancelFunc
	done       chan struct{}
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithWait replaces the pause between polls. Tests use it to avoid sleeping.
func WithWait(wait func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		if wait != nil {
			p.wait = wait
		}
	}
}

func NewPoller(api StatusGetter, log *zap.Logger, opts ...PollerOption) *Poller {
	if log == nil {
		log = zap.NewNop()
	}

	p := &Poller{
		api:      api,
		interval: DefaultInterval,
		logger:   log,
		wait:     utils.WaitFor,
		state:    PollIdle,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Start begins polling jobID. The first status request is issued
// immediately. Starting the job that is already being polled is a no-op;
// starting a different job tears the current session down first.
//
// onUpdate runs on the polling goroutine. It must not call Start or Stop;
// cancel ctx instead to end the session from inside the callback.
func (p *Poller) Start(ctx context.Context, jobID string, onUpdate func(Update)) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ErrJobIDRequired
	}

	p.mu.Lock()
	if p.state == PollPolling && p.jobID == jobID {
		p.mu.Unlock()
		return nil
	}

	replaced := p.state == PollPolling
	p.teardownLocked()

	gen := p.generation
	sessionCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.jobID = jobID
	p.state = PollPolling
	p.status = nil
	p.err = nil
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	if replaced {
		p.awaitDelivery()
	}

	log := logger.WithFields(p.logger, zap.String(logger.FieldJobID, jobID))
	log.Debug("polling started", zap.Duration("interval", p.interval))

	go p.loop(sessionCtx, gen, jobID, onUpdate, done, log)

	return nil
}

// Stop cancels the current session. It is idempotent and has no effect on a
// session that already reached a terminal state.
func (p *Poller) Stop() {
	p.mu.Lock()
	stopped := p.state == PollPolling
	if stopped {
		p.teardownLocked()
		p.state = PollCancelled
	}
	jobID := p.jobID
	p.mu.Unlock()

	if !stopped {
		return
	}

	p.awaitDelivery()

	p.logger.Debug("polling stopped", zap.String(logger.FieldJobID, jobID))
}

// teardownLocked invalidates the running session. p.mu must be held.
func (p *Poller) teardownLocked() {
	p.releaseLocked()
	p.generation++
}

// releaseLocked cancels the session context. p.mu must be held.
func (p *Poller) releaseLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// awaitDelivery waits for a callback that passed the generation check before
// the session was invalidated.
func (p *Poller) awaitDelivery() {
	p.deliver.Lock()
	p.deliver.Unlock()
}

// Done is closed when the current session's goroutine exits. It returns nil
// before the first Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Wait blocks until the current session ends or ctx is done and returns the
// resulting state.
func (p *Poller) Wait(ctx context.Context) (PollState, error) {
	done := p.Done()
	if done == nil {
		return PollIdle, nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.err
}

func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) JobID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jobID
}

// Status returns a copy of the latest accepted snapshot.
func (p *Poller) Status() *analysis.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.Clone()
}

// Err returns the transport error that ended the session, if any.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Poller) loop(ctx context.Context, gen uint64, jobID string, onUpdate func(Update), done chan struct{}, log *zap.Logger) {
	defer close(done)

	for {
		status, err := p.api.GetJobStatus(ctx, jobID)
		if !p.apply(ctx, gen, jobID, status, err, onUpdate, log) {
			return
		}

		if err := p.wait(ctx, p.interval); err != nil {
			p.abandon(gen)
			return
		}
	}
}

// apply records one poll outcome and reports whether polling continues.
func (p *Poller) apply(ctx context.Context, gen uint64, jobID string, status *analysis.JobStatus, err error, onUpdate func(Update), log *zap.Logger) bool {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	if gen != p.generation || p.state != PollPolling {
		p.mu.Unlock()
		log.Debug("discarding response of a stopped polling session")
		return false
	}

	if ctx.Err() != nil {
		p.state = PollCancelled
		p.releaseLocked()
		p.mu.Unlock()
		log.Debug("polling cancelled by caller")
		return false
	}

	update := Update{JobID: jobID}

	switch {
	case err != nil:
		p.state = PollErrored
		p.err = err
		update.Err = err
	case status == nil:
		p.state = PollErrored
		p.err = errors.New("empty status response")
		update.Err = p.err
	default:
		if prev := p.status; prev != nil && prev.Status == analysis.StateRunning && status.Status == analysis.StateRunning &&
			status.Progress() >= 0 && status.Progress() < prev.Progress() {
			log.Warn("job progress went backwards",
				zap.Int("previous", prev.Progress()),
				zap.Int("current", status.Progress()),
			)
		}

		p.status = status.Clone()
		switch status.Status {
		case analysis.StateDone:
			p.state = PollDone
		case analysis.StateFailed:
			p.state = PollFailed
		}
		update.Status = status.Clone()
	}

	update.State = p.state
	if p.state.Terminal() {
		p.releaseLocked()
	}
	p.mu.Unlock()

	switch update.State {
	case PollErrored:
		log.Warn("polling stopped on error", zap.Error(update.Err))
	case PollFailed:
		log.Info("job failed", zap.String("error_message", utils.TruncateForLog(update.Status.ErrorMessage, 200)))
	case PollDone:
		log.Info("job finished")
	default:
		log.Debug("job status", zap.String("status", string(update.Status.Status)), zap.Int("progress", update.Status.Progress()))
	}

	if onUpdate != nil {
		onUpdate(update)
	}

	return !update.State.Terminal()
}

// abandon marks the session cancelled when its wait was interrupted.
func (p *Poller) abandon(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen == p.generation && p.state == PollPolling {
		p.state = PollCancelled
		p.releaseLocked()
	}
}
