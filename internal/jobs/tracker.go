package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/logger"
)

// ErrCancelled is returned by Run when the caller cancels before the job
// reached a terminal state.
var ErrCancelled = errors.New("job tracking cancelled")

// API is the subset of the analysis API the tracker drives.
type API interface {
	StatusGetter
	ResultsGetter
	SubmitJob(ctx context.Context, req *analysis.Request) (*analysis.JobStatus, error)
}

// Recorder persists what the tracker observes. Failures are logged and never
// change the lifecycle outcome.
type Recorder interface {
	RecordJob(ctx context.Context, req *analysis.Request, status *analysis.JobStatus) error
	UpdateStatus(ctx context.Context, status *analysis.JobStatus) error
	SaveResults(ctx context.Context, set *analysis.ResultSet) error
}

// Outcome is how a watch session ended.
type Outcome struct {
	State  PollState
	Status *analysis.JobStatus
	Err    error
}

// Tracker drives one job from submission to a results view.
type Tracker struct {
	api      API
	poller   *Poller
	fetcher  *Fetcher
	recorder Recorder
	logger   *zap.Logger
}

type TrackerOption func(*trackerConfig)

type trackerConfig struct {
	recorder    Recorder
	pollOptions []PollerOption
}

func WithRecorder(r Recorder) TrackerOption {
	return func(c *trackerConfig) { c.recorder = r }
}

func WithPollerOptions(opts ...PollerOption) TrackerOption {
	return func(c *trackerConfig) { c.pollOptions = append(c.pollOptions, opts...) }
}

func NewTracker(api API, log *zap.Logger, opts ...TrackerOption) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}

	cfg := &trackerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Tracker{
		api:      api,
		poller:   NewPoller(api, log, cfg.pollOptions...),
		fetcher:  NewFetcher(api, log),
		recorder: cfg.recorder,
		logger:   log,
	}
}

// Submit validates req and creates the job. Invalid requests never reach the
// API.
func (t *Tracker) Submit(ctx context.Context, req *analysis.Request) (*analysis.JobStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status, err := t.api.SubmitJob(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.WithJobFields(t.logger, status.JobID, req.Brand).Info("analysis job submitted",
		zap.Int("candidates", len(req.Candidates)),
		zap.String("status", string(status.Status)),
	)

	if t.recorder != nil {
		if err := t.recorder.RecordJob(ctx, req, status); err != nil {
			t.logger.Warn("recording submitted job", zap.String(logger.FieldJobID, status.JobID), zap.Error(err))
		}
	}

	return status, nil
}

// Watch polls jobID until it reaches a terminal state, the poll fails, or ctx
// is cancelled. onUpdate may be nil. Only a failure to start is returned as an
// error; every way the session ends is reported through the Outcome.
func (t *Tracker) Watch(ctx context.Context, jobID string, onUpdate func(Update)) (Outcome, error) {
	deliver := func(u Update) {
		if t.recorder != nil && u.Status != nil {
			if err := t.recorder.UpdateStatus(ctx, u.Status); err != nil {
				t.logger.Warn("recording job status", zap.String(logger.FieldJobID, u.JobID), zap.Error(err))
			}
		}
		if onUpdate != nil {
			onUpdate(u)
		}
	}

	if err := t.poller.Start(ctx, jobID, deliver); err != nil {
		return Outcome{}, err
	}

	if _, err := t.poller.Wait(ctx); err != nil && ctx.Err() != nil {
		// ctx ended first. Stop the session, then report whatever state it
		// settled in: a snapshot may have landed just before the cancel.
		t.poller.Stop()
	}

	return Outcome{State: t.poller.State(), Status: t.poller.Status(), Err: t.poller.Err()}, nil
}

// Stop cancels an ongoing Watch.
func (t *Tracker) Stop() {
	t.poller.Stop()
}

// Results fetches the result set of jobID and records it when ready.
func (t *Tracker) Results(ctx context.Context, jobID string) View {
	view := t.fetcher.Fetch(ctx, jobID)

	if view.State == ViewReady && t.recorder != nil {
		if err := t.recorder.SaveResults(ctx, view.Results); err != nil {
			t.logger.Warn("recording results", zap.String(logger.FieldJobID, jobID), zap.Error(err))
		}
	}

	return view
}

// View returns the latest results view.
func (t *Tracker) View() View {
	return t.fetcher.View()
}

// Run submits req, waits for the job to finish and resolves the outcome into
// a view. Only validation, submission and cancellation errors are returned;
// everything after submission is reported through the view.
func (t *Tracker) Run(ctx context.Context, req *analysis.Request, onUpdate func(Update)) (View, error) {
	status, err := t.Submit(ctx, req)
	if err != nil {
		return View{}, err
	}

	if onUpdate != nil {
		onUpdate(Update{JobID: status.JobID, State: PollPolling, Status: status.Clone()})
	}

	outcome, err := t.Watch(ctx, status.JobID, onUpdate)
	if err != nil {
		return View{JobID: status.JobID}, err
	}

	return t.Resolve(ctx, status.JobID, outcome)
}

// Resolve turns a finished watch into a results view.
func (t *Tracker) Resolve(ctx context.Context, jobID string, outcome Outcome) (View, error) {
	switch outcome.State {
	case PollDone:
		return t.Results(ctx, jobID), nil
	case PollFailed:
		msg := ""
		if outcome.Status != nil {
			msg = outcome.Status.ErrorMessage
		}
		if msg == "" {
			msg = analysis.StateFailed.Label()
		}
		return View{JobID: jobID, State: ViewFailed, Message: msg}, nil
	case PollErrored:
		msg := "polling job status failed"
		if outcome.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, outcome.Err)
		}
		return View{JobID: jobID, State: ViewFailed, Message: msg}, nil
	default:
		return View{JobID: jobID}, ErrCancelled
	}
}
