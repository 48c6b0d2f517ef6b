package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

type fakeStatusAPI struct {
	mu       sync.Mutex
	calls    map[string]int
	inflight int32
	overlap  int32
	handler  func(ctx context.Context, jobID string, n int) (*analysis.JobStatus, error)
}

func newFakeStatusAPI(handler func(ctx context.Context, jobID string, n int) (*analysis.JobStatus, error)) *fakeStatusAPI {
	return &fakeStatusAPI{calls: map[string]int{}, handler: handler}
}

func (f *fakeStatusAPI) GetJobStatus(ctx context.Context, jobID string) (*analysis.JobStatus, error) {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inflight, -1)

	f.mu.Lock()
	f.calls[jobID]++
	n := f.calls[jobID]
	f.mu.Unlock()

	return f.handler(ctx, jobID, n)
}

func (f *fakeStatusAPI) Calls(jobID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[jobID]
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) add(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) all() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Update(nil), r.updates...)
}

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func status(jobID string, state analysis.JobState, progress int) *analysis.JobStatus {
	st := &analysis.JobStatus{JobID: jobID, Status: state}
	if progress >= 0 {
		st.ProgressPercent = &progress
	}
	return st
}

func sequence(steps ...*analysis.JobStatus) func(context.Context, string, int) (*analysis.JobStatus, error) {
	return func(_ context.Context, _ string, n int) (*analysis.JobStatus, error) {
		if n > len(steps) {
			return steps[len(steps)-1], nil
		}
		return steps[n-1], nil
	}
}

func waitDone(t *testing.T, p *Poller) PollState {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, _ := p.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("poller did not finish in time, state %s", state)
	}
	return state
}

func TestPollerStopsAtDone(t *testing.T) {
	api := newFakeStatusAPI(sequence(
		status("J1", analysis.StateQueued, -1),
		status("J1", analysis.StateRunning, 40),
		status("J1", analysis.StateDone, 100),
	))

	var intervals []time.Duration
	var mu sync.Mutex
	wait := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		intervals = append(intervals, d)
		mu.Unlock()
		return ctx.Err()
	}

	rec := &recorder{}
	p := NewPoller(api, zap.NewNop(), WithInterval(time.Second), WithWait(wait))

	if err := p.Start(context.Background(), "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}

	if state := waitDone(t, p); state != PollDone {
		t.Fatalf("expected done, got %s", state)
	}

	if calls := api.Calls("J1"); calls != 3 {
		t.Fatalf("expected 3 polls, got %d", calls)
	}

	updates := rec.all()
	want := []PollState{PollPolling, PollPolling, PollDone}
	if len(updates) != len(want) {
		t.Fatalf("expected %d updates, got %d", len(want), len(updates))
	}
	for i, u := range updates {
		if u.State != want[i] {
			t.Fatalf("update %d: expected %s, got %s", i, want[i], u.State)
		}
	}
	if updates[1].Status.Progress() != 40 {
		t.Fatalf("expected progress 40, got %d", updates[1].Status.Progress())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(intervals) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(intervals))
	}
	for _, d := range intervals {
		if d != time.Second {
			t.Fatalf("expected interval 1s, got %s", d)
		}
	}

	if p.Status().Status != analysis.StateDone {
		t.Fatalf("expected stored status done, got %s", p.Status().Status)
	}
}

func TestPollerFailedKeepsErrorMessage(t *testing.T) {
	failed := status("J1", analysis.StateFailed, -1)
	failed.ErrorMessage = "rate limited"

	api := newFakeStatusAPI(sequence(failed))
	rec := &recorder{}
	p := NewPoller(api, zap.NewNop(), WithWait(noWait))

	if err := p.Start(context.Background(), "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}

	if state := waitDone(t, p); state != PollFailed {
		t.Fatalf("expected failed, got %s", state)
	}
	if api.Calls("J1") != 1 {
		t.Fatalf("expected polling to stop after failure, got %d calls", api.Calls("J1"))
	}
	if got := p.Status().ErrorMessage; got != "rate limited" {
		t.Fatalf("expected error message %q, got %q", "rate limited", got)
	}
}

func TestPollerNeverOverlapsRequests(t *testing.T) {
	api := newFakeStatusAPI(func(_ context.Context, jobID string, n int) (*analysis.JobStatus, error) {
		time.Sleep(time.Millisecond)
		if n < 6 {
			return status(jobID, analysis.StateRunning, n*10), nil
		}
		return status(jobID, analysis.StateDone, 100), nil
	})

	p := NewPoller(api, zap.NewNop(), WithWait(noWait))
	if err := p.Start(context.Background(), "J1", nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitDone(t, p)

	if atomic.LoadInt32(&api.overlap) != 0 {
		t.Fatalf("status requests overlapped")
	}
	if api.Calls("J1") != 6 {
		t.Fatalf("expected 6 polls, got %d", api.Calls("J1"))
	}
}

func TestPollerStopDiscardsInFlightResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	api := newFakeStatusAPI(func(_ context.Context, jobID string, _ int) (*analysis.JobStatus, error) {
		close(entered)
		<-release
		return status(jobID, analysis.StateDone, 100), nil
	})

	rec := &recorder{}
	p := NewPoller(api, zap.NewNop(), WithWait(noWait))

	if err := p.Start(context.Background(), "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}

	<-entered
	p.Stop()
	close(release)

	if state := waitDone(t, p); state != PollCancelled {
		t.Fatalf("expected cancelled, got %s", state)
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no updates after stop, got %d", n)
	}
	if p.Status() != nil {
		t.Fatalf("expected stale status to be discarded")
	}

	p.Stop()
	if p.State() != PollCancelled {
		t.Fatalf("expected repeated stop to keep cancelled, got %s", p.State())
	}
}

func TestPollerContextCancelSuppressesCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})

	api := newFakeStatusAPI(func(_ context.Context, jobID string, _ int) (*analysis.JobStatus, error) {
		close(entered)
		cancel()
		return status(jobID, analysis.StateDone, 100), nil
	})

	rec := &recorder{}
	p := NewPoller(api, zap.NewNop(), WithWait(noWait))

	if err := p.Start(ctx, "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-entered

	<-p.Done()
	if p.State() != PollCancelled {
		t.Fatalf("expected cancelled, got %s", p.State())
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no updates after cancel, got %d", n)
	}
}

func TestPollerCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newFakeStatusAPI(func(_ context.Context, jobID string, _ int) (*analysis.JobStatus, error) {
		return status(jobID, analysis.StateRunning, 10), nil
	})

	waiting := make(chan struct{}, 1)
	wait := func(ctx context.Context, _ time.Duration) error {
		waiting <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}

	p := NewPoller(api, zap.NewNop(), WithWait(wait))
	if err := p.Start(ctx, "J1", nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	<-waiting
	cancel()
	<-p.Done()

	if p.State() != PollCancelled {
		t.Fatalf("expected cancelled, got %s", p.State())
	}
	if api.Calls("J1") != 1 {
		t.Fatalf("expected a single poll, got %d", api.Calls("J1"))
	}
}

func TestPollerDuplicateStartIsNoop(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	api := newFakeStatusAPI(func(_ context.Context, jobID string, _ int) (*analysis.JobStatus, error) {
		close(entered)
		<-release
		return status(jobID, analysis.StateDone, 100), nil
	})

	p := NewPoller(api, zap.NewNop(), WithWait(noWait))
	if err := p.Start(context.Background(), "J1", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-entered

	if err := p.Start(context.Background(), " J1 ", nil); err != nil {
		t.Fatalf("second start: %v", err)
	}
	close(release)

	if state := waitDone(t, p); state != PollDone {
		t.Fatalf("expected done, got %s", state)
	}
	if api.Calls("J1") != 1 {
		t.Fatalf("expected one poll, got %d", api.Calls("J1"))
	}
}

func TestPollerRestartWithAnotherJob(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	api := newFakeStatusAPI(func(_ context.Context, jobID string, _ int) (*analysis.JobStatus, error) {
		if jobID == "J1" {
			close(entered)
			<-release
			failed := status(jobID, analysis.StateFailed, -1)
			failed.ErrorMessage = "stale"
			return failed, nil
		}
		return status(jobID, analysis.StateDone, 100), nil
	})

	rec := &recorder{}
	p := NewPoller(api, zap.NewNop(), WithWait(noWait))

	if err := p.Start(context.Background(), "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-entered

	if err := p.Start(context.Background(), "J2", rec.add); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if state := waitDone(t, p); state != PollDone {
		t.Fatalf("expected done, got %s", state)
	}
	if p.JobID() != "J2" {
		t.Fatalf("expected J2, got %s", p.JobID())
	}

	for _, u := range rec.all() {
		if u.JobID != "J2" {
			t.Fatalf("unexpected update for %s", u.JobID)
		}
	}
}

func TestPollerRequiresJobID(t *testing.T) {
	p := NewPoller(newFakeStatusAPI(nil), nil)

	if err := p.Start(context.Background(), "  ", nil); !errors.Is(err, ErrJobIDRequired) {
		t.Fatalf("expected ErrJobIDRequired, got %v", err)
	}
	if p.State() != PollIdle {
		t.Fatalf("expected idle, got %s", p.State())
	}

	state, err := p.Wait(context.Background())
	if state != PollIdle || err != nil {
		t.Fatalf("expected idle wait, got %s %v", state, err)
	}
}

func TestPollerTransportErrorEndsSession(t *testing.T) {
	boom := errors.New("connection refused")
	api := newFakeStatusAPI(func(context.Context, string, int) (*analysis.JobStatus, error) {
		return nil, boom
	})

	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{}
	p := NewPoller(api, zap.New(core), WithWait(noWait))

	if err := p.Start(context.Background(), "J1", rec.add); err != nil {
		t.Fatalf("start: %v", err)
	}

	state := waitDone(t, p)
	if state != PollErrored {
		t.Fatalf("expected errored, got %s", state)
	}
	if !errors.Is(p.Err(), boom) {
		t.Fatalf("expected transport error, got %v", p.Err())
	}

	updates := rec.all()
	if len(updates) != 1 || !errors.Is(updates[0].Err, boom) {
		t.Fatalf("expected a single error update, got %+v", updates)
	}

	if logs.FilterMessage("polling stopped on error").Len() != 1 {
		t.Fatalf("expected error to be logged")
	}
}

func TestPollerWarnsOnProgressRegression(t *testing.T) {
	api := newFakeStatusAPI(sequence(
		status("J1", analysis.StateRunning, 60),
		status("J1", analysis.StateRunning, 30),
		status("J1", analysis.StateDone, 100),
	))

	core, logs := observer.New(zapcore.WarnLevel)
	p := NewPoller(api, zap.New(core), WithWait(noWait))

	if err := p.Start(context.Background(), "J1", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitDone(t, p)

	if logs.FilterMessage("job progress went backwards").Len() != 1 {
		t.Fatalf("expected progress regression warning")
	}
}
