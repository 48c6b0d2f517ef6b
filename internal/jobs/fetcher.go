package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/logger"
	"github.com/jdh4601/ClosetBot/internal/matchapi"
)

const notReadyMessage = "the analysis has not finished yet, try again in a moment"

// ResultsGetter fetches the result set of a job.
type ResultsGetter interface {
	GetJobResults(ctx context.Context, jobID string) (*analysis.ResultSet, error)
}

// ViewState is what a results view shows. Exactly one state holds at a time.
type ViewState int

const (
	ViewIdle ViewState = iota
	ViewLoading
	ViewNotReady
	ViewFailed
	ViewReady
)

func (s ViewState) String() string {
	switch s {
	case ViewIdle:
		return "idle"
	case ViewLoading:
		return "loading"
	case ViewNotReady:
		return "not_ready"
	case ViewFailed:
		return "failed"
	case ViewReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is the resolved outcome of a results fetch. Results is set only in
// ViewReady and Message only in ViewNotReady and ViewFailed.
type View struct {
	JobID   string
	State   ViewState
	Results *analysis.ResultSet
	Message string
}

// Fetcher retrieves result sets and keeps the latest one. Every fetch
// replaces the held view wholesale; concurrent fetches of the same job share
// one request.
type Fetcher struct {
	api    ResultsGetter
	logger *zap.Logger
	group  singleflight.Group

	mu   sync.Mutex
	seq  uint64
	view View
}

func NewFetcher(api ResultsGetter, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{api: api, logger: log}
}

// Fetch retrieves the result set of jobID and returns the resolved view.
func (f *Fetcher) Fetch(ctx context.Context, jobID string) View {
	jobID = strings.TrimSpace(jobID)

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.view = View{JobID: jobID, State: ViewLoading}
	f.mu.Unlock()

	var view View
	if jobID == "" {
		view = View{State: ViewFailed, Message: ErrJobIDRequired.Error()}
	} else {
		v, _, _ := f.group.Do(jobID, func() (any, error) {
			return f.fetch(ctx, jobID), nil
		})
		view = v.(View)
	}

	f.mu.Lock()
	if seq == f.seq {
		f.view = view
	}
	f.mu.Unlock()

	return view
}

// View returns the latest resolved view.
func (f *Fetcher) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *Fetcher) fetch(ctx context.Context, jobID string) View {
	log := logger.WithFields(f.logger, zap.String(logger.FieldJobID, jobID))

	set, err := f.api.GetJobResults(ctx, jobID)
	switch {
	case errors.Is(err, matchapi.ErrNotReady):
		log.Info("results not ready yet")
		return View{JobID: jobID, State: ViewNotReady, Message: notReadyMessage}
	case err != nil:
		log.Warn("fetching results failed", zap.Error(err))
		return View{JobID: jobID, State: ViewFailed, Message: err.Error()}
	case set == nil:
		return View{JobID: jobID, State: ViewFailed, Message: "empty results response"}
	}

	auditResultSet(log, set)

	return View{JobID: jobID, State: ViewReady, Results: set}
}

// auditResultSet logs contract drift without changing the data.
func auditResultSet(log *zap.Logger, set *analysis.ResultSet) {
	if set.Status != analysis.StateDone {
		log.Warn("result set delivered for a job that is not done", zap.String("status", string(set.Status)))
	}

	for _, r := range set.Results {
		if !r.Scores.GradeConsistent() {
			log.Warn("grade does not match final score",
				zap.String("username", r.Username),
				zap.String("grade", string(r.Scores.Grade)),
				zap.Float64("final_score", r.Scores.FinalScore),
				zap.String("expected_grade", string(analysis.GradeFor(r.Scores.FinalScore))),
			)
		}
	}

	seen := make(map[string]struct{}, len(set.Results))
	for _, r := range set.Results {
		if _, ok := seen[r.Username]; ok {
			log.Warn("duplicate username in result set", zap.String("username", r.Username))
		}
		seen[r.Username] = struct{}{}
	}
}
