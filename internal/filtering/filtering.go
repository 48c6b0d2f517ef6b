package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// Filter represents a single step that narrows a result set for display or
// export. Filters never reorder results and never modify the input set.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, set *analysis.ResultSet) (*analysis.ResultSet, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the narrowed
// copy of set.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, set *analysis.ResultSet) (*analysis.ResultSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, set)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		set = next
	}

	return set, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns a copy of set holding only the results accepted by fn, in
// their original order, plus the usernames that were dropped.
func keep(set *analysis.ResultSet, fn func(r *analysis.InfluencerResult) bool) (*analysis.ResultSet, []string) {
	if set == nil {
		return nil, nil
	}

	kept := make([]analysis.InfluencerResult, 0, len(set.Results))
	var dropped []string
	for i := range set.Results {
		if fn(&set.Results[i]) {
			kept = append(kept, set.Results[i])
			continue
		}
		dropped = append(dropped, set.Results[i].Username)
	}

	return set.WithResults(kept), dropped
}
