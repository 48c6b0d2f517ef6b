package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

type minGradeFilter struct {
	grade   analysis.Grade
	enabled bool
	reason  string
	logger  *zap.Logger
}

// NewMinGrade creates a filter that drops candidates graded below grade. An
// empty grade disables it.
func NewMinGrade(grade analysis.Grade, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &minGradeFilter{grade: grade, enabled: grade != "", logger: logger}
	if !f.enabled {
		f.reason = "no minimum grade configured"
	}
	return f
}

func (f *minGradeFilter) Name() string { return "min_grade" }

func (f *minGradeFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *minGradeFilter) IsEnabled() bool { return f.enabled }

func (f *minGradeFilter) Validate() error {
	_, err := analysis.ParseGrade(string(f.grade))
	return err
}

func (f *minGradeFilter) Apply(_ context.Context, set *analysis.ResultSet) (*analysis.ResultSet, Step, error) {
	initial := set.Len()

	out, dropped := keep(set, func(r *analysis.InfluencerResult) bool {
		return r.Scores.Grade.AtLeast(f.grade)
	})

	if len(dropped) > 0 {
		f.logger.Info("hiding candidates below minimum grade",
			zap.String("min_grade", string(f.grade)),
			zap.Strings("hidden", dropped),
		)
	}

	return out, Step{Initial: initial, Dropped: len(dropped), Left: out.Len()}, nil
}

func (f *minGradeFilter) Status() Status {
	details := map[string]string{}
	if f.grade != "" {
		details["min_grade"] = string(f.grade)
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
