package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

type gradeAuditFilter struct {
	enabled bool
	reason  string
	logger  *zap.Logger
	flagged []string
}

// NewGradeAudit creates a step that reports candidates whose grade disagrees
// with their final score. It never drops or corrects anything.
func NewGradeAudit(logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gradeAuditFilter{enabled: true, logger: logger}
}

func (f *gradeAuditFilter) Name() string { return "grade_audit" }

func (f *gradeAuditFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *gradeAuditFilter) IsEnabled() bool { return f.enabled }

func (f *gradeAuditFilter) Validate() error { return nil }

func (f *gradeAuditFilter) Apply(_ context.Context, set *analysis.ResultSet) (*analysis.ResultSet, Step, error) {
	f.flagged = set.GradeMismatches()

	for _, username := range f.flagged {
		r := set.Find(username)
		f.logger.Warn("grade does not match final score",
			zap.String("username", username),
			zap.String("grade", string(r.Scores.Grade)),
			zap.Float64("final_score", r.Scores.FinalScore),
		)
	}

	n := set.Len()
	return set, Step{Initial: n, Dropped: 0, Left: n}, nil
}

// Flagged returns the usernames reported by the last Apply.
func (f *gradeAuditFilter) Flagged() []string {
	return f.flagged
}

func (f *gradeAuditFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
