package ai

import (
	"context"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// CandidateNote is a one line remark about one candidate.
type CandidateNote struct {
	Username string
	Note     string
}

// Summary is a short narrative over a whole result set.
type Summary struct {
	Headline string
	Notes    []CandidateNote
	Raw      string
}

// Note returns the remark for username, if any.
func (s *Summary) Note(username string) string {
	if s == nil {
		return ""
	}
	for _, n := range s.Notes {
		if n.Username == username {
			return n.Note
		}
	}
	return ""
}

// Summarizer writes a Summary for a result set. Failures never affect the
// job or its results.
type Summarizer interface {
	Summarize(ctx context.Context, set *analysis.ResultSet) (*Summary, error)
}
