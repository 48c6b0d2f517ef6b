package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/jobs"
	"github.com/jdh4601/ClosetBot/internal/store"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func sampleSet() *analysis.ResultSet {
	return &analysis.ResultSet{
		JobID:         "J1",
		BrandUsername: "acme",
		TotalAPICalls: 1560,
		Results: []analysis.InfluencerResult{
			{
				Username:          "inf1",
				FollowersCount:    45000,
				MediaCount:        1230,
				AvgEngagementRate: floatPtr(0.042),
				Scores:            analysis.ScoreBreakdown{SimilarityScore: 92, EngagementScore: 85, CategoryScore: 78, FinalScore: 87.5, Grade: analysis.GradeA},
				TopPosts: []analysis.TopPost{
					{Permalink: "https://instagram.com/p/1", EngagementRate: 9.2, LikesCount: intPtr(4100), CommentsCount: 156},
					{Permalink: "https://instagram.com/p/2", EngagementRate: 8.7, CommentsCount: 142},
				},
				HashtagDistribution: map[string]float64{"minimal": 22, "fashion": 45, "ootd": 22},
				CommonHashtags:      []string{"minimal", "fashion"},
			},
			{
				Username:       "inf2",
				FollowersCount: 1200,
				Scores:         analysis.ScoreBreakdown{FinalScore: 45, Grade: analysis.GradeB},
			},
		},
	}
}

func TestResultsTable(t *testing.T) {
	out := ResultsTable(sampleSet())

	for _, want := range []string{"@inf1", "45,000", "4.20%", "minimal, fashion", "B (!)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "@inf1") > strings.Index(out, "@inf2") {
		t.Fatalf("expected server order to be kept")
	}
}

func TestResultsSummary(t *testing.T) {
	got := ResultsSummary(sampleSet())
	if !strings.Contains(got, "1,560 API calls") || !strings.Contains(got, "completed -") {
		t.Fatalf("unexpected summary %q", got)
	}
	if ResultsSummary(nil) != "" {
		t.Fatalf("expected empty summary for nil set")
	}
}

func TestDetail(t *testing.T) {
	set := sampleSet()
	out := Detail(set.Find("inf1"), false)

	for _, want := range []string{"== @inf1 ==", "Brand similarity (40%)", "Strongly recommended", "#minimal #fashion"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected detail to contain %q:\n%s", want, out)
		}
	}

	if strings.Index(out, "#fashion") > strings.Index(out, "#ootd") {
		t.Fatalf("expected hashtags ordered by share:\n%s", out)
	}

	mismatch := Detail(set.Find("inf2"), false)
	if !strings.Contains(mismatch, "usually means grade C") {
		t.Fatalf("expected grade note:\n%s", mismatch)
	}

	if Detail(nil, false) != "" {
		t.Fatalf("expected empty detail for nil result")
	}
}

func TestHashtagRowsBreakTiesByName(t *testing.T) {
	rows := hashtagRows(map[string]float64{"b": 10, "a": 10, "c": 50})
	got := []string{rows[0][0], rows[1][0], rows[2][0]}
	want := []string{"#c", "#a", "#b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name   string
		status *analysis.JobStatus
		want   []string
	}{
		{
			name:   "queued",
			status: &analysis.JobStatus{JobID: "J1", Status: analysis.StateQueued},
			want:   []string{"[INFO]", "waiting in queue", "rate limits"},
		},
		{
			name:   "running",
			status: &analysis.JobStatus{JobID: "J1", Status: analysis.StateRunning, ProgressPercent: intPtr(40), EstimatedCompletionMinutes: intPtr(3)},
			want:   []string{"analyzing 40%", "about 3 min left"},
		},
		{
			name:   "failed",
			status: &analysis.JobStatus{JobID: "J1", Status: analysis.StateFailed, ErrorMessage: "rate limited"},
			want:   []string{"[ERROR]", "rate limited"},
		},
		{
			name:   "done",
			status: &analysis.JobStatus{JobID: "J1", Status: analysis.StateDone, ProgressPercent: intPtr(100)},
			want:   []string{"[OK]", "done 100%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusLine(tt.status, false)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Fatalf("expected %q in %q", want, got)
				}
			}
		})
	}
}

func TestStatusLineColorize(t *testing.T) {
	got := StatusLine(&analysis.JobStatus{JobID: "J1", Status: analysis.StateDone}, true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected colored output, got %q", got)
	}
}

func TestUpdateAndViewLines(t *testing.T) {
	errLine := UpdateLine(jobs.Update{JobID: "J1", State: jobs.PollErrored, Err: errors.New("timeout")}, false)
	if !strings.Contains(errLine, "polling stopped: timeout") {
		t.Fatalf("unexpected error line %q", errLine)
	}

	notReady := ViewLine(jobs.View{JobID: "J1", State: jobs.ViewNotReady, Message: "not yet"}, false)
	if !strings.Contains(notReady, "[WARN] not yet") {
		t.Fatalf("unexpected not ready line %q", notReady)
	}

	failed := ViewLine(jobs.View{JobID: "J1", State: jobs.ViewFailed, Message: "rate limited"}, false)
	if !strings.Contains(failed, "[ERROR] rate limited") {
		t.Fatalf("unexpected failed line %q", failed)
	}
}

func TestHistoryTable(t *testing.T) {
	out := HistoryTable([]*store.Job{
		{ID: "J2", Brand: "acme", Candidates: []string{"inf1", "inf2"}, State: analysis.StateRunning, Progress: intPtr(40)},
		{ID: "J1", Brand: "acme", State: analysis.StateFailed, ErrorMessage: "rate limited", HasResults: true},
	})

	for _, want := range []string{"J2", "inf1, inf2", "40%", "rate limited", "yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected history to contain %q:\n%s", want, out)
		}
	}
}

func TestShouldColorize(t *testing.T) {
	if ShouldColorize(&bytes.Buffer{}) {
		t.Fatalf("buffers are never terminals")
	}
}
