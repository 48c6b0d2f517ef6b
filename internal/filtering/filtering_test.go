package filtering

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

func resultSet() *analysis.ResultSet {
	return &analysis.ResultSet{
		JobID:         "J1",
		BrandUsername: "acme",
		Results: []analysis.InfluencerResult{
			{Username: "alpha", Scores: analysis.ScoreBreakdown{FinalScore: 85, Grade: analysis.GradeA}},
			{Username: "delta", Scores: analysis.ScoreBreakdown{FinalScore: 20, Grade: analysis.GradeD}},
			{Username: "bravo", Scores: analysis.ScoreBreakdown{FinalScore: 65, Grade: analysis.GradeB}},
			{Username: "charlie", Scores: analysis.ScoreBreakdown{FinalScore: 45, Grade: analysis.GradeB}},
		},
	}
}

func TestRunMinGradeKeepsOrder(t *testing.T) {
	set := resultSet()

	out, err := Run(context.Background(), nil, []Filter{NewMinGrade(analysis.GradeB, nil)}, set)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"alpha", "bravo", "charlie"}
	if got := out.Usernames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if set.Len() != 4 {
		t.Fatalf("input set must not be modified, got %d results", set.Len())
	}
	if out.JobID != "J1" {
		t.Fatalf("expected job id to be carried over, got %q", out.JobID)
	}
}

func TestMinGradeDisabledWhenEmpty(t *testing.T) {
	f := NewMinGrade("", nil)
	if f.IsEnabled() {
		t.Fatalf("expected empty grade to disable the filter")
	}

	out, err := Run(context.Background(), nil, []Filter{f}, resultSet())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Len() != 4 {
		t.Fatalf("expected all results, got %d", out.Len())
	}
}

func TestRunRejectsInvalidGrade(t *testing.T) {
	_, err := Run(context.Background(), nil, []Filter{NewMinGrade("Z", nil)}, resultSet())
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestUsernamesFilter(t *testing.T) {
	out, err := Run(context.Background(), nil, []Filter{NewUsernames([]string{"@bravo", "alpha", "alpha"})}, resultSet())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"alpha", "bravo"}
	if got := out.Usernames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestGradeAuditReportsWithoutDropping(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	audit := NewGradeAudit(zap.New(core))

	out, err := Run(context.Background(), nil, []Filter{audit}, resultSet())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if out.Len() != 4 {
		t.Fatalf("audit must not drop results, got %d", out.Len())
	}
	if got := out.Find("charlie").Scores.Grade; got != analysis.GradeB {
		t.Fatalf("audit must not correct grades, got %s", got)
	}

	flagged := audit.(*gradeAuditFilter).Flagged()
	if !reflect.DeepEqual(flagged, []string{"charlie"}) {
		t.Fatalf("expected charlie to be flagged, got %v", flagged)
	}
	if logs.FilterMessage("grade does not match final score").Len() != 1 {
		t.Fatalf("expected one mismatch warning")
	}
}

func TestExcludeFileFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")
	if err := os.WriteFile(path, []byte(`{"items":[{"username":"@delta","reason":"contacted"}]}`), 0o600); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	out, err := Run(context.Background(), nil, []Filter{NewExcludeFile(path, nil)}, resultSet())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Find("delta") != nil {
		t.Fatalf("expected delta to be excluded")
	}
	if out.Len() != 3 {
		t.Fatalf("expected 3 results, got %d", out.Len())
	}
}

func TestExcludeFileMissing(t *testing.T) {
	_, err := Run(context.Background(), nil, []Filter{NewExcludeFile(filepath.Join(t.TempDir(), "missing.json"), nil)}, resultSet())
	if err == nil {
		t.Fatalf("expected error for a missing exclude file")
	}
}

func TestExcludeFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	excluded, err := LoadExcludedAccounts(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(excluded.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(excluded.Items))
	}
}

func TestExcludedAccountsAppendAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excluded.json")

	excluded, err := LoadOrCreateExcludedAccounts(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}

	added := excluded.Append(
		ExcludedAccount{Username: "@delta", Reason: "contacted"},
		ExcludedAccount{Username: "delta"},
		ExcludedAccount{Username: " "},
		ExcludedAccount{Username: "echo"},
	)
	if added != 2 {
		t.Fatalf("expected 2 new accounts, got %d", added)
	}

	if err := excluded.ToFile(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	reloaded, err := LoadExcludedAccounts(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(reloaded.Usernames(), []string{"delta", "echo"}) {
		t.Fatalf("unexpected usernames %v", reloaded.Usernames())
	}
	if reloaded.Items[0].Reason != "contacted" {
		t.Fatalf("expected reason to survive, got %q", reloaded.Items[0].Reason)
	}

	if excluded.Append(ExcludedAccount{Username: "echo"}) != 0 {
		t.Fatalf("expected a duplicate to be ignored")
	}
}

func TestDisableByNameAndDescribe(t *testing.T) {
	steps := []Filter{NewMinGrade(analysis.GradeC, nil), NewGradeAudit(nil), NewUsernames(nil)}
	DisableByName(steps, "grade_audit", "quiet mode")

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Details["min_grade"] != "C" {
		t.Fatalf("unexpected min grade details %v", statuses[0].Details)
	}
	if statuses[1].Enabled || statuses[1].Reason != "quiet mode" {
		t.Fatalf("expected grade audit to be disabled, got %+v", statuses[1])
	}
}
