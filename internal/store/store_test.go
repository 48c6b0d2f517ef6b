package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2025, 12, 5, 12, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func intPtr(v int) *int { return &v }

func TestRecordAndUpdateJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	req := &analysis.Request{Brand: "acme", Candidates: []string{"inf1", "inf2"}}
	require.NoError(t, s.RecordJob(ctx, req, &analysis.JobStatus{JobID: "J1", Status: analysis.StateQueued}))

	require.NoError(t, s.UpdateStatus(ctx, &analysis.JobStatus{JobID: "J1", Status: analysis.StateRunning, ProgressPercent: intPtr(40)}))

	job, err := s.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, "acme", job.Brand)
	assert.Equal(t, []string{"inf1", "inf2"}, job.Candidates)
	assert.Equal(t, analysis.StateRunning, job.State)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 40, *job.Progress)
	assert.True(t, job.UpdatedAt.After(job.SubmittedAt))
	assert.False(t, job.HasResults)

	require.NoError(t, s.UpdateStatus(ctx, &analysis.JobStatus{JobID: "J1", Status: analysis.StateFailed, ErrorMessage: "rate limited"}))

	job, err = s.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, analysis.StateFailed, job.State)
	assert.Equal(t, "rate limited", job.ErrorMessage)
	assert.Nil(t, job.Progress)
}

func TestUpdateStatusAddsUnknownJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateStatus(ctx, &analysis.JobStatus{JobID: "J7", Status: analysis.StateQueued}))

	job, err := s.GetJob(ctx, "J7")
	require.NoError(t, err)
	assert.Equal(t, "", job.Brand)
	assert.Empty(t, job.Candidates)
}

func TestGetJobNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJob(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListJobsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"J1", "J2", "J3"} {
		req := &analysis.Request{Brand: "acme", Candidates: []string{"inf1"}}
		require.NoError(t, s.RecordJob(ctx, req, &analysis.JobStatus{JobID: id, Status: analysis.StateQueued}))
	}

	jobs, err := s.ListJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "J3", jobs[0].ID)
	assert.Equal(t, "J1", jobs[2].ID)

	jobs, err = s.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestSaveResultsReplacesWholesale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &analysis.ResultSet{
		JobID:         "J1",
		BrandUsername: "acme",
		Status:        analysis.StateDone,
		Results: []analysis.InfluencerResult{
			{Username: "inf1", Scores: analysis.ScoreBreakdown{FinalScore: 87.5, Grade: analysis.GradeA}},
			{Username: "inf2", Scores: analysis.ScoreBreakdown{FinalScore: 38, Grade: analysis.GradeD}},
		},
		TotalAPICalls: 156,
	}
	require.NoError(t, s.SaveResults(ctx, first))

	second := first.WithResults([]analysis.InfluencerResult{
		{Username: "inf3", Scores: analysis.ScoreBreakdown{FinalScore: 61, Grade: analysis.GradeB}},
	})
	require.NoError(t, s.SaveResults(ctx, second))

	loaded, fetchedAt, err := s.LoadResults(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{"inf3"}, loaded.Usernames())
	assert.Equal(t, 156, loaded.TotalAPICalls)
	assert.False(t, fetchedAt.IsZero())

	job, err := s.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.True(t, job.HasResults)
	assert.Equal(t, "acme", job.Brand)
	assert.Equal(t, analysis.StateDone, job.State)
}

func TestLoadResultsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.LoadResults(context.Background(), "J1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenExistingDatabase(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.UpdateStatus(context.Background(), &analysis.JobStatus{JobID: "J1", Status: analysis.StateQueued}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetJob(context.Background(), "J1")
	assert.NoError(t, err)
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}

func TestLockJob(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockJob(dir, "J1")
	require.NoError(t, err)

	_, err = LockJob(dir, "J1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := LockJob(dir, "J2")
	require.NoError(t, err)
	require.NoError(t, other.Unlock())

	require.NoError(t, lock.Unlock())
	require.NoError(t, lock.Unlock())

	again, err := LockJob(dir, "J1")
	require.NoError(t, err)
	assert.NoError(t, again.Unlock())
}

var errTransient = errors.New("transient")

func testPolicy(attempts int) retryPolicy {
	return retryPolicy{
		attempts:  attempts,
		firstWait: time.Millisecond,
		maxWait:   2 * time.Millisecond,
		retryable: func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := testPolicy(5).run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := testPolicy(4).run(context.Background(), func() error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, 4, calls)
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("constraint failed")

	calls := 0
	err := testPolicy(5).run(context.Background(), func() error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := testPolicy(5).run(ctx, func() error {
		calls++
		return errTransient
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsLockedIgnoresOtherErrors(t *testing.T) {
	assert.False(t, isLocked(errors.New("database is locked")))
	assert.False(t, isLocked(nil))
}
