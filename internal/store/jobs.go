package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// Job is one history entry.
type Job struct {
	ID           string
	Brand        string
	Candidates   []string
	State        analysis.JobState
	Progress     *int
	ErrorMessage string
	SubmittedAt  time.Time
	UpdatedAt    time.Time
	HasResults   bool
}

const jobColumns = `j.id, j.brand, j.candidates_json, j.state, j.progress_percent, j.error_message,
	j.submitted_at, j.updated_at, EXISTS (SELECT 1 FROM results r WHERE r.job_id = j.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		candidates  string
		state       string
		progress    sql.NullInt64
		errMsg      sql.NullString
		submittedAt string
		updatedAt   string
		hasResults  int
	)

	if err := row.Scan(&job.ID, &job.Brand, &candidates, &state, &progress, &errMsg, &submittedAt, &updatedAt, &hasResults); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(candidates), &job.Candidates); err != nil {
		return nil, fmt.Errorf("decode candidates of job %s: %w", job.ID, err)
	}

	job.State = analysis.JobState(state)
	if progress.Valid {
		v := int(progress.Int64)
		job.Progress = &v
	}
	job.ErrorMessage = errMsg.String
	job.SubmittedAt = parseTimestamp(submittedAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	job.HasResults = hasResults != 0

	return &job, nil
}

// RecordJob stores a freshly submitted job.
func (s *Store) RecordJob(ctx context.Context, req *analysis.Request, status *analysis.JobStatus) error {
	if req == nil || status == nil {
		return errors.New("request and status are required")
	}
	if strings.TrimSpace(status.JobID) == "" {
		return errors.New("job id is required")
	}

	candidates, err := json.Marshal(req.Candidates)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}

	now := s.timestamp()
	err = s.exec(ctx,
		`INSERT INTO jobs (id, brand, candidates_json, state, progress_percent, error_message, submitted_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             brand = excluded.brand,
             candidates_json = excluded.candidates_json,
             state = excluded.state,
             progress_percent = excluded.progress_percent,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at`,
		status.JobID,
		req.Brand,
		string(candidates),
		string(status.Status),
		status.ProgressPercent,
		nullableString(status.ErrorMessage),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

// UpdateStatus replaces the stored state of a job with a new snapshot. Jobs
// not seen before, such as ones submitted elsewhere, are added.
func (s *Store) UpdateStatus(ctx context.Context, status *analysis.JobStatus) error {
	if status == nil || strings.TrimSpace(status.JobID) == "" {
		return errors.New("job id is required")
	}

	now := s.timestamp()
	err := s.exec(ctx,
		`INSERT INTO jobs (id, state, progress_percent, error_message, submitted_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             state = excluded.state,
             progress_percent = excluded.progress_percent,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at`,
		status.JobID,
		string(status.Status),
		status.ProgressPercent,
		nullableString(status.ErrorMessage),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// GetJob returns one job or ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(orBackground(ctx), `SELECT `+jobColumns+` FROM jobs j WHERE j.id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first. A limit of zero or less
// returns every job.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs j ORDER BY j.submitted_at DESC, j.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(orBackground(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
