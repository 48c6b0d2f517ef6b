package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// SaveResults stores a fetched result set, replacing any earlier one for the
// same job.
func (s *Store) SaveResults(ctx context.Context, set *analysis.ResultSet) error {
	if set == nil || set.JobID == "" {
		return errors.New("result set with a job id is required")
	}

	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	now := s.timestamp()

	// Result sets can arrive for jobs submitted from another machine.
	err = s.exec(ctx,
		`INSERT INTO jobs (id, brand, candidates_json, state, submitted_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             brand = CASE WHEN jobs.brand = '' THEN excluded.brand ELSE jobs.brand END,
             state = excluded.state,
             updated_at = excluded.updated_at`,
		set.JobID,
		set.BrandUsername,
		candidatesJSON(set),
		string(analysis.StateDone),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record results job: %w", err)
	}

	err = s.exec(ctx,
		`INSERT OR REPLACE INTO results (job_id, payload_json, fetched_at) VALUES (?, ?, ?)`,
		set.JobID,
		string(payload),
		now,
	)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

// LoadResults returns the last saved result set of a job and when it was
// fetched.
func (s *Store) LoadResults(ctx context.Context, jobID string) (*analysis.ResultSet, time.Time, error) {
	var payload, fetchedAt string
	err := s.db.QueryRowContext(orBackground(ctx),
		`SELECT payload_json, fetched_at FROM results WHERE job_id = ?`, jobID,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("results of job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load results: %w", err)
	}

	var set analysis.ResultSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode results of job %s: %w", jobID, err)
	}

	return &set, parseTimestamp(fetchedAt), nil
}

func candidatesJSON(set *analysis.ResultSet) string {
	data, err := json.Marshal(set.Usernames())
	if err != nil || set.Len() == 0 {
		return "[]"
	}
	return string(data)
}
