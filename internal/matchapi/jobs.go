package matchapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

var errJobIDRequired = errors.New("job id is required")

// SubmitJob validates req and creates a new analysis job. An invalid request
// returns *analysis.ValidationError without touching the network.
func (c *Client) SubmitJob(ctx context.Context, req *analysis.Request) (*analysis.JobStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var status analysis.JobStatus
	if err := c.postJSON(ctx, c.url(jobsPath), req, &status); err != nil {
		return nil, fmt.Errorf("submit analysis job: %w", err)
	}

	if strings.TrimSpace(status.JobID) == "" {
		return nil, &ResponseError{Errors: []FieldError{{Field: "job_id", Message: "missing from submit response"}}}
	}

	c.logger.Debug("analysis job created",
		zap.String("job_id", status.JobID),
		zap.String("status", string(status.Status)),
	)

	return &status, nil
}

// GetJobStatus fetches one status snapshot.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*analysis.JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errJobIDRequired
	}

	var status analysis.JobStatus
	if err := c.getJSON(ctx, c.url(jobsPath, "/", url.PathEscape(jobID)), &status); err != nil {
		return nil, fmt.Errorf("get job %s status: %w", jobID, err)
	}

	if !status.Status.Known() {
		return nil, &ResponseError{Errors: []FieldError{{
			Field:   "status",
			Message: fmt.Sprintf("unknown job state %q", status.Status),
		}}}
	}

	return &status, nil
}
