package analysis

// JobState is the server-reported lifecycle state of an analysis job.
type JobState string

const (
	StateQueued  JobState = "queued"
	StateRunning JobState = "running"
	StateDone    JobState = "done"
	StateFailed  JobState = "failed"
)

// Terminal reports whether no further transition can happen from s.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Known reports whether s is one of the four documented states.
func (s JobState) Known() bool {
	switch s {
	case StateQueued, StateRunning, StateDone, StateFailed:
		return true
	default:
		return false
	}
}

// Label is a short human readable description used by status lines.
func (s JobState) Label() string {
	switch s {
	case StateQueued:
		return "waiting in queue"
	case StateRunning:
		return "analyzing"
	case StateDone:
		return "done"
	case StateFailed:
		return "analysis failed"
	default:
		return "unknown"
	}
}

// JobStatus is one snapshot of a job as returned by the submit and status
// endpoints. Snapshots are never merged; each one replaces the previous.
type JobStatus struct {
	JobID                      string   `json:"job_id"`
	Status                     JobState `json:"status"`
	Message                    string   `json:"message,omitempty"`
	ProgressPercent            *int     `json:"progress_percent,omitempty"`
	EstimatedCompletionMinutes *int     `json:"estimated_completion_minutes,omitempty"`
	CreatedAt                  string   `json:"created_at,omitempty"`
	StartedAt                  string   `json:"started_at,omitempty"`
	FinishedAt                 string   `json:"finished_at,omitempty"`
	ErrorMessage               string   `json:"error_message,omitempty"`
}

// Progress returns the reported percentage, or -1 when the server sent none.
func (s *JobStatus) Progress() int {
	if s == nil || s.ProgressPercent == nil {
		return -1
	}
	return *s.ProgressPercent
}

// Clone returns a deep copy so callers never share a snapshot with the poller.
func (s *JobStatus) Clone() *JobStatus {
	if s == nil {
		return nil
	}

	out := *s
	if s.ProgressPercent != nil {
		v := *s.ProgressPercent
		out.ProgressPercent = &v
	}
	if s.EstimatedCompletionMinutes != nil {
		v := *s.EstimatedCompletionMinutes
		out.EstimatedCompletionMinutes = &v
	}
	return &out
}
