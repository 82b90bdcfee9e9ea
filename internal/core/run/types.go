package run

// Run is the stored state of one harvest run.
type Run struct {
	RunID   string   `json:"run_id"`
	Source  string   `json:"source"`
	Status  Status   `json:"status"`
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Summary is the operator-facing tally for a run. The run always finishes
// cleanly; failed queries and records show up here, not as surfaced errors.
type Summary struct {
	QueriesAttempted int      `json:"queries_attempted"`
	QueriesFailed    int      `json:"queries_failed"`
	Collected        int      `json:"collected"`
	Saved            int      `json:"saved"`
	Skipped          int      `json:"skipped"`
	Errors           []string `json:"errors,omitempty"`
	Screenshots      []string `json:"screenshots,omitempty"`
}
