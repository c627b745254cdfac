// -----------------------------------------------------------------------
// Job - One attempted unit of background work
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/merx/internal/common"
)

// JobStatus represents the state of a background job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobType identifies the kind of work a job performs
type JobType string

const (
	JobTypeIdentifyProduct JobType = "identify_product"
	JobTypeDiscoverPrices  JobType = "discover_prices"
	JobTypeRefreshPrices   JobType = "refresh_prices"
	JobTypeTestConnection  JobType = "test_connection"
)

// LogLevel is the severity of a job log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// JobLogEntry is one structured log line recorded during job execution
type JobLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// Job represents one attempted unit of background work.
//
// Lifecycle: created in pending by a requester, claimed by exactly one
// worker (pending -> processing is an atomic compare-and-swap in storage),
// then transitions exactly once to completed, failed or cancelled.
// Terminal states are final.
type Job struct {
	ID     string    `json:"id" badgerhold:"key"`
	UserID string    `json:"user_id"`
	Type   JobType   `json:"type"`
	Status JobStatus `json:"status"`

	// Progress is 0-100 and monotonic non-decreasing while processing
	Progress int `json:"progress"`

	// Logs is the ordered structured log for diagnostics
	Logs []JobLogEntry `json:"logs"`

	// Input and Output are typed payloads per job type, stored serialized
	// and decoded exactly once at the orchestrator boundary
	Input  json.RawMessage `json:"input"`
	Output json.RawMessage `json:"output,omitempty"`

	// Error is a short non-technical summary, present only on failed
	Error string `json:"error,omitempty"`

	// Correlation with the owning item/list, when applicable
	RelatedItemID string `json:"related_item_id,omitempty"`
	RelatedListID string `json:"related_list_id,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CancelRequested is set by CancelJob and observed cooperatively at
	// checkpoints inside process()
	CancelRequested bool `json:"cancel_requested"`
}

// NewJob creates a new pending job with a serialized input payload
func NewJob(userID string, jobType JobType, input interface{}) (*Job, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job input: %w", err)
	}
	return &Job{
		ID:        common.NewJobID(),
		UserID:    userID,
		Type:      jobType,
		Status:    JobStatusPending,
		Progress:  0,
		Input:     data,
		CreatedAt: time.Now(),
	}, nil
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusCancelled
}

// MarkProcessing transitions the job from pending to processing
func (j *Job) MarkProcessing() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("cannot claim job %s in status %s", j.ID, j.Status)
	}
	j.Status = JobStatusProcessing
	now := time.Now()
	j.StartedAt = &now
	return nil
}

// MarkCompleted transitions the job to completed with its output payload
func (j *Job) MarkCompleted(output interface{}) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s already terminal (%s)", j.ID, j.Status)
	}
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to marshal job output: %w", err)
	}
	j.Status = JobStatusCompleted
	j.Output = data
	j.Progress = 100
	now := time.Now()
	j.FinishedAt = &now
	return nil
}

// MarkFailed transitions the job to failed with a short error summary
func (j *Job) MarkFailed(errorMsg string) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s already terminal (%s)", j.ID, j.Status)
	}
	j.Status = JobStatusFailed
	j.Error = errorMsg
	now := time.Now()
	j.FinishedAt = &now
	return nil
}

// MarkCancelled transitions the job to cancelled. Partially accumulated
// output may be stored for diagnostics but the job is not successful.
func (j *Job) MarkCancelled(partialOutput interface{}) error {
	if j.IsTerminal() {
		return fmt.Errorf("job %s already terminal (%s)", j.ID, j.Status)
	}
	if partialOutput != nil {
		if data, err := json.Marshal(partialOutput); err == nil {
			j.Output = data
		}
	}
	j.Status = JobStatusCancelled
	now := time.Now()
	j.FinishedAt = &now
	return nil
}

// UpdateProgress records a progress checkpoint. Decreasing or out-of-order
// updates are ignored so recorded progress stays monotonic.
func (j *Job) UpdateProgress(percent int) {
	if percent < j.Progress {
		return
	}
	if percent > 100 {
		percent = 100
	}
	j.Progress = percent
}

// AppendLog appends one structured log entry
func (j *Job) AppendLog(level LogLevel, message string) {
	j.Logs = append(j.Logs, JobLogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})
}

// DecodeInput decodes the typed input payload for this job
func (j *Job) DecodeInput(v interface{}) error {
	if len(j.Input) == 0 {
		return fmt.Errorf("%w: job %s has no input", common.ErrInvalidInput, j.ID)
	}
	if err := json.Unmarshal(j.Input, v); err != nil {
		return fmt.Errorf("%w: failed to decode %s input: %v", common.ErrInvalidInput, j.Type, err)
	}
	return nil
}
