package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeParseStatement parses an uploaded bank statement into bank lines.
	JobTypeParseStatement JobType = "parse_statement"
	// JobTypeSyncZoho pulls invoices and contacts from Zoho Books.
	JobTypeSyncZoho JobType = "sync_zoho"
	// JobTypeSyncNotion pushes CRM contacts to Notion.
	JobTypeSyncNotion JobType = "sync_notion"
	// JobTypeExportWarehouse writes a ledger snapshot to BigQuery.
	JobTypeExportWarehouse JobType = "export_warehouse"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// Parameter keys understood by the job handlers.
const (
	ParamDocumentURI = "document_uri"
	ParamMIMEType    = "mime_type"
	ParamFileName    = "file_name"
	ParamDryRun      = "dry_run"
)

// DefaultMaxRetries applies when a job is published without its own limit.
// A job runs at most DefaultMaxRetries+1 times.
const DefaultMaxRetries = 2

// ErrJobNotFound is returned by stores for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// Job is a unit of background work.
type Job struct {
	ID     string            `json:"id"`
	Type   JobType           `json:"type"`
	Params map[string]string `json:"params,omitempty"`
	Status JobStatus         `json:"status"`

	// Result is a short human-readable summary set by the handler on success.
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	RetryCount int `json:"retryCount"`
	MaxRetries int `json:"maxRetries"`
}

// Param returns a parameter or "".
func (j *Job) Param(key string) string {
	if j.Params == nil {
		return ""
	}
	return j.Params[key]
}

// Publisher enqueues jobs.
type Publisher interface {
	Publish(ctx context.Context, job *Job) error
	Close() error
}

// Consumer runs jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs. The handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error marks the attempt failed and
// lets the queue retry it.
type JobHandler func(ctx context.Context, job *Job) error

// JobStore tracks job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, jobID string) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
	Offset int
}

// Router dispatches jobs to a handler per type.
type Router map[JobType]JobHandler

// Handle implements JobHandler.
func (r Router) Handle(ctx context.Context, job *Job) error {
	h, ok := r[job.Type]
	if !ok {
		return fmt.Errorf("Handle: no handler for job type %q", job.Type)
	}
	return h(ctx, job)
}
