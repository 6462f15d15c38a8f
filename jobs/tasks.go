package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	jobmetrics "github.com/odyssey-erp/invoiceguard/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBatchAnalyze runs a batch analysis outside the request path.
	TaskBatchAnalyze = "invoices:batch_analyze"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ErrJobIDRequired is returned when a batch task is built without a job id.
var ErrJobIDRequired = errors.New("jobs: job id required")

// BatchAnalyzePayload carries a batch request through the queue.
type BatchAnalyzePayload struct {
	JobID   string              `json:"job_id"`
	Request engine.BatchRequest `json:"request"`
}

// NewBatchAnalyzeTask constructs the Asynq task for a batch analysis. The job
// id doubles as the task id so a resubmitted job is rejected by the queue.
func NewBatchAnalyzeTask(payload BatchAnalyzePayload) (*asynq.Task, error) {
	if payload.JobID == "" {
		return nil, ErrJobIDRequired
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchAnalyze, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(payload.JobID),
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
	), nil
}
