package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/platform/cache"
)

// ErrJobNotFound indicates the job id is unknown or its status expired.
var ErrJobNotFound = errors.New("jobs: job not found")

// JobState enumerates batch job lifecycle states.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// JobStatus is the externally visible view of a batch job.
type JobStatus struct {
	ID          string              `json:"jobId"`
	State       JobState            `json:"state"`
	Total       int                 `json:"total"`
	SubmittedAt time.Time           `json:"submittedAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Attempts    int                 `json:"attempts,omitempty"`
	Error       string              `json:"error,omitempty"`
	Result      *engine.BatchResult `json:"result,omitempty"`
}

// JobStore persists job statuses.
type JobStore interface {
	Save(ctx context.Context, status JobStatus) error
	Load(ctx context.Context, id string) (JobStatus, error)
}

// StatusStore keeps job statuses in Redis. Keys are not versioned, so a cache
// bump does not drop in-flight jobs.
type StatusStore struct {
	cache *cache.JSONCache
	ttl   time.Duration
}

// NewStatusStore builds a store retaining statuses for ttl.
func NewStatusStore(c *cache.JSONCache, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusStore{cache: c, ttl: ttl}
}

func statusKey(id string) string {
	return "invoiceguard:jobs:batch:" + id
}

// Save writes the status, replacing any previous one.
func (s *StatusStore) Save(ctx context.Context, status JobStatus) error {
	if status.ID == "" {
		return ErrJobIDRequired
	}
	return s.cache.Set(ctx, statusKey(status.ID), status, s.ttl)
}

// Load returns the status for id.
func (s *StatusStore) Load(ctx context.Context, id string) (JobStatus, error) {
	var status JobStatus
	err := s.cache.Get(ctx, statusKey(id), &status)
	if errors.Is(err, cache.ErrMiss) {
		return JobStatus{}, ErrJobNotFound
	}
	if err != nil {
		return JobStatus{}, err
	}
	return status, nil
}
