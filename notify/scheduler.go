package notify

import (
	"context"
	"time"
)

// Job is a deferred task announcement.
type Job struct {
	ID         string    `json:"id"`
	TaskID     int64     `json:"taskId"`
	ActivateAt time.Time `json:"activateAt"`
}

// Receipt identifies a scheduled job so it can be cancelled.
type Receipt struct {
	JobID      string `json:"jobId"`
	MessageID  string `json:"messageId"`
	PopReceipt string `json:"popReceipt"`
}

// Scheduler executes jobs at or after their activation time, at least once.
type Scheduler interface {
	Schedule(ctx context.Context, job Job) (Receipt, error)
	Cancel(ctx context.Context, r Receipt) error
}

// Registry remembers the pending job of each task.
type Registry interface {
	Put(ctx context.Context, taskID int64, r Receipt, ttl time.Duration) error
	Get(ctx context.Context, taskID int64) (Receipt, bool, error)
	Delete(ctx context.Context, taskID int64) error
}
