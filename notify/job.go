package notify

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
)

// TaskReader loads a task together with its exercise title.
type TaskReader interface {
	GetTask(ctx context.Context, id int64) (domain.Task, error)
}

// JobHandler executes deferred task announcements. It re-checks the task at
// execution time, so jobs of deleted, deactivated or rescheduled tasks are
// dropped even when their cancellation did not reach the queue.
type JobHandler struct {
	tasks      TaskReader
	dispatcher *Dispatcher
	logger     *log.Logger
}

func NewJobHandler(tasks TaskReader, dispatcher *Dispatcher, logger *log.Logger) *JobHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &JobHandler{tasks: tasks, dispatcher: dispatcher, logger: logger}
}

// Handle runs job. A returned error leaves the job to be retried by the
// scheduler; delivery failures are logged and not retried.
func (h *JobHandler) Handle(ctx context.Context, job Job) error {
	entry := h.logger.WithFields(log.Fields{"task_id": job.TaskID, "job_id": job.ID})
	entry.Info("task notification job started")

	task, err := h.tasks.GetTask(ctx, job.TaskID)
	if errors.Is(err, domain.ErrNotFound) {
		entry.Warn("task notification job: task not found")
		h.dispatcher.Forget(ctx, job)
		return nil
	}
	if err != nil {
		return err
	}
	if !task.IsActive {
		entry.Info("task notification job: task inactive, skipping")
		h.dispatcher.Forget(ctx, job)
		return nil
	}

	now := h.dispatcher.clock.Now()
	at := ActivationTime(task, now.Location())
	if at.IsZero() || !at.Equal(job.ActivateAt) {
		entry.WithField("start_date", task.StartDate).Info("task notification job: start date changed, skipping stale job")
		h.dispatcher.Forget(ctx, job)
		return nil
	}
	if now.Before(at) {
		entry.WithField("delay_at", at).Info("task notification job: start date in future, rescheduling")
		return h.dispatcher.Defer(ctx, job)
	}

	if h.dispatcher.Announced(ctx, task.ID) {
		entry.Info("task notification job: task already announced, skipping")
		h.dispatcher.Forget(ctx, job)
		return nil
	}

	_ = h.dispatcher.Send(ctx, task)
	h.dispatcher.Forget(ctx, job)
	return nil
}
