// Package worker drains the deferred notification queue.
package worker

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/notify"
	"github.com/dmachibya/faithexercises-api/storage"
)

const (
	defaultPollInterval = time.Second
	defaultVisibility   = time.Minute
	// maxDeliveries bounds how often a failing job is retried before it is
	// dropped.
	maxDeliveries = 5
)

// Source hands out queued jobs.
type Source interface {
	Receive(ctx context.Context, visibility time.Duration) (*storage.Delivery, error)
	Ack(ctx context.Context, d *storage.Delivery) error
}

// Handler executes one job.
type Handler interface {
	Handle(ctx context.Context, job notify.Job) error
}

// Worker polls Source and runs every job through Handler. Jobs whose handler
// fails stay on the queue and reappear after the visibility timeout.
type Worker struct {
	source     Source
	handler    Handler
	poll       time.Duration
	visibility time.Duration
	logger     *log.Logger
}

func New(source Source, handler Handler, poll, visibility time.Duration, logger *log.Logger) *Worker {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	if visibility <= 0 {
		visibility = defaultVisibility
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Worker{source: source, handler: handler, poll: poll, visibility: visibility, logger: logger}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.WithFields(log.Fields{"poll": w.poll, "visibility": w.visibility}).Info("notification worker starting")
	for {
		processed, err := w.Step(ctx)
		if ctx.Err() != nil {
			w.logger.Info("notification worker stopped")
			return nil
		}
		if err != nil {
			w.logger.WithError(err).Error("receive notification job")
		}
		if processed && err == nil {
			continue
		}
		if !w.sleep(ctx) {
			w.logger.Info("notification worker stopped")
			return nil
		}
	}
}

// Step handles at most one job and reports whether one was taken off the
// queue.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	d, err := w.source.Receive(ctx, w.visibility)
	if d == nil {
		return false, err
	}
	entry := w.logger.WithFields(log.Fields{"message_id": d.MessageID, "dequeue_count": d.Dequeued})
	if err != nil {
		entry.WithError(err).Error("dropping undecodable notification job")
		w.ack(ctx, d)
		return true, nil
	}
	entry = entry.WithFields(log.Fields{"job_id": d.Job.ID, "task_id": d.Job.TaskID})
	if d.Dequeued > maxDeliveries {
		entry.Error("dropping notification job after repeated failures")
		w.ack(ctx, d)
		return true, nil
	}
	if err := w.handler.Handle(ctx, d.Job); err != nil {
		if errors.Is(err, context.Canceled) {
			return true, err
		}
		entry.WithError(err).Warn("notification job failed, will retry")
		return true, nil
	}
	w.ack(ctx, d)
	return true, nil
}

func (w *Worker) ack(ctx context.Context, d *storage.Delivery) {
	if err := w.source.Ack(ctx, d); err != nil {
		w.logger.WithFields(log.Fields{"message_id": d.MessageID, "error": err}).Error("delete notification job")
	}
}

func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.poll)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
