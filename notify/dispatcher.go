package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
)

const (
	sendTimeout   = 15 * time.Second
	registryGrace = 24 * time.Hour
)

// Dispatcher runs the dispatch policy for task writes and owns the lifecycle
// of deferred announcements.
type Dispatcher struct {
	gateway       Gateway
	scheduler     Scheduler
	registry      Registry
	announcements Announcements
	clock         domain.Clock
	topic         string
	logger        *log.Logger
}

// Announcements records which tasks were already broadcast.
type Announcements interface {
	MarkAnnounced(ctx context.Context, taskID int64, at time.Time) error
	Announced(ctx context.Context, taskID int64) (bool, error)
}

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAnnouncements makes the dispatcher announce every task at most once.
func WithAnnouncements(a Announcements) DispatcherOption {
	return func(d *Dispatcher) { d.announcements = a }
}

func NewDispatcher(gateway Gateway, scheduler Scheduler, registry Registry, clock domain.Clock, topic string, logger *log.Logger, opts ...DispatcherOption) *Dispatcher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	d := &Dispatcher{
		gateway:   gateway,
		scheduler: scheduler,
		registry:  registry,
		clock:     clock,
		topic:     topic,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TaskCreated evaluates the policy once for a newly created task. Delivery
// problems are logged and reported in the outcome, never returned.
func (d *Dispatcher) TaskCreated(ctx context.Context, task domain.Task) domain.DispatchOutcome {
	return d.evaluate(ctx, task)
}

// TaskUpdated cancels a pending announcement when activation or start date
// changed and evaluates the policy again if the task was not announced yet:
// either it had a pending deferred announcement or it just became active.
func (d *Dispatcher) TaskUpdated(ctx context.Context, before, after domain.Task) domain.DispatchOutcome {
	changed := before.IsActive != after.IsActive || !sameDate(before.StartDate, after.StartDate)
	if !changed {
		return domain.DispatchNone
	}
	pending := d.cancel(ctx, after.ID)
	if !after.IsActive {
		return domain.DispatchNone
	}
	if before.IsActive && !pending {
		return domain.DispatchNone
	}
	return d.evaluate(ctx, after)
}

// TaskDeleted cancels any pending announcement of the task.
func (d *Dispatcher) TaskDeleted(ctx context.Context, taskID int64) {
	d.cancel(ctx, taskID)
}

func (d *Dispatcher) evaluate(ctx context.Context, task domain.Task) domain.DispatchOutcome {
	decision := Decide(task, d.clock.Now())
	fields := log.Fields{"task_id": task.ID, "decision": decision.Action.String()}
	if decision.Action != ActionNone && d.Announced(ctx, task.ID) {
		d.logger.WithFields(fields).Info("task already announced, skipping")
		return domain.DispatchNone
	}
	switch decision.Action {
	case ActionImmediate:
		d.logger.WithFields(fields).Info("dispatching task notification immediately")
		if err := d.Send(ctx, task); err != nil {
			return domain.DispatchFailed
		}
		return domain.DispatchSent
	case ActionDeferred:
		fields["delay_at"] = decision.At.Format(time.RFC3339)
		d.logger.WithFields(fields).Info("dispatching task notification with delay")
		if err := d.Defer(ctx, Job{ID: uuid.NewString(), TaskID: task.ID, ActivateAt: decision.At}); err != nil {
			return domain.DispatchFailed
		}
		return domain.DispatchScheduled
	default:
		return domain.DispatchNone
	}
}

// Send announces task on the broadcast topic.
func (d *Dispatcher) Send(ctx context.Context, task domain.Task) error {
	if err := d.Broadcast(ctx, TaskMessage(task)); err != nil {
		d.logger.WithFields(log.Fields{"task_id": task.ID, "topic": d.topic, "error": err}).Error("task notification send failed")
		return err
	}
	d.logger.WithFields(log.Fields{"task_id": task.ID, "topic": d.topic}).Info("task notification sent")
	if d.announcements != nil {
		if err := d.announcements.MarkAnnounced(ctx, task.ID, d.clock.Now()); err != nil {
			d.logger.WithFields(log.Fields{"task_id": task.ID, "error": err}).Warn("record task announcement failed")
		}
	}
	return nil
}

// Announced reports whether task was already broadcast. Lookup failures count
// as not announced.
func (d *Dispatcher) Announced(ctx context.Context, taskID int64) bool {
	if d.announcements == nil {
		return false
	}
	done, err := d.announcements.Announced(ctx, taskID)
	if err != nil {
		d.logger.WithFields(log.Fields{"task_id": taskID, "error": err}).Warn("lookup task announcement failed")
		return false
	}
	return done
}

// Broadcast hands msg to the gateway for the broadcast topic. Failures are
// reported as ErrDeliveryFailed.
func (d *Dispatcher) Broadcast(ctx context.Context, msg Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := d.gateway.SendToTopic(sendCtx, d.topic, msg); err != nil {
		if errors.Is(err, domain.ErrDeliveryFailed) {
			return err
		}
		return errors.Join(domain.ErrDeliveryFailed, err)
	}
	return nil
}

// Defer schedules job and records its receipt for cancellation.
func (d *Dispatcher) Defer(ctx context.Context, job Job) error {
	r, err := d.scheduler.Schedule(ctx, job)
	if err != nil {
		d.logger.WithFields(log.Fields{"task_id": job.TaskID, "error": err}).Error("schedule task notification failed")
		return err
	}
	ttl := time.Until(job.ActivateAt) + registryGrace
	if err := d.registry.Put(ctx, job.TaskID, r, ttl); err != nil {
		d.logger.WithFields(log.Fields{"task_id": job.TaskID, "error": err}).Warn("record scheduled notification failed")
	}
	return nil
}

// Forget drops the registry entry of a consumed job. Entries that belong to
// a newer job are kept.
func (d *Dispatcher) Forget(ctx context.Context, job Job) {
	r, ok, err := d.registry.Get(ctx, job.TaskID)
	if err != nil || !ok || r.JobID != job.ID {
		return
	}
	if err := d.registry.Delete(ctx, job.TaskID); err != nil {
		d.logger.WithFields(log.Fields{"task_id": job.TaskID, "error": err}).Warn("clear scheduled notification failed")
	}
}

// cancel removes a pending announcement and reports whether one may have
// existed. When the registry cannot be read the answer is true: the caller
// evaluates again and the job handler drops the stale job by its activation
// time.
func (d *Dispatcher) cancel(ctx context.Context, taskID int64) bool {
	r, ok, err := d.registry.Get(ctx, taskID)
	if err != nil {
		d.logger.WithFields(log.Fields{"task_id": taskID, "error": err}).Warn("lookup scheduled notification failed")
		return true
	}
	if !ok {
		return false
	}
	if err := d.scheduler.Cancel(ctx, r); err != nil {
		d.logger.WithFields(log.Fields{"task_id": taskID, "job_id": r.JobID, "error": err}).Warn("cancel scheduled notification failed")
	} else {
		d.logger.WithFields(log.Fields{"task_id": taskID, "job_id": r.JobID}).Info("scheduled notification cancelled")
	}
	if err := d.registry.Delete(ctx, taskID); err != nil {
		d.logger.WithFields(log.Fields{"task_id": taskID, "error": err}).Warn("clear scheduled notification failed")
	}
	return true
}

func sameDate(a, b *domain.Date) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return a.Equal(*b)
	}
}
