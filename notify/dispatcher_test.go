package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dmachibya/faithexercises-api/domain"
)

var dispatchNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(gw *fakeGateway, sched *fakeScheduler, reg *memRegistry) *Dispatcher {
	logger, _ := test.NewNullLogger()
	return NewDispatcher(gw, sched, reg, fixedClock(dispatchNow), "", logger)
}

func TestTaskCreatedImmediate(t *testing.T) {
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := newTestDispatcher(gw, sched, reg)

	out := d.TaskCreated(context.Background(), domain.Task{ID: 1, Title: "Pray", IsActive: true})
	if out != domain.DispatchSent {
		t.Fatalf("expected sent, got %s", out)
	}
	if len(gw.sent) != 1 {
		t.Fatalf("expected exactly one send, got %d", len(gw.sent))
	}
	if gw.sent[0].topic != DefaultTopic {
		t.Fatalf("expected broadcast topic, got %q", gw.sent[0].topic)
	}
	if len(sched.scheduled) != 0 {
		t.Fatalf("expected nothing scheduled")
	}
}

func TestTaskCreatedDeferred(t *testing.T) {
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := newTestDispatcher(gw, sched, reg)
	tomorrow := domain.NewDate(2025, time.March, 11)

	out := d.TaskCreated(context.Background(), domain.Task{ID: 2, IsActive: true, StartDate: &tomorrow})
	if out != domain.DispatchScheduled {
		t.Fatalf("expected scheduled, got %s", out)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("expected no immediate send")
	}
	if len(sched.scheduled) != 1 {
		t.Fatalf("expected one scheduled job, got %d", len(sched.scheduled))
	}
	job := sched.scheduled[0]
	if !job.ActivateAt.Equal(tomorrow.In(time.UTC)) || job.TaskID != 2 || job.ID == "" {
		t.Fatalf("unexpected job %+v", job)
	}
	if r, ok := reg.entries[2]; !ok || r.JobID != job.ID {
		t.Fatalf("expected receipt to be registered, got %+v", reg.entries)
	}
}

func TestTaskCreatedInactive(t *testing.T) {
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := newTestDispatcher(gw, sched, reg)
	if out := d.TaskCreated(context.Background(), domain.Task{ID: 3}); out != domain.DispatchNone {
		t.Fatalf("expected none, got %s", out)
	}
	if len(gw.sent)+len(sched.scheduled) != 0 {
		t.Fatalf("expected no dispatch for inactive task")
	}
}

func TestTaskCreatedDeliveryFailureIsReported(t *testing.T) {
	gw := &fakeGateway{err: errBoom}
	d := newTestDispatcher(gw, &fakeScheduler{}, newMemRegistry())
	if out := d.TaskCreated(context.Background(), domain.Task{ID: 4, IsActive: true}); out != domain.DispatchFailed {
		t.Fatalf("expected failed, got %s", out)
	}
}

func TestTaskCreatedScheduleFailureIsReported(t *testing.T) {
	d := newTestDispatcher(&fakeGateway{}, &fakeScheduler{err: errBoom}, newMemRegistry())
	next := domain.NewDate(2025, time.April, 1)
	if out := d.TaskCreated(context.Background(), domain.Task{ID: 5, IsActive: true, StartDate: &next}); out != domain.DispatchFailed {
		t.Fatalf("expected failed, got %s", out)
	}
}

func TestTaskDeletedCancelsPendingJob(t *testing.T) {
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := newTestDispatcher(gw, sched, reg)
	next := domain.NewDate(2025, time.April, 1)
	d.TaskCreated(context.Background(), domain.Task{ID: 6, IsActive: true, StartDate: &next})

	d.TaskDeleted(context.Background(), 6)
	if len(sched.cancelled) != 1 || sched.cancelled[0].JobID != sched.scheduled[0].ID {
		t.Fatalf("expected pending job to be cancelled, got %+v", sched.cancelled)
	}
	if _, ok := reg.entries[6]; ok {
		t.Fatalf("expected registry entry to be cleared")
	}

	d.TaskDeleted(context.Background(), 6)
	if len(sched.cancelled) != 1 {
		t.Fatalf("expected no second cancellation")
	}
}

func TestTaskUpdated(t *testing.T) {
	past := domain.NewDate(2025, time.March, 1)
	future := domain.NewDate(2025, time.April, 1)
	later := domain.NewDate(2025, time.May, 1)

	t.Run("unchanged", func(t *testing.T) {
		gw, sched := &fakeGateway{}, &fakeScheduler{}
		d := newTestDispatcher(gw, sched, newMemRegistry())
		task := domain.Task{ID: 1, IsActive: true}
		if out := d.TaskUpdated(context.Background(), task, task); out != domain.DispatchNone {
			t.Fatalf("expected none, got %s", out)
		}
		if len(gw.sent) != 0 {
			t.Fatalf("expected no send")
		}
	})

	t.Run("activated", func(t *testing.T) {
		gw, sched := &fakeGateway{}, &fakeScheduler{}
		d := newTestDispatcher(gw, sched, newMemRegistry())
		out := d.TaskUpdated(context.Background(), domain.Task{ID: 1}, domain.Task{ID: 1, IsActive: true})
		if out != domain.DispatchSent || len(gw.sent) != 1 {
			t.Fatalf("expected activation to send once, got %s/%d", out, len(gw.sent))
		}
	})

	t.Run("alreadyAnnounced", func(t *testing.T) {
		gw, sched := &fakeGateway{}, &fakeScheduler{}
		d := newTestDispatcher(gw, sched, newMemRegistry())
		before := domain.Task{ID: 1, IsActive: true, StartDate: &past}
		after := domain.Task{ID: 1, IsActive: true, StartDate: &future}
		if out := d.TaskUpdated(context.Background(), before, after); out != domain.DispatchNone {
			t.Fatalf("expected none for an announced task, got %s", out)
		}
		if len(sched.scheduled) != 0 {
			t.Fatalf("expected nothing scheduled")
		}
	})

	t.Run("rescheduled", func(t *testing.T) {
		gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
		d := newTestDispatcher(gw, sched, reg)
		before := domain.Task{ID: 1, IsActive: true, StartDate: &future}
		d.TaskCreated(context.Background(), before)
		after := domain.Task{ID: 1, IsActive: true, StartDate: &later}

		if out := d.TaskUpdated(context.Background(), before, after); out != domain.DispatchScheduled {
			t.Fatalf("expected scheduled, got %s", out)
		}
		if len(sched.cancelled) != 1 || len(sched.scheduled) != 2 {
			t.Fatalf("expected cancel + reschedule, got %d/%d", len(sched.cancelled), len(sched.scheduled))
		}
		if reg.entries[1].JobID != sched.scheduled[1].ID {
			t.Fatalf("expected registry to point at the new job")
		}
	})

	t.Run("deactivated", func(t *testing.T) {
		gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
		d := newTestDispatcher(gw, sched, reg)
		before := domain.Task{ID: 1, IsActive: true, StartDate: &future}
		d.TaskCreated(context.Background(), before)
		after := domain.Task{ID: 1, IsActive: false, StartDate: &future}

		if out := d.TaskUpdated(context.Background(), before, after); out != domain.DispatchNone {
			t.Fatalf("expected none, got %s", out)
		}
		if len(sched.cancelled) != 1 {
			t.Fatalf("expected pending job to be cancelled")
		}
	})
}

func TestReactivatedTaskIsAnnouncedOnce(t *testing.T) {
	gw, sched := &fakeGateway{}, &fakeScheduler{}
	logger, _ := test.NewNullLogger()
	marks := memAnnouncements{}
	d := NewDispatcher(gw, sched, newMemRegistry(), fixedClock(dispatchNow), "", logger, WithAnnouncements(marks))
	ctx := context.Background()
	active := domain.Task{ID: 9, Title: "Pray", IsActive: true}
	inactive := domain.Task{ID: 9, Title: "Pray"}

	if out := d.TaskCreated(ctx, active); out != domain.DispatchSent {
		t.Fatalf("expected sent, got %s", out)
	}
	if _, ok := marks[9]; !ok {
		t.Fatalf("expected announcement to be recorded")
	}
	if out := d.TaskUpdated(ctx, active, inactive); out != domain.DispatchNone {
		t.Fatalf("expected none on deactivation, got %s", out)
	}
	if out := d.TaskUpdated(ctx, inactive, active); out != domain.DispatchNone {
		t.Fatalf("expected none on reactivation, got %s", out)
	}
	if len(gw.sent) != 1 {
		t.Fatalf("expected a single broadcast, got %d", len(gw.sent))
	}

	future := domain.NewDate(2025, time.April, 1)
	later := inactive
	later.StartDate = &future
	rescheduled := active
	rescheduled.StartDate = &future
	if out := d.TaskUpdated(ctx, later, rescheduled); out != domain.DispatchNone || len(sched.scheduled) != 0 {
		t.Fatalf("expected no deferred announcement for an announced task, got %s/%d", out, len(sched.scheduled))
	}
}

func TestTaskUpdatedReevaluatesWhenRegistryUnavailable(t *testing.T) {
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := newTestDispatcher(gw, sched, reg)
	ctx := context.Background()
	future := domain.NewDate(2025, time.April, 1)
	later := domain.NewDate(2025, time.May, 1)
	before := domain.Task{ID: 4, IsActive: true, StartDate: &future}
	after := domain.Task{ID: 4, IsActive: true, StartDate: &later}

	if out := d.TaskCreated(ctx, before); out != domain.DispatchScheduled {
		t.Fatalf("expected scheduled, got %s", out)
	}
	reg.getErr = errBoom

	if out := d.TaskUpdated(ctx, before, after); out != domain.DispatchScheduled {
		t.Fatalf("expected the moved start date to be scheduled, got %s", out)
	}
	if len(sched.scheduled) != 2 || !sched.scheduled[1].ActivateAt.Equal(later.In(time.UTC)) {
		t.Fatalf("expected a job for the new start date, got %+v", sched.scheduled)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("expected no immediate send")
	}
}

func TestBroadcastWrapsGatewayFailure(t *testing.T) {
	gw := &fakeGateway{err: errBoom}
	d := newTestDispatcher(gw, &fakeScheduler{}, newMemRegistry())

	err := d.Broadcast(context.Background(), Message{Title: "Hello"})
	if !errors.Is(err, domain.ErrDeliveryFailed) || !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped delivery failure, got %v", err)
	}

	gw.err = nil
	if err := d.Broadcast(context.Background(), Message{Title: "Hello"}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(gw.sent) != 1 || gw.sent[0].msg.Title != "Hello" || gw.sent[0].topic != DefaultTopic {
		t.Fatalf("unexpected sends %+v", gw.sent)
	}
}
