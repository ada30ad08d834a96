package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dmachibya/faithexercises-api/domain"
)

type erroringTasks struct{ err error }

func (e erroringTasks) GetTask(context.Context, int64) (domain.Task, error) {
	return domain.Task{}, e.err
}

func newTestJobHandler(tasks TaskReader, now time.Time) (*JobHandler, *fakeGateway, *fakeScheduler, *memRegistry) {
	logger, _ := test.NewNullLogger()
	gw, sched, reg := &fakeGateway{}, &fakeScheduler{}, newMemRegistry()
	d := NewDispatcher(gw, sched, reg, fixedClock(now), "", logger)
	return NewJobHandler(tasks, d, logger), gw, sched, reg
}

func TestJobHandlerSendsDueJob(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	task := domain.Task{ID: 7, Title: "Fast", IsActive: true, StartDate: datePtr(start)}
	job := Job{ID: "job-1", TaskID: 7, ActivateAt: start.In(time.UTC)}
	h, gw, _, reg := newTestJobHandler(fakeTasks{7: task}, start.In(time.UTC).Add(time.Minute))
	reg.entries[7] = Receipt{JobID: "job-1"}

	if err := h.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(gw.sent) != 1 || gw.sent[0].msg.Data["task_id"] != "7" {
		t.Fatalf("expected task announcement, got %+v", gw.sent)
	}
	if _, ok := reg.entries[7]; ok {
		t.Fatalf("expected registry entry to be cleared")
	}
}

func TestJobHandlerReschedulesEarlyJob(t *testing.T) {
	start := domain.NewDate(2025, time.March, 20)
	task := domain.Task{ID: 7, IsActive: true, StartDate: datePtr(start)}
	job := Job{ID: "job-1", TaskID: 7, ActivateAt: start.In(time.UTC)}
	h, gw, sched, reg := newTestJobHandler(fakeTasks{7: task}, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))

	if err := h.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("expected no send before activation")
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0].ID != "job-1" {
		t.Fatalf("expected job to be rescheduled, got %+v", sched.scheduled)
	}
	if reg.entries[7].JobID != "job-1" {
		t.Fatalf("expected registry to keep the job")
	}
}

func TestJobHandlerDropsJobs(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	moved := domain.NewDate(2025, time.March, 15)
	now := time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC)
	job := Job{ID: "job-1", TaskID: 7, ActivateAt: start.In(time.UTC)}

	cases := map[string]fakeTasks{
		"deleted":  {},
		"inactive": {7: {ID: 7, StartDate: datePtr(start)}},
		"moved":    {7: {ID: 7, IsActive: true, StartDate: datePtr(moved)}},
		"noStart":  {7: {ID: 7, IsActive: true}},
	}
	for name, tasks := range cases {
		t.Run(name, func(t *testing.T) {
			h, gw, sched, reg := newTestJobHandler(tasks, now)
			reg.entries[7] = Receipt{JobID: "job-1"}
			if err := h.Handle(context.Background(), job); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(gw.sent) != 0 || len(sched.scheduled) != 0 {
				t.Fatalf("expected job to be dropped, got sent=%d scheduled=%d", len(gw.sent), len(sched.scheduled))
			}
			if _, ok := reg.entries[7]; ok {
				t.Fatalf("expected registry entry to be cleared")
			}
		})
	}
}

func TestJobHandlerKeepsNewerRegistryEntry(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	job := Job{ID: "job-old", TaskID: 7, ActivateAt: start.In(time.UTC)}
	h, _, _, reg := newTestJobHandler(fakeTasks{}, start.In(time.UTC))
	reg.entries[7] = Receipt{JobID: "job-new"}

	if err := h.Handle(context.Background(), job); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reg.entries[7].JobID != "job-new" {
		t.Fatalf("expected newer registry entry to survive")
	}
}

func TestJobHandlerReturnsLookupError(t *testing.T) {
	h, _, _, _ := newTestJobHandler(erroringTasks{err: errBoom}, time.Now())
	err := h.Handle(context.Background(), Job{ID: "job-1", TaskID: 7})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestJobHandlerSwallowsDeliveryFailure(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	task := domain.Task{ID: 7, IsActive: true, StartDate: datePtr(start)}
	h, gw, _, _ := newTestJobHandler(fakeTasks{7: task}, start.In(time.UTC))
	gw.err = errBoom

	if err := h.Handle(context.Background(), Job{ID: "job-1", TaskID: 7, ActivateAt: start.In(time.UTC)}); err != nil {
		t.Fatalf("expected delivery failure not to be retried, got %v", err)
	}
}

func TestJobHandlerSkipsAnnouncedTask(t *testing.T) {
	start := domain.NewDate(2025, time.March, 10)
	task := domain.Task{ID: 7, IsActive: true, StartDate: datePtr(start)}
	logger, _ := test.NewNullLogger()
	gw, reg := &fakeGateway{}, newMemRegistry()
	marks := memAnnouncements{7: start.In(time.UTC)}
	d := NewDispatcher(gw, &fakeScheduler{}, reg, fixedClock(start.In(time.UTC)), "", logger, WithAnnouncements(marks))
	reg.entries[7] = Receipt{JobID: "job-1"}

	err := NewJobHandler(fakeTasks{7: task}, d, logger).Handle(context.Background(), Job{ID: "job-1", TaskID: 7, ActivateAt: start.In(time.UTC)})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("expected announced task not to be sent again")
	}
	if _, ok := reg.entries[7]; ok {
		t.Fatalf("expected registry entry to be cleared")
	}
}
