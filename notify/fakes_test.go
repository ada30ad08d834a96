package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

type sentMessage struct {
	topic string
	msg   Message
}

type fakeGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeGateway) SendToTopic(_ context.Context, topic string, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{topic: topic, msg: msg})
	return nil
}

type fakeScheduler struct {
	scheduled []Job
	cancelled []Receipt
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, job Job) (Receipt, error) {
	if f.err != nil {
		return Receipt{}, f.err
	}
	f.scheduled = append(f.scheduled, job)
	return Receipt{JobID: job.ID, MessageID: fmt.Sprintf("m%d", len(f.scheduled)), PopReceipt: "pop"}, nil
}

func (f *fakeScheduler) Cancel(_ context.Context, r Receipt) error {
	f.cancelled = append(f.cancelled, r)
	return nil
}

type memRegistry struct {
	entries map[int64]Receipt
	getErr  error
}

func newMemRegistry() *memRegistry { return &memRegistry{entries: map[int64]Receipt{}} }

func (m *memRegistry) Put(_ context.Context, taskID int64, r Receipt, _ time.Duration) error {
	m.entries[taskID] = r
	return nil
}

func (m *memRegistry) Get(_ context.Context, taskID int64) (Receipt, bool, error) {
	if m.getErr != nil {
		return Receipt{}, false, m.getErr
	}
	r, ok := m.entries[taskID]
	return r, ok, nil
}

func (m *memRegistry) Delete(_ context.Context, taskID int64) error {
	delete(m.entries, taskID)
	return nil
}

type memAnnouncements map[int64]time.Time

func (m memAnnouncements) MarkAnnounced(_ context.Context, taskID int64, at time.Time) error {
	m[taskID] = at
	return nil
}

func (m memAnnouncements) Announced(_ context.Context, taskID int64) (bool, error) {
	_, ok := m[taskID]
	return ok, nil
}

type fakeTasks map[int64]domain.Task

func (f fakeTasks) GetTask(_ context.Context, id int64) (domain.Task, error) {
	t, ok := f[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

var errBoom = errors.New("boom")

func fixedClock(t time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return t })
}

func datePtr(d domain.Date) *domain.Date { return &d }
