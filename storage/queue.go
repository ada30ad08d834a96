package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"github.com/dmachibya/faithexercises-api/notify"
)

// maxVisibilityDelay is the longest visibility timeout the queue service
// accepts.
const maxVisibilityDelay = 7 * 24 * time.Hour

// messageTTL keeps scheduled messages alive until they are consumed.
const messageTTL int32 = -1

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	DequeueMessage(ctx context.Context, o *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// QueueScheduler schedules notification jobs as Azure Queue messages that
// stay invisible until their activation time. Delays beyond the service
// maximum are capped; the worker reschedules such jobs when they surface
// early.
type QueueScheduler struct {
	queue queueClient
	now   func() time.Time
}

// NewQueueScheduler creates a scheduler on the given queue.
func NewQueueScheduler(connStr, queue string) (*QueueScheduler, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queue, &opts)
	if err != nil {
		return nil, err
	}
	return &QueueScheduler{queue: q, now: time.Now}, nil
}

func visibilityDelay(at, now time.Time) int32 {
	d := at.Sub(now)
	if d <= 0 {
		return 0
	}
	if d > maxVisibilityDelay {
		d = maxVisibilityDelay
	}
	return int32((d + time.Second - 1) / time.Second)
}

func (s *QueueScheduler) Schedule(ctx context.Context, job notify.Job) (notify.Receipt, error) {
	payload, err := sonic.Marshal(job)
	if err != nil {
		return notify.Receipt{}, err
	}
	delay := visibilityDelay(job.ActivateAt, s.now())
	ttl := messageTTL
	resp, err := s.queue.EnqueueMessage(ctx, string(payload), &azqueue.EnqueueMessageOptions{
		VisibilityTimeout: &delay,
		TimeToLive:        &ttl,
	})
	if err != nil {
		return notify.Receipt{}, fmt.Errorf("enqueue notification job: %w", err)
	}
	r := notify.Receipt{JobID: job.ID}
	if len(resp.Messages) > 0 && resp.Messages[0] != nil {
		m := resp.Messages[0]
		if m.MessageID != nil {
			r.MessageID = *m.MessageID
		}
		if m.PopReceipt != nil {
			r.PopReceipt = *m.PopReceipt
		}
	}
	return r, nil
}

// Cancel deletes a scheduled message. Messages that were already consumed
// or received since scheduling are left to the worker's re-check.
func (s *QueueScheduler) Cancel(ctx context.Context, r notify.Receipt) error {
	if r.MessageID == "" || r.PopReceipt == "" {
		return nil
	}
	if _, err := s.queue.DeleteMessage(ctx, r.MessageID, r.PopReceipt, nil); err != nil {
		if code := statusCode(err); code == http.StatusNotFound || code == http.StatusBadRequest {
			return nil
		}
		return fmt.Errorf("delete notification job: %w", err)
	}
	return nil
}

// Delivery is a dequeued job together with its queue handles.
type Delivery struct {
	Job        notify.Job
	MessageID  string
	PopReceipt string
	Dequeued   int64
}

var errEmptyMessage = errors.New("dequeued message without id")

// Receive takes the next visible job off the queue and hides it for
// visibility. It returns nil when the queue is empty.
func (s *QueueScheduler) Receive(ctx context.Context, visibility time.Duration) (*Delivery, error) {
	vt := int32(visibility / time.Second)
	resp, err := s.queue.DequeueMessage(ctx, &azqueue.DequeueMessageOptions{VisibilityTimeout: &vt})
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	msg := resp.Messages[0]
	if msg == nil || msg.MessageID == nil || msg.PopReceipt == nil {
		return nil, errEmptyMessage
	}
	d := &Delivery{MessageID: *msg.MessageID, PopReceipt: *msg.PopReceipt}
	if msg.DequeueCount != nil {
		d.Dequeued = *msg.DequeueCount
	}
	if msg.MessageText == nil {
		return d, fmt.Errorf("decode notification job %s: empty body", d.MessageID)
	}
	if err := sonic.UnmarshalString(*msg.MessageText, &d.Job); err != nil {
		return d, fmt.Errorf("decode notification job %s: %w", d.MessageID, err)
	}
	return d, nil
}

// Ack removes a processed delivery from the queue.
func (s *QueueScheduler) Ack(ctx context.Context, d *Delivery) error {
	_, err := s.queue.DeleteMessage(ctx, d.MessageID, d.PopReceipt, nil)
	if err != nil && statusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}
