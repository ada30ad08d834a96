package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/dmachibya/faithexercises-api/notify"
)

// ScheduleRegistry remembers the pending notification job of each task in
// Redis so task updates and deletes can cancel it.
type ScheduleRegistry struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewScheduleRegistry creates a registry. ttl bounds entries whose caller
// passes no positive ttl of its own.
func NewScheduleRegistry(client *redis.Client, ttl time.Duration) *ScheduleRegistry {
	return &ScheduleRegistry{redis: client, ttl: ttl}
}

func (r *ScheduleRegistry) Put(ctx context.Context, taskID int64, receipt notify.Receipt, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	data, err := sonic.Marshal(receipt)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, scheduledNotificationKey(taskID), data, ttl).Err()
}

func (r *ScheduleRegistry) Get(ctx context.Context, taskID int64) (notify.Receipt, bool, error) {
	data, err := r.redis.Get(ctx, scheduledNotificationKey(taskID)).Bytes()
	if err == redis.Nil {
		return notify.Receipt{}, false, nil
	}
	if err != nil {
		return notify.Receipt{}, false, err
	}
	var receipt notify.Receipt
	if err := sonic.Unmarshal(data, &receipt); err != nil {
		return notify.Receipt{}, false, err
	}
	return receipt, true, nil
}

func (r *ScheduleRegistry) Delete(ctx context.Context, taskID int64) error {
	return r.redis.Del(ctx, scheduledNotificationKey(taskID)).Err()
}

func scheduledNotificationKey(taskID int64) string {
	return "scheduled-notification:" + strconv.FormatInt(taskID, 10)
}
