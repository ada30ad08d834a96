package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/dmachibya/faithexercises-api/domain"
)

type catalogBackend interface {
	ListExercises(ctx context.Context) ([]domain.Exercise, error)
	CreateExercise(ctx context.Context, in domain.ExerciseInput) (domain.Exercise, error)
	ListActiveTasks(ctx context.Context, exerciseID int64) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Cache wraps a Store with Redis-backed caching for catalogue reads. Writes
// pass through and evict the keys they invalidate.
type Cache struct {
	*Store
	base  catalogBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Store wrapper using the provided Redis client and TTL.
func NewCache(base catalogBackend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Store); ok {
		c.Store = s
	}
	return c
}

func (c *Cache) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	var exercises []domain.Exercise
	if c.load(ctx, exercisesCacheKey, &exercises) {
		return exercises, nil
	}

	exercises, err := c.base.ListExercises(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, exercisesCacheKey, exercises)
	return exercises, nil
}

func (c *Cache) ListActiveTasks(ctx context.Context, exerciseID int64) ([]domain.Task, error) {
	key := exerciseTasksCacheKey(exerciseID)
	var tasks []domain.Task
	if c.load(ctx, key, &tasks) {
		return tasks, nil
	}

	tasks, err := c.base.ListActiveTasks(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) CreateExercise(ctx context.Context, in domain.ExerciseInput) (domain.Exercise, error) {
	e, err := c.base.CreateExercise(ctx, in)
	if err != nil {
		return domain.Exercise{}, err
	}
	c.evict(ctx, exercisesCacheKey)
	return e, nil
}

func (c *Cache) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	t, err := c.base.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, exerciseTasksCacheKey(t.ExerciseID))
	return t, nil
}

// UpdateTask evicts the task lists of both the old and the new exercise.
func (c *Cache) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	before, err := c.base.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := c.base.UpdateTask(ctx, id, in)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx, exerciseTasksCacheKey(before.ExerciseID), exerciseTasksCacheKey(t.ExerciseID))
	return t, nil
}

func (c *Cache) DeleteTask(ctx context.Context, id int64) error {
	before, err := c.base.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, exerciseTasksCacheKey(before.ExerciseID))
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

const exercisesCacheKey = "exercises"

func exerciseTasksCacheKey(exerciseID int64) string {
	return "exercise-tasks:" + strconv.FormatInt(exerciseID, 10)
}
