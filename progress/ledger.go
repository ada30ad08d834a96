package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
)

// TaskReader loads the task a progress operation refers to.
type TaskReader interface {
	GetTask(ctx context.Context, id int64) (domain.Task, error)
}

// Store persists ledger entries. Implementations must enforce uniqueness of
// (user, task, period, period key) in storage so concurrent inserts of the
// same key fail with domain.ErrConflict instead of creating duplicates.
type Store interface {
	HasEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error)
	InsertEntry(ctx context.Context, entry domain.ProgressEntry) error
	// DeleteEntry removes the entry and reports whether one existed.
	DeleteEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error)
	// CompletionTimes returns done_at of every entry of userID across taskIDs.
	CompletionTimes(ctx context.Context, userID string, taskIDs []int64) ([]time.Time, error)
}

// Status is the completion state of one period occurrence.
type Status struct {
	Done      bool          `json:"done"`
	Period    domain.Period `json:"period"`
	PeriodKey string        `json:"period_key"`
	Date      domain.Date   `json:"date"`
}

// Ledger toggles and reports task completion.
type Ledger struct {
	tasks  TaskReader
	store  Store
	clock  domain.Clock
	logger *log.Logger
}

func NewLedger(tasks TaskReader, store Store, clock domain.Clock, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Ledger{tasks: tasks, store: store, clock: clock, logger: logger}
}

func (l *Ledger) resolve(ctx context.Context, taskID int64, p domain.Period, date *domain.Date) (domain.Date, string, error) {
	task, err := l.tasks.GetTask(ctx, taskID)
	if err != nil {
		return domain.Date{}, "", err
	}
	day, err := AssertWithinWindow(task, p, date, l.clock)
	if err != nil {
		return domain.Date{}, "", err
	}
	return day, ResolveKey(p, day), nil
}

// Toggle flips the completion mark of the occurrence containing date (today
// when nil): an existing entry is removed, a missing one is created. A
// concurrent toggle of the same occurrence surfaces as domain.ErrConflict.
func (l *Ledger) Toggle(ctx context.Context, userID string, taskID int64, p domain.Period, date *domain.Date) (Status, error) {
	day, key, err := l.resolve(ctx, taskID, p, date)
	if err != nil {
		return Status{}, err
	}
	st := Status{Period: p, PeriodKey: key, Date: day}

	removed, err := l.store.DeleteEntry(ctx, userID, taskID, p, key)
	if err != nil {
		return Status{}, fmt.Errorf("delete progress: %w", err)
	}
	if removed {
		l.logger.WithFields(log.Fields{"user": userID, "task_id": taskID, "period": p, "period_key": key}).Debug("progress undone")
		return st, nil
	}

	entry := domain.ProgressEntry{
		UserID:    userID,
		TaskID:    taskID,
		Period:    p,
		PeriodKey: key,
		DoneAt:    l.clock.Now(),
	}
	if err := l.store.InsertEntry(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			l.logger.WithFields(log.Fields{"user": userID, "task_id": taskID, "period_key": key}).Warn("concurrent progress toggle")
		}
		return Status{}, fmt.Errorf("insert progress: %w", err)
	}
	l.logger.WithFields(log.Fields{"user": userID, "task_id": taskID, "period": p, "period_key": key}).Debug("progress done")
	st.Done = true
	return st, nil
}

// Show reports the completion state without mutating it.
func (l *Ledger) Show(ctx context.Context, userID string, taskID int64, p domain.Period, date *domain.Date) (Status, error) {
	day, key, err := l.resolve(ctx, taskID, p, date)
	if err != nil {
		return Status{}, err
	}
	done, err := l.store.HasEntry(ctx, userID, taskID, p, key)
	if err != nil {
		return Status{}, fmt.Errorf("read progress: %w", err)
	}
	return Status{Done: done, Period: p, PeriodKey: key, Date: day}, nil
}

// Streak computes the user's current day streak across taskIDs.
func (l *Ledger) Streak(ctx context.Context, userID string, taskIDs []int64) (int, error) {
	if len(taskIDs) == 0 {
		return 0, nil
	}
	times, err := l.store.CompletionTimes(ctx, userID, taskIDs)
	if err != nil {
		return 0, fmt.Errorf("read completions: %w", err)
	}
	now := l.clock.Now()
	days := make([]domain.Date, 0, len(times))
	for _, t := range times {
		days = append(days, domain.DateOf(t.In(now.Location())))
	}
	return ComputeStreak(days, domain.DateOf(now)), nil
}
