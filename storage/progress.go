package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

func (s *Store) HasEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM task_progresses WHERE user_id = ? AND task_id = ? AND period = ? AND period_key = ?`,
		userID, taskID, string(p), key,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup progress: %w", err)
	}
	return n > 0, nil
}

// InsertEntry records a completion. A duplicate key fails with
// domain.ErrConflict.
func (s *Store) InsertEntry(ctx context.Context, e domain.ProgressEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_progresses (user_id, task_id, period, period_key, done_at) VALUES (?, ?, ?, ?, ?)`,
		e.UserID, e.TaskID, string(e.Period), e.PeriodKey, formatTime(e.DoneAt),
	)
	if err != nil {
		return fmt.Errorf("insert progress: %w", translate(err))
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, userID string, taskID int64, p domain.Period, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM task_progresses WHERE user_id = ? AND task_id = ? AND period = ? AND period_key = ?`,
		userID, taskID, string(p), key,
	)
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) CompletionTimes(ctx context.Context, userID string, taskIDs []int64) ([]time.Time, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(taskIDs)+1)
	args = append(args, userID)
	for _, id := range taskIDs {
		args = append(args, id)
	}
	query := `SELECT done_at FROM task_progresses WHERE user_id = ? AND task_id IN (?` +
		strings.Repeat(", ?", len(taskIDs)-1) + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("completion times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var doneAt string
		if err := rows.Scan(&doneAt); err != nil {
			return nil, err
		}
		times = append(times, parseTime(doneAt))
	}
	return times, rows.Err()
}

// HasProgress reports whether any user completed the task.
func (s *Store) HasProgress(ctx context.Context, taskID int64) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM task_progresses WHERE task_id = ?`, taskID,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup task progress: %w", err)
	}
	return n > 0, nil
}

// PurgeTask removes every ledger entry of the task.
func (s *Store) PurgeTask(ctx context.Context, taskID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_progresses WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("purge progress of task %d: %w", taskID, err)
	}
	return nil
}

// ForEachEntry calls fn for every ledger entry.
func (s *Store) ForEachEntry(ctx context.Context, fn func(domain.ProgressEntry) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, task_id, period, period_key, done_at FROM task_progresses`)
	if err != nil {
		return fmt.Errorf("scan progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.ProgressEntry
		var period, doneAt string
		if err := rows.Scan(&e.UserID, &e.TaskID, &period, &e.PeriodKey, &doneAt); err != nil {
			return err
		}
		e.Period = domain.Period(period)
		e.DoneAt = parseTime(doneAt)
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
