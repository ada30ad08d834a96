package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

const taskSelect = `SELECT t.id, t.exercise_id, e.title, t.title, t.description, t.schedule,
	t.duration_days, t.start_date, t.is_active, t.sort_order, t.created_at
	FROM tasks t JOIN exercises e ON e.id = t.exercise_id `

func scanTask(row interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var schedule, createdAt string
	var duration, sortOrder sql.NullInt64
	var startDate sql.NullString
	var active int
	err := row.Scan(&t.ID, &t.ExerciseID, &t.ExerciseTitle, &t.Title, &t.Description, &schedule,
		&duration, &startDate, &active, &sortOrder, &createdAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.Schedule = domain.Period(schedule)
	t.DurationDays = intPtr(duration)
	t.StartDate = datePtr(startDate)
	t.IsActive = active == 1
	t.SortOrder = intPtr(sortOrder)
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

func (s *Store) queryTasks(ctx context.Context, where string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask returns the task together with its exercise title.
func (s *Store) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+`WHERE t.id = ?`, id))
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task %d: %w", id, translate(err))
	}
	return t, nil
}

// ListTasks returns every task, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.queryTasks(ctx, `ORDER BY t.created_at DESC, t.id DESC`)
}

func (s *Store) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (exercise_id, title, description, schedule, duration_days, start_date, is_active, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ExerciseID, in.Title, in.Description, string(in.Schedule), nullInt(in.DurationDays),
		nullDate(in.StartDate), boolInt(in.IsActive), nullInt(in.SortOrder), formatTime(s.now()),
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.GetTask(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET exercise_id = ?, title = ?, description = ?, schedule = ?, duration_days = ?,
		start_date = ?, is_active = ?, sort_order = ? WHERE id = ?`,
		in.ExerciseID, in.Title, in.Description, string(in.Schedule), nullInt(in.DurationDays),
		nullDate(in.StartDate), boolInt(in.IsActive), nullInt(in.SortOrder), id,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, domain.ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes the task. Its ledger entries go with it.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkAnnounced records that the task was broadcast at at.
func (s *Store) MarkAnnounced(ctx context.Context, taskID int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET announced_at = ? WHERE id = ?`, formatTime(at), taskID,
	); err != nil {
		return fmt.Errorf("mark task %d announced: %w", taskID, err)
	}
	return nil
}

// Announced reports whether the task was broadcast. Unknown tasks were not.
func (s *Store) Announced(ctx context.Context, taskID int64) (bool, error) {
	var at sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT announced_at FROM tasks WHERE id = ?`, taskID).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup task %d announcement: %w", taskID, err)
	}
	return at.Valid, nil
}
