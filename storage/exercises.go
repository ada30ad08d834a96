package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmachibya/faithexercises-api/domain"
)

const exerciseColumns = `id, title, description, sort_order, created_at`

func scanExercise(row interface{ Scan(...any) error }) (domain.Exercise, error) {
	var e domain.Exercise
	var sortOrder sql.NullInt64
	var createdAt string
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &sortOrder, &createdAt); err != nil {
		return domain.Exercise{}, err
	}
	e.SortOrder = intPtr(sortOrder)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// ListExercises returns every exercise ordered by sort order, then id.
func (s *Store) ListExercises(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises ORDER BY sort_order IS NULL, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	exercises := []domain.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

func (s *Store) GetExercise(ctx context.Context, id int64) (domain.Exercise, error) {
	e, err := scanExercise(s.db.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
	if err != nil {
		return domain.Exercise{}, fmt.Errorf("get exercise %d: %w", id, translate(err))
	}
	return e, nil
}

func (s *Store) CreateExercise(ctx context.Context, in domain.ExerciseInput) (domain.Exercise, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (title, description, sort_order, created_at) VALUES (?, ?, ?, ?)`,
		in.Title, in.Description, nullInt(in.SortOrder), formatTime(s.now()),
	)
	if err != nil {
		return domain.Exercise{}, fmt.Errorf("insert exercise: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.GetExercise(ctx, id)
}

// ListActiveTasks returns the active tasks of an exercise. Tasks without a
// sort order come last.
func (s *Store) ListActiveTasks(ctx context.Context, exerciseID int64) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`WHERE t.exercise_id = ? AND t.is_active = 1 ORDER BY t.sort_order IS NULL, t.sort_order, t.id`,
		exerciseID)
}
