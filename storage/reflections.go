package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

const reflectionColumns = `id, title, type, content, media_url, author, reference, scheduled_date, created_at`

func scanReflection(row interface{ Scan(...any) error }) (domain.Reflection, error) {
	var r domain.Reflection
	var typ, scheduled, createdAt string
	if err := row.Scan(&r.ID, &r.Title, &typ, &r.Content, &r.MediaURL, &r.Author, &r.Reference, &scheduled, &createdAt); err != nil {
		return domain.Reflection{}, err
	}
	r.Type = domain.ReflectionType(typ)
	r.ScheduledDate, _ = domain.ParseDate(scheduled, time.UTC)
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

func (s *Store) queryReflections(ctx context.Context, query string, args ...any) ([]domain.Reflection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer rows.Close()

	out := []domain.Reflection{}
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReflectionsBetween returns reflections scheduled within [from, to], ordered
// by date.
func (s *Store) ReflectionsBetween(ctx context.Context, from, to domain.Date) ([]domain.Reflection, error) {
	return s.queryReflections(ctx,
		`SELECT `+reflectionColumns+` FROM reflections WHERE scheduled_date BETWEEN ? AND ? ORDER BY scheduled_date`,
		from.String(), to.String())
}

// ListReflections returns every reflection, latest date first.
func (s *Store) ListReflections(ctx context.Context) ([]domain.Reflection, error) {
	return s.queryReflections(ctx,
		`SELECT `+reflectionColumns+` FROM reflections ORDER BY scheduled_date DESC`)
}

func (s *Store) GetReflection(ctx context.Context, id int64) (domain.Reflection, error) {
	r, err := scanReflection(s.db.QueryRowContext(ctx,
		`SELECT `+reflectionColumns+` FROM reflections WHERE id = ?`, id))
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("get reflection %d: %w", id, translate(err))
	}
	return r, nil
}

// CreateReflection stores a reflection. Only one reflection may be scheduled
// per date.
func (s *Store) CreateReflection(ctx context.Context, in domain.ReflectionInput) (domain.Reflection, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reflections (title, type, content, media_url, author, reference, scheduled_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, string(in.Type), in.Content, in.MediaURL, in.Author, in.Reference,
		in.ScheduledDate.String(), formatTime(s.now()),
	)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("insert reflection: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.GetReflection(ctx, id)
}

func (s *Store) UpdateReflection(ctx context.Context, id int64, in domain.ReflectionInput) (domain.Reflection, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reflections SET title = ?, type = ?, content = ?, media_url = ?, author = ?, reference = ?,
		scheduled_date = ? WHERE id = ?`,
		in.Title, string(in.Type), in.Content, in.MediaURL, in.Author, in.Reference,
		in.ScheduledDate.String(), id,
	)
	if err != nil {
		return domain.Reflection{}, fmt.Errorf("update reflection %d: %w", id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Reflection{}, fmt.Errorf("update reflection %d: %w", id, domain.ErrNotFound)
	}
	return s.GetReflection(ctx, id)
}

func (s *Store) DeleteReflection(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reflections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reflection %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete reflection %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
