package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

const journalSelect = `SELECT j.id, j.user_id, j.task_id, t.title, e.title, j.entry_date, j.content, j.created_at, j.updated_at
	FROM journal_entries j
	LEFT JOIN tasks t ON t.id = j.task_id
	LEFT JOIN exercises e ON e.id = t.exercise_id `

func scanJournal(row interface{ Scan(...any) error }) (domain.JournalEntry, error) {
	var j domain.JournalEntry
	var taskID sql.NullInt64
	var taskTitle, exerciseTitle sql.NullString
	var entryDate, createdAt, updatedAt string
	err := row.Scan(&j.ID, &j.UserID, &taskID, &taskTitle, &exerciseTitle, &entryDate, &j.Content, &createdAt, &updatedAt)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	j.TaskID = idPtr(taskID)
	j.TaskTitle = taskTitle.String
	j.ExerciseTitle = exerciseTitle.String
	j.EntryDate, _ = domain.ParseDate(entryDate, time.UTC)
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return j, nil
}

func (s *Store) queryJournal(ctx context.Context, where string, args ...any) ([]domain.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, journalSelect+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	defer rows.Close()

	out := []domain.JournalEntry{}
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListJournal returns the user's entries matching f, latest day first.
func (s *Store) ListJournal(ctx context.Context, userID string, f domain.JournalFilter) ([]domain.JournalEntry, error) {
	where := []string{"j.user_id = ?"}
	args := []any{userID}
	if f.From != nil {
		where = append(where, "j.entry_date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "j.entry_date <= ?")
		args = append(args, f.To.String())
	}
	if f.TaskID != nil {
		where = append(where, "j.task_id = ?")
		args = append(args, *f.TaskID)
	}
	return s.queryJournal(ctx,
		`WHERE `+strings.Join(where, " AND ")+` ORDER BY j.entry_date DESC, j.id DESC`, args...)
}

// RecentJournal returns the user's latest limit entries.
func (s *Store) RecentJournal(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	return s.queryJournal(ctx, `WHERE j.user_id = ? ORDER BY j.entry_date DESC, j.id DESC LIMIT ?`, userID, limit)
}

func (s *Store) GetJournal(ctx context.Context, id int64) (domain.JournalEntry, error) {
	j, err := scanJournal(s.db.QueryRowContext(ctx, journalSelect+`WHERE j.id = ?`, id))
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("get journal entry %d: %w", id, translate(err))
	}
	return j, nil
}

// CreateJournal stores an entry for userID. An unknown task fails with
// domain.ErrNotFound.
func (s *Store) CreateJournal(ctx context.Context, userID string, in domain.JournalInput) (domain.JournalEntry, error) {
	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (user_id, task_id, entry_date, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, nullID(in.TaskID), in.EntryDate.String(), in.Content, now, now,
	)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("insert journal entry: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.GetJournal(ctx, id)
}

// UpdateJournal replaces an entry owned by userID.
func (s *Store) UpdateJournal(ctx context.Context, userID string, id int64, in domain.JournalInput) (domain.JournalEntry, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE journal_entries SET task_id = ?, entry_date = ?, content = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		nullID(in.TaskID), in.EntryDate.String(), in.Content, formatTime(s.now()), id, userID,
	)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("update journal entry %d: %w", id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.JournalEntry{}, s.ownerError(ctx, "journal_entries", id)
	}
	return s.GetJournal(ctx, id)
}

// DeleteJournal removes an entry owned by userID.
func (s *Store) DeleteJournal(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete journal entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.ownerError(ctx, "journal_entries", id)
	}
	return nil
}

// CountJournal returns how many entries userID wrote.
func (s *Store) CountJournal(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM journal_entries WHERE user_id = ?`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal: %w", err)
	}
	return n, nil
}

// JournalCounts returns the number of entries per user.
func (s *Store) JournalCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, COUNT(1) FROM journal_entries GROUP BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("journal counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var user string
		var n int
		if err := rows.Scan(&user, &n); err != nil {
			return nil, err
		}
		counts[user] = n
	}
	return counts, rows.Err()
}

// JournalEntriesSince counts entries dated on or after day.
func (s *Store) JournalEntriesSince(ctx context.Context, day domain.Date) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM journal_entries WHERE entry_date >= ?`, day.String(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal since %s: %w", day, err)
	}
	return n, nil
}

// ownerError explains why a write scoped to a user matched no row: the row
// is missing or belongs to someone else.
func (s *Store) ownerError(ctx context.Context, table string, id int64) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM `+table+` WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		return fmt.Errorf("%s %d: %w", table, id, translate(err))
	}
	return fmt.Errorf("%s %d: %w", table, id, domain.ErrForbidden)
}
