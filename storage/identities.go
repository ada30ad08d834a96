package storage

import (
	"context"
	"fmt"

	"github.com/dmachibya/faithexercises-api/domain"
)

const identityColumns = `id, user_id, statement, category, created_at, updated_at`

func scanIdentity(row interface{ Scan(...any) error }) (domain.Identity, error) {
	var i domain.Identity
	var createdAt, updatedAt string
	if err := row.Scan(&i.ID, &i.UserID, &i.Statement, &i.Category, &createdAt, &updatedAt); err != nil {
		return domain.Identity{}, err
	}
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return i, nil
}

// ListIdentities returns the user's identity statements, oldest first.
func (s *Store) ListIdentities(ctx context.Context, userID string) ([]domain.Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	out := []domain.Identity{}
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (s *Store) getIdentity(ctx context.Context, id int64) (domain.Identity, error) {
	i, err := scanIdentity(s.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("get identity %d: %w", id, translate(err))
	}
	return i, nil
}

func (s *Store) CreateIdentity(ctx context.Context, userID string, in domain.IdentityInput) (domain.Identity, error) {
	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (user_id, statement, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, in.Statement, in.Category, now, now,
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("insert identity: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.getIdentity(ctx, id)
}

// UpdateIdentity replaces a statement owned by userID.
func (s *Store) UpdateIdentity(ctx context.Context, userID string, id int64, in domain.IdentityInput) (domain.Identity, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE identities SET statement = ?, category = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		in.Statement, in.Category, formatTime(s.now()), id, userID,
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("update identity %d: %w", id, translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Identity{}, s.ownerError(ctx, "identities", id)
	}
	return s.getIdentity(ctx, id)
}

func (s *Store) DeleteIdentity(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete identity %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.ownerError(ctx, "identities", id)
	}
	return nil
}
