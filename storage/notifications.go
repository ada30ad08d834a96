package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmachibya/faithexercises-api/domain"
)

const notificationColumns = `id, title, description, content, image_url, sent_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (domain.CustomNotification, error) {
	var n domain.CustomNotification
	var sentAt sql.NullString
	var createdAt string
	if err := row.Scan(&n.ID, &n.Title, &n.Description, &n.Content, &n.ImageURL, &sentAt, &createdAt); err != nil {
		return domain.CustomNotification{}, err
	}
	if sentAt.Valid {
		t := parseTime(sentAt.String)
		n.SentAt = &t
	}
	n.CreatedAt = parseTime(createdAt)
	return n, nil
}

// CreateNotification stores an admin notification stamped as sent now.
func (s *Store) CreateNotification(ctx context.Context, in domain.NotificationInput) (domain.CustomNotification, error) {
	now := formatTime(s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO custom_notifications (title, description, content, image_url, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Content, in.ImageURL, now, now,
	)
	if err != nil {
		return domain.CustomNotification{}, fmt.Errorf("insert notification: %w", translate(err))
	}
	id, _ := res.LastInsertId()
	return s.GetNotification(ctx, id)
}

func (s *Store) GetNotification(ctx context.Context, id int64) (domain.CustomNotification, error) {
	n, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM custom_notifications WHERE id = ?`, id))
	if err != nil {
		return domain.CustomNotification{}, fmt.Errorf("get notification %d: %w", id, translate(err))
	}
	return n, nil
}

// ListNotifications returns a page of notifications, newest first, and the
// total count.
func (s *Store) ListNotifications(ctx context.Context, limit, offset int) ([]domain.CustomNotification, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM custom_notifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM custom_notifications ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []domain.CustomNotification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}
