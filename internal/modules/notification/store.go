// README: Notification and device-token persistence backed by PostgreSQL.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hatid/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, n *Notification) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, category, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(n.ID), string(n.UserID), n.Title, n.Message, string(n.Category), n.IsRead, n.CreatedAt,
	)
	return err
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, message, category, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead only touches rows owned by userID.
func (s *Store) MarkRead(ctx context.Context, id, userID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2`, string(id), string(userID),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SaveToken(ctx context.Context, userID types.ID, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`,
		string(userID), token, time.Now(),
	)
	return err
}

func (s *Store) Token(ctx context.Context, userID types.ID) (string, error) {
	var token string
	err := s.db.QueryRow(ctx, `SELECT token FROM device_tokens WHERE user_id = $1`, string(userID)).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoToken
	}
	return token, err
}
