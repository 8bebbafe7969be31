package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/social-media-api/internal/models"
)

// DeliveryLog records the outcome of every notification the workers process.
type DeliveryLog struct {
	pool *pgxpool.Pool
}

func NewDeliveryLog(pool *pgxpool.Pool) *DeliveryLog {
	return &DeliveryLog{pool: pool}
}

// Migrate creates the notification_log table if it doesn't exist.
func (s *DeliveryLog) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notification_log (
			id         UUID PRIMARY KEY,
			kind       VARCHAR(32)  NOT NULL,
			user_id    TEXT         NOT NULL,
			recipient  VARCHAR(255) NOT NULL DEFAULT '',
			subject    VARCHAR(255) NOT NULL DEFAULT '',
			status     VARCHAR(16)  NOT NULL,
			error      TEXT         NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS notification_log_user_idx
			ON notification_log (user_id, created_at DESC);
	`)
	return err
}

func (s *DeliveryLog) Record(ctx context.Context, d models.Delivery) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_log (id, kind, user_id, recipient, subject, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, string(d.Kind), d.UserID, d.Recipient, d.Subject, d.Status, d.Error, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// ListByUser returns the most recent deliveries for a user, newest first.
func (s *DeliveryLog) ListByUser(ctx context.Context, userID string, limit int) ([]models.Delivery, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, user_id, recipient, subject, status, error, created_at
		 FROM notification_log WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []models.Delivery{}
	for rows.Next() {
		var d models.Delivery
		var kind string
		if err := rows.Scan(&d.ID, &kind, &d.UserID, &d.Recipient, &d.Subject, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Kind = models.NotificationKind(kind)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
