package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create enqueues a notification in PENDING state
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.Status == "" {
		n.Status = entity.NotificationPending
	}

	query := `
		INSERT INTO notifications (application_id, kind, recipient_kind, recipient, subject, body, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		n.ApplicationID,
		n.Kind,
		string(n.RecipientKind),
		n.Recipient,
		n.Subject,
		n.Body,
		n.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("application_id", n.ApplicationID),
			zap.String("kind", n.Kind),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	n.ID = id
	return nil
}

// GetPending returns notifications awaiting delivery, oldest first
func (r *NotificationRepository) GetPending(ctx context.Context, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, application_id, kind, recipient_kind, recipient, subject, body,
		       status, error_message, sent_at, created_at
		FROM notifications
		WHERE status = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, entity.NotificationPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var recipientKind string
		var errMsg sql.NullString
		var sentAt sql.NullTime
		err := rows.Scan(
			&n.ID,
			&n.ApplicationID,
			&n.Kind,
			&recipientKind,
			&n.Recipient,
			&n.Subject,
			&n.Body,
			&n.Status,
			&errMsg,
			&sentAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.RecipientKind = entity.RecipientKind(recipientKind)
		n.ErrorMessage = errMsg.String
		n.SentAt = nullableTime(sentAt)
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkSent records successful delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE notifications SET status = ?, sent_at = ?, error_message = NULL WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, entity.NotificationSent, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure with the error message
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `UPDATE notifications SET status = ?, error_message = ? WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, entity.NotificationFailed, errorMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
