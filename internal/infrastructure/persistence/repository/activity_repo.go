package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/sqlite"
)

// ActivityRepository implements port.ActivityRepository. The activity log
// is append-only; there are no update or delete operations.
type ActivityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB, logger *zap.Logger) port.ActivityRepository {
	return &ActivityRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends an activity entry
func (r *ActivityRepository) Record(ctx context.Context, entry *entity.ActivityEntry) error {
	query := `
		INSERT INTO activity_log (application_id, action, description, metadata)
		VALUES (?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.ApplicationID,
		entry.Action,
		entry.Description,
		entry.Metadata,
	)
	if err != nil {
		r.logger.Error("Failed to record activity",
			zap.Int64("application_id", entry.ApplicationID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to record activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByApplication returns activity entries for an application, newest first
func (r *ActivityRepository) ListByApplication(ctx context.Context, applicationID int64, limit, offset int) ([]*entity.ActivityEntry, error) {
	query := `
		SELECT id, application_id, action, description, metadata, created_at
		FROM activity_log
		WHERE application_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, applicationID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list activity",
			zap.Int64("application_id", applicationID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ActivityEntry
	for rows.Next() {
		var e entity.ActivityEntry
		var metadata sql.NullString
		err := rows.Scan(&e.ID, &e.ApplicationID, &e.Action, &e.Description, &metadata, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		e.Metadata = metadata.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Verify interface compliance
var _ port.ActivityRepository = (*ActivityRepository)(nil)
