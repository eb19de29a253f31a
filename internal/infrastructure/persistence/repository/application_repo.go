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

// ApplicationRepository implements port.ApplicationRepository
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

const applicationColumns = `
	id, account_id, created_by_user_id, merchant_name, contact_email,
	setup_fee_cents, transaction_fee_bps, monthly_fee_cents, scaling_fee_bps,
	parent_application_id, gateway_credentials, wordpress_credentials,
	deleted_at, created_at, updated_at
`

// Create inserts a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.Application) error {
	query := `
		INSERT INTO applications (
			account_id, created_by_user_id, merchant_name, contact_email,
			setup_fee_cents, transaction_fee_bps, monthly_fee_cents, scaling_fee_bps,
			parent_application_id, gateway_credentials, wordpress_credentials
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		app.AccountID,
		app.CreatedByUserID,
		app.MerchantName,
		app.ContactEmail,
		app.SetupFeeCents,
		app.TransactionFeeBps,
		app.MonthlyFeeCents,
		app.ScalingFeeBps,
		app.ParentApplicationID,
		app.GatewayCredentials,
		app.WordpressCredentials,
	)
	if err != nil {
		r.logger.Error("Failed to create application", zap.Error(err))
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	app.ID = id
	return nil
}

// GetByID retrieves an application by ID; soft-deleted rows are excluded
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ? AND deleted_at IS NULL`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return app, nil
}

// List retrieves applications with pagination
func (r *ApplicationRepository) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM applications
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*entity.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// Update persists mutable application fields
func (r *ApplicationRepository) Update(ctx context.Context, app *entity.Application) error {
	query := `
		UPDATE applications SET
			merchant_name = ?, contact_email = ?,
			setup_fee_cents = ?, transaction_fee_bps = ?,
			monthly_fee_cents = ?, scaling_fee_bps = ?,
			gateway_credentials = ?, wordpress_credentials = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		app.MerchantName,
		app.ContactEmail,
		app.SetupFeeCents,
		app.TransactionFeeBps,
		app.MonthlyFeeCents,
		app.ScalingFeeBps,
		app.GatewayCredentials,
		app.WordpressCredentials,
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	return nil
}

// SoftDelete marks an application deleted without removing the row
func (r *ApplicationRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE applications SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return nil
}

func scanApplication(s scanner) (*entity.Application, error) {
	var app entity.Application
	var contactEmail, gatewayCreds, wordpressCreds sql.NullString
	var parentID sql.NullInt64
	var deletedAt sql.NullTime

	err := s.Scan(
		&app.ID,
		&app.AccountID,
		&app.CreatedByUserID,
		&app.MerchantName,
		&contactEmail,
		&app.SetupFeeCents,
		&app.TransactionFeeBps,
		&app.MonthlyFeeCents,
		&app.ScalingFeeBps,
		&parentID,
		&gatewayCreds,
		&wordpressCreds,
		&deletedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.ContactEmail = contactEmail.String
	app.GatewayCredentials = gatewayCreds.String
	app.WordpressCredentials = wordpressCreds.String
	if parentID.Valid {
		v := parentID.Int64
		app.ParentApplicationID = &v
	}
	app.DeletedAt = nullableTime(deletedAt)
	return &app, nil
}

// Verify interface compliance
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
