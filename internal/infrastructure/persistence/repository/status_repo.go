package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
	"github.com/merchantflow/onboarding/internal/infrastructure/persistence/sqlite"
)

// StatusRepository implements port.StatusRepository
type StatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sql.DB, logger *zap.Logger) port.StatusRepository {
	return &StatusRepository{
		db:     db,
		logger: logger,
	}
}

const statusColumns = `
	id, application_id, current_step, version,
	docusign_envelope_id, docusign_status,
	requires_additional_info, additional_info_notes,
	fees_confirmed_at, contract_sent_at, documents_uploaded_at,
	contract_signed_at, contract_submitted_at, application_approved_at,
	invoice_sent_at, invoice_paid_at, gateway_integrated_at, account_live_at,
	created_at, updated_at
`

// Create inserts the initial status row for an application
func (r *StatusRepository) Create(ctx context.Context, status *entity.ApplicationStatus) error {
	if status.CurrentStep == "" {
		status.CurrentStep = pipeline.StepCreated
	}
	status.Version = 1

	query := `
		INSERT INTO application_status (application_id, current_step, version)
		VALUES (?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		status.ApplicationID,
		status.CurrentStep.String(),
		status.Version,
	)
	if err != nil {
		r.logger.Error("Failed to create status", zap.Error(err))
		return fmt.Errorf("failed to create status: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	status.ID = id
	return nil
}

// GetByApplicationID retrieves the status row for an application
func (r *StatusRepository) GetByApplicationID(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM application_status WHERE application_id = ?`
	return r.scanOne(ctx, query, applicationID)
}

// GetByEnvelopeID retrieves the status row correlated to an e-signature envelope
func (r *StatusRepository) GetByEnvelopeID(ctx context.Context, envelopeID string) (*entity.ApplicationStatus, error) {
	query := `SELECT ` + statusColumns + ` FROM application_status WHERE docusign_envelope_id = ?`
	return r.scanOne(ctx, query, envelopeID)
}

// Update persists the full status row, guarded by the optimistic version
// check. A stale version returns pipeline.ErrConcurrentModification.
func (r *StatusRepository) Update(ctx context.Context, status *entity.ApplicationStatus) error {
	query := `
		UPDATE application_status SET
			current_step = ?,
			version = version + 1,
			requires_additional_info = ?,
			additional_info_notes = ?,
			fees_confirmed_at = ?,
			contract_sent_at = ?,
			documents_uploaded_at = ?,
			contract_signed_at = ?,
			contract_submitted_at = ?,
			application_approved_at = ?,
			invoice_sent_at = ?,
			invoice_paid_at = ?,
			gateway_integrated_at = ?,
			account_live_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		status.CurrentStep.String(),
		status.RequiresAdditionalInfo,
		status.AdditionalInfoNotes,
		status.FeesConfirmedAt,
		status.ContractSentAt,
		status.DocumentsUploadedAt,
		status.ContractSignedAt,
		status.ContractSubmittedAt,
		status.ApplicationApprovedAt,
		status.InvoiceSentAt,
		status.InvoicePaidAt,
		status.GatewayIntegratedAt,
		status.AccountLiveAt,
		status.ID,
		status.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update status",
			zap.Int64("application_id", status.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: application %d version %d",
			pipeline.ErrConcurrentModification, status.ApplicationID, status.Version)
	}

	status.Version++
	return nil
}

// SetEnvelope records the e-signature correlation key
func (r *StatusRepository) SetEnvelope(ctx context.Context, applicationID int64, envelopeID, envelopeStatus string) error {
	query := `
		UPDATE application_status
		SET docusign_envelope_id = ?, docusign_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE application_id = ?
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, envelopeID, envelopeStatus, applicationID)
	if err != nil {
		r.logger.Error("Failed to set envelope",
			zap.Int64("application_id", applicationID),
			zap.Error(err))
		return fmt.Errorf("failed to set envelope: %w", err)
	}
	return nil
}

// UpdateEnvelopeStatus updates only the provider-reported envelope status
func (r *StatusRepository) UpdateEnvelopeStatus(ctx context.Context, applicationID int64, envelopeStatus string) error {
	query := `
		UPDATE application_status
		SET docusign_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE application_id = ?
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, envelopeStatus, applicationID)
	if err != nil {
		return fmt.Errorf("failed to update envelope status: %w", err)
	}
	return nil
}

// ListByEnvelopeStatus returns statuses whose envelope sits in the given
// provider state
func (r *StatusRepository) ListByEnvelopeStatus(ctx context.Context, envelopeStatus string, limit int) ([]*entity.ApplicationStatus, error) {
	query := `SELECT ` + statusColumns + `
		FROM application_status
		WHERE docusign_status = ? AND docusign_envelope_id != ''
		ORDER BY updated_at ASC
		LIMIT ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, envelopeStatus, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list by envelope status: %w", err)
	}
	defer rows.Close()

	var statuses []*entity.ApplicationStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// AppendHistory inserts one history row. History is append-only; there is no
// update or delete path.
func (r *StatusRepository) AppendHistory(ctx context.Context, entry *entity.StepHistoryEntry) error {
	query := `
		INSERT INTO status_history (application_id, from_step, to_step, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.ApplicationID,
		entry.FromStep.String(),
		entry.ToStep.String(),
		entry.Notes,
		created,
	)
	if err != nil {
		r.logger.Error("Failed to append history",
			zap.Int64("application_id", entry.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetHistory returns history rows in commit order
func (r *StatusRepository) GetHistory(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error) {
	query := `
		SELECT id, application_id, from_step, to_step, notes, created_at
		FROM status_history
		WHERE application_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.StepHistoryEntry
	for rows.Next() {
		var e entity.StepHistoryEntry
		var from, to string
		if err := rows.Scan(&e.ID, &e.ApplicationID, &from, &to, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.FromStep = pipeline.Step(from)
		e.ToStep = pipeline.Step(to)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *StatusRepository) scanOne(ctx context.Context, query string, arg interface{}) (*entity.ApplicationStatus, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg)
	status, err := scanStatus(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get status", zap.Error(err))
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return status, nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStatus(s scanner) (*entity.ApplicationStatus, error) {
	var status entity.ApplicationStatus
	var step string
	var envelopeID, envelopeStatus, notes sql.NullString
	var feesConfirmed, contractSent, docsUploaded, contractSigned, contractSubmitted sql.NullTime
	var approved, invoiceSent, invoicePaid, gatewayIntegrated, accountLive sql.NullTime

	err := s.Scan(
		&status.ID,
		&status.ApplicationID,
		&step,
		&status.Version,
		&envelopeID,
		&envelopeStatus,
		&status.RequiresAdditionalInfo,
		&notes,
		&feesConfirmed,
		&contractSent,
		&docsUploaded,
		&contractSigned,
		&contractSubmitted,
		&approved,
		&invoiceSent,
		&invoicePaid,
		&gatewayIntegrated,
		&accountLive,
		&status.CreatedAt,
		&status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	status.CurrentStep = pipeline.Step(step)
	status.DocusignEnvelopeID = envelopeID.String
	status.DocusignStatus = envelopeStatus.String
	status.AdditionalInfoNotes = notes.String
	status.FeesConfirmedAt = nullableTime(feesConfirmed)
	status.ContractSentAt = nullableTime(contractSent)
	status.DocumentsUploadedAt = nullableTime(docsUploaded)
	status.ContractSignedAt = nullableTime(contractSigned)
	status.ContractSubmittedAt = nullableTime(contractSubmitted)
	status.ApplicationApprovedAt = nullableTime(approved)
	status.InvoiceSentAt = nullableTime(invoiceSent)
	status.InvoicePaidAt = nullableTime(invoicePaid)
	status.GatewayIntegratedAt = nullableTime(gatewayIntegrated)
	status.AccountLiveAt = nullableTime(accountLive)
	return &status, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if t.Valid {
		v := t.Time
		return &v
	}
	return nil
}

// Verify interface compliance
var _ port.StatusRepository = (*StatusRepository)(nil)
