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

// AdditionalDocumentRepository implements port.AdditionalDocumentRepository
type AdditionalDocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdditionalDocumentRepository creates a new additional document repository
func NewAdditionalDocumentRepository(db *sql.DB, logger *zap.Logger) port.AdditionalDocumentRepository {
	return &AdditionalDocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an additional document requirement
func (r *AdditionalDocumentRepository) Create(ctx context.Context, req *entity.ApplicationAdditionalDocument) error {
	query := `
		INSERT INTO additional_documents (application_id, name, instructions)
		VALUES (?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.ApplicationID,
		req.Name,
		req.Instructions,
	)
	if err != nil {
		r.logger.Error("Failed to create additional document requirement",
			zap.Int64("application_id", req.ApplicationID),
			zap.Error(err))
		return fmt.Errorf("failed to create additional document requirement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID retrieves an additional document requirement by ID
func (r *AdditionalDocumentRepository) GetByID(ctx context.Context, id int64) (*entity.ApplicationAdditionalDocument, error) {
	query := `
		SELECT id, application_id, name, instructions, is_uploaded, uploaded_at, created_at
		FROM additional_documents
		WHERE id = ?
	`

	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id)
	req, err := scanAdditionalDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get additional document requirement: %w", err)
	}
	return req, nil
}

// ListByApplication returns all additional requirements for an application
func (r *AdditionalDocumentRepository) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
	query := `
		SELECT id, application_id, name, instructions, is_uploaded, uploaded_at, created_at
		FROM additional_documents
		WHERE application_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list additional document requirements: %w", err)
	}
	defer rows.Close()

	var reqs []*entity.ApplicationAdditionalDocument
	for rows.Next() {
		req, err := scanAdditionalDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan additional document requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// MarkUploaded records the time a document satisfying the requirement arrived
func (r *AdditionalDocumentRepository) MarkUploaded(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE additional_documents SET is_uploaded = 1, uploaded_at = ? WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark additional document uploaded: %w", err)
	}
	return nil
}

// Delete removes an additional document requirement
func (r *AdditionalDocumentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM additional_documents WHERE id = ?`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete additional document requirement: %w", err)
	}
	return nil
}

func scanAdditionalDocument(s scanner) (*entity.ApplicationAdditionalDocument, error) {
	var req entity.ApplicationAdditionalDocument
	var instructions sql.NullString
	var uploadedAt sql.NullTime

	err := s.Scan(
		&req.ID,
		&req.ApplicationID,
		&req.Name,
		&instructions,
		&req.IsUploaded,
		&uploadedAt,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Instructions = instructions.String
	req.UploadedAt = nullableTime(uploadedAt)
	return &req, nil
}

// Verify interface compliance
var _ port.AdditionalDocumentRepository = (*AdditionalDocumentRepository)(nil)
