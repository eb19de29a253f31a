package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/policy"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
)

// UploadDocumentRequest carries one incoming document upload.
type UploadDocumentRequest struct {
	ApplicationID    int64
	Category         string
	FileName         string
	Content          []byte
	UploadedBy       string
	ParentDocumentID *int64
}

// DocumentService validates, stores, and tracks application documents, and
// feeds completeness back into the status machine.
type DocumentService struct {
	documentRepo   port.DocumentRepository
	additionalRepo port.AdditionalDocumentRepository
	activityRepo   port.ActivityRepository
	storage        port.FileStorage
	txManager      port.TransactionManager
	policy         *policy.DocumentRequirementPolicy
	machine        machine.Machine
	logger         *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	documentRepo port.DocumentRepository,
	additionalRepo port.AdditionalDocumentRepository,
	activityRepo port.ActivityRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	p *policy.DocumentRequirementPolicy,
	m machine.Machine,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documentRepo:   documentRepo,
		additionalRepo: additionalRepo,
		activityRepo:   activityRepo,
		storage:        storage,
		txManager:      txManager,
		policy:         p,
		machine:        m,
		logger:         logger,
	}
}

// Upload validates the declared category, stores the file, records the
// document row, and runs the completeness check.
func (s *DocumentService) Upload(ctx context.Context, req *UploadDocumentRequest) (*entity.ApplicationDocument, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("document content is empty")
	}

	if err := s.policy.ValidateCategory(ctx, req.ApplicationID, req.Category); err != nil {
		return nil, err
	}

	relPath := filepath.Join(
		"applications",
		strconv.FormatInt(req.ApplicationID, 10),
		req.Category,
		fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(req.FileName)),
	)
	if err := s.storage.Save(ctx, relPath, req.Content); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &entity.ApplicationDocument{
		ApplicationID:    req.ApplicationID,
		Category:         req.Category,
		FilePath:         relPath,
		OriginalName:     filepath.Base(req.FileName),
		ParentDocumentID: req.ParentDocumentID,
		UploadedBy:       req.UploadedBy,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Create(txCtx, doc); err != nil {
			return err
		}

		if id, ok := additionalRequirementID(req.Category); ok {
			if err := s.additionalRepo.MarkUploaded(txCtx, id, time.Now()); err != nil {
				return err
			}
		}

		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: req.ApplicationID,
			Action:        entity.ActionDocumentUploaded,
			Description:   fmt.Sprintf("Document uploaded for category %s", req.Category),
			Metadata:      doc.OriginalName,
		})
	})
	if err != nil {
		// Leave no orphan file behind when the rows did not commit.
		if delErr := s.storage.Delete(ctx, relPath); delErr != nil {
			s.logger.Warn("Failed to clean up stored file after error",
				zap.String("path", relPath),
				zap.Error(delErr))
		}
		return nil, err
	}

	// Completeness is evaluated after the upload commits; the machine decides
	// whether it drives a transition.
	if err := s.machine.HandleDocumentsComplete(ctx, req.ApplicationID); err != nil {
		s.logger.Error("Document completeness handling failed",
			zap.Int64("application_id", req.ApplicationID),
			zap.Error(err))
	}

	return doc, nil
}

// Delete removes a stored document and its file.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.documentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %d not found", id)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: doc.ApplicationID,
			Action:        entity.ActionDocumentDeleted,
			Description:   fmt.Sprintf("Document deleted from category %s", doc.Category),
			Metadata:      doc.OriginalName,
		})
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, doc.FilePath); err != nil {
		s.logger.Warn("Failed to delete document file",
			zap.String("path", doc.FilePath),
			zap.Error(err))
	}
	return nil
}

// List returns all documents for an application.
func (s *DocumentService) List(ctx context.Context, applicationID int64) ([]*entity.ApplicationDocument, error) {
	return s.documentRepo.ListByApplication(ctx, applicationID)
}

// ListAdditionalRequirements returns the ad-hoc requirements for an application.
func (s *DocumentService) ListAdditionalRequirements(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
	return s.additionalRepo.ListByApplication(ctx, applicationID)
}

// additionalRequirementID extracts the requirement id from a synthetic
// additional-document category.
func additionalRequirementID(category string) (int64, bool) {
	if !strings.HasPrefix(category, entity.AdditionalCategoryPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(category, entity.AdditionalCategoryPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
