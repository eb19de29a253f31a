package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// CreateApplicationRequest carries the staff-entered fields for a new
// onboarding case.
type CreateApplicationRequest struct {
	AccountID           int64
	CreatedByUserID     int64
	MerchantName        string
	ContactEmail        string
	SetupFeeCents       int64
	TransactionFeeBps   int
	MonthlyFeeCents     int64
	ScalingFeeBps       int
	ParentApplicationID *int64
}

// ApplicationDetails bundles an application with its pipeline state.
type ApplicationDetails struct {
	Application *entity.Application        `json:"application"`
	Status      *entity.ApplicationStatus  `json:"status"`
	History     []*entity.StepHistoryEntry `json:"history"`
	Progress    int                        `json:"progress"`
}

// ApplicationService manages the lifecycle of onboarding applications around
// the status machine.
type ApplicationService struct {
	appRepo        port.ApplicationRepository
	statusRepo     port.StatusRepository
	activityRepo   port.ActivityRepository
	additionalRepo port.AdditionalDocumentRepository
	documentRepo   port.DocumentRepository
	storage        port.FileStorage
	txManager      port.TransactionManager
	machine        machine.Machine
	logger         *zap.Logger
}

// NewApplicationService creates a new application service
func NewApplicationService(
	appRepo port.ApplicationRepository,
	statusRepo port.StatusRepository,
	activityRepo port.ActivityRepository,
	additionalRepo port.AdditionalDocumentRepository,
	documentRepo port.DocumentRepository,
	storage port.FileStorage,
	txManager port.TransactionManager,
	m machine.Machine,
	logger *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		appRepo:        appRepo,
		statusRepo:     statusRepo,
		activityRepo:   activityRepo,
		additionalRepo: additionalRepo,
		documentRepo:   documentRepo,
		storage:        storage,
		txManager:      txManager,
		machine:        m,
		logger:         logger,
	}
}

// Create opens a new application at the initial pipeline step.
func (s *ApplicationService) Create(ctx context.Context, req *CreateApplicationRequest) (*entity.Application, error) {
	if req.MerchantName == "" {
		return nil, fmt.Errorf("merchant name is required")
	}
	if req.AccountID == 0 {
		return nil, fmt.Errorf("account id is required")
	}

	app := &entity.Application{
		AccountID:           req.AccountID,
		CreatedByUserID:     req.CreatedByUserID,
		MerchantName:        req.MerchantName,
		ContactEmail:        req.ContactEmail,
		SetupFeeCents:       req.SetupFeeCents,
		TransactionFeeBps:   req.TransactionFeeBps,
		MonthlyFeeCents:     req.MonthlyFeeCents,
		ScalingFeeBps:       req.ScalingFeeBps,
		ParentApplicationID: req.ParentApplicationID,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.Create(txCtx, app); err != nil {
			return err
		}
		if err := s.statusRepo.Create(txCtx, &entity.ApplicationStatus{
			ApplicationID: app.ID,
			CurrentStep:   pipeline.StepCreated,
		}); err != nil {
			return err
		}
		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: app.ID,
			Action:        entity.ActionApplicationCreated,
			Description:   fmt.Sprintf("Application created for %s", app.MerchantName),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Application created",
		zap.Int64("application_id", app.ID),
		zap.String("merchant", app.MerchantName))
	return app, nil
}

// Get returns an application together with its pipeline state.
func (s *ApplicationService) Get(ctx context.Context, id int64) (*ApplicationDetails, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, fmt.Errorf("application %d not found", id)
	}

	status, err := s.machine.CurrentStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.machine.History(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ApplicationDetails{
		Application: app,
		Status:      status,
		History:     history,
		Progress:    s.machine.Progress(status.CurrentStep),
	}, nil
}

// List returns applications with pagination.
func (s *ApplicationService) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	return s.appRepo.List(ctx, limit, offset)
}

// Delete soft-deletes an application. Status history is retained.
func (s *ApplicationService) Delete(ctx context.Context, id int64) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.appRepo.SoftDelete(txCtx, id, time.Now()); err != nil {
			return err
		}
		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: id,
			Action:        entity.ActionApplicationDeleted,
			Description:   "Application deleted",
		})
	})
}

// RequestAdditionalDocument records an ad-hoc extra evidence requirement.
func (s *ApplicationService) RequestAdditionalDocument(ctx context.Context, applicationID int64, name, instructions string) (*entity.ApplicationAdditionalDocument, error) {
	if name == "" {
		return nil, fmt.Errorf("document name is required")
	}

	doc := &entity.ApplicationAdditionalDocument{
		ApplicationID: applicationID,
		Name:          name,
		Instructions:  instructions,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.additionalRepo.Create(txCtx, doc); err != nil {
			return err
		}
		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: applicationID,
			Action:        entity.ActionAdditionalDocAdded,
			Description:   fmt.Sprintf("Additional document requested: %s", name),
		})
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// RemoveAdditionalDocument deletes a requirement and any files already
// uploaded in its category.
func (s *ApplicationService) RemoveAdditionalDocument(ctx context.Context, id int64) error {
	req, err := s.additionalRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("additional document %d not found", id)
	}

	// Collect file paths before the rows go away.
	docs, err := s.documentRepo.ListByApplication(ctx, req.ApplicationID)
	if err != nil {
		return err
	}
	var orphaned []string
	for _, d := range docs {
		if d.Category == req.Category() {
			orphaned = append(orphaned, d.FilePath)
		}
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.documentRepo.DeleteByCategory(txCtx, req.ApplicationID, req.Category()); err != nil {
			return err
		}
		if err := s.additionalRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.activityRepo.Record(txCtx, &entity.ActivityEntry{
			ApplicationID: req.ApplicationID,
			Action:        entity.ActionAdditionalDocRemoved,
			Description:   fmt.Sprintf("Additional document requirement removed: %s", req.Name),
		})
	})
	if err != nil {
		return err
	}

	// File removal is best effort after the rows commit.
	for _, path := range orphaned {
		if err := s.storage.Delete(ctx, path); err != nil {
			s.logger.Warn("Failed to delete orphaned document file",
				zap.String("path", path),
				zap.Error(err))
		}
	}
	return nil
}
