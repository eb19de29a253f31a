package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/dispatcher"
	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/event"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// ContractInspector sanity-checks a contract document before it goes out for
// signature.
type ContractInspector interface {
	Inspect(pdf []byte) error
}

// EnvelopeCompleted is the provider status that means all signers finished.
const EnvelopeCompleted = "completed"

// EnvelopeSent is the provider status while signatures are outstanding.
const EnvelopeSent = "sent"

// ContractService owns the e-signature leg of the pipeline: sending
// contracts out and reacting to completed envelopes.
type ContractService struct {
	appRepo      port.ApplicationRepository
	statusRepo   port.StatusRepository
	activityRepo port.ActivityRepository
	esign        port.SignatureClient
	inspector    ContractInspector
	machine      machine.Machine
	dispatcher   dispatcher.Dispatcher
	logger       *zap.Logger
}

// NewContractService creates a new contract service
func NewContractService(
	appRepo port.ApplicationRepository,
	statusRepo port.StatusRepository,
	activityRepo port.ActivityRepository,
	esign port.SignatureClient,
	inspector ContractInspector,
	m machine.Machine,
	d dispatcher.Dispatcher,
	logger *zap.Logger,
) *ContractService {
	return &ContractService{
		appRepo:      appRepo,
		statusRepo:   statusRepo,
		activityRepo: activityRepo,
		esign:        esign,
		inspector:    inspector,
		machine:      m,
		dispatcher:   d,
		logger:       logger,
	}
}

// SendContract sends a contract PDF out for signature and records the
// envelope against the application. Sending again replaces the envelope; the
// pipeline step only moves on the first send.
func (s *ContractService) SendContract(ctx context.Context, applicationID int64, pdf []byte, signerName, signerEmail string) (*port.SignatureEnvelope, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, fmt.Errorf("application %d not found", applicationID)
	}

	if s.inspector != nil {
		if err := s.inspector.Inspect(pdf); err != nil {
			return nil, fmt.Errorf("contract rejected: %w", err)
		}
	}

	envelope, err := s.esign.SendForSignature(ctx, &port.SignatureRequest{
		ApplicationID: applicationID,
		MerchantName:  app.MerchantName,
		SignerEmail:   signerEmail,
		SignerName:    signerName,
		DocumentName:  fmt.Sprintf("Merchant Agreement - %s", app.MerchantName),
		DocumentPDF:   pdf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send contract for signature: %w", err)
	}

	if err := s.statusRepo.SetEnvelope(ctx, applicationID, envelope.EnvelopeID, EnvelopeSent); err != nil {
		return nil, err
	}

	status, err := s.machine.CurrentStatus(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if status.CurrentStep == pipeline.StepCreated || status.CurrentStep == pipeline.StepContractSent {
		notes := fmt.Sprintf("Contract sent for signature (envelope %s)", envelope.EnvelopeID)
		if err := s.machine.TransitionTo(ctx, applicationID, pipeline.StepContractSent, notes); err != nil {
			return nil, err
		}
	} else {
		// A replacement contract after the pipeline moved on: record it
		// without disturbing the step.
		if err := s.activityRepo.Record(ctx, &entity.ActivityEntry{
			ApplicationID: applicationID,
			Action:        entity.ActionContractResent,
			Description:   fmt.Sprintf("Replacement contract sent (envelope %s)", envelope.EnvelopeID),
		}); err != nil {
			s.logger.Error("Failed to record contract resend",
				zap.Int64("application_id", applicationID),
				zap.Error(err))
		}
	}

	s.logger.Info("Contract sent for signature",
		zap.Int64("application_id", applicationID),
		zap.String("envelope_id", envelope.EnvelopeID))
	return envelope, nil
}

// HandleSigningComplete maps a completed envelope back to its application and
// advances the pipeline. Invoked from the provider webhook and the fallback
// poller; safe to call more than once for the same envelope.
func (s *ContractService) HandleSigningComplete(ctx context.Context, envelopeID string) error {
	status, err := s.statusRepo.GetByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("no application for envelope %s", envelopeID)
	}

	if status.DocusignStatus == EnvelopeCompleted && !status.CurrentStep.Before(pipeline.StepContractSigned) {
		// Duplicate delivery of the same completion; nothing to do.
		return nil
	}

	if err := s.statusRepo.UpdateEnvelopeStatus(ctx, status.ApplicationID, EnvelopeCompleted); err != nil {
		return err
	}

	notes := fmt.Sprintf("Signature completed (envelope %s)", envelopeID)
	if err := s.machine.TransitionTo(ctx, status.ApplicationID, pipeline.StepContractSigned, notes); err != nil {
		return err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeContractSigned, status.ApplicationID, map[string]interface{}{
			"envelope_id": envelopeID,
		}))
	}
	return nil
}

// HandleEnvelopeTerminated records a declined or voided envelope. The
// pipeline step is left where it is; staff resolve terminated envelopes by
// sending a replacement contract.
func (s *ContractService) HandleEnvelopeTerminated(ctx context.Context, envelopeID, eventType string) error {
	status, err := s.statusRepo.GetByEnvelopeID(ctx, envelopeID)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("no application for envelope %s", envelopeID)
	}

	envelopeStatus := "declined"
	if eventType == "envelope.voided" {
		envelopeStatus = "voided"
	}

	if err := s.statusRepo.UpdateEnvelopeStatus(ctx, status.ApplicationID, envelopeStatus); err != nil {
		return err
	}

	if err := s.activityRepo.Record(ctx, &entity.ActivityEntry{
		ApplicationID: status.ApplicationID,
		Action:        entity.ActionContractSent,
		Description:   fmt.Sprintf("Envelope %s %s by signer", envelopeID, envelopeStatus),
	}); err != nil {
		s.logger.Error("Failed to record envelope termination",
			zap.Int64("application_id", status.ApplicationID),
			zap.Error(err))
	}

	s.logger.Warn("Signature envelope terminated",
		zap.Int64("application_id", status.ApplicationID),
		zap.String("envelope_id", envelopeID),
		zap.String("status", envelopeStatus))
	return nil
}
