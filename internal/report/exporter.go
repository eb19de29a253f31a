package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// Exporter writes a pipeline overview workbook: one row per application
// with its current step, progress, and step timestamps.
type Exporter struct {
	appRepo    port.ApplicationRepository
	statusRepo port.StatusRepository
	logger     *zap.Logger
}

// NewExporter creates a new report exporter
func NewExporter(appRepo port.ApplicationRepository, statusRepo port.StatusRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		appRepo:    appRepo,
		statusRepo: statusRepo,
		logger:     logger,
	}
}

const reportSheet = "Pipeline"

var headerRow = []string{
	"Application ID", "Merchant", "Contact Email", "Current Step", "Progress %",
	"Fees Confirmed", "Contract Sent", "Documents Uploaded", "Contract Signed",
	"Contract Submitted", "Approved", "Invoice Sent", "Invoice Paid",
	"Gateway Integrated", "Account Live",
}

// Export writes the pipeline workbook to outputPath
func (e *Exporter) Export(ctx context.Context, outputPath string) error {
	const batchSize = 200

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	for col, title := range headerRow {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(reportSheet, cell, title); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := 2
	for offset := 0; ; offset += batchSize {
		apps, err := e.appRepo.List(ctx, batchSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		if len(apps) == 0 {
			break
		}

		for _, app := range apps {
			status, err := e.statusRepo.GetByApplicationID(ctx, app.ID)
			if err != nil {
				return fmt.Errorf("failed to load status for application %d: %w", app.ID, err)
			}
			if status == nil {
				e.logger.Warn("Application has no status row, skipping",
					zap.Int64("application_id", app.ID))
				continue
			}

			values := []interface{}{
				app.ID,
				app.MerchantName,
				app.ContactEmail,
				status.CurrentStep.String(),
				pipeline.Progress(status.CurrentStep),
				formatTime(status.FeesConfirmedAt),
				formatTime(status.ContractSentAt),
				formatTime(status.DocumentsUploadedAt),
				formatTime(status.ContractSignedAt),
				formatTime(status.ContractSubmittedAt),
				formatTime(status.ApplicationApprovedAt),
				formatTime(status.InvoiceSentAt),
				formatTime(status.InvoicePaidAt),
				formatTime(status.GatewayIntegratedAt),
				formatTime(status.AccountLiveAt),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(reportSheet, cell, v); err != nil {
					return fmt.Errorf("failed to write row %d: %w", row, err)
				}
			}
			row++
		}

		if len(apps) < batchSize {
			break
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	e.logger.Info("Pipeline report exported",
		zap.String("path", outputPath),
		zap.Int("applications", row-2))
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
