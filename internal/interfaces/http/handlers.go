package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/merchantflow/onboarding/internal/application/machine"
	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/application/service"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
	"github.com/merchantflow/onboarding/internal/report"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	applications *service.ApplicationService
	documents    *service.DocumentService
	contracts    *service.ContractService
	machine      machine.Machine
	activityRepo port.ActivityRepository
	exporter     *report.Exporter
	reportDir    string
	logger       Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	applications *service.ApplicationService,
	documents *service.DocumentService,
	contracts *service.ContractService,
	m machine.Machine,
	activityRepo port.ActivityRepository,
	exporter *report.Exporter,
	reportDir string,
	logger Logger,
) *Handlers {
	return &Handlers{
		applications: applications,
		documents:    documents,
		contracts:    contracts,
		machine:      m,
		activityRepo: activityRepo,
		exporter:     exporter,
		reportDir:    reportDir,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateApplicationRequest is the JSON body for POST /api/applications
type CreateApplicationRequest struct {
	AccountID           int64  `json:"account_id" binding:"required"`
	CreatedByUserID     int64  `json:"created_by_user_id" binding:"required"`
	MerchantName        string `json:"merchant_name" binding:"required"`
	ContactEmail        string `json:"contact_email"`
	SetupFeeCents       int64  `json:"setup_fee_cents"`
	TransactionFeeBps   int    `json:"transaction_fee_bps"`
	MonthlyFeeCents     int64  `json:"monthly_fee_cents"`
	ScalingFeeBps       int    `json:"scaling_fee_bps"`
	ParentApplicationID *int64 `json:"parent_application_id"`
}

// CreateApplication handles POST /api/applications
func (h *Handlers) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	app, err := h.applications.Create(c.Request.Context(), &service.CreateApplicationRequest{
		AccountID:           req.AccountID,
		CreatedByUserID:     req.CreatedByUserID,
		MerchantName:        req.MerchantName,
		ContactEmail:        req.ContactEmail,
		SetupFeeCents:       req.SetupFeeCents,
		TransactionFeeBps:   req.TransactionFeeBps,
		MonthlyFeeCents:     req.MonthlyFeeCents,
		ScalingFeeBps:       req.ScalingFeeBps,
		ParentApplicationID: req.ParentApplicationID,
	})
	if err != nil {
		h.logger.Error("Failed to create application", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create application"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: app})
}

// ListApplications handles GET /api/applications
func (h *Handlers) ListApplications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	apps, err := h.applications.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list applications", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list applications"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: apps})
}

// GetApplication handles GET /api/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	details, err := h.applications.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get application", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get application"})
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "application not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: details})
}

// DeleteApplication handles DELETE /api/applications/:id
func (h *Handlers) DeleteApplication(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.applications.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete application", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete application"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// TransitionRequest is the JSON body for POST /api/applications/:id/transition
type TransitionRequest struct {
	Step  string `json:"step" binding:"required"`
	Notes string `json:"notes"`
}

// Transition handles POST /api/applications/:id/transition
func (h *Handlers) Transition(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	err := h.machine.TransitionTo(c.Request.Context(), id, pipeline.Step(req.Step), req.Notes)
	if err != nil {
		h.respondMachineError(c, id, err)
		return
	}

	status, err := h.machine.CurrentStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusOK, Response{Success: true})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"current_step": status.CurrentStep,
		"progress":     h.machine.Progress(status.CurrentStep),
	}})
}

// GetHistory handles GET /api/applications/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	history, err := h.machine.History(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get history", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get history"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// GetActivity handles GET /api/applications/:id/activity
func (h *Handlers) GetActivity(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := h.activityRepo.ListByApplication(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get activity", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get activity"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// AdditionalInfoRequest is the JSON body for POST /api/applications/:id/additional-info
type AdditionalInfoRequest struct {
	Required bool   `json:"required"`
	Notes    string `json:"notes"`
}

// SetAdditionalInfo handles POST /api/applications/:id/additional-info
func (h *Handlers) SetAdditionalInfo(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req AdditionalInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	if err := h.machine.SetAdditionalInfo(c.Request.Context(), id, req.Required, req.Notes); err != nil {
		h.respondMachineError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ConfirmFees handles POST /portal/applications/:id/confirm-fees
func (h *Handlers) ConfirmFees(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.machine.ConfirmFees(c.Request.Context(), id); err != nil {
		h.respondMachineError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// GetPortalStatus handles GET /portal/applications/:id/status
func (h *Handlers) GetPortalStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	status, err := h.machine.CurrentStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to get status"})
		return
	}
	if status == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "application not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"current_step":             status.CurrentStep,
		"progress":                 h.machine.Progress(status.CurrentStep),
		"requires_additional_info": status.RequiresAdditionalInfo,
		"additional_info_notes":    status.AdditionalInfoNotes,
		"fees_confirmed":           status.FeesConfirmedAt != nil,
	}})
}

// ListDocuments handles GET /api/applications/:id/documents
func (h *Handlers) ListDocuments(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	docs, err := h.documents.List(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: docs})
}

// UploadDocument handles POST /api/applications/:id/documents (multipart)
func (h *Handlers) UploadDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	category := c.PostForm("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "category is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to open file"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read file"})
		return
	}

	var parentID *int64
	if raw := c.PostForm("parent_document_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid parent_document_id"})
			return
		}
		parentID = &v
	}

	doc, err := h.documents.Upload(c.Request.Context(), &service.UploadDocumentRequest{
		ApplicationID:    id,
		Category:         category,
		FileName:         filepath.Base(fileHeader.Filename),
		Content:          content,
		UploadedBy:       c.PostForm("uploaded_by"),
		ParentDocumentID: parentID,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidCategory) {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to upload document", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to upload document"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete document", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to delete document"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ListAdditionalDocuments handles GET /api/applications/:id/additional-documents
func (h *Handlers) ListAdditionalDocuments(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	reqs, err := h.documents.ListAdditionalRequirements(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list additional documents"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: reqs})
}

// AdditionalDocumentRequest is the JSON body for requesting extra evidence
type AdditionalDocumentRequest struct {
	Name         string `json:"name" binding:"required"`
	Instructions string `json:"instructions"`
}

// RequestAdditionalDocument handles POST /api/applications/:id/additional-documents
func (h *Handlers) RequestAdditionalDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req AdditionalDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	doc, err := h.applications.RequestAdditionalDocument(c.Request.Context(), id, req.Name, req.Instructions)
	if err != nil {
		h.logger.Error("Failed to request additional document", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create additional document requirement"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// RemoveAdditionalDocument handles DELETE /api/additional-documents/:id
func (h *Handlers) RemoveAdditionalDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.applications.RemoveAdditionalDocument(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to remove additional document", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to remove additional document"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// SendContract handles POST /api/applications/:id/contract (multipart)
func (h *Handlers) SendContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	signerName := c.PostForm("signer_name")
	signerEmail := c.PostForm("signer_email")
	if signerEmail == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "signer_email is required"})
		return
	}

	fileHeader, err := c.FormFile("contract")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "contract file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to open contract"})
		return
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read contract"})
		return
	}

	envelope, err := h.contracts.SendContract(c.Request.Context(), id, pdf, signerName, signerEmail)
	if err != nil {
		h.logger.Error("Failed to send contract", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to send contract"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: envelope})
}

// ExportPipelineReport handles POST /api/reports/pipeline
func (h *Handlers) ExportPipelineReport(c *gin.Context) {
	fileName := fmt.Sprintf("pipeline_%s.xlsx", time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(h.reportDir, fileName)

	if err := h.exporter.Export(c.Request.Context(), outputPath); err != nil {
		h.logger.Error("Failed to export report", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to export report"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"path": outputPath}})
}

// pathID parses the :id path parameter
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// respondMachineError maps status machine errors to HTTP codes
func (h *Handlers) respondMachineError(c *gin.Context, id int64, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidStep), errors.Is(err, pipeline.ErrNotesTooLong):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, pipeline.ErrBackwardTransition):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, pipeline.ErrConcurrentModification):
		c.JSON(http.StatusConflict, Response{Success: false, Error: "application was modified concurrently, retry"})
	default:
		h.logger.Error("Status machine operation failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "operation failed"})
	}
}
