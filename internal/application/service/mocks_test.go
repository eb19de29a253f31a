package service

import (
	"context"
	"sync"
	"time"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// Mock repositories shared by the service tests.

type mockAppRepo struct {
	createFunc  func(ctx context.Context, app *entity.Application) error
	getByIDFunc func(ctx context.Context, id int64) (*entity.Application, error)
	deleted     []int64
}

func (m *mockAppRepo) Create(ctx context.Context, app *entity.Application) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, app)
	}
	app.ID = 1
	return nil
}

func (m *mockAppRepo) GetByID(ctx context.Context, id int64) (*entity.Application, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Application{ID: id, AccountID: 10, MerchantName: "Acme Stores"}, nil
}

func (m *mockAppRepo) List(ctx context.Context, limit, offset int) ([]*entity.Application, error) {
	return nil, nil
}

func (m *mockAppRepo) Update(ctx context.Context, app *entity.Application) error { return nil }

func (m *mockAppRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStatusRepo struct {
	getByAppIDFunc    func(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error)
	getByEnvelopeFunc func(ctx context.Context, envelopeID string) (*entity.ApplicationStatus, error)
	envelopes         map[int64]string
	envelopeStatuses  map[int64]string
	createdStatuses   []*entity.ApplicationStatus
}

func (m *mockStatusRepo) Create(ctx context.Context, status *entity.ApplicationStatus) error {
	m.createdStatuses = append(m.createdStatuses, status)
	return nil
}

func (m *mockStatusRepo) GetByApplicationID(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error) {
	if m.getByAppIDFunc != nil {
		return m.getByAppIDFunc(ctx, applicationID)
	}
	return &entity.ApplicationStatus{ApplicationID: applicationID, CurrentStep: pipeline.StepCreated, Version: 1}, nil
}

func (m *mockStatusRepo) GetByEnvelopeID(ctx context.Context, envelopeID string) (*entity.ApplicationStatus, error) {
	if m.getByEnvelopeFunc != nil {
		return m.getByEnvelopeFunc(ctx, envelopeID)
	}
	return nil, nil
}

func (m *mockStatusRepo) Update(ctx context.Context, status *entity.ApplicationStatus) error {
	return nil
}

func (m *mockStatusRepo) SetEnvelope(ctx context.Context, applicationID int64, envelopeID, envelopeStatus string) error {
	if m.envelopes == nil {
		m.envelopes = make(map[int64]string)
	}
	m.envelopes[applicationID] = envelopeID
	return nil
}

func (m *mockStatusRepo) UpdateEnvelopeStatus(ctx context.Context, applicationID int64, envelopeStatus string) error {
	if m.envelopeStatuses == nil {
		m.envelopeStatuses = make(map[int64]string)
	}
	m.envelopeStatuses[applicationID] = envelopeStatus
	return nil
}

func (m *mockStatusRepo) ListByEnvelopeStatus(ctx context.Context, envelopeStatus string, limit int) ([]*entity.ApplicationStatus, error) {
	return nil, nil
}

func (m *mockStatusRepo) AppendHistory(ctx context.Context, entry *entity.StepHistoryEntry) error {
	return nil
}

func (m *mockStatusRepo) GetHistory(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error) {
	return nil, nil
}

type mockActivityRepo struct {
	mu      sync.Mutex
	records []*entity.ActivityEntry
}

func (m *mockActivityRepo) Record(ctx context.Context, entry *entity.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, entry)
	return nil
}

func (m *mockActivityRepo) ListByApplication(ctx context.Context, applicationID int64, limit, offset int) ([]*entity.ActivityEntry, error) {
	return nil, nil
}

func (m *mockActivityRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Action)
	}
	return out
}

type mockDocRepo struct {
	createFunc  func(ctx context.Context, doc *entity.ApplicationDocument) error
	getByIDFunc func(ctx context.Context, id int64) (*entity.ApplicationDocument, error)
	existing    map[string]bool
	created     []*entity.ApplicationDocument
	deletedIDs  []int64
}

func (m *mockDocRepo) Create(ctx context.Context, doc *entity.ApplicationDocument) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	doc.ID = int64(len(m.created) + 1)
	m.created = append(m.created, doc)
	return nil
}

func (m *mockDocRepo) GetByID(ctx context.Context, id int64) (*entity.ApplicationDocument, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.ApplicationDocument{ID: id, ApplicationID: 1, Category: "bank_statement", FilePath: "applications/1/bank_statement/a.pdf"}, nil
}

func (m *mockDocRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationDocument, error) {
	return m.created, nil
}

func (m *mockDocRepo) ExistsForCategory(ctx context.Context, applicationID int64, category string) (bool, error) {
	return m.existing[category], nil
}

func (m *mockDocRepo) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockDocRepo) DeleteByCategory(ctx context.Context, applicationID int64, category string) error {
	return nil
}

type mockAdditionalRepo struct {
	listFunc    func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error)
	getByIDFunc func(ctx context.Context, id int64) (*entity.ApplicationAdditionalDocument, error)
	created     []*entity.ApplicationAdditionalDocument
	uploaded    []int64
	deletedIDs  []int64
}

func (m *mockAdditionalRepo) Create(ctx context.Context, doc *entity.ApplicationAdditionalDocument) error {
	doc.ID = int64(len(m.created) + 1)
	m.created = append(m.created, doc)
	return nil
}

func (m *mockAdditionalRepo) GetByID(ctx context.Context, id int64) (*entity.ApplicationAdditionalDocument, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.ApplicationAdditionalDocument{ID: id, ApplicationID: 1, Name: "Utility bill"}, nil
}

func (m *mockAdditionalRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, applicationID)
	}
	return m.created, nil
}

func (m *mockAdditionalRepo) MarkUploaded(ctx context.Context, id int64, at time.Time) error {
	m.uploaded = append(m.uploaded, id)
	return nil
}

func (m *mockAdditionalRepo) Delete(ctx context.Context, id int64) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type mockStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: make(map[string][]byte)}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[path], nil
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *mockStorage) GetFullPath(path string) string { return "/tmp/" + path }

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockMachine records the transitions requested of it.
type mockMachine struct {
	mu                sync.Mutex
	transitions       []pipeline.Step
	transitionErr     error
	currentStatusFunc func(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error)
	completeCalls     int
}

func (m *mockMachine) TransitionTo(ctx context.Context, applicationID int64, step pipeline.Step, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitionErr != nil {
		return m.transitionErr
	}
	m.transitions = append(m.transitions, step)
	return nil
}

func (m *mockMachine) Progress(step pipeline.Step) int { return pipeline.Progress(step) }

func (m *mockMachine) CurrentStatus(ctx context.Context, applicationID int64) (*entity.ApplicationStatus, error) {
	if m.currentStatusFunc != nil {
		return m.currentStatusFunc(ctx, applicationID)
	}
	return &entity.ApplicationStatus{ApplicationID: applicationID, CurrentStep: pipeline.StepCreated, Version: 1}, nil
}

func (m *mockMachine) History(ctx context.Context, applicationID int64) ([]*entity.StepHistoryEntry, error) {
	return nil, nil
}

func (m *mockMachine) HasAllRequiredDocuments(ctx context.Context, applicationID int64) (bool, error) {
	return false, nil
}

func (m *mockMachine) HandleDocumentsComplete(ctx context.Context, applicationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls++
	return nil
}

func (m *mockMachine) ConfirmFees(ctx context.Context, applicationID int64) error { return nil }

func (m *mockMachine) SetAdditionalInfo(ctx context.Context, applicationID int64, required bool, notes string) error {
	return nil
}

func (m *mockMachine) lastTransition() (pipeline.Step, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transitions) == 0 {
		return "", false
	}
	return m.transitions[len(m.transitions)-1], true
}

type mockSignatureClient struct {
	sendFunc   func(ctx context.Context, req *port.SignatureRequest) (*port.SignatureEnvelope, error)
	statusFunc func(ctx context.Context, envelopeID string) (string, error)
}

func (m *mockSignatureClient) SendForSignature(ctx context.Context, req *port.SignatureRequest) (*port.SignatureEnvelope, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, req)
	}
	return &port.SignatureEnvelope{EnvelopeID: "env-1", Status: EnvelopeSent}, nil
}

func (m *mockSignatureClient) GetEnvelopeStatus(ctx context.Context, envelopeID string) (string, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, envelopeID)
	}
	return EnvelopeSent, nil
}

type mockInspector struct {
	err error
}

func (m *mockInspector) Inspect(pdf []byte) error { return m.err }
