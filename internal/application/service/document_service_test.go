package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/policy"
	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

var testCategories = []string{"business_registration", "bank_statement", "director_id"}

type documentFixture struct {
	docRepo        *mockDocRepo
	additionalRepo *mockAdditionalRepo
	activityRepo   *mockActivityRepo
	storage        *mockStorage
	machine        *mockMachine
	txManager      *mockTxManager
	service        *DocumentService
}

func newDocumentFixture() *documentFixture {
	docRepo := &mockDocRepo{existing: map[string]bool{}}
	additionalRepo := &mockAdditionalRepo{}
	activityRepo := &mockActivityRepo{}
	storage := newMockStorage()
	m := &mockMachine{}
	tx := &mockTxManager{}

	p := policy.NewDocumentRequirementPolicy(testCategories, additionalRepo, docRepo, zap.NewNop())

	return &documentFixture{
		docRepo:        docRepo,
		additionalRepo: additionalRepo,
		activityRepo:   activityRepo,
		storage:        storage,
		machine:        m,
		txManager:      tx,
		service: NewDocumentService(
			docRepo, additionalRepo, activityRepo, storage, tx, p, m, zap.NewNop(),
		),
	}
}

func TestDocumentService_Upload(t *testing.T) {
	f := newDocumentFixture()

	doc, err := f.service.Upload(context.Background(), &UploadDocumentRequest{
		ApplicationID: 1,
		Category:      "bank_statement",
		FileName:      "statement.pdf",
		Content:       []byte("%PDF-1.7"),
		UploadedBy:    "merchant",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.Category != "bank_statement" {
		t.Errorf("doc.Category = %q", doc.Category)
	}
	if doc.OriginalName != "statement.pdf" {
		t.Errorf("doc.OriginalName = %q", doc.OriginalName)
	}
	if f.storage.count() != 1 {
		t.Errorf("stored files = %d, want 1", f.storage.count())
	}
	if len(f.docRepo.created) != 1 {
		t.Errorf("documents created = %d, want 1", len(f.docRepo.created))
	}

	actions := f.activityRepo.actions()
	if len(actions) != 1 || actions[0] != entity.ActionDocumentUploaded {
		t.Errorf("activity actions = %v", actions)
	}

	if f.machine.completeCalls != 1 {
		t.Errorf("completeness checks = %d, want 1", f.machine.completeCalls)
	}
}

func TestDocumentService_Upload_RejectsUnknownCategory(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.service.Upload(context.Background(), &UploadDocumentRequest{
		ApplicationID: 1,
		Category:      "tax_return",
		FileName:      "return.pdf",
		Content:       []byte("%PDF-1.7"),
	})
	if !errors.Is(err, pipeline.ErrInvalidCategory) {
		t.Fatalf("Upload() error = %v, want ErrInvalidCategory", err)
	}

	if f.storage.count() != 0 {
		t.Errorf("stored files = %d after rejected upload, want 0", f.storage.count())
	}
	if f.machine.completeCalls != 0 {
		t.Errorf("completeness checked after rejected upload")
	}
}

func TestDocumentService_Upload_RejectsEmptyContent(t *testing.T) {
	f := newDocumentFixture()

	_, err := f.service.Upload(context.Background(), &UploadDocumentRequest{
		ApplicationID: 1,
		Category:      "bank_statement",
		FileName:      "empty.pdf",
	})
	if err == nil {
		t.Fatal("Upload() accepted empty content")
	}
}

func TestDocumentService_Upload_MarksAdditionalRequirement(t *testing.T) {
	f := newDocumentFixture()
	f.additionalRepo.listFunc = func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
		return []*entity.ApplicationAdditionalDocument{{ID: 7, ApplicationID: applicationID, Name: "Utility bill"}}, nil
	}

	_, err := f.service.Upload(context.Background(), &UploadDocumentRequest{
		ApplicationID: 1,
		Category:      "additional_requested_7",
		FileName:      "bill.pdf",
		Content:       []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(f.additionalRepo.uploaded) != 1 || f.additionalRepo.uploaded[0] != 7 {
		t.Errorf("MarkUploaded calls = %v, want [7]", f.additionalRepo.uploaded)
	}
}

func TestDocumentService_Upload_CleansUpFileOnFailure(t *testing.T) {
	f := newDocumentFixture()
	f.docRepo.createFunc = func(ctx context.Context, doc *entity.ApplicationDocument) error {
		return errors.New("insert failed")
	}

	_, err := f.service.Upload(context.Background(), &UploadDocumentRequest{
		ApplicationID: 1,
		Category:      "director_id",
		FileName:      "passport.pdf",
		Content:       []byte("%PDF-1.7"),
	})
	if err == nil {
		t.Fatal("Upload() succeeded despite insert failure")
	}

	if f.storage.count() != 0 {
		t.Errorf("stored files = %d after failed upload, want 0", f.storage.count())
	}
}

func TestDocumentService_Delete(t *testing.T) {
	f := newDocumentFixture()
	f.storage.files["applications/1/bank_statement/a.pdf"] = []byte("%PDF-1.7")

	if err := f.service.Delete(context.Background(), 4); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(f.docRepo.deletedIDs) != 1 || f.docRepo.deletedIDs[0] != 4 {
		t.Errorf("deleted ids = %v, want [4]", f.docRepo.deletedIDs)
	}
	if f.storage.count() != 0 {
		t.Errorf("file not removed from storage")
	}

	actions := f.activityRepo.actions()
	if len(actions) != 1 || actions[0] != entity.ActionDocumentDeleted {
		t.Errorf("activity actions = %v", actions)
	}
}

func TestDocumentService_Delete_MissingDocument(t *testing.T) {
	f := newDocumentFixture()
	f.docRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.ApplicationDocument, error) {
		return nil, nil
	}

	if err := f.service.Delete(context.Background(), 99); err == nil {
		t.Fatal("Delete() succeeded for a missing document")
	}
}
