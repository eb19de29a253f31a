package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/domain/entity"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

type mockAdditionalRepo struct {
	listFunc func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error)
}

func (m *mockAdditionalRepo) Create(ctx context.Context, doc *entity.ApplicationAdditionalDocument) error {
	return nil
}

func (m *mockAdditionalRepo) GetByID(ctx context.Context, id int64) (*entity.ApplicationAdditionalDocument, error) {
	return &entity.ApplicationAdditionalDocument{ID: id}, nil
}

func (m *mockAdditionalRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, applicationID)
	}
	return nil, nil
}

func (m *mockAdditionalRepo) MarkUploaded(ctx context.Context, id int64, at time.Time) error {
	return nil
}

func (m *mockAdditionalRepo) Delete(ctx context.Context, id int64) error { return nil }

type mockDocumentRepo struct {
	existing map[string]bool
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *entity.ApplicationDocument) error {
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id int64) (*entity.ApplicationDocument, error) {
	return &entity.ApplicationDocument{ID: id}, nil
}

func (m *mockDocumentRepo) ListByApplication(ctx context.Context, applicationID int64) ([]*entity.ApplicationDocument, error) {
	return nil, nil
}

func (m *mockDocumentRepo) ExistsForCategory(ctx context.Context, applicationID int64, category string) (bool, error) {
	return m.existing[category], nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id int64) error { return nil }

func (m *mockDocumentRepo) DeleteByCategory(ctx context.Context, applicationID int64, category string) error {
	return nil
}

var baseCategories = []string{"business_registration", "bank_statement", "director_id"}

func newTestPolicy(additional *mockAdditionalRepo, documents *mockDocumentRepo) *DocumentRequirementPolicy {
	if additional == nil {
		additional = &mockAdditionalRepo{}
	}
	if documents == nil {
		documents = &mockDocumentRepo{}
	}
	return NewDocumentRequirementPolicy(baseCategories, additional, documents, zap.NewNop())
}

func TestValidCategories_IncludesAdditionalRequirements(t *testing.T) {
	additional := &mockAdditionalRepo{
		listFunc: func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
			return []*entity.ApplicationAdditionalDocument{
				{ID: 3, ApplicationID: applicationID, Name: "Utility bill"},
				{ID: 9, ApplicationID: applicationID, Name: "Lease agreement"},
			}, nil
		},
	}
	p := newTestPolicy(additional, nil)

	categories, err := p.ValidCategories(context.Background(), 1)
	if err != nil {
		t.Fatalf("ValidCategories() error = %v", err)
	}

	want := append(append([]string{}, baseCategories...), "additional_requested_3", "additional_requested_9")
	if len(categories) != len(want) {
		t.Fatalf("ValidCategories() = %v, want %v", categories, want)
	}
	for i := range want {
		if categories[i] != want[i] {
			t.Errorf("categories[%d] = %q, want %q", i, categories[i], want[i])
		}
	}
}

func TestValidateCategory(t *testing.T) {
	additional := &mockAdditionalRepo{
		listFunc: func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
			return []*entity.ApplicationAdditionalDocument{{ID: 5}}, nil
		},
	}
	p := newTestPolicy(additional, nil)

	tests := []struct {
		name     string
		category string
		wantErr  bool
	}{
		{name: "base category", category: "bank_statement", wantErr: false},
		{name: "additional requirement category", category: "additional_requested_5", wantErr: false},
		{name: "unknown category", category: "tax_return", wantErr: true},
		{name: "additional requirement for another application", category: "additional_requested_99", wantErr: true},
		{name: "empty category", category: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidateCategory(context.Background(), 1, tt.category)

			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCategory(%q) error = %v, wantErr %v", tt.category, err, tt.wantErr)
			}
			if tt.wantErr && err != nil && !errors.Is(err, pipeline.ErrInvalidCategory) {
				t.Errorf("ValidateCategory(%q) error = %v, want ErrInvalidCategory", tt.category, err)
			}
		})
	}
}

func TestHasAllRequiredDocuments(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]bool
		want     bool
	}{
		{
			name: "every base category present",
			existing: map[string]bool{
				"business_registration": true,
				"bank_statement":        true,
				"director_id":           true,
			},
			want: true,
		},
		{
			name: "one base category missing",
			existing: map[string]bool{
				"business_registration": true,
				"director_id":           true,
			},
			want: false,
		},
		{
			name:     "no documents at all",
			existing: map[string]bool{},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPolicy(nil, &mockDocumentRepo{existing: tt.existing})

			got, err := p.HasAllRequiredDocuments(context.Background(), 1)
			if err != nil {
				t.Fatalf("HasAllRequiredDocuments() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasAllRequiredDocuments() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasAllRequiredDocuments_TracksUploadsAndDeletes(t *testing.T) {
	documents := &mockDocumentRepo{existing: map[string]bool{
		"business_registration": true,
		"bank_statement":        true,
	}}
	p := newTestPolicy(nil, documents)

	got, err := p.HasAllRequiredDocuments(context.Background(), 1)
	if err != nil {
		t.Fatalf("HasAllRequiredDocuments() error = %v", err)
	}
	if got {
		t.Fatalf("HasAllRequiredDocuments() = true before director_id uploaded")
	}

	documents.existing["director_id"] = true
	got, err = p.HasAllRequiredDocuments(context.Background(), 1)
	if err != nil {
		t.Fatalf("HasAllRequiredDocuments() error = %v", err)
	}
	if !got {
		t.Fatalf("HasAllRequiredDocuments() = false after final category uploaded")
	}

	documents.existing["director_id"] = false
	got, err = p.HasAllRequiredDocuments(context.Background(), 1)
	if err != nil {
		t.Fatalf("HasAllRequiredDocuments() error = %v", err)
	}
	if got {
		t.Errorf("HasAllRequiredDocuments() = true after the last director_id document was deleted")
	}
}

func TestHasAllRequiredDocuments_IgnoresAdditionalRequirements(t *testing.T) {
	// An unfulfilled additional requirement must not block base completeness.
	additional := &mockAdditionalRepo{
		listFunc: func(ctx context.Context, applicationID int64) ([]*entity.ApplicationAdditionalDocument, error) {
			return []*entity.ApplicationAdditionalDocument{{ID: 4, IsUploaded: false}}, nil
		},
	}
	documents := &mockDocumentRepo{existing: map[string]bool{
		"business_registration": true,
		"bank_statement":        true,
		"director_id":           true,
	}}
	p := newTestPolicy(additional, documents)

	got, err := p.HasAllRequiredDocuments(context.Background(), 1)
	if err != nil {
		t.Fatalf("HasAllRequiredDocuments() error = %v", err)
	}
	if !got {
		t.Errorf("HasAllRequiredDocuments() = false, additional requirements must not count")
	}
}
