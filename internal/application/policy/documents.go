// Package policy computes the document requirements an application must
// satisfy before it can progress past the upload stage.
package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/merchantflow/onboarding/internal/application/port"
	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

// DocumentRequirementPolicy resolves the valid document categories for an
// application and whether the required set is satisfied.
type DocumentRequirementPolicy struct {
	baseCategories []string
	additionalRepo port.AdditionalDocumentRepository
	documentRepo   port.DocumentRepository
	logger         *zap.Logger
}

// NewDocumentRequirementPolicy creates a policy over the configured base
// categories. The base list is deployment configuration, not code.
func NewDocumentRequirementPolicy(
	baseCategories []string,
	additionalRepo port.AdditionalDocumentRepository,
	documentRepo port.DocumentRepository,
	logger *zap.Logger,
) *DocumentRequirementPolicy {
	return &DocumentRequirementPolicy{
		baseCategories: baseCategories,
		additionalRepo: additionalRepo,
		documentRepo:   documentRepo,
		logger:         logger,
	}
}

// BaseCategories returns the fixed required category keys.
func (p *DocumentRequirementPolicy) BaseCategories() []string {
	out := make([]string, len(p.baseCategories))
	copy(out, p.baseCategories)
	return out
}

// ValidCategories returns the base categories plus one synthetic category per
// live additional-document requirement.
func (p *DocumentRequirementPolicy) ValidCategories(ctx context.Context, applicationID int64) ([]string, error) {
	categories := p.BaseCategories()

	additional, err := p.additionalRepo.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list additional documents: %w", err)
	}
	for _, req := range additional {
		categories = append(categories, req.Category())
	}

	return categories, nil
}

// ValidateCategory rejects an upload's declared category unless it is in the
// application's valid set.
func (p *DocumentRequirementPolicy) ValidateCategory(ctx context.Context, applicationID int64, category string) error {
	valid, err := p.ValidCategories(ctx, applicationID)
	if err != nil {
		return err
	}
	for _, c := range valid {
		if c == category {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", pipeline.ErrInvalidCategory, category)
}

// HasAllRequiredDocuments reports whether every base category has at least
// one stored document. Additional-document requirements are tracked through
// their own uploaded flag and deliberately excluded here. An empty base set
// is trivially satisfied; configuration validation keeps deployments from
// reaching that state by accident.
func (p *DocumentRequirementPolicy) HasAllRequiredDocuments(ctx context.Context, applicationID int64) (bool, error) {
	for _, category := range p.baseCategories {
		exists, err := p.documentRepo.ExistsForCategory(ctx, applicationID, category)
		if err != nil {
			return false, fmt.Errorf("failed to check category %q: %w", category, err)
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}
