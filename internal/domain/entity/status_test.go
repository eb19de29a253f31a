package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/merchantflow/onboarding/internal/domain/pipeline"
)

func TestApplicationStatus_MarkStepEntered(t *testing.T) {
	status := &ApplicationStatus{ApplicationID: 1, CurrentStep: pipeline.StepCreated}
	first := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	later := first.Add(72 * time.Hour)

	assert.True(t, status.MarkStepEntered(pipeline.StepContractSent, first))
	assert.NotNil(t, status.ContractSentAt)
	assert.True(t, status.ContractSentAt.Equal(first))

	// Repeated entry never overwrites the first timestamp.
	assert.False(t, status.MarkStepEntered(pipeline.StepContractSent, later))
	assert.True(t, status.ContractSentAt.Equal(first))

	// Steps without a timestamp column report no write.
	assert.False(t, status.MarkStepEntered(pipeline.StepCreated, first))
	assert.False(t, status.MarkStepEntered(pipeline.StepDocumentsApproved, first))
}

func TestApplicationStatus_StepTimestampSlots(t *testing.T) {
	status := &ApplicationStatus{}
	now := time.Now()

	for _, s := range pipeline.Steps() {
		_, hasColumn := pipeline.TimestampColumn(s)
		slot := status.StepTimestamp(s)
		if hasColumn {
			assert.NotNil(t, slot, "step %s", s)
		} else {
			assert.Nil(t, slot, "step %s", s)
		}
	}

	status.MarkStepEntered(pipeline.StepAccountLive, now)
	assert.NotNil(t, status.AccountLiveAt)
}

func TestAdditionalDocument_Category(t *testing.T) {
	doc := &ApplicationAdditionalDocument{ID: 7, ApplicationID: 1, Name: "Utility bill"}
	assert.Equal(t, "additional_requested_7", doc.Category())
}
