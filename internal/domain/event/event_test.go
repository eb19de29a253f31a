package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeStatusChanged, 42, map[string]interface{}{"new_step": "contract_sent"})

	assert.NotEmpty(t, evt.ID)
	assert.NotEmpty(t, evt.CorrelationID)
	assert.Equal(t, TypeStatusChanged, evt.Type)
	assert.Equal(t, int64(42), evt.ApplicationID)
	assert.False(t, evt.Timestamp.IsZero())

	other := NewEvent(TypeStatusChanged, 42, nil)
	assert.NotEqual(t, evt.ID, other.ID)
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeApproved, 1, nil, "corr-123")
	assert.Equal(t, "corr-123", evt.CorrelationID)
}

func TestPayloadAccessors(t *testing.T) {
	evt := NewEvent(TypeAdditionalInfo, 1, map[string]interface{}{
		"notes":    "missing bank statement",
		"required": true,
		"attempt":  3,
		"size":     float64(12),
	})

	assert.Equal(t, "missing bank statement", evt.GetPayloadString("notes"))
	assert.Equal(t, "", evt.GetPayloadString("absent"))
	assert.Equal(t, "", evt.GetPayloadString("required"))

	assert.True(t, evt.GetPayloadBool("required"))
	assert.False(t, evt.GetPayloadBool("absent"))
	assert.False(t, evt.GetPayloadBool("notes"))

	assert.Equal(t, int64(3), evt.GetPayloadInt("attempt"))
	assert.Equal(t, int64(12), evt.GetPayloadInt("size"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("absent"))
}

func TestPayloadAccessors_NilPayload(t *testing.T) {
	evt := NewEvent(TypeFeesConfirmed, 1, nil)

	assert.Equal(t, "", evt.GetPayloadString("anything"))
	assert.False(t, evt.GetPayloadBool("anything"))
	assert.Equal(t, int64(0), evt.GetPayloadInt("anything"))
}

func TestType_IsValid(t *testing.T) {
	for _, tp := range []Type{
		TypeStatusChanged,
		TypeDocumentsComplete,
		TypeApproved,
		TypeAdditionalInfo,
		TypeContractSigned,
		TypeFeesConfirmed,
	} {
		assert.True(t, tp.IsValid(), tp.String())
	}

	assert.False(t, Type("application.archived").IsValid())
	assert.False(t, Type("").IsValid())
}
