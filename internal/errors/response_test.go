package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseUsesFirstHintAsDisplay(t *testing.T) {
	err := NewError("subscription has no items").
		WithHint("The billing provider returned an incomplete subscription").
		Mark(ErrProvider)

	resp := NewErrorResponse(err)
	assert.False(t, resp.Success)
	assert.Equal(t, "The billing provider returned an incomplete subscription", resp.Error.Display)
	assert.Equal(t, http.StatusBadGateway, HTTPStatusFromErr(err))
}

func TestResponseFallsBackWithoutHint(t *testing.T) {
	err := NewError("pq: connection refused").Mark(ErrDatabase)

	resp := NewErrorResponse(err)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Display)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromErr(err))
}

func TestResponseMergesDetailsAcrossChain(t *testing.T) {
	cause := NewError("price id not configured").
		WithDetail("plan", "Pro").
		Mark(ErrConfiguration)
	err := WithError(cause).
		WithHint("Annual pricing is temporarily unavailable").
		WithReportableDetails(map[string]any{"billing_cycle": "annually", "key_mode": "test"}).
		Mark(ErrConfiguration)

	resp := NewErrorResponse(err)
	assert.Equal(t, "Annual pricing is temporarily unavailable", resp.Error.Display)
	assert.Equal(t, "Pro", resp.Error.Details["plan"])
	assert.Equal(t, "annually", resp.Error.Details["billing_cycle"])
	assert.Equal(t, "test", resp.Error.Details["key_mode"])
}

func TestSentinelMatchingSurvivesWrapping(t *testing.T) {
	err := WithError(NewError("row not found").Mark(ErrNotFound)).
		WithMessage("loading entitlement").
		Mark(ErrDatabase)

	assert.True(t, IsNotFound(err))
}
