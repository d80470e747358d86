package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportRejectedRetryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewTransportRejectedError(tt.status, " nope ")
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, fmt.Sprintf("status: %d, response: nope", tt.status), err.Details)
		})
	}
	assert.Equal(t, "status: 502", NewTransportRejectedError(502, "").Details)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", NewNotConfiguredError())
	assert.True(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeNotConfigured}))
	assert.False(t, stderrors.Is(wrapped, &StandardError{Code: ErrCodeInvalidInput}))
}

func TestCodeOfAndNormalize(t *testing.T) {
	assert.Equal(t, "CONFIG_UNRESOLVED", CodeOf(NewConfigUnresolvedError([]string{"serviceId"})))
	assert.Equal(t, "UNKNOWN_ERROR", CodeOf(stderrors.New("boom")))
	assert.Nil(t, Normalize(nil))

	n := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrorCode("INTERNAL_ERROR"), n.Code)
	assert.Equal(t, "boom", n.Details)

	orig := NewInvalidInputError("bad")
	assert.Same(t, orig, Normalize(orig))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CONFIGURATION", GetErrorCategory(ErrCodeConfigUnresolved))
	assert.Equal(t, "DELIVERY", GetErrorCategory(ErrCodeTransportRejected))
	assert.Equal(t, "DELIVERY", GetErrorCategory(ErrCodeNoRecipientDelivered))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthentication))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeAuditWriteFailed))
}
