package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"budgetdash/internal/core"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.ErrInvalidAmount, CodeValidation, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", core.ErrUnknownCategory, "UnknownCat"), CodeValidation, http.StatusBadRequest},
		{fmt.Errorf("read: %w", core.ErrStoreUnavailable), CodeStoreUnavailable, http.StatusServiceUnavailable},
		{core.ErrStoreFormat, CodeStoreFormat, http.StatusBadGateway},
		{core.ErrActionUnrecognized, CodeActionUnrecognized, http.StatusBadRequest},
		{errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, status := Classify(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestErrorResponse_ErrRoundTrip(t *testing.T) {
	for _, sentinel := range []error{core.ErrValidation, core.ErrStoreUnavailable, core.ErrStoreFormat, core.ErrActionUnrecognized} {
		body, _ := NewErrorResponse(fmt.Errorf("ctx: %w", sentinel))
		assert.ErrorIs(t, body.Err(), sentinel)
	}
	assert.ErrorIs(t, ErrorResponse{Error: "teapot", Code: "weird"}.Err(), core.ErrStoreUnavailable)
}
