package apperrors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("patient not found"), http.StatusNotFound},
		{"validation", NewValidationError("title is required"), http.StatusBadRequest},
		{"conflict", NewConflictError("duplicate"), http.StatusConflict},
		{"external", NewExternalError("telegram", fmt.Errorf("boom")), http.StatusBadGateway},
		{"internal", NewInternalError("query failed", sql.ErrConnDone), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("loading form: %w", NewNotFoundError("form not found")), http.StatusNotFound},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(NewInternalError("select patients", sql.ErrConnDone)))
	assert.Equal(t, "form not found", PublicMessage(NewNotFoundError("form not found")))
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewInternalError("scan", sql.ErrNoRows)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.True(t, Is(err, ErrorTypeInternal))
	assert.False(t, Is(err, ErrorTypeNotFound))
}
