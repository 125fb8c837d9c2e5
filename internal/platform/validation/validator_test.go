package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medical-matrix/internal/platform/apperrors"
)

type contact struct {
	Name  string `validate:"notblank"`
	Email string `validate:"omitempty,email"`
	Phone string `validate:"phone"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(contact{Name: "Ada", Email: "ada@example.com", Phone: "+1 (555) 010-2000"}))
	assert.NoError(t, v.Validate(contact{Name: "Ada"}))

	err := v.Validate(contact{Name: "   "})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "name failed notblank")

	err = v.Validate(contact{Name: "Ada", Email: "not-an-email"})
	assert.Contains(t, err.Error(), "email failed email")
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("555-010-2000"))
	assert.True(t, ValidPhone("+44 20 7946 0958"))
	assert.False(t, ValidPhone("012345"))
	assert.False(t, ValidPhone("12345678901234567"))
}
