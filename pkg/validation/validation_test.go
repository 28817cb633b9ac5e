package validation

import (
	"testing"

	dErrors "tuition/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registration struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

type submission struct {
	UserID *int64   `json:"userId" validate:"required"`
	Amount *float64 `json:"amount" validate:"required"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		require.NoError(t, Validate(registration{Name: "Ana", Email: "ana@x.com"}))
	})

	t.Run("messages use the json field name", func(t *testing.T) {
		err := Validate(submission{Amount: new(float64)})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "userId is required", err.Error())
	})

	t.Run("zero amount is present, not missing", func(t *testing.T) {
		userID := int64(999999)
		zero := 0.0
		assert.NoError(t, Validate(submission{UserID: &userID, Amount: &zero}))
	})

	t.Run("blank name", func(t *testing.T) {
		err := Validate(registration{Name: "  ", Email: "ana@x.com"})
		assert.EqualError(t, err, "name must not be blank")
	})

	t.Run("malformed email", func(t *testing.T) {
		err := Validate(registration{Name: "Ana", Email: "not-an-email"})
		assert.EqualError(t, err, "email must be a valid email")
	})

	t.Run("every failing field is reported", func(t *testing.T) {
		err := Validate(submission{})
		assert.EqualError(t, err, "userId is required; amount is required")
	})
}
