package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count,omitempty" validate:"gte=1,lte=5"`
}

func TestFirstFailure_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(sample{Email: "a@b.co", Count: 9})
	require.Error(t, err)

	field, reason := FirstFailure(err)
	assert.Equal(t, "count", field)
	assert.Equal(t, "failed lte=5", reason)

	err = v.Struct(sample{Count: 1})
	field, reason = FirstFailure(err)
	assert.Equal(t, "email", field)
	assert.Equal(t, "failed required", reason)
}

func TestFirstFailure_ForeignError(t *testing.T) {
	field, reason := FirstFailure(errors.New("unexpected EOF"))
	assert.Equal(t, "body", field)
	assert.Equal(t, "unexpected EOF", reason)
}
