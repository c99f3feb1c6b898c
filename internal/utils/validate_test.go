package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"-" validate:"min=0"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		in     sample
		fields []string
	}{
		{name: "valid", in: sample{Name: "Ana", Email: "ana@example.com"}},
		{name: "blank name", in: sample{Name: "   ", Email: "ana@example.com"}, fields: []string{"name"}},
		{name: "missing email", in: sample{Name: "Ana"}, fields: []string{"email"}},
		{name: "bad email and blank name", in: sample{Email: "nope"}, fields: []string{"name", "email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			fm := ve.FieldMap()
			assert.Len(t, fm, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, fm, f)
			}
		})
	}
}

func TestValidationMessages(t *testing.T) {
	err := Validate(sample{Name: " ", Email: ""})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	fm := ve.FieldMap()
	assert.Equal(t, "name must not be blank", fm["name"])
	assert.Equal(t, "email is required", fm["email"])
}

func TestNewValidationError(t *testing.T) {
	ve := NewValidationError("reason", "is required")
	assert.Equal(t, map[string]string{"reason": "is required"}, ve.FieldMap())
	assert.Contains(t, ve.Error(), "reason")
}
