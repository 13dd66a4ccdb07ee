package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketing-insights-backend/internal/schema"
)

func TestValidate(t *testing.T) {
	allow := map[string]struct{}{"a": {}, "b": {}}

	tests := []struct {
		name        string
		names       []string
		wantOK      bool
		wantInvalid []string
	}{
		{
			name:        "All Valid",
			names:       []string{"a", "b", "a"},
			wantOK:      true,
			wantInvalid: nil,
		},
		{
			name:        "Empty Input",
			names:       nil,
			wantOK:      true,
			wantInvalid: nil,
		},
		{
			name:        "Invalid Preserved In Input Order",
			names:       []string{"z", "a", "x"},
			wantOK:      false,
			wantInvalid: []string{"z", "x"},
		},
		{
			name:        "Duplicate Invalid Reported Once",
			names:       []string{"z", "z", "b", "z"},
			wantOK:      false,
			wantInvalid: []string{"z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, invalid := schema.Validate(tt.names, allow)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantInvalid, invalid)
		})
	}
}

func TestValidateMetrics(t *testing.T) {
	ok, invalid := schema.ValidateMetrics([]string{"activeUsers", "bounceRate"})
	assert.True(t, ok)
	assert.Empty(t, invalid)

	ok, invalid = schema.ValidateMetrics([]string{"activeUsers", "dropTables"})
	assert.False(t, ok)
	assert.Equal(t, []string{"dropTables"}, invalid)
}

func TestValidateDimensions(t *testing.T) {
	ok, _ := schema.ValidateDimensions([]string{"date", "country"})
	assert.True(t, ok)

	ok, invalid := schema.ValidateDimensions([]string{"date", "userPassword"})
	assert.False(t, ok)
	assert.Equal(t, []string{"userPassword"}, invalid)
}
