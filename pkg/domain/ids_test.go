package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "enrolldesk/pkg/domain-errors"
)

func TestParseApplicationID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		parsed, err := ParseApplicationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(validUUID), parsed)
	})
}

// Parsing sits at a trust boundary (URL path parameters), so it must reject
// hostile input rather than pass it through to the store layer.
func TestParseApplicationID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE applications;--", true},
		{"path traversal", "../../../etc/passwd", true},
		{"null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"oversized input", strings.Repeat("a", 1000), true},
		{"whitespace only", "   ", true},
		{"uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApplicationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestApplicationID_RoundTrip(t *testing.T) {
	original := NewApplicationID()
	assert.False(t, original.IsNil())

	parsed, err := ParseApplicationID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

// IDs cross the JSON boundary as strings, never as raw byte arrays.
func TestApplicationID_JSON(t *testing.T) {
	original := NewApplicationID()

	encoded, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `"`+original.String()+`"`, string(encoded))

	var decoded ApplicationID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)

	var rejected ApplicationID
	err = json.Unmarshal([]byte(`"not-a-uuid"`), &rejected)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
