package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "daycareplanner/pkg/domain-errors"
)

func TestParseChildID(t *testing.T) {
	raw := uuid.NewString()

	id, err := ParseChildID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())
}

func TestParseChildID_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"garbage":  "not-a-uuid",
		"nil uuid": "00000000-0000-0000-0000-000000000000",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseChildID(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := DaycareID(uuid.New())

	encoded, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(encoded))

	var decoded DaycareID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, id, decoded)
}

func TestIDUnmarshal_RejectsNilUUID(t *testing.T) {
	var id PlacementID
	err := json.Unmarshal([]byte(`"00000000-0000-0000-0000-000000000000"`), &id)
	assert.Error(t, err)
}

func TestIsNil(t *testing.T) {
	var zero UserID
	assert.True(t, zero.IsNil())
	assert.False(t, UserID(uuid.New()).IsNil())
}
