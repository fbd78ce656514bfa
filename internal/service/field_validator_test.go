package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/ticketing/internal/domain"
	apperrors "github.com/opsdesk/ticketing/pkg/util"
)

func testDefs() []domain.FieldDefinition {
	return []domain.FieldDefinition{
		{Key: "asset_tag", Datatype: domain.FieldDatatypeString},
		{Key: "estimated_hours", Datatype: domain.FieldDatatypeNumber},
		{Key: "safety_check", Datatype: domain.FieldDatatypeBoolean},
		{Key: "inspection_date", Datatype: domain.FieldDatatypeDate},
		{Key: "severity", Datatype: domain.FieldDatatypeEnum, EnumOptions: []string{"low", "medium", "high"}},
	}
}

func TestValidateCustomFields_HappyPath(t *testing.T) {
	typed, err := ValidateCustomFields(testDefs(), map[string]any{
		"asset_tag":       "PUMP-7",
		"estimated_hours": 2.5,
		"safety_check":    true,
		"inspection_date": "2024-05-01",
		"severity":        "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "PUMP-7", typed["asset_tag"].String)
	assert.Equal(t, 2.5, typed["estimated_hours"].Number)
	assert.True(t, typed["safety_check"].Bool)
	assert.Equal(t, 2024, typed["inspection_date"].Time.Year())
	assert.Equal(t, "high", typed["severity"].Enum)
}

func TestValidateCustomFields_UnknownKey(t *testing.T) {
	_, err := ValidateCustomFields(testDefs(), map[string]any{"mystery": 1})
	require.Error(t, err)
	assert.Equal(t, "SCHEMA_VIOLATION", apperrors.ToDomainError(err).Code)
}

func TestValidateCustomFields_TypeMismatches(t *testing.T) {
	cases := map[string]any{
		"asset_tag":       42,
		"estimated_hours": "three",
		"safety_check":    "yes",
		"inspection_date": "not-a-date",
		"severity":        7,
	}
	for key, value := range cases {
		_, err := ValidateCustomFields(testDefs(), map[string]any{key: value})
		require.Error(t, err, key)
		assert.Equal(t, "SCHEMA_VIOLATION", apperrors.ToDomainError(err).Code, key)
	}
}

func TestValidateCustomFields_NumberAcceptsInts(t *testing.T) {
	typed, err := ValidateCustomFields(testDefs(), map[string]any{"estimated_hours": 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, typed["estimated_hours"].Number)
}

func TestValidateCustomFields_EnumOutsideOptions(t *testing.T) {
	_, err := ValidateCustomFields(testDefs(), map[string]any{"severity": "critical"})
	require.Error(t, err)
	assert.Equal(t, "SCHEMA_VIOLATION", apperrors.ToDomainError(err).Code)
}

func TestValidateCustomFields_NullClearsOptionalField(t *testing.T) {
	typed, err := ValidateCustomFields(testDefs(), map[string]any{"asset_tag": nil})
	require.NoError(t, err)
	assert.True(t, typed["asset_tag"].Null)
}

func TestValidateCustomFields_RequiredField(t *testing.T) {
	defs := []domain.FieldDefinition{
		{Key: "asset_tag", Datatype: domain.FieldDatatypeString, Required: true},
	}

	_, err := ValidateCustomFields(defs, map[string]any{})
	require.Error(t, err, "missing required key")

	_, err = ValidateCustomFields(defs, map[string]any{"asset_tag": nil})
	require.Error(t, err, "required key cannot be cleared")

	_, err = ValidateCustomFields(defs, map[string]any{"asset_tag": "PUMP-7"})
	assert.NoError(t, err)
}

func TestParseISOTime_Layouts(t *testing.T) {
	for _, value := range []string{
		"2024-05-01",
		"2024-05-01T10:30:00",
		"2024-05-01T10:30:00Z",
		"2024-05-01T10:30:00+02:00",
	} {
		parsed, ok := parseISOTime(value)
		assert.True(t, ok, value)
		assert.Equal(t, time.May, parsed.Month(), value)
	}

	_, ok := parseISOTime("01/05/2024")
	assert.False(t, ok)
}
