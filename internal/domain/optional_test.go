package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_DistinguishesAbsentNullAndValue(t *testing.T) {
	type patch struct {
		Details Optional[string] `json:"details"`
	}

	var absent patch
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.Details.Set)

	var null patch
	require.NoError(t, json.Unmarshal([]byte(`{"details":null}`), &null))
	assert.True(t, null.Details.Set)
	assert.False(t, null.Details.Valid)
	assert.Nil(t, null.Details.Ptr())

	var value patch
	require.NoError(t, json.Unmarshal([]byte(`{"details":"pump leaking"}`), &value))
	assert.True(t, value.Details.Set)
	assert.True(t, value.Details.Valid)
	require.NotNil(t, value.Details.Ptr())
	assert.Equal(t, "pump leaking", *value.Details.Ptr())
}

func TestOptional_Constructors(t *testing.T) {
	some := Some(42)
	assert.True(t, some.Set)
	assert.True(t, some.Valid)
	assert.Equal(t, 42, some.Value)

	null := Null[int]()
	assert.True(t, null.Set)
	assert.False(t, null.Valid)
	assert.Nil(t, null.Ptr())
}
