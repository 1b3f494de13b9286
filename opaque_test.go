package varpack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/array"
)

func TestOpaqueArrayRoundTrip(t *testing.T) {
	a, err := array.FromFloat64s([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	require.NoError(t, err)

	data, err := json.Marshal(encodeOpaqueValue(a))
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	got, ok := decodeOpaqueValue(raw).(*array.Array)
	require.True(t, ok)
	assert.True(t, a.Equal(got))
}

func TestOpaquePassThrough(t *testing.T) {
	assert.Equal(t, "x", encodeOpaqueValue("x"))
	assert.Equal(t, 1.5, decodeOpaqueValue(1.5))
}

func TestOpaqueNestedRevival(t *testing.T) {
	a := array.Ones(array.Int32, 4)
	outer := map[string]any{"inner": a, "s": "x"}

	data, err := json.Marshal(encodeOpaqueValue(outer))
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	m, ok := decodeOpaqueValue(raw).(map[string]any)
	require.True(t, ok)
	got, ok := m["inner"].(*array.Array)
	require.True(t, ok)
	assert.True(t, a.Equal(got))
	assert.Equal(t, "x", m["s"])
}

func TestOpaqueMalformedWrapperLeftAlone(t *testing.T) {
	raw := map[string]any{ndarrayKey: map[string]any{"dtype": "nope"}}
	_, isArr := decodeOpaqueValue(raw).(*array.Array)
	assert.False(t, isArr)
}

func TestOpaqueMapRoundTripsTyped(t *testing.T) {
	m := NewMap()
	m.Set("s", "x")
	m.Set("a", array.Ones(array.Int32, 2))
	outer := map[string]any{"m": m}

	data, err := json.Marshal(encodeOpaqueValue(outer))
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	decoded, ok := decodeOpaqueValue(raw).(map[string]any)
	require.True(t, ok)
	got, ok := decoded["m"].(*Map)
	require.True(t, ok, "Map values must revive as *Map")

	v, ok := got.Get("s")
	require.True(t, ok)
	assert.Equal(t, "x", v)
	a, ok := got.GetArray("a")
	require.True(t, ok)
	assert.Equal(t, 2, a.Len())
}

func TestOpaqueEmptyMapRevivesTyped(t *testing.T) {
	data, err := json.Marshal(encodeOpaqueValue(NewMap()))
	require.NoError(t, err)

	var raw any
	require.NoError(t, json.Unmarshal(data, &raw))

	got, ok := decodeOpaqueValue(raw).(*Map)
	require.True(t, ok)
	assert.Equal(t, 0, got.Len())
}
