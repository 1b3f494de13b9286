package varpack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/array"
)

func TestPackOrder(t *testing.T) {
	p := New()
	p.Set("b", 1)
	p.Set("a", 2)
	p.Set("c", 3)
	p.Set("a", 4) // update keeps position

	assert.Equal(t, []string{"b", "a", "c"}, p.Names())
	assert.Equal(t, 3, p.Len())

	v, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestPackDelete(t *testing.T) {
	p := New()
	p.Set("a", 1)
	p.Set("b", 2)
	p.Set("c", 3)

	p.Delete("b")
	p.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, p.Names())
	assert.False(t, p.Has("b"))
}

func TestPackTypedGetters(t *testing.T) {
	p := New()
	p.Set("i", 20)
	p.Set("f", 2.5)
	p.Set("fi", float64(7)) // how JSON codecs hand back integers
	p.Set("n", json.Number("42"))
	p.Set("s", "hello")
	p.Set("arr", array.Ones(array.Float64, 3))

	i, ok := p.GetInt("i")
	require.True(t, ok)
	assert.Equal(t, 20, i)

	_, ok = p.GetInt("f")
	assert.False(t, ok, "non-integral float must not pass as int")

	i, ok = p.GetInt("fi")
	require.True(t, ok)
	assert.Equal(t, 7, i)

	i, ok = p.GetInt("n")
	require.True(t, ok)
	assert.Equal(t, 42, i)

	f, ok := p.GetFloat64("f")
	require.True(t, ok)
	assert.Equal(t, 2.5, f)

	s, ok := p.GetString("s")
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	a, ok := p.GetArray("arr")
	require.True(t, ok)
	assert.Equal(t, 3, a.Len())

	_, ok = p.GetArray("s")
	assert.False(t, ok)
}

func TestMapOrder(t *testing.T) {
	m := NewMap()
	m.Set("z", 1)
	m.Set("a", 2)

	assert.Equal(t, []string{"z", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())

	a, ok := m.Get("z")
	require.True(t, ok)
	assert.Equal(t, 1, a)
}

func TestMapJSONRoundTrip(t *testing.T) {
	m := NewMap()
	m.Set("s", "x")
	m.Set("n", 1.5)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var got Map
	require.NoError(t, json.Unmarshal(data, &got))

	v, ok := got.Get("s")
	require.True(t, ok)
	assert.Equal(t, "x", v)
	v, ok = got.Get("n")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)
}
