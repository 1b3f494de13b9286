package varpack

import (
	"encoding/json"
	"sort"

	"github.com/hupe1980/varpack/array"
	"github.com/hupe1980/varpack/internal/resource"
)

// Pack is the in-memory bag of named variables. It is an ordered mapping
// from name to value; iteration follows insertion order.
//
// A value is one of:
//   - *array.Array: split into its own memory-mappable file on save
//   - *Map: a one-level mapping whose array values are split into files
//     and whose other values go to the blob
//   - anything else: an opaque value stored in the blob
//
// A Pack is not safe for concurrent mutation. Save and Load borrow it for
// the duration of one operation.
type Pack struct {
	names []string
	vars  map[string]any

	attachedDir string

	// Load bookkeeping: logical paths mapped in manifest order and the
	// views to release on Close.
	mapped     []string
	mappedArrs []*array.Array
	controller *resource.Controller
}

// New creates an empty Pack.
func New() *Pack {
	return &Pack{vars: make(map[string]any)}
}

// Set stores value under name. Setting an existing name updates it in
// place without changing its position.
func (p *Pack) Set(name string, value any) {
	if _, ok := p.vars[name]; !ok {
		p.names = append(p.names, name)
	}
	p.vars[name] = value
}

// Get returns the value stored under name.
func (p *Pack) Get(name string) (any, bool) {
	v, ok := p.vars[name]
	return v, ok
}

// Has reports whether name is present.
func (p *Pack) Has(name string) bool {
	_, ok := p.vars[name]
	return ok
}

// Delete removes name. The order of the remaining names is preserved.
func (p *Pack) Delete(name string) {
	if _, ok := p.vars[name]; !ok {
		return
	}
	delete(p.vars, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Names returns the variable names in insertion order.
func (p *Pack) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of variables.
func (p *Pack) Len() int { return len(p.vars) }

// GetArray returns the array stored under name, or false if name is absent
// or not an array.
func (p *Pack) GetArray(name string) (*array.Array, bool) {
	a, ok := p.vars[name].(*array.Array)
	return a, ok
}

// GetMap returns the nested mapping stored under name.
func (p *Pack) GetMap(name string) (*Map, bool) {
	m, ok := p.vars[name].(*Map)
	return m, ok
}

// GetString returns the string stored under name.
func (p *Pack) GetString(name string) (string, bool) {
	s, ok := p.vars[name].(string)
	return s, ok
}

// GetFloat64 returns the numeric value stored under name, widened to
// float64. Codec-decoded numbers (float64 or json.Number) are accepted.
func (p *Pack) GetFloat64(name string) (float64, bool) {
	return asFloat64(p.vars[name])
}

// GetInt returns the numeric value stored under name as an int. Values
// produced by JSON-family codecs decode as float64; GetInt normalizes them.
func (p *Pack) GetInt(name string) (int, bool) {
	f, ok := asFloat64(p.vars[name])
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Attach remembers dir as this pack's directory. Save with an empty
// directory argument and CopyTo use the attached directory.
func (p *Pack) Attach(dir string) { p.attachedDir = dir }

// AttachedDir returns the directory this pack was loaded from or last
// saved to, if any.
func (p *Pack) AttachedDir() string { return p.attachedDir }

// MappedPaths returns the logical paths reattached as memory-mapped views
// by the load that produced this pack, in manifest order.
func (p *Pack) MappedPaths() []string {
	return append([]string(nil), p.mapped...)
}

// Map is the one-level mapping from string key to value that may appear as
// a top-level Pack value. Array values in a Map are split into their own
// files on save; other values go to the blob. Iteration follows insertion
// order.
type Map struct {
	keys []string
	vals map[string]any
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{vals: make(map[string]any)}
}

// Set stores value under key, preserving the position of existing keys.
func (m *Map) Set(key string, value any) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// GetArray returns the array stored under key, or false if key is absent
// or not an array.
func (m *Map) GetArray(key string) (*array.Array, bool) {
	a, ok := m.vals[key].(*array.Array)
	return a, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.vals) }

// MarshalJSON renders the mapping as a JSON object with keys in insertion
// order. Arrays nested below the one supported mapping level are encoded
// inline and decode back as plain maps, not *array.Array.
func (m *Map) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range m.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(encodeOpaqueValue(m.vals[k]))
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON decodes a JSON object. Key order follows the sorted
// decoded map, since JSON objects carry no order.
func (m *Map) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.vals = make(map[string]any, len(raw))
	m.keys = m.keys[:0]
	for k := range raw {
		m.keys = append(m.keys, k)
	}
	sort.Strings(m.keys)
	for _, k := range m.keys {
		m.vals[k] = decodeOpaqueValue(raw[k])
	}
	return nil
}
