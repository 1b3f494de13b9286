package varpack

import (
	"encoding/base64"
	"sort"

	"github.com/hupe1980/varpack/array"
)

// ndarrayKey tags arrays that travel through the opaque blob (nested
// arrays below the separate-file size threshold). The wrapper keeps them
// codec-agnostic and revivable on load. varmapKey does the same for Map
// values stored whole, so they come back as *Map rather than a plain map.
const (
	ndarrayKey = "__ndarray__"
	varmapKey  = "__varmap__"
)

func encodeOpaqueValue(v any) any {
	switch x := v.(type) {
	case *array.Array:
		return map[string]any{ndarrayKey: map[string]any{
			"dtype": x.DType().String(),
			"shape": x.Shape(),
			"data":  base64.StdEncoding.EncodeToString(x.Bytes()),
		}}
	case *Map:
		inner := make(map[string]any, x.Len())
		for _, k := range x.keys {
			inner[k] = encodeOpaqueValue(x.vals[k])
		}
		return map[string]any{varmapKey: inner}
	case map[string]any:
		// Arrays nested deeper than the supported mapping level still
		// round-trip, they just live in the blob.
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeOpaqueValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeOpaqueValue(e)
		}
		return out
	default:
		return v
	}
}

func decodeOpaqueValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if wrapped, ok := x[ndarrayKey]; ok && len(x) == 1 {
			if a, ok := reviveArray(wrapped); ok {
				return a
			}
		}
		if wrapped, ok := x[varmapKey]; ok && len(x) == 1 {
			if m, ok := reviveMap(wrapped); ok {
				return m
			}
		}
		for k, e := range x {
			x[k] = decodeOpaqueValue(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = decodeOpaqueValue(e)
		}
		return x
	default:
		return v
	}
}

// reviveMap rebuilds a *Map from its wrapper object. JSON objects carry no
// order, so keys come back sorted.
func reviveMap(v any) (*Map, bool) {
	inner, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(inner))
	for k := range inner {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := NewMap()
	for _, k := range keys {
		m.Set(k, decodeOpaqueValue(inner[k]))
	}
	return m, true
}

// reviveArray rebuilds an *array.Array from its wrapper fields. Malformed
// wrappers are left untouched rather than failing the whole load.
func reviveArray(v any) (*array.Array, bool) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	name, ok := fields["dtype"].(string)
	if !ok {
		return nil, false
	}
	dtype, err := array.ParseDType(name)
	if err != nil {
		return nil, false
	}

	rawShape, ok := fields["shape"].([]any)
	if !ok {
		return nil, false
	}
	shape := make([]int, 0, len(rawShape))
	for _, d := range rawShape {
		f, ok := asFloat64(d)
		if !ok || f != float64(int(f)) {
			return nil, false
		}
		shape = append(shape, int(f))
	}

	enc, ok := fields["data"].(string)
	if !ok {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, false
	}

	a, err := array.NewBacked(dtype, shape, data, nil, nil)
	if err != nil {
		return nil, false
	}
	return a, true
}
