package varpack

import "github.com/hupe1980/varpack/array"

// arrayEntry is an array discovered by the scan, destined for its own file.
type arrayEntry struct {
	name string
	key  string // empty for top-level arrays
	arr  *array.Array
}

func (e arrayEntry) logicalPath() string { return logicalPath(e.name, e.key) }

// opaqueEntry is a non-array value destined for the blob.
type opaqueEntry struct {
	name  string
	key   string // empty for top-level values
	value any
}

type scanResult struct {
	arrays  []arrayEntry
	opaques []opaqueEntry
}

// scanPack classifies every top-level value, and every value one mapping
// level down, as array or opaque. Arrays nested deeper than one mapping
// level fall into the blob. The walk is read-only.
func scanPack(p *Pack, sepMinSize int) scanResult {
	var res scanResult

	for _, name := range p.names {
		switch v := p.vars[name].(type) {
		case *array.Array:
			res.arrays = append(res.arrays, arrayEntry{name: name, arr: v})
		case *Map:
			if v.Len() == 0 {
				// An empty mapping still round-trips, as a blob entry.
				res.opaques = append(res.opaques, opaqueEntry{name: name, value: v})
				continue
			}
			for _, key := range v.keys {
				if a, ok := v.vals[key].(*array.Array); ok && a.Len() >= sepMinSize {
					res.arrays = append(res.arrays, arrayEntry{name: name, key: key, arr: a})
					continue
				}
				res.opaques = append(res.opaques, opaqueEntry{name: name, key: key, value: v.vals[key]})
			}
		default:
			res.opaques = append(res.opaques, opaqueEntry{name: name, value: v})
		}
	}

	return res
}

func logicalPath(name, key string) string {
	if key == "" {
		return name
	}
	return name + "[" + key + "]"
}
