package varpack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/internal/fs"
	"github.com/hupe1980/varpack/manifest"
	"github.com/hupe1980/varpack/npy"
)

// Load reads a pack directory written by Save. Array files are reattached
// as memory-mapped views in manifest order; opaque values are decoded from
// the blob. The returned pack is attached to dir and owns the mappings,
// release them with Close.
//
// WithExclude and WithSkipSeparate drop entries without touching their
// payload bytes. WithReadOnly maps array files with read protection.
func Load(ctx context.Context, dir string, optFns ...Option) (_ *Pack, err error) {
	o := applyOptions(optFns)

	if dir == "" {
		return nil, ErrNoDirectory
	}

	p := New()
	p.attachedDir = dir
	p.controller = o.controller

	defer func() {
		o.logger.LogLoad(ctx, dir, p.mapped, err)
		if err != nil {
			p.Close()
		}
	}()

	if err = ctx.Err(); err != nil {
		return nil, err
	}

	m, err := manifest.NewStore(o.fsys, dir).Load()
	if err != nil {
		return nil, translateError(err)
	}

	for _, e := range m.Arrays {
		if _, skip := o.skip[e.Name]; skip {
			continue
		}
		if _, drop := o.exclude[e.LogicalPath()]; drop {
			continue
		}

		a, err := npy.Open(filepath.Join(dir, e.FileName), o.mode)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &ErrMissingArrayFile{LogicalPath: e.LogicalPath(), FileName: e.FileName, cause: err}
			}
			return nil, fmt.Errorf("array file %s: %w", e.FileName, err)
		}
		if a.DType().String() != e.ElementType || !slices.Equal(a.Shape(), e.Shape) {
			got, want := a.String(), e.ElementType+fmt.Sprint(e.Shape)
			a.Close()
			return nil, fmt.Errorf("%w: array %s: manifest records %s, file holds %s",
				ErrCorruptMetadata, e.LogicalPath(), want, got)
		}

		p.place(e.Name, e.Key, a)
		p.mapped = append(p.mapped, e.LogicalPath())
		p.mappedArrs = append(p.mappedArrs, a)
		o.controller.TrackMapped(int64(len(a.Bytes())))
	}

	if m.Blob != "" {
		if err := p.loadBlob(dir, m.Blob, o); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Pack) loadBlob(dir, fileName string, o options) error {
	data, err := fs.ReadFile(o.fsys, filepath.Join(dir, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingBlob, fileName)
		}
		return fmt.Errorf("blob file %s: %w", fileName, err)
	}

	r, err := blob.NewReader(data)
	if err != nil {
		return translateError(err)
	}
	if o.codec.Name() == r.CodecName() {
		// Honor a caller-supplied codec instance over the registry default.
		r.UseCodec(o.codec)
	}

	entries, err := r.Decode(func(name string) bool {
		_, skip := o.skip[name]
		return skip
	})
	if err != nil {
		return translateError(err)
	}

	for _, e := range entries {
		if _, drop := o.exclude[logicalPath(e.Name, e.Key)]; drop {
			continue
		}
		p.place(e.Name, e.Key, decodeOpaqueValue(e.Value))
	}
	return nil
}

// place stores a loaded value, routing keyed entries into the top-level
// mapping for name, creating it on first use.
func (p *Pack) place(name, key string, v any) {
	if key == "" {
		p.Set(name, v)
		return
	}
	m, ok := p.vars[name].(*Map)
	if !ok {
		m = NewMap()
		p.Set(name, m)
	}
	m.Set(key, v)
}
