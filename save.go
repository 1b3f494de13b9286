package varpack

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hupe1980/varpack/array"
	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/internal/fs"
	"github.com/hupe1980/varpack/manifest"
	"github.com/hupe1980/varpack/npy"
)

// Save writes the pack to dir: one file per array, one blob for everything
// else, and the manifest last. An empty dir saves to the attached
// directory. On success the pack is attached to dir.
//
// Save is not atomic: a failed write leaves whatever files were already
// written, but never a manifest referencing files that are not on disk.
// Re-saving a shrunk pack to the same directory can leave stale array
// files behind; the manifest is authoritative.
func (p *Pack) Save(ctx context.Context, dir string, optFns ...Option) (err error) {
	o := applyOptions(optFns)

	if dir == "" {
		dir = p.attachedDir
	}
	if dir == "" {
		return ErrNoDirectory
	}

	res := scanPack(p, o.sepMinSize)
	defer func() { o.logger.LogSave(ctx, dir, len(res.arrays), len(res.opaques), err) }()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = o.fsys.MkdirAll(dir, 0o755); err != nil {
		return &ErrWrite{FileName: dir, cause: err}
	}

	m := manifest.New(o.codec.Name())
	used := make(map[string]struct{}, len(res.arrays))

	for _, e := range res.arrays {
		fileName := e.name + npy.Ext
		if e.key != "" {
			if fileName, err = nestedFileName(o.fsys, o.tokens, dir, e.name, npy.Ext, used); err != nil {
				return err
			}
		}
		used[fileName] = struct{}{}

		if err = writeArrayFile(o.fsys, filepath.Join(dir, fileName), e.arr); err != nil {
			err = &ErrWrite{FileName: fileName, cause: err}
			return err
		}

		m.Arrays = append(m.Arrays, manifest.Entry{
			Name:        e.name,
			Key:         e.key,
			FileName:    fileName,
			Shape:       e.arr.Shape(),
			ElementType: e.arr.DType().String(),
			ByteSize:    int64(len(e.arr.Bytes())),
		})
	}

	if len(res.opaques) > 0 {
		w := blob.NewWriter(o.codec, o.compression)
		for _, e := range res.opaques {
			if err = w.Add(e.name, e.key, encodeOpaqueValue(e.value)); err != nil {
				err = &ErrWrite{FileName: blob.FileName, cause: err}
				return err
			}
		}
		if err = writeBlobFile(o.fsys, filepath.Join(dir, blob.FileName), w); err != nil {
			err = &ErrWrite{FileName: blob.FileName, cause: err}
			return err
		}
		m.Blob = blob.FileName
	}

	// Manifest last, so a reader never sees a manifest referencing files
	// that are not on disk yet.
	if err = manifest.NewStore(o.fsys, dir).Save(m); err != nil {
		err = &ErrWrite{FileName: manifest.FileName, cause: err}
		return err
	}

	p.attachedDir = dir
	return nil
}

func writeArrayFile(fsys fs.FileSystem, path string, a *array.Array) error {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := npy.Write(f, a); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeBlobFile(fsys fs.FileSystem, path string, w *blob.Writer) error {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
