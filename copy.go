package varpack

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/varpack/blobstore"
	"github.com/hupe1980/varpack/internal/fs"
	"github.com/hupe1980/varpack/internal/resource"
	"github.com/hupe1980/varpack/manifest"
)

// CopyTo replicates the attached directory to a blob store under prefix.
// The file set is taken from the manifest, so stale files from earlier
// saves are not copied. Array files and the blob upload concurrently,
// bounded by the resource controller; the manifest uploads last.
func (p *Pack) CopyTo(ctx context.Context, store blobstore.Store, prefix string, optFns ...Option) (err error) {
	o := applyOptions(optFns)

	dir := p.attachedDir
	if dir == "" {
		return ErrNoDirectory
	}

	m, err := manifest.NewStore(o.fsys, dir).Load()
	if err != nil {
		return translateError(err)
	}

	files := make([]string, 0, len(m.Arrays)+1)
	for _, e := range m.Arrays {
		files = append(files, e.FileName)
	}
	if m.Blob != "" {
		files = append(files, m.Blob)
	}

	defer func() { o.logger.LogCopy(ctx, dir, len(files)+1, err) }()

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range files {
		name := name
		g.Go(func() error {
			if err := o.controller.AcquireUpload(ctx); err != nil {
				return err
			}
			defer o.controller.ReleaseUpload()
			return uploadFile(ctx, store, o.fsys, o.controller, dir, prefix, name)
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	// Manifest last, mirroring the local write order.
	if err = uploadFile(ctx, store, o.fsys, o.controller, dir, prefix, manifest.FileName); err != nil {
		return err
	}
	return nil
}

// SaveAndCopy saves to the attached directory, then replicates it to the
// blob store. The local save must succeed before any byte leaves the
// machine.
func (p *Pack) SaveAndCopy(ctx context.Context, store blobstore.Store, prefix string, optFns ...Option) error {
	if err := p.Save(ctx, "", optFns...); err != nil {
		return err
	}
	return p.CopyTo(ctx, store, prefix, optFns...)
}

func uploadFile(ctx context.Context, store blobstore.Store, fsys fs.FileSystem, rc *resource.Controller, dir, prefix, name string) error {
	f, err := fsys.OpenFile(filepath.Join(dir, name), os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}

	r := resource.NewRateLimitedReader(ctx, f, rc)
	if err := store.Put(ctx, path.Join(prefix, name), r, info.Size()); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return nil
}
