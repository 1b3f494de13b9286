package varpack

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/blobstore"
	"github.com/hupe1980/varpack/manifest"
)

func TestCopyToStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	require.NoError(t, p.Save(ctx, dir, WithTokenSource(SequenceTokens("1", "2"))))

	store := blobstore.NewMemoryStore()
	require.NoError(t, p.CopyTo(ctx, store, "packs/p1"))

	names, err := store.List(ctx, "packs/p1/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"packs/p1/" + blob.FileName,
		"packs/p1/var1.npy",
		"packs/p1/var4-1.npy",
		"packs/p1/var4-2.npy",
		"packs/p1/" + manifest.FileName,
	}, names)

	local, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	require.NoError(t, err)
	remote := readBlob(t, ctx, store, "packs/p1/"+manifest.FileName)
	assert.Equal(t, local, remote)
}

func TestCopyToSkipsStaleFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	require.NoError(t, p.Save(ctx, dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.npy"), []byte("old"), 0o644))

	store := blobstore.NewMemoryStore()
	require.NoError(t, p.CopyTo(ctx, store, "p"))

	_, err := store.Open(ctx, "p/stale.npy")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCopyToNoDirectory(t *testing.T) {
	p := New()
	err := p.CopyTo(context.Background(), blobstore.NewMemoryStore(), "p")
	assert.ErrorIs(t, err, ErrNoDirectory)
}

func TestSaveAndCopy(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	p.Attach(dir)

	store := blobstore.NewMemoryStore()
	require.NoError(t, p.SaveAndCopy(ctx, store, "mirror", WithUploadLimits(2, 0)))

	_, err := os.Stat(filepath.Join(dir, manifest.FileName))
	assert.NoError(t, err)

	names, err := store.List(ctx, "mirror/")
	require.NoError(t, err)
	assert.Len(t, names, 5)
}

func readBlob(t *testing.T, ctx context.Context, store blobstore.Store, name string) []byte {
	t.Helper()
	b, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer b.Close()
	data, err := io.ReadAll(io.NewSectionReader(b, 0, b.Size()))
	require.NoError(t, err)
	return data
}
