package varpack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/varpack/array"
	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/internal/fs"
	"github.com/hupe1980/varpack/manifest"
)

// scenarioPack builds the canonical mixed pack used across tests: two
// top-level scalars, one top-level array and a nested mapping with two
// large arrays.
func scenarioPack(t *testing.T) *Pack {
	t.Helper()

	p := New()
	p.Set("var1", array.Ones(array.Float64, 100, 1000))
	p.Set("var2", 20)
	p.Set("var3", "some string")

	m := NewMap()
	m.Set("key1", array.Ones(array.Float64, 200, 1000))
	m.Set("key2", array.Zeros(array.Float64, 50, 2000))
	p.Set("var4", m)

	return p
}

func TestSaveLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	require.NoError(t, p.Save(ctx, dir))
	assert.Equal(t, dir, p.AttachedDir())

	for _, name := range []string{"var1.npy", blob.FileName, manifest.FileName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	nested, err := filepath.Glob(filepath.Join(dir, "var4-*.npy"))
	require.NoError(t, err)
	assert.Len(t, nested, 2)

	m, err := manifest.NewStore(fs.Default, dir).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"var1", "var4[key1]", "var4[key2]"}, m.LogicalPaths())
	assert.Equal(t, blob.FileName, m.Blob)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	require.NoError(t, p.Save(ctx, dir))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	defer got.Close()

	assert.Equal(t, []string{"var1", "var4[key1]", "var4[key2]"}, got.MappedPaths())

	v1, ok := got.GetArray("var1")
	require.True(t, ok)
	assert.True(t, v1.Mapped())
	want, _ := p.GetArray("var1")
	assert.True(t, want.Equal(v1))

	i, ok := got.GetInt("var2")
	require.True(t, ok)
	assert.Equal(t, 20, i)

	s, ok := got.GetString("var3")
	require.True(t, ok)
	assert.Equal(t, "some string", s)

	m, ok := got.GetMap("var4")
	require.True(t, ok)
	wantMap, _ := p.GetMap("var4")
	for _, key := range []string{"key1", "key2"} {
		a, ok := m.GetArray(key)
		require.True(t, ok, key)
		assert.True(t, a.Mapped(), key)
		w, _ := wantMap.GetArray(key)
		assert.True(t, w.Equal(a), key)
	}
}

func TestSaveNoDirectory(t *testing.T) {
	p := New()
	p.Set("x", 1)
	assert.ErrorIs(t, p.Save(context.Background(), ""), ErrNoDirectory)
}

func TestSaveToAttachedDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := New()
	p.Set("x", 1)
	p.Attach(dir)
	require.NoError(t, p.Save(ctx, ""))

	_, err := os.Stat(filepath.Join(dir, manifest.FileName))
	assert.NoError(t, err)
}

func TestLoadMissingManifest(t *testing.T) {
	_, err := Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrMissingManifest)
}

func TestLoadExclude(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))

	got, err := Load(ctx, dir, WithExclude("var4[key1]", "var2", "no-such-path"))
	require.NoError(t, err)
	defer got.Close()

	assert.False(t, got.Has("var2"))
	assert.True(t, got.Has("var1"))
	assert.True(t, got.Has("var3"))

	m, ok := got.GetMap("var4")
	require.True(t, ok)
	assert.Equal(t, []string{"key2"}, m.Keys())
	assert.Equal(t, []string{"var1", "var4[key2]"}, got.MappedPaths())
}

func TestLoadSkipSeparate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))

	got, err := Load(ctx, dir, WithSkipSeparate("var4", "var2", "no-such-name"))
	require.NoError(t, err)
	defer got.Close()

	assert.False(t, got.Has("var4"))
	assert.False(t, got.Has("var2"))
	assert.True(t, got.Has("var1"))
	assert.True(t, got.Has("var3"))
	assert.Equal(t, []string{"var1"}, got.MappedPaths())
}

func TestSeparateMinSizeSendsSmallArraysToBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := New()
	p.Set("var1", array.Ones(array.Float64, 10))
	m := NewMap()
	m.Set("small", array.Ones(array.Float64, 5))
	p.Set("nested", m)

	require.NoError(t, p.Save(ctx, dir, WithSeparateMinSize(1000)))

	man, err := manifest.NewStore(fs.Default, dir).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"var1"}, man.LogicalPaths(), "top-level arrays always split")

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	defer got.Close()

	gm, ok := got.GetMap("nested")
	require.True(t, ok)
	a, ok := gm.GetArray("small")
	require.True(t, ok)
	assert.False(t, a.Mapped(), "blob arrays are materialized, not mapped")
	want, _ := m.GetArray("small")
	assert.True(t, want.Equal(a))
}

func TestResaveKeepsLogicalPaths(t *testing.T) {
	ctx := context.Background()
	p := scenarioPack(t)

	dir1, dir2 := t.TempDir(), t.TempDir()
	require.NoError(t, p.Save(ctx, dir1))
	require.NoError(t, p.Save(ctx, dir2))

	m1, err := manifest.NewStore(fs.Default, dir1).Load()
	require.NoError(t, err)
	m2, err := manifest.NewStore(fs.Default, dir2).Load()
	require.NoError(t, err)
	assert.Equal(t, m1.LogicalPaths(), m2.LogicalPaths())
}

func TestNestedFileNamesDistinct(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := scenarioPack(t)
	require.NoError(t, p.Save(ctx, dir, WithTokenSource(SequenceTokens("7", "7", "8"))))

	for _, name := range []string{"var4-7.npy", "var4-8.npy"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestLoadMissingArrayFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))
	require.NoError(t, os.Remove(filepath.Join(dir, "var1.npy")))

	_, err := Load(ctx, dir)
	var missing *ErrMissingArrayFile
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "var1", missing.LogicalPath)
	assert.Equal(t, "var1.npy", missing.FileName)
}

func TestLoadMissingBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))
	require.NoError(t, os.Remove(filepath.Join(dir, blob.FileName)))

	_, err := Load(ctx, dir)
	assert.ErrorIs(t, err, ErrMissingBlob)
}

func TestLoadCorruptManifest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.FileName), []byte("not json"), 0o644))

	_, err := Load(ctx, dir)
	assert.ErrorIs(t, err, ErrCorruptMetadata)
}

func TestLoadShapeMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))

	store := manifest.NewStore(fs.Default, dir)
	m, err := store.Load()
	require.NoError(t, err)
	m.Arrays[0].Shape = []int{1, 1}
	require.NoError(t, store.Save(m))

	_, err = Load(ctx, dir)
	assert.ErrorIs(t, err, ErrCorruptMetadata)
}

func TestWritableMappingPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	a, ok := got.GetArray("var1")
	require.True(t, ok)
	a.SetAt(42, 0, 0)
	require.NoError(t, got.Flush())
	require.NoError(t, got.Close())

	again, err := Load(ctx, dir, WithReadOnly())
	require.NoError(t, err)
	defer again.Close()
	b, ok := again.GetArray("var1")
	require.True(t, ok)
	assert.Equal(t, 42.0, b.At(0, 0))
}

func TestCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, scenarioPack(t).Save(ctx, dir))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, got.Close())
	require.NoError(t, got.Close())
	assert.Empty(t, got.MappedPaths())
}

func TestSaveWriteFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	faulty := fs.NewFaultyFS(fs.Default)
	faulty.AddRule("var1.npy", fs.Fault{FailAfterBytes: -1, FailOnSync: true})

	err := scenarioPack(t).Save(ctx, dir, WithFS(faulty))
	var werr *ErrWrite
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "var1.npy", werr.FileName)
	assert.ErrorIs(t, err, fs.ErrInjected)

	_, serr := os.Stat(filepath.Join(dir, manifest.FileName))
	assert.True(t, os.IsNotExist(serr), "manifest must not exist after a failed save")
}

func TestSaveLoadCompressedBlob(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := New()
	p.Set("n", 3)
	p.Set("s", "x")
	require.NoError(t, p.Save(ctx, dir, WithBlobCompression(blob.Zstd)))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	defer got.Close()

	n, ok := got.GetInt("n")
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestBracketedNameStaysTopLevel(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := New()
	p.Set("x[y]", array.Ones(array.Float64, 4))
	p.Set("x[y][z]", "opaque value")
	require.NoError(t, p.Save(ctx, dir))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	defer got.Close()

	a, ok := got.GetArray("x[y]")
	require.True(t, ok, "bracketed name must stay a top-level array")
	want, _ := p.GetArray("x[y]")
	assert.True(t, want.Equal(a))

	s, ok := got.GetString("x[y][z]")
	require.True(t, ok)
	assert.Equal(t, "opaque value", s)

	assert.False(t, got.Has("x"), "no mapping must be invented from the name")
}

func TestEmptyMapRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p := New()
	p.Set("empty", NewMap())
	p.Set("n", 1)
	require.NoError(t, p.Save(ctx, dir))

	got, err := Load(ctx, dir)
	require.NoError(t, err)
	defer got.Close()

	m, ok := got.GetMap("empty")
	require.True(t, ok, "empty mappings must reload as *Map")
	assert.Equal(t, 0, m.Len())
}
