// Package varpack persists a loosely-typed bag of named variables to a
// directory, splitting numeric arrays into individually memory-mappable
// .npy files while grouping all other values into a single blob.
//
// On reload, array-valued entries come back as memory-mapped views instead
// of fully materialized copies, so large arrays can be accessed without
// loading them wholesale into process memory.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	p := varpack.New()
//	p.Set("weights", array.Ones(array.Float64, 100, 1000))
//	p.Set("epoch", 20)
//	p.Set("label", "experiment-7")
//
//	if err := p.Save(ctx, "./run-7"); err != nil { ... }
//
//	p2, err := varpack.Load(ctx, "./run-7")
//	defer p2.Close()
//
// Loaded arrays are writable views by default: element stores reach the
// backing file. Pass varpack.WithReadOnly() to forbid mutation.
//
// # Directory layout
//
//	varpack.json          manifest: one entry per array file + blob reference
//	<name>.npy            one file per top-level array
//	<name>-<token>.npy    one file per array nested under mapping <name>
//	__misc_vars__.blob    every non-array value, keyed by name or name[key]
//
// # Selective loading
//
//	varpack.Load(ctx, dir, varpack.WithExclude("weights"))       // drop by logical path
//	varpack.Load(ctx, dir, varpack.WithSkipSeparate("features")) // drop by top-level name, cheap on large blobs
//
// # Replication
//
// A saved pack can be copied to a second directory or to object storage:
//
//	store, _ := s3.New(ctx, "my-bucket", "")
//	err := p.CopyTo(ctx, store, "runs/7")
//
// Concurrent saves into the same directory are not coordinated; callers
// must serialize writers per directory externally.
package varpack
