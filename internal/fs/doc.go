// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility that simulates I/O errors on matching files
//
// Production code should use fs.Default (which is [LocalFS]). Tests can
// inject a [FaultyFS] to exercise mid-save write failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("__misc_vars__", fs.Fault{FailAfterBytes: 8})
//
// This package intentionally does NOT include context.Context parameters.
// Local filesystem operations are fast and non-interruptible at the syscall
// level. For slow remote operations, use the blobstore package which has
// context support.
package fs
