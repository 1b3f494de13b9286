// Package mmap provides cross-platform memory-mapped file access.
//
// A Mapping owns a mapped byte region backed by a file. Read-only mappings
// give zero-copy access to file contents; ReadWrite mappings are shared, so
// stores through the returned slice modify the file in place (call Flush to
// force dirty pages to disk).
//
// Lifetime rules:
//   - The slice returned by Bytes() aliases the mapped region and becomes
//     invalid after Close().
//   - Close() is idempotent and releases both the mapping and any OS handles.
//
// Regions are cheap sub-views that borrow the parent Mapping's memory.
package mmap
