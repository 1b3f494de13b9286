package varpack

import (
	"log/slog"

	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/codec"
	"github.com/hupe1980/varpack/internal/fs"
	"github.com/hupe1980/varpack/internal/mmap"
	"github.com/hupe1980/varpack/internal/resource"
)

type options struct {
	codec       codec.Codec
	fsys        fs.FileSystem
	logger      *Logger
	tokens      TokenSource
	compression blob.Compression
	sepMinSize  int

	exclude map[string]struct{}
	skip    map[string]struct{}
	mode    mmap.Mode

	controller *resource.Controller
}

// Option configures Save/Load/CopyTo behavior.
//
// Options not relevant to an operation are ignored (e.g. WithExclude on
// Save).
type Option func(*options)

// WithCodec configures the codec used for opaque blob payloads.
//
// If nil is passed, codec.Default is used. A pack written with a custom
// codec must be loaded with a codec registered under the same name.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFS injects a filesystem implementation. Intended for tests
// (fault injection); production code uses the local filesystem.
func WithFS(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys != nil {
			o.fsys = fsys
		}
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithTokenSource injects the identity token source used to name array
// files nested under mappings. Intended for tests needing deterministic
// file names.
func WithTokenSource(ts TokenSource) Option {
	return func(o *options) {
		if ts != nil {
			o.tokens = ts
		}
	}
}

// WithBlobCompression selects the compression applied to opaque blob
// payloads. The default is no compression; array files are always written
// raw so they stay memory-mappable.
func WithBlobCompression(c blob.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithSeparateMinSize sets the minimum element count for an array nested
// under a mapping to be split into its own file. Smaller nested arrays are
// stored in the blob instead. Top-level arrays always get their own file.
func WithSeparateMinSize(n int) Option {
	return func(o *options) {
		o.sepMinSize = n
	}
}

// WithExclude drops manifest and blob entries whose logical path matches
// one of paths. Unknown paths are ignored silently.
func WithExclude(paths ...string) Option {
	return func(o *options) {
		if o.exclude == nil {
			o.exclude = make(map[string]struct{}, len(paths))
		}
		for _, p := range paths {
			o.exclude[p] = struct{}{}
		}
	}
}

// WithSkipSeparate drops every entry under the given top-level names.
// Skipped blob payloads are never deserialized, so skipping is cheap even
// on large blobs. Unknown names are ignored silently.
func WithSkipSeparate(names ...string) Option {
	return func(o *options) {
		if o.skip == nil {
			o.skip = make(map[string]struct{}, len(names))
		}
		for _, n := range names {
			o.skip[n] = struct{}{}
		}
	}
}

// WithReadOnly maps array files with read protection only. The default is
// a shared writable view where element stores reach the backing file.
func WithReadOnly() Option {
	return func(o *options) {
		o.mode = mmap.ReadOnly
	}
}

// WithController injects a resource controller shared across operations,
// governing upload concurrency and throughput during CopyTo and tracking
// mapped memory across loads.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		if c != nil {
			o.controller = c
		}
	}
}

// WithUploadLimits is a convenience for WithController with the given
// upload concurrency and byte-rate limits.
func WithUploadLimits(maxConcurrent, bytesPerSec int64) Option {
	return WithController(resource.NewController(resource.Config{
		MaxConcurrentUploads:   maxConcurrent,
		UploadLimitBytesPerSec: bytesPerSec,
	}))
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:  codec.Default,
		fsys:   fs.Default,
		logger: NoopLogger(),
		tokens: RandomTokens,
		mode:   mmap.ReadWrite,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.controller == nil {
		o.controller = resource.NewController(resource.Config{MaxConcurrentUploads: 4})
	}
	return o
}
