package varpack

import (
	"errors"
	"fmt"

	"github.com/hupe1980/varpack/blob"
	"github.com/hupe1980/varpack/manifest"
)

var (
	// ErrMissingManifest is returned by Load when the directory has no
	// manifest file.
	ErrMissingManifest = errors.New("missing manifest")

	// ErrCorruptMetadata is returned when the manifest is unparsable or
	// violates its invariants.
	ErrCorruptMetadata = errors.New("corrupt metadata")

	// ErrUnsupportedVersion is returned when the manifest or blob declares a
	// format version this library cannot read. It is distinct from
	// corruption so callers can message users differently.
	ErrUnsupportedVersion = errors.New("unsupported format version")

	// ErrMissingBlob is returned when the manifest references an opaque
	// blob file that is absent.
	ErrMissingBlob = errors.New("missing blob file")

	// ErrCorruptBlob is returned when the opaque blob file is unreadable.
	ErrCorruptBlob = errors.New("corrupt blob file")

	// ErrNoDirectory is returned by Save/CopyTo when no directory was given
	// and the pack has no attached directory.
	ErrNoDirectory = errors.New("no directory given and none attached")
)

// ErrMissingArrayFile indicates that an array file referenced by the
// manifest does not exist.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrMissingArrayFile struct {
	LogicalPath string
	FileName    string
	cause       error
}

func (e *ErrMissingArrayFile) Error() string {
	return fmt.Sprintf("missing array file %s for %s", e.FileName, e.LogicalPath)
}

func (e *ErrMissingArrayFile) Unwrap() error { return e.cause }

// ErrWrite indicates a failed file write mid-save. Partial state may remain
// on disk: save has no atomic all-or-nothing guarantee, and a failed save
// requires directory cleanup before retrying.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrWrite struct {
	FileName string
	cause    error
}

func (e *ErrWrite) Error() string {
	return fmt.Sprintf("write %s: %v", e.FileName, e.cause)
}

func (e *ErrWrite) Unwrap() error { return e.cause }

// translateError maps package-internal errors onto the public taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, manifest.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrMissingManifest, err)
	}
	if errors.Is(err, manifest.ErrIncompatibleVersion) || errors.Is(err, blob.ErrUnsupportedVersion) {
		return fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
	}
	if errors.Is(err, manifest.ErrCorrupt) {
		return fmt.Errorf("%w: %w", ErrCorruptMetadata, err)
	}
	if errors.Is(err, blob.ErrBadMagic) || errors.Is(err, blob.ErrCorrupt) || errors.Is(err, blob.ErrUnknownCodec) {
		return fmt.Errorf("%w: %w", ErrCorruptBlob, err)
	}

	return err
}
