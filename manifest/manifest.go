// Package manifest defines the self-describing index of a pack directory.
//
// The manifest is the single source of truth at load time: the loader never
// infers structure by scanning directory contents, so stray files in a pack
// directory are ignored.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/varpack/internal/fs"
)

const (
	// FileName is the fixed manifest file name within a pack directory.
	FileName = "varpack.json"

	// CurrentVersion is the manifest schema version written by this library.
	CurrentVersion = 1
)

var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest not found")

	// ErrIncompatibleVersion is returned when the manifest declares a schema
	// version this library cannot read.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")

	// ErrCorrupt is returned when the manifest is unparsable or violates its
	// invariants.
	ErrCorrupt = errors.New("corrupt manifest")
)

// Entry describes one array file in the pack directory.
type Entry struct {
	// Name is the top-level variable name; Key is the nested mapping key,
	// empty for top-level arrays. They are recorded separately so names
	// containing brackets stay unambiguous.
	Name        string `json:"name"`
	Key         string `json:"key,omitempty"`
	FileName    string `json:"file_name"`
	Shape       []int  `json:"shape"`
	ElementType string `json:"element_type"`
	ByteSize    int64  `json:"byte_size"`
}

// LogicalPath renders the entry's location within the container: "name"
// for a top-level array, "name[key]" for one nested under a mapping. It is
// a display form; Name and Key are authoritative.
func (e Entry) LogicalPath() string {
	if e.Key == "" {
		return e.Name
	}
	return e.Name + "[" + e.Key + "]"
}

// Manifest describes every saved entry of a pack directory.
type Manifest struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	// Codec is the name of the codec used for opaque blob payloads,
	// recorded for inspection; the blob file itself is self-describing.
	Codec  string  `json:"codec,omitempty"`
	Arrays []Entry `json:"arrays"`
	// Blob is the opaque-values file name, empty when the pack holds no
	// opaque values.
	Blob string `json:"blob,omitempty"`
}

// New creates an empty manifest at the current version.
func New(codecName string) *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		CreatedAt: time.Now().UTC(),
		Codec:     codecName,
	}
}

// LogicalPaths returns the logical paths of all array entries, in manifest
// order.
func (m *Manifest) LogicalPaths() []string {
	paths := make([]string, 0, len(m.Arrays))
	for _, e := range m.Arrays {
		paths = append(paths, e.LogicalPath())
	}
	return paths
}

// Validate checks the manifest invariants: (name, key) pairs unique, file
// names unique, name and file name non-empty.
func (m *Manifest) Validate() error {
	type location struct{ name, key string }
	locs := make(map[location]struct{}, len(m.Arrays))
	files := make(map[string]struct{}, len(m.Arrays))
	for _, e := range m.Arrays {
		if e.Name == "" || e.FileName == "" {
			return fmt.Errorf("entry %+v: missing name or file name", e)
		}
		loc := location{e.Name, e.Key}
		if _, ok := locs[loc]; ok {
			return fmt.Errorf("duplicate entry %q", e.LogicalPath())
		}
		if _, ok := files[e.FileName]; ok {
			return fmt.Errorf("duplicate file name %q", e.FileName)
		}
		locs[loc] = struct{}{}
		files[e.FileName] = struct{}{}
	}
	return nil
}

// Encode renders the manifest as deterministic, human-inspectable JSON.
func (m *Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Decode parses and validates manifest bytes.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrIncompatibleVersion, m.Version, CurrentVersion)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &m, nil
}

// Store reads and writes the manifest file of one pack directory.
type Store struct {
	fs  fs.FileSystem
	dir string
}

// NewStore creates a manifest store for dir.
func NewStore(fsys fs.FileSystem, dir string) *Store {
	if fsys == nil {
		fsys = fs.Default
	}
	return &Store{fs: fsys, dir: dir}
}

// Load reads and decodes the manifest.
func (s *Store) Load() (*Manifest, error) {
	data, err := fs.ReadFile(s.fs, filepath.Join(s.dir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Decode(data)
}

// Save writes the manifest via a temp file followed by a rename, so a
// crashed save never leaves a half-written manifest under the final name.
func (s *Store) Save(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, FileName)
	tmpPath := path + ".tmp"
	if err := fs.WriteFile(s.fs, tmpPath, data, 0o644); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}
	return nil
}
