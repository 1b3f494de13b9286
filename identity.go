package varpack

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/varpack/internal/fs"
)

// TokenSource produces identity tokens used to name array files nested
// under mappings, so two arrays under the same top-level name get distinct
// file names. Tokens carry no ordering guarantee and no state across save
// operations.
type TokenSource interface {
	Next() (string, error)
}

type randomTokens struct{}

func (randomTokens) Next() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("identity token: %w", err)
	}
	return fmt.Sprintf("%d", binary.BigEndian.Uint64(buf[:])), nil
}

// RandomTokens is the default TokenSource, drawing 64-bit values from
// crypto/rand rendered as decimal strings.
var RandomTokens TokenSource = randomTokens{}

// SequenceTokens returns a TokenSource that yields the given tokens in
// order, for tests needing deterministic file names. It fails when
// exhausted.
func SequenceTokens(tokens ...string) TokenSource {
	s := append([]string(nil), tokens...)
	return &sequenceTokens{tokens: s}
}

type sequenceTokens struct {
	tokens []string
	next   int
}

func (s *sequenceTokens) Next() (string, error) {
	if s.next >= len(s.tokens) {
		return "", fmt.Errorf("identity token: sequence exhausted after %d tokens", len(s.tokens))
	}
	t := s.tokens[s.next]
	s.next++
	return t, nil
}

const maxTokenAttempts = 100

// nestedFileName assigns a collision-free file name for an array nested
// under name. Collisions with files already in dir and with names assigned
// earlier in the same save both force a fresh token.
func nestedFileName(fsys fs.FileSystem, tokens TokenSource, dir, name, ext string, used map[string]struct{}) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := tokens.Next()
		if err != nil {
			return "", err
		}
		fileName := fmt.Sprintf("%s-%s%s", name, token, ext)
		if _, taken := used[fileName]; taken {
			continue
		}
		if _, err := fsys.Stat(filepath.Join(dir, fileName)); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", err
		}
		return fileName, nil
	}
	return "", fmt.Errorf("identity token: no collision-free name for %q after %d attempts", name, maxTokenAttempts)
}
