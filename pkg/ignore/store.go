package ignore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Store is the persistence port for the pattern lists.
type Store interface {
	Load(ctx context.Context) (Patterns, error)
	Save(ctx context.Context, patterns Patterns) error
}

// JSONFileStore persists patterns as a JSON document on disk.
type JSONFileStore struct {
	Path string
}

// NewJSONFileStore returns a store backed by path.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{Path: path}
}

// Load reads the pattern file. A missing file is created with empty lists.
func (s *JSONFileStore) Load(ctx context.Context) (Patterns, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		empty := Patterns{IgnorePatterns: []string{}, ExceptPatterns: []string{}}
		if err := s.Save(ctx, empty); err != nil {
			return Patterns{}, err
		}
		return empty, nil
	}
	if err != nil {
		return Patterns{}, errors.Wrapf(err, "failed to read ignore file %s", s.Path)
	}

	var patterns Patterns
	if err := json.Unmarshal(data, &patterns); err != nil {
		return Patterns{}, errors.Wrapf(err, "failed to parse ignore file %s", s.Path)
	}
	return patterns.normalized(), nil
}

// Save rewrites the whole file through a temp file and rename.
func (s *JSONFileStore) Save(_ context.Context, patterns Patterns) error {
	data, err := json.MarshalIndent(patterns.normalized(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal ignore patterns")
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".ignore-*.json")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return errors.Wrapf(err, "failed to replace ignore file %s", s.Path)
	}
	return nil
}

// MemoryStore keeps patterns in memory.
type MemoryStore struct {
	mu       sync.Mutex
	patterns Patterns
	// LoadErr, when set, is returned by Load.
	LoadErr error
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

// NewMemoryStore returns a store seeded with patterns.
func NewMemoryStore(patterns Patterns) *MemoryStore {
	return &MemoryStore{patterns: patterns.clone()}
}

func (s *MemoryStore) Load(_ context.Context) (Patterns, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return Patterns{}, s.LoadErr
	}
	return s.patterns.clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, patterns Patterns) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.patterns = patterns.clone()
	return nil
}
