// Package ignore holds the glob pattern lists that decide which names a
// directory walk skips and which files it reads.
package ignore

import (
	"context"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
)

// ErrInvalidPattern is returned when a pattern is not a valid glob.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Patterns is the persisted form of the two lists.
type Patterns struct {
	IgnorePatterns []string `json:"ignore_patterns"`
	ExceptPatterns []string `json:"except_patterns"`
}

func (p Patterns) clone() Patterns {
	return Patterns{
		IgnorePatterns: append([]string{}, p.IgnorePatterns...),
		ExceptPatterns: append([]string{}, p.ExceptPatterns...),
	}
}

// normalized drops duplicates and makes ignore win when a pattern is in both lists.
func (p Patterns) normalized() Patterns {
	out := Patterns{IgnorePatterns: []string{}, ExceptPatterns: []string{}}
	for _, pattern := range p.IgnorePatterns {
		if !slices.Contains(out.IgnorePatterns, pattern) {
			out.IgnorePatterns = append(out.IgnorePatterns, pattern)
		}
	}
	for _, pattern := range p.ExceptPatterns {
		if !slices.Contains(out.ExceptPatterns, pattern) && !slices.Contains(out.IgnorePatterns, pattern) {
			out.ExceptPatterns = append(out.ExceptPatterns, pattern)
		}
	}
	return out
}

// Decision is the traversal outcome for a single directory entry.
type Decision int

const (
	// Skip means the entry is neither descended nor read.
	Skip Decision = iota
	// Descend means the entry is a directory to walk into.
	Descend
	// Ingest means the entry is a file whose content should be read.
	Ingest
)

func (d Decision) String() string {
	switch d {
	case Descend:
		return "descend"
	case Ingest:
		return "ingest"
	default:
		return "skip"
	}
}

// FileIgnore answers ignore/except queries against bare entry names.
type FileIgnore struct {
	mu       sync.RWMutex
	store    Store
	patterns Patterns
}

// New loads the patterns from store. Load failures are logged and leave both
// lists empty.
func New(ctx context.Context, store Store) *FileIgnore {
	fi := &FileIgnore{
		store:    store,
		patterns: Patterns{IgnorePatterns: []string{}, ExceptPatterns: []string{}},
	}

	patterns, err := store.Load(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to load ignore patterns, starting with empty lists")
		return fi
	}
	fi.patterns = patterns.normalized()
	return fi
}

// NewFromFile is New with a JSONFileStore at path.
func NewFromFile(ctx context.Context, path string) *FileIgnore {
	return New(ctx, NewJSONFileStore(path))
}

// ShouldIgnore reports whether name matches any ignore pattern.
func (fi *FileIgnore) ShouldIgnore(name string) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return matchAny(fi.patterns.IgnorePatterns, name)
}

// ShouldExcept reports whether name matches any except pattern.
func (fi *FileIgnore) ShouldExcept(name string) bool {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return matchAny(fi.patterns.ExceptPatterns, name)
}

// Decide applies the walk policy: ignore patterns win over everything,
// directories are walked unless ignored, and files are read only when they
// match an except pattern.
func (fi *FileIgnore) Decide(name string, isDir bool) Decision {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if matchAny(fi.patterns.IgnorePatterns, name) {
		return Skip
	}
	if isDir {
		return Descend
	}
	if matchAny(fi.patterns.ExceptPatterns, name) {
		return Ingest
	}
	return Skip
}

// AddIgnorePattern adds pattern to the ignore list and persists the lists.
func (fi *FileIgnore) AddIgnorePattern(ctx context.Context, pattern string) error {
	return fi.add(ctx, pattern, true)
}

// AddExceptPattern adds pattern to the except list and persists the lists.
func (fi *FileIgnore) AddExceptPattern(ctx context.Context, pattern string) error {
	return fi.add(ctx, pattern, false)
}

func (fi *FileIgnore) add(ctx context.Context, pattern string, ignore bool) error {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return errors.Wrapf(ErrInvalidPattern, "%q", pattern)
	}

	fi.mu.Lock()
	defer fi.mu.Unlock()

	target := fi.patterns.ExceptPatterns
	if ignore {
		target = fi.patterns.IgnorePatterns
	}
	if slices.Contains(target, pattern) {
		return nil
	}

	matches := func(p string) bool { return p == pattern }
	next := fi.patterns.clone()
	if ignore {
		next.IgnorePatterns = append(next.IgnorePatterns, pattern)
		next.ExceptPatterns = slices.DeleteFunc(next.ExceptPatterns, matches)
	} else {
		next.ExceptPatterns = append(next.ExceptPatterns, pattern)
		next.IgnorePatterns = slices.DeleteFunc(next.IgnorePatterns, matches)
	}

	if err := fi.store.Save(ctx, next); err != nil {
		return errors.Wrap(err, "failed to persist ignore patterns")
	}
	fi.patterns = next

	logger.G(ctx).WithField("pattern", pattern).WithField("ignore", ignore).Debug("added pattern")
	return nil
}

// RemovePattern drops pattern from both lists and persists them. Removing an
// unknown pattern is a no-op.
func (fi *FileIgnore) RemovePattern(ctx context.Context, pattern string) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	if !slices.Contains(fi.patterns.IgnorePatterns, pattern) && !slices.Contains(fi.patterns.ExceptPatterns, pattern) {
		return nil
	}

	matches := func(p string) bool { return p == pattern }
	next := fi.patterns.clone()
	next.IgnorePatterns = slices.DeleteFunc(next.IgnorePatterns, matches)
	next.ExceptPatterns = slices.DeleteFunc(next.ExceptPatterns, matches)

	if err := fi.store.Save(ctx, next); err != nil {
		return errors.Wrap(err, "failed to persist ignore patterns")
	}
	fi.patterns = next
	return nil
}

// Patterns returns a copy of both lists.
func (fi *FileIgnore) Patterns() Patterns {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.patterns.clone()
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
