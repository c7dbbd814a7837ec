package ignore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreAndExcept(t *testing.T) {
	fi := New(context.Background(), NewMemoryStore(Patterns{
		IgnorePatterns: []string{"*.tmp", "node_modules", ".git"},
		ExceptPatterns: []string{"*.txt", "README.?d", "*.{go,rs}", "[ab].md"},
	}))

	tests := []struct {
		name   string
		ignore bool
		except bool
	}{
		{"file.tmp", true, false},
		{"file.tmpx", false, false},
		{"node_modules", true, false},
		{".git", true, false},
		{"a.txt", false, true},
		{"a.txt.bak", false, false},
		{"README.md", false, true},
		{"README.mdx", false, false},
		{"main.go", false, true},
		{"lib.rs", false, true},
		{"a.md", false, true},
		{"c.md", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ignore, fi.ShouldIgnore(tt.name))
			assert.Equal(t, tt.except, fi.ShouldExcept(tt.name))
		})
	}
}

func TestDecide(t *testing.T) {
	fi := New(context.Background(), NewMemoryStore(Patterns{
		IgnorePatterns: []string{"vendor", "*.log"},
		ExceptPatterns: []string{"*.txt", "*.log"},
	}))

	assert.Equal(t, Skip, fi.Decide("vendor", true))
	assert.Equal(t, Descend, fi.Decide("src", true))
	assert.Equal(t, Ingest, fi.Decide("a.txt", false))
	assert.Equal(t, Skip, fi.Decide("main.go", false))
	assert.Equal(t, Skip, fi.Decide("app.log", false), "ignore wins over except")
}

func TestAddPatternKeepsListsDisjoint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Patterns{})
	fi := New(ctx, store)

	require.NoError(t, fi.AddExceptPattern(ctx, "*.md"))
	require.NoError(t, fi.AddExceptPattern(ctx, "*.md"))
	assert.Equal(t, []string{"*.md"}, fi.Patterns().ExceptPatterns)

	require.NoError(t, fi.AddIgnorePattern(ctx, "*.md"))
	patterns := fi.Patterns()
	assert.Equal(t, []string{"*.md"}, patterns.IgnorePatterns)
	assert.Empty(t, patterns.ExceptPatterns)

	require.NoError(t, fi.AddExceptPattern(ctx, "*.md"))
	patterns = fi.Patterns()
	assert.Empty(t, patterns.IgnorePatterns)
	assert.Equal(t, []string{"*.md"}, patterns.ExceptPatterns)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, patterns, stored)
}

func TestAddInvalidPattern(t *testing.T) {
	ctx := context.Background()
	fi := New(ctx, NewMemoryStore(Patterns{}))

	err := fi.AddIgnorePattern(ctx, "[abc")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	err = fi.AddExceptPattern(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	assert.Empty(t, fi.Patterns().IgnorePatterns)
}

func TestAddPatternSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Patterns{})
	store.SaveErr = errors.New("disk full")
	fi := New(ctx, store)

	err := fi.AddIgnorePattern(ctx, "*.tmp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, fi.ShouldIgnore("x.tmp"))
}

func TestRemovePattern(t *testing.T) {
	ctx := context.Background()
	fi := New(ctx, NewMemoryStore(Patterns{
		IgnorePatterns: []string{"*.tmp", "build"},
		ExceptPatterns: []string{"*.txt"},
	}))

	require.NoError(t, fi.RemovePattern(ctx, "*.tmp"))
	require.NoError(t, fi.RemovePattern(ctx, "*.txt"))
	require.NoError(t, fi.RemovePattern(ctx, "missing"))

	patterns := fi.Patterns()
	assert.Equal(t, []string{"build"}, patterns.IgnorePatterns)
	assert.Empty(t, patterns.ExceptPatterns)
}

func TestNewDegradesOnLoadFailure(t *testing.T) {
	store := NewMemoryStore(Patterns{IgnorePatterns: []string{"*"}})
	store.LoadErr = errors.New("boom")

	fi := New(context.Background(), store)
	assert.False(t, fi.ShouldIgnore("anything"))
	assert.Equal(t, Patterns{IgnorePatterns: []string{}, ExceptPatterns: []string{}}, fi.Patterns())
}

func TestNewNormalizesOverlappingLists(t *testing.T) {
	fi := New(context.Background(), NewMemoryStore(Patterns{
		IgnorePatterns: []string{"*.log", "*.log"},
		ExceptPatterns: []string{"*.log", "*.txt"},
	}))

	patterns := fi.Patterns()
	assert.Equal(t, []string{"*.log"}, patterns.IgnorePatterns)
	assert.Equal(t, []string{"*.txt"}, patterns.ExceptPatterns)
}

func TestJSONFileStore_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ignore.json")

	fi := NewFromFile(context.Background(), path)
	assert.Empty(t, fi.Patterns().IgnorePatterns)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ignore_patterns": [], "except_patterns": []}`, string(data))
}

func TestJSONFileStore_PersistedPatternReloads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ignore.json")

	first := NewFromFile(ctx, path)
	require.NoError(t, first.AddIgnorePattern(ctx, "*.tmp"))
	require.NoError(t, first.AddExceptPattern(ctx, "*.txt"))

	second := NewFromFile(ctx, path)
	assert.True(t, second.ShouldIgnore("file.tmp"))
	assert.True(t, second.ShouldExcept("a.txt"))
	assert.Equal(t, first.Patterns(), second.Patterns())
}

func TestJSONFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFileStore(path).Load(context.Background())
	assert.Error(t, err)

	fi := NewFromFile(context.Background(), path)
	assert.Empty(t, fi.Patterns().IgnorePatterns)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "descend", Descend.String())
	assert.Equal(t, "ingest", Ingest.String())
}
