package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentWithLineNumber(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		offset   int
		expected string
	}{
		{"empty", nil, 1, ""},
		{"single", []string{"Chunk1"}, 1, "1: Chunk1\n"},
		{"padding", []string{"a", "b"}, 9, " 9: a\n10: b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentWithLineNumber(tt.lines, tt.offset))
		})
	}
}

func TestIsBinaryFile(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("plain text\n"), 0o644))
	assert.False(t, IsBinaryFile(text))

	bin := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(bin, []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}, 0o644))
	assert.True(t, IsBinaryFile(bin))

	assert.False(t, IsBinaryFile(filepath.Join(dir, "missing")))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".skillz", "ignore.json"), ExpandHome("~/.skillz/ignore.json"))
	assert.Equal(t, "/tmp/ignore.json", ExpandHome("/tmp/ignore.json"))
}

func TestWaitForCondition(t *testing.T) {
	calls := 0
	ok := WaitForCondition(time.Second, time.Millisecond, func() bool {
		calls++
		return calls >= 3
	})
	assert.True(t, ok)

	assert.False(t, WaitForCondition(0, time.Millisecond, func() bool { return false }))
}
