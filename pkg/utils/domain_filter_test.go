package utils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDomains(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowed_domains.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDomainFilter_IsAllowed(t *testing.T) {
	filter := NewDomainFilter(writeDomains(t, `reddit.com
https://notes.willmo.dev/
# comment
*.wikipedia.org
`))

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"exact", "https://reddit.com/r/golang", true},
		{"normalized url entry", "https://notes.willmo.dev/posts", true},
		{"case insensitive", "https://REDDIT.COM/", true},
		{"glob", "https://en.wikipedia.org/wiki/Go", true},
		{"localhost always allowed", "http://localhost:8080", true},
		{"loopback range", "http://127.0.0.2:3000", true},
		{"ipv6 loopback", "http://[::1]:8080", true},
		{"subdomain of exact not allowed", "https://old.reddit.com", false},
		{"unlisted", "https://example.com", false},
		{"glob does not match bare domain", "https://wikipedia.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := filter.IsAllowed(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, allowed)
		})
	}
}

func TestDomainFilter_MissingFileAllowsAll(t *testing.T) {
	filter := NewDomainFilter(filepath.Join(t.TempDir(), "missing.txt"))

	for _, u := range []string{"https://example.com", "https://duckduckgo.com"} {
		allowed, err := filter.IsAllowed(u)
		require.NoError(t, err)
		assert.True(t, allowed, u)
	}
}

func TestDomainFilter_InvalidURL(t *testing.T) {
	filter := NewDomainFilter(writeDomains(t, "reddit.com\n"))

	_, err := filter.IsAllowed("https://[::1")
	assert.Error(t, err)
}

func TestDomainFilter_Reload(t *testing.T) {
	path := writeDomains(t, "reddit.com\n")
	filter := NewDomainFilter(path)

	allowed, _ := filter.IsAllowed("https://duckduckgo.com")
	assert.False(t, allowed)

	require.NoError(t, os.WriteFile(path, []byte("reddit.com\nduckduckgo.com\n"), 0o644))
	filter.mu.Lock()
	filter.lastLoadTime = time.Now().Add(-DomainRefreshInterval - time.Second)
	filter.mu.Unlock()

	allowed, _ = filter.IsAllowed("https://duckduckgo.com")
	assert.True(t, allowed)
}

func TestDomainFilter_AllowedDomains(t *testing.T) {
	filter := NewDomainFilter(writeDomains(t, "reddit.com\n*.dev\n"))

	domains := filter.AllowedDomains()
	sort.Strings(domains)
	assert.Equal(t, []string{"*.dev", "reddit.com"}, domains)
}

func TestDomainFilter_TildeExpansion(t *testing.T) {
	filter := NewDomainFilter("~/allowed_domains.txt")
	assert.NotEqual(t, "~/allowed_domains.txt", filter.filePath)
}

func TestIsLocalHost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"localhost", true},
		{"127.0.0.1", true},
		{"127.1.1.1", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"example.com", false},
		{"10.0.0.1", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsLocalHost(tt.host), tt.host)
	}
}
