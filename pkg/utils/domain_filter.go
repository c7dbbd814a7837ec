package utils

import (
	"bufio"
	"context"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/jingkaihe/skillz/pkg/logger"
)

// DomainRefreshInterval defines how often the domains file is re-read
const DomainRefreshInterval = 30 * time.Second

// DomainFilter restricts page fetches to hosts listed in a file. Each non-comment
// line is a host, a URL, or a glob such as "*.wikipedia.org". An empty or missing
// file allows every host.
type DomainFilter struct {
	mu           sync.RWMutex
	filePath     string
	domains      map[string]bool
	globPatterns []glob.Glob
	rawPatterns  []string
	lastLoadTime time.Time
}

// NewDomainFilter creates a filter backed by filePath ("~/" is expanded).
func NewDomainFilter(filePath string) *DomainFilter {
	df := &DomainFilter{
		filePath: ExpandHome(filePath),
		domains:  make(map[string]bool),
	}
	df.loadDomains()
	return df
}

func (df *DomainFilter) reset() {
	df.domains = make(map[string]bool)
	df.globPatterns = nil
	df.rawPatterns = nil
	df.lastLoadTime = time.Now()
}

func (df *DomainFilter) loadDomains() {
	df.mu.Lock()
	defer df.mu.Unlock()

	file, err := os.Open(df.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.G(context.TODO()).WithError(err).WithField("path", df.filePath).Error("failed to open allowed domains file")
		}
		df.reset()
		return
	}
	defer file.Close()

	domains := make(map[string]bool)
	var globs []glob.Glob
	var raws []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		hostname := normalizeHost(strings.ToLower(line))
		if hostname == "" {
			continue
		}

		if strings.ContainsAny(hostname, "*?") {
			if g, err := glob.Compile(hostname); err == nil {
				globs = append(globs, g)
				raws = append(raws, hostname)
				continue
			}
		}
		domains[hostname] = true
	}

	df.domains = domains
	df.globPatterns = globs
	df.rawPatterns = raws
	df.lastLoadTime = time.Now()
}

// normalizeHost strips scheme, path and port from an allowed-domains entry.
func normalizeHost(entry string) string {
	withScheme := entry
	if !strings.HasPrefix(withScheme, "http://") && !strings.HasPrefix(withScheme, "https://") {
		withScheme = "https://" + withScheme
	}
	if parsed, err := url.Parse(withScheme); err == nil && parsed.Hostname() != "" {
		return parsed.Hostname()
	}

	host := strings.TrimPrefix(strings.TrimPrefix(entry, "https://"), "http://")
	if i := strings.Index(host, "/"); i != -1 {
		host = host[:i]
	}
	return host
}

func (df *DomainFilter) shouldReload() bool {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return time.Since(df.lastLoadTime) > DomainRefreshInterval
}

// IsAllowed reports whether the URL's host may be fetched. Loopback hosts are
// always allowed.
func (df *DomainFilter) IsAllowed(urlStr string) (bool, error) {
	if df.shouldReload() {
		df.loadDomains()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false, err
	}

	domain := strings.ToLower(parsedURL.Hostname())
	if IsLocalHost(domain) {
		return true, nil
	}

	df.mu.RLock()
	defer df.mu.RUnlock()

	if len(df.domains) == 0 && len(df.globPatterns) == 0 {
		return true, nil
	}
	if df.domains[domain] {
		return true, nil
	}
	for _, pattern := range df.globPatterns {
		if pattern.Match(domain) {
			return true, nil
		}
	}

	return false, nil
}

// AllowedDomains returns the exact hosts and glob patterns currently loaded.
func (df *DomainFilter) AllowedDomains() []string {
	df.mu.RLock()
	defer df.mu.RUnlock()

	result := make([]string, 0, len(df.domains)+len(df.rawPatterns))
	for domain := range df.domains {
		result = append(result, domain)
	}
	return append(result, df.rawPatterns...)
}

// IsLocalHost reports whether hostname is a loopback name or address.
func IsLocalHost(hostname string) bool {
	switch hostname {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
