// Package web fetches pages as minified markdown and runs keyword searches.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/utils"
)

// ErrorMarker prefixes every assistant-facing fetch failure.
const ErrorMarker = "# Error: Unable to fetch the page."

var (
	// ErrUnsupportedScheme is returned for URLs that are not http(s), or plain
	// http to a non-loopback host without allow_insecure_http.
	ErrUnsupportedScheme = errors.New("only HTTPS is supported for external hosts, HTTP is allowed for localhost")
	// ErrDomainNotAllowed is returned when the allowed-domains file rejects the host.
	ErrDomainNotAllowed = errors.New("domain is not in the allowed domains list")
	// ErrUnsupportedContentType is returned for binary responses.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// StatusError is a non-200 response. The body is not converted.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s returned status %d", e.URL, e.StatusCode)
}

// Page is a fetched page rendered as markdown.
type Page struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Markdown    string `json:"markdown"`
}

var whitespaceRuns = regexp.MustCompile(`[\n\t]+`)

// Minify collapses runs of newlines and tabs into single spaces.
func Minify(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// PageFetcher fetches a single page.
type PageFetcher interface {
	GetWebpage(ctx context.Context, rawURL string) (*Page, error)
}

// Fetcher downloads pages and converts HTML to markdown.
type Fetcher struct {
	cfg        Config
	filter     *utils.DomainFilter
	toMarkdown func(html string) (string, error)
}

var _ PageFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher. An allowed-domains file, when configured,
// restricts which hosts may be fetched.
func NewFetcher(cfg Config) *Fetcher {
	cfg = cfg.withDefaults()
	f := &Fetcher{
		cfg:        cfg,
		toMarkdown: md.NewConverter("", true, nil).ConvertString,
	}
	if cfg.AllowedDomainsFile != "" {
		f.filter = utils.NewDomainFilter(cfg.AllowedDomainsFile)
	}
	return f
}

// ValidateURL checks the scheme and the allowed-domains list.
func (f *Fetcher) ValidateURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if parsed.Host == "" {
		return nil, errors.Errorf("invalid URL %q: missing host", rawURL)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !f.cfg.AllowInsecureHTTP && !utils.IsLocalHost(parsed.Hostname()) {
			return nil, ErrUnsupportedScheme
		}
	default:
		return nil, ErrUnsupportedScheme
	}

	if f.filter != nil {
		allowed, err := f.filter.IsAllowed(rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check allowed domains")
		}
		if !allowed {
			return nil, errors.Wrapf(ErrDomainNotAllowed, "%s", parsed.Hostname())
		}
	}
	return parsed, nil
}

// GetWebpage fetches rawURL. A 200 HTML response is converted to minified
// markdown; other text is minified as-is. Any other status yields a
// *StatusError without conversion.
func (f *Fetcher) GetWebpage(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := f.ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	originalHost := parsed.Hostname()
	client := &http.Client{
		Timeout: f.cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.URL.Hostname() != originalHost {
				return errors.Errorf("redirect to different domain not allowed: %s -> %s", originalHost, req.URL.Hostname())
			}
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", rawURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	contentType := resp.Header.Get("Content-Type")
	if isBinaryContentType(contentType) {
		return nil, errors.Wrapf(ErrUnsupportedContentType, "%s", contentType)
	}

	page := &Page{URL: rawURL, StatusCode: resp.StatusCode, ContentType: contentType}
	if isHTML(contentType, body) {
		markdown, err := f.convert(ctx, string(body))
		if err != nil {
			return nil, err
		}
		page.Markdown = Minify(markdown)
	} else {
		page.Markdown = Minify(string(body))
	}

	logger.G(ctx).WithField("url", rawURL).WithField("length", len(page.Markdown)).Debug("fetched page")
	return page, nil
}

// convert renders HTML as markdown. When conversion fails the document's
// text content is used instead so no markup leaks through.
func (f *Fetcher) convert(ctx context.Context, htmlContent string) (string, error) {
	markdown, err := f.toMarkdown(htmlContent)
	if err == nil {
		return markdown, nil
	}
	logger.G(ctx).WithError(err).Warn("failed to convert HTML to markdown, falling back to plain text")

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if docErr != nil {
		return "", errors.Wrap(err, "failed to convert HTML to markdown")
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text(), nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "html") {
		return true
	}
	if contentType == "" {
		return strings.HasPrefix(strings.TrimSpace(string(body)), "<")
	}
	return false
}

func isBinaryContentType(contentType string) bool {
	for _, prefix := range []string{"application/octet-stream", "application/zip", "application/pdf", "image/", "audio/", "video/"} {
		if strings.Contains(contentType, prefix) {
			return true
		}
	}
	return false
}

// FormatError renders a fetch failure as assistant-facing text beginning
// with ErrorMarker.
func FormatError(rawURL string, err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%s Status code [%d]\nURL: %s\nResponse: %s",
			ErrorMarker, statusErr.StatusCode, statusErr.URL, Minify(statusErr.Body))
	}
	return fmt.Sprintf("%s %s\nURL: %s", ErrorMarker, err, rawURL)
}
