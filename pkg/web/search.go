package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
)

const (
	// DefaultSearchEndpoint is the JavaScript-free DuckDuckGo results page.
	DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"
	// DefaultRegion is the DuckDuckGo region code.
	DefaultRegion = "us-en"
	// DefaultSafeSearch disables safe search.
	DefaultSafeSearch = "off"
	// MaxResults is the default number of results returned.
	MaxResults = 5
)

// SearchResult is one hit from a keyword search.
type SearchResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Searcher runs keyword searches.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]SearchResult, error)
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	cfg    Config
	client *http.Client
}

var _ Searcher = (*DuckDuckGo)(nil)

// NewDuckDuckGo creates a searcher from cfg.
func NewDuckDuckGo(cfg Config) *DuckDuckGo {
	cfg = cfg.withDefaults()
	return &DuckDuckGo{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func safeSearchParam(level string) string {
	switch strings.ToLower(level) {
	case "strict", "on":
		return "1"
	case "moderate":
		return "-1"
	default:
		return "-2"
	}
}

// Search returns up to the configured number of results for keyword.
func (d *DuckDuckGo) Search(ctx context.Context, keyword string) ([]SearchResult, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, errors.New("keyword is required")
	}

	form := url.Values{
		"q":  {keyword},
		"kl": {d.cfg.Search.Region},
		"kp": {safeSearchParam(d.cfg.Search.SafeSearch)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Search.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create search request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: d.cfg.Search.Endpoint, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse search results")
	}

	results := parseResults(doc, d.cfg.Search.MaxResults)
	logger.G(ctx).WithField("keyword", keyword).WithField("results", len(results)).Debug("web search completed")
	return results, nil
}

func parseResults(doc *goquery.Document, limit int) []SearchResult {
	results := []SearchResult{}
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}

		link := s.Find(".result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return true
		}

		results = append(results, SearchResult{
			Title: title,
			Href:  unwrapRedirect(href),
			Body:  strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})
	return results
}

// unwrapRedirect extracts the target of a DuckDuckGo "/l/?uddg=" link.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
