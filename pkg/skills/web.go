package skills

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/web"
)

type WebGetPageInput struct {
	URL string `json:"url" jsonschema:"description=The http(s) URL of the page to fetch"`
}

type WebSearchInput struct {
	Keyword string `json:"keyword" jsonschema:"description=Keywords to search the web for"`
}

// WebGetPageSkill fetches a page as minified markdown.
type WebGetPageSkill struct{}

func (s *WebGetPageSkill) Name() string { return "web_get_page" }

func (s *WebGetPageSkill) Description() string {
	return `Fetch a web page and return its content as minified markdown.

- HTTPS is required for external hosts; HTTP is allowed for localhost.
- Redirects are followed only within the same domain (max 10).
- Newlines and tabs are collapsed into single spaces.
- If the page does not return status 200 the result is an error beginning with
  "# Error: Unable to fetch the page." followed by the status code.`
}

func (s *WebGetPageSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WebGetPageInput]()
}

func (s *WebGetPageSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[WebGetPageInput](parameters)
	if err != nil {
		return err
	}
	if input.URL == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(input.URL)
	if err != nil {
		return errors.Wrap(err, "invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	return nil
}

func (s *WebGetPageSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[WebGetPageInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{attribute.String("url", input.URL)}, nil
}

func (s *WebGetPageSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[WebGetPageInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	page, err := state.Fetcher().GetWebpage(ctx, input.URL)
	if err != nil {
		metadata := skilltypes.WebPageMetadata{URL: input.URL}
		reason := skilltypes.ReasonUpstreamError

		var statusErr *web.StatusError
		switch {
		case errors.As(err, &statusErr):
			reason = skilltypes.ReasonHTTPStatus
			metadata.StatusCode = statusErr.StatusCode
		case errors.Is(err, web.ErrUnsupportedScheme), errors.Is(err, web.ErrDomainNotAllowed):
			reason = skilltypes.ReasonInvalidInput
		}
		return skilltypes.NewFailedResult(s.Name(), reason, web.FormatError(input.URL, err), metadata)
	}

	metadata := skilltypes.WebPageMetadata{
		URL:         page.URL,
		StatusCode:  page.StatusCode,
		ContentType: page.ContentType,
		Markdown:    page.Markdown,
	}
	if page.Markdown == "" {
		return skilltypes.NewEmptyResult(s.Name(), "The page has no content", skilltypes.ReasonNone, metadata)
	}
	return skilltypes.NewResult(s.Name(), page.Markdown, metadata)
}

// WebSearchSkill runs a keyword web search.
type WebSearchSkill struct{}

func (s *WebSearchSkill) Name() string { return "web_search" }

func (s *WebSearchSkill) Description() string {
	return fmt.Sprintf(`Search the web with DuckDuckGo and return the top %d results.

Each result has a title, href and body snippet.`, web.MaxResults)
}

func (s *WebSearchSkill) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[WebSearchInput]()
}

func (s *WebSearchSkill) ValidateInput(_ skilltypes.State, parameters string) error {
	input, err := decodeInput[WebSearchInput](parameters)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input.Keyword) == "" {
		return errors.New("keyword is required")
	}
	return nil
}

func (s *WebSearchSkill) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[WebSearchInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{attribute.String("keyword", input.Keyword)}, nil
}

func (s *WebSearchSkill) Execute(ctx context.Context, state skilltypes.State, parameters string) skilltypes.SkillResult {
	input, err := decodeInput[WebSearchInput](parameters)
	if err != nil {
		return skilltypes.NewFailedResult(s.Name(), skilltypes.ReasonInvalidInput, err.Error(), nil)
	}

	metadata := skilltypes.WebSearchMetadata{Keyword: input.Keyword, Results: []web.SearchResult{}}

	results, err := state.Searcher().Search(ctx, input.Keyword)
	if err != nil {
		reason := skilltypes.ReasonUpstreamError
		var statusErr *web.StatusError
		if errors.As(err, &statusErr) {
			reason = skilltypes.ReasonHTTPStatus
		}
		return skilltypes.NewFailedResult(s.Name(), reason, errors.Wrap(err, "web search failed").Error(), metadata)
	}

	if len(results) == 0 {
		return skilltypes.NewEmptyResult(s.Name(), fmt.Sprintf("No results found for %q", input.Keyword), skilltypes.ReasonNone, metadata)
	}
	metadata.Results = results
	return skilltypes.NewResult(s.Name(), formatSearchResults(results), metadata)
}

func formatSearchResults(results []web.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, r.Title, r.Href)
		if r.Body != "" {
			fmt.Fprintf(&b, "   %s\n", r.Body)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
