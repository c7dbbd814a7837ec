// Package reddit is a small application-only client for the Reddit API
// covering subreddit search, hot listings and in-subreddit search.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jingkaihe/skillz/pkg/logger"
)

// Limit caps the number of items returned by every operation.
const Limit = 10

// ErrMissingCredentials is returned when the client id, secret or user agent is unset.
var ErrMissingCredentials = errors.New("reddit credentials are not configured (REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET, REDDIT_USER_AGENT)")

// APIError is a non-2xx response from the Reddit API.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit API %s returned status %d", e.Path, e.StatusCode)
}

// Temporary reports whether the request is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// API is the set of Reddit operations the skills use.
type API interface {
	SearchSubreddits(ctx context.Context, query string) ([]Subreddit, error)
	HotSubmissions(ctx context.Context, subreddit string) ([]Submission, error)
	SearchSubmissions(ctx context.Context, subreddit, keyword string) ([]Submission, error)
}

// ClientFactory builds a fresh API client for a single call.
type ClientFactory func(ctx context.Context) (API, error)

// NewClientFactory returns a factory that builds clients from cfg.
func NewClientFactory(cfg Config) ClientFactory {
	return func(ctx context.Context) (API, error) {
		return NewClient(ctx, cfg)
	}
}

// Client talks to the Reddit API with an application-only OAuth2 token.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ API = (*Client)(nil)

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// NewClient validates cfg and prepares an OAuth2 client. No request is made
// until the first operation.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.UserAgent == "" {
		return nil, ErrMissingCredentials
	}

	base := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport},
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	httpClient := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = cfg.Timeout

	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

// SearchSubreddits finds subreddits by name, dropping ones without subscribers.
func (c *Client) SearchSubreddits(ctx context.Context, query string) ([]Subreddit, error) {
	l, err := c.listing(ctx, "/subreddits/search", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}

	subreddits, err := decodeChildren[Subreddit](l)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode subreddits")
	}

	result := make([]Subreddit, 0, len(subreddits))
	for _, s := range subreddits {
		if s.Subscribers > 0 {
			result = append(result, s)
		}
	}
	return result, nil
}

// HotSubmissions lists the hot submissions of a subreddit.
func (c *Client) HotSubmissions(ctx context.Context, subreddit string) ([]Submission, error) {
	l, err := c.listing(ctx, "/r/"+url.PathEscape(subreddit)+"/hot", url.Values{})
	if err != nil {
		return nil, err
	}
	submissions, err := decodeChildren[Submission](l)
	return submissions, errors.Wrap(err, "failed to decode submissions")
}

// SearchSubmissions searches for keyword within a single subreddit.
func (c *Client) SearchSubmissions(ctx context.Context, subreddit, keyword string) ([]Submission, error) {
	l, err := c.listing(ctx, "/r/"+url.PathEscape(subreddit)+"/search", url.Values{
		"q":           {keyword},
		"restrict_sr": {"1"},
	})
	if err != nil {
		return nil, err
	}
	submissions, err := decodeChildren[Submission](l)
	return submissions, errors.Wrap(err, "failed to decode submissions")
}

func (c *Client) listing(ctx context.Context, path string, query url.Values) (listing, error) {
	query.Set("limit", fmt.Sprint(Limit))
	query.Set("raw_json", "1")
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + query.Encode()

	var result listing
	err := c.withRetry(ctx, func() error {
		var err error
		result, err = c.get(ctx, endpoint, path)
		return err
	})
	if len(result.Data.Children) > Limit {
		result.Data.Children = result.Data.Children[:Limit]
	}
	return result, err
}

func (c *Client) get(ctx context.Context, endpoint, path string) (listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return listing{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return listing{}, errors.Wrapf(err, "request to %s failed", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return listing{}, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return listing{}, &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return listing{}, errors.Wrap(err, "failed to decode listing")
	}
	return l, nil
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	retryConfig := c.cfg.Retry

	var delayType retry.DelayTypeFunc
	switch retryConfig.BackoffType {
	case "fixed":
		delayType = retry.FixedDelay
	case "exponential":
		fallthrough
	default:
		delayType = retry.BackOffDelay
	}

	return retry.Do(
		fn,
		retry.RetryIf(isRetryableError),
		retry.Attempts(uint(retryConfig.Attempts)),
		retry.Delay(time.Duration(retryConfig.InitialDelay)*time.Millisecond),
		retry.DelayType(delayType),
		retry.MaxDelay(time.Duration(retryConfig.MaxDelay)*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("max_attempts", retryConfig.Attempts).Warn("retrying reddit API call")
		}),
	)
}

func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500
	}

	return true
}
