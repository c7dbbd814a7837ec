package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "skillz-test/1.0"

type fakeReddit struct {
	t          *testing.T
	server     *httptest.Server
	tokenCalls atomic.Int32
	apiCalls   atomic.Int32
	failFirst  int32
	failStatus int
}

func newFakeReddit(t *testing.T) *fakeReddit {
	f := &fakeReddit{t: t, failStatus: http.StatusServiceUnavailable}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"token-123","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := f.apiCalls.Add(1)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))

		if n <= f.failFirst {
			w.WriteHeader(f.failStatus)
			return
		}

		switch r.URL.Path {
		case "/subreddits/search":
			writeListing(w, []map[string]any{
				{"display_name": "golang", "title": "The Go Programming Language", "subscribers": 250000, "url": "/r/golang/"},
				{"display_name": "golang_dead", "title": "Nobody", "subscribers": 0, "url": "/r/golang_dead/"},
			})
		case "/r/golang/hot":
			writeListing(w, submissions(12))
		case "/r/golang/search":
			assert.Equal(t, "1", r.URL.Query().Get("restrict_sr"))
			assert.Equal(t, "generics", r.URL.Query().Get("q"))
			writeListing(w, submissions(2))
		case "/r/private/hot":
			w.WriteHeader(http.StatusForbidden)
		case "/r/broken/hot":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"kind": "Listing", "data": `)
		case "/r/mistyped/hot":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"kind": "Listing", "data": {"children": "nope"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeReddit) config() Config {
	return Config{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    testUserAgent,
		BaseURL:      f.server.URL,
		TokenURL:     f.server.URL + "/api/v1/access_token",
		Timeout:      5 * time.Second,
		Retry:        RetryConfig{Attempts: 3, InitialDelay: 1, MaxDelay: 5, BackoffType: "fixed"},
	}
}

func writeListing(w http.ResponseWriter, items []map[string]any) {
	children := make([]map[string]any, 0, len(items))
	for _, item := range items {
		children = append(children, map[string]any{"kind": "t3", "data": item})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"kind": "Listing",
		"data": map[string]any{"children": children},
	})
}

func submissions(n int) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"id":           fmt.Sprintf("id%d", i),
			"title":        fmt.Sprintf("Post %d", i),
			"author":       "gopher",
			"subreddit":    "golang",
			"score":        i * 10,
			"num_comments": i,
			"permalink":    fmt.Sprintf("/r/golang/comments/id%d/", i),
			"over_18":      false,
		})
	}
	return items
}

func TestNewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty", Config{}},
		{"missing secret", Config{ClientID: "id", UserAgent: "ua"}},
		{"missing user agent", Config{ClientID: "id", ClientSecret: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, ErrMissingCredentials)
		})
	}
}

func TestClient_SearchSubreddits(t *testing.T) {
	fake := newFakeReddit(t)
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	subreddits, err := client.SearchSubreddits(context.Background(), "golang")
	require.NoError(t, err)

	require.Len(t, subreddits, 1)
	assert.Equal(t, "golang", subreddits[0].DisplayName)
	assert.Equal(t, 250000, subreddits[0].Subscribers)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestClient_HotSubmissionsCappedAtLimit(t *testing.T) {
	fake := newFakeReddit(t)
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	posts, err := client.HotSubmissions(context.Background(), "golang")
	require.NoError(t, err)

	require.Len(t, posts, Limit)
	assert.Equal(t, "id0", posts[0].ID)
	assert.Equal(t, "Post 1", posts[1].Title)
	assert.Equal(t, 10, posts[1].Score)
}

func TestClient_SearchSubmissions(t *testing.T) {
	fake := newFakeReddit(t)
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	posts, err := client.SearchSubmissions(context.Background(), "golang", "generics")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestClient_NonRetryableStatus(t *testing.T) {
	fake := newFakeReddit(t)
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	_, err = client.HotSubmissions(context.Background(), "private")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, int32(1), fake.apiCalls.Load())
}

func TestClient_MalformedListingNotRetried(t *testing.T) {
	for _, sub := range []string{"broken", "mistyped"} {
		t.Run(sub, func(t *testing.T) {
			fake := newFakeReddit(t)
			client, err := NewClient(context.Background(), fake.config())
			require.NoError(t, err)

			_, err = client.HotSubmissions(context.Background(), sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to decode listing")
			assert.Equal(t, int32(1), fake.apiCalls.Load())
		})
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	fake := newFakeReddit(t)
	fake.failFirst = 2
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	posts, err := client.HotSubmissions(context.Background(), "golang")
	require.NoError(t, err)
	assert.Len(t, posts, Limit)
	assert.Equal(t, int32(3), fake.apiCalls.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	fake := newFakeReddit(t)
	fake.failFirst = 100
	fake.failStatus = http.StatusTooManyRequests
	client, err := NewClient(context.Background(), fake.config())
	require.NoError(t, err)

	_, err = client.SearchSubreddits(context.Background(), "golang")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, int32(3), fake.apiCalls.Load())
}

func TestClient_BadCredentials(t *testing.T) {
	fake := newFakeReddit(t)
	cfg := fake.config()
	cfg.ClientSecret = "wrong"
	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	_, err = client.SearchSubreddits(context.Background(), "golang")
	assert.Error(t, err)
	assert.Equal(t, int32(0), fake.apiCalls.Load())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(&APIError{StatusCode: 500}))
	assert.True(t, isRetryableError(&APIError{StatusCode: 429}))
	assert.False(t, isRetryableError(&APIError{StatusCode: 404}))
	assert.False(t, isRetryableError(errors.Wrap(context.Canceled, "request")))
	assert.True(t, isRetryableError(errors.New("connection reset by peer")))
	assert.False(t, isRetryableError(errors.Wrap(&json.SyntaxError{Offset: 3}, "failed to decode listing")))
	assert.False(t, isRetryableError(errors.Wrap(&json.UnmarshalTypeError{Value: "string"}, "failed to decode listing")))
}

func TestConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	t.Setenv("REDDIT_CLIENT_ID", "env-id")
	t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")
	t.Setenv("REDDIT_USER_AGENT", "env-agent")
	v.Set("reddit.retry.attempts", 5)

	cfg, err := ConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "env-agent", cfg.UserAgent)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTokenURL, cfg.TokenURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, "exponential", cfg.Retry.BackoffType)
}
