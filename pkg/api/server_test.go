package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
)

func newTestServer(t *testing.T, opts ...skills.BasicStateOption) *Server {
	t.Helper()
	ctx := context.Background()
	state := skills.NewBasicState(ctx, opts...)
	s, err := NewServer(ctx, &ServerConfig{Host: "127.0.0.1", Port: 8080}, state)
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type runResponse struct {
	Result struct {
		SkillName string `json:"skillName"`
		Status    string `json:"status"`
		Reason    string `json:"reason"`
		Error     string `json:"error"`
	} `json:"result"`
	Text string `json:"text"`
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr string
	}{
		{name: "valid", config: ServerConfig{Host: "localhost", Port: 8080}},
		{name: "empty host", config: ServerConfig{Port: 8080}, wantErr: "host cannot be empty"},
		{name: "port too low", config: ServerConfig{Host: "localhost", Port: 0}, wantErr: "port must be between"},
		{name: "port too high", config: ServerConfig{Host: "localhost", Port: 70000}, wantErr: "port must be between"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	state := skills.NewBasicState(context.Background())
	_, err := NewServer(context.Background(), &ServerConfig{Host: "", Port: 1}, state)
	assert.Error(t, err)

	_, err = NewServer(context.Background(), &ServerConfig{Host: "localhost", Port: 1}, nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListSkills(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/skills", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Skills []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			Schema      json.RawMessage `json:"schema"`
		} `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Skills, len(skills.All()))

	for i, skill := range skills.All() {
		assert.Equal(t, skill.Name(), body.Skills[i].Name)
		assert.NotEmpty(t, body.Skills[i].Description)
		assert.Contains(t, string(body.Skills[i].Schema), "properties")
	}
}

func TestRunSkillUnknown(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/skills/does_not_exist", "{}")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown skill: does_not_exist")
}

func TestRunSkillInvalidInput(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing field", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/skills/reddit_search_subreddits", `{"query": ""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp runResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "failed", resp.Result.Status)
		assert.Equal(t, string(skilltypes.ReasonInvalidInput), resp.Result.Reason)
		assert.Contains(t, resp.Result.Error, "query is required")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/skills/reddit_search_subreddits", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "must be a JSON object")
	})
}

func TestRunSkillUpstreamFailureIsOK(t *testing.T) {
	factory := func(context.Context) (reddit.API, error) {
		return nil, reddit.ErrMissingCredentials
	}
	s := newTestServer(t, skills.WithRedditFactory(factory))

	rec := doRequest(s, http.MethodPost, "/api/skills/reddit_hot_submissions", `{"subreddit": "golang"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reddit_hot_submissions", resp.Result.SkillName)
	assert.Equal(t, "failed", resp.Result.Status)
	assert.Equal(t, string(skilltypes.ReasonMissingCredentials), resp.Result.Reason)
	assert.Contains(t, resp.Text, "<error>")
}

func TestRunSkillDirectoryIngest(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello\n\nworld"), 0o644))

	fi := ignore.New(ctx, ignore.NewMemoryStore(ignore.Patterns{ExceptPatterns: []string{"*.txt"}}))
	s := newTestServer(t, skills.WithFileIgnore(fi))

	payload, err := json.Marshal(map[string]string{"path": root})
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/api/skills/directory_ingest", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Result.Status)
	assert.Contains(t, resp.Text, filepath.Join(root, "a.txt"))
}

func TestRunSkillRequiresPost(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/skills/web_search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	state := skills.NewBasicState(ctx)
	s, err := NewServer(ctx, &ServerConfig{Host: "127.0.0.1", Port: 18765}, state)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	assert.NoError(t, <-done)
}
