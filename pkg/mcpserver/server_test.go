package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillz/pkg/reddit"
	"github.com/jingkaihe/skillz/pkg/skills"
	"github.com/jingkaihe/skillz/pkg/web"
)

type staticSearcher struct {
	results []web.SearchResult
}

func (s *staticSearcher) Search(_ context.Context, _ string) ([]web.SearchResult, error) {
	return s.results, nil
}

func newTestClient(t *testing.T) *client.Client {
	t.Helper()
	ctx := context.Background()

	state := skills.NewBasicState(ctx,
		skills.WithRedditFactory(reddit.NewClientFactory(reddit.Config{})),
		skills.WithSearcher(&staticSearcher{results: []web.SearchResult{{Title: "Go", Href: "https://go.dev"}}}),
	)
	srv, err := New(state)
	require.NoError(t, err)

	c, err := client.NewInProcessClient(srv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "skillz-test", Version: "0.0.1"}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initResult, err := c.Initialize(ctx, initReq)
	require.NoError(t, err)
	assert.Equal(t, ServerName, initResult.ServerInfo.Name)

	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return result
}

func textOf(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func TestListTools(t *testing.T) {
	c := newTestClient(t)

	list, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	for _, skill := range skills.All() {
		assert.Contains(t, names, skill.Name())
	}
}

func TestCallTool_Success(t *testing.T) {
	c := newTestClient(t)

	result := callTool(t, c, "web_search", map[string]any{"keyword": "golang"})
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(result), "https://go.dev")
}

func TestCallTool_FailureIsToolError(t *testing.T) {
	c := newTestClient(t)

	result := callTool(t, c, "reddit_hot_submissions", map[string]any{"subreddit": "golang"})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(result), "credentials")
}

func TestCallTool_InvalidInput(t *testing.T) {
	c := newTestClient(t)

	result := callTool(t, c, "web_search", map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(result), "keyword is required")
}
