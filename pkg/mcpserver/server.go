// Package mcpserver exposes the skill registry as Model Context Protocol tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/logger"
	"github.com/jingkaihe/skillz/pkg/skills"
	skilltypes "github.com/jingkaihe/skillz/pkg/types/skills"
	"github.com/jingkaihe/skillz/pkg/version"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "skillz"

// New builds an MCP server with one tool per registered skill, all sharing state.
func New(state skilltypes.State) (*server.MCPServer, error) {
	s := server.NewMCPServer(ServerName, version.Get().Version, server.WithToolCapabilities(false))

	for _, skill := range skills.All() {
		schema, err := json.Marshal(skill.GenerateSchema())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal schema for %s", skill.Name())
		}
		tool := mcp.NewToolWithRawSchema(skill.Name(), skill.Description(), schema)
		s.AddTool(tool, handler(state, skill.Name()))
	}

	return s, nil
}

func handler(state skilltypes.State, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		arguments := request.Params.Arguments
		if arguments == nil {
			arguments = map[string]any{}
		}
		parameters, err := json.Marshal(arguments)
		if err != nil {
			return mcp.NewToolResultError(errors.Wrap(err, "invalid arguments").Error()), nil
		}

		ctx = logger.WithFields(ctx, map[string]any{"skill": name, "session": state.SessionID()})
		result := skills.Run(ctx, state, name, string(parameters))
		if result.IsError() {
			return mcp.NewToolResultError(result.AssistantFacing()), nil
		}
		return mcp.NewToolResultText(result.AssistantFacing()), nil
	}
}

// ServeStdio serves s over the given reader and writer until ctx is done or
// the input is closed.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(logger.StdLogger(ctx))

	logger.G(ctx).WithField("tools", len(skills.All())).Info("serving MCP over stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "MCP stdio server failed")
	}
	return nil
}
