package gateway

import (
	"context"

	"mcpgateway/internal/profile"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// gatewayName/gatewayVersion identify this gateway to upstreams and clients
// during the MCP initialize handshake, mirroring the teacher's fixed
// "muster-aggregator"/"1.0.0" pair.
const (
	gatewayName    = "mcpgateway"
	gatewayVersion = "1.0.0"
)

// newMCPServer builds the fresh, per-request MCP server described in spec.md
// §4.5: empty capability descriptors at construction time, populated
// immediately with the resolved profile's current tool/prompt snapshot, and
// request handlers that dispatch straight to the profile.
func newMCPServer(p *profile.Profile) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		gatewayName,
		gatewayVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithPromptCapabilities(false),
	)

	tools := p.ListTools()
	if len(tools) > 0 {
		serverTools := make([]mcpserver.ServerTool, 0, len(tools))
		for _, t := range tools {
			serverTools = append(serverTools, mcpserver.ServerTool{
				Tool:    t,
				Handler: toolHandler(p),
			})
		}
		srv.AddTools(serverTools...)
	}

	prompts := p.ListPrompts()
	if len(prompts) > 0 {
		serverPrompts := make([]mcpserver.ServerPrompt, 0, len(prompts))
		for _, pr := range prompts {
			serverPrompts = append(serverPrompts, mcpserver.ServerPrompt{
				Prompt:  pr,
				Handler: promptHandler(p),
			})
		}
		srv.AddPrompts(serverPrompts...)
	}

	return srv
}

// toolHandler closes over the resolved profile so every tool's handler
// forwards by the name the request actually names — profile.CallTool does
// the original-name rewrite (spec.md Scenario G).
func toolHandler(p *profile.Profile) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]interface{}{}
		if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
			args = m
		}
		return p.CallTool(ctx, req.Params.Name, args)
	}
}

func promptHandler(p *profile.Profile) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := map[string]interface{}{}
		for k, v := range req.Params.Arguments {
			args[k] = v
		}
		return p.GetPrompt(ctx, req.Params.Name, args)
	}
}
