package gateway

import (
	"context"
	"testing"

	"mcpgateway/internal/profile"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

type recordingConnector struct {
	lastToolName   string
	lastPromptName string
}

func (r *recordingConnector) EnsureReady(ctx context.Context) error { return nil }
func (r *recordingConnector) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return nil, nil
}
func (r *recordingConnector) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	return nil, nil
}
func (r *recordingConnector) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	r.lastToolName = name
	return &mcp.CallToolResult{}, nil
}
func (r *recordingConnector) GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error) {
	r.lastPromptName = name
	return &mcp.GetPromptResult{}, nil
}
func (r *recordingConnector) Dispose() error { return nil }

func TestToolHandler_DispatchesThroughProfile(t *testing.T) {
	conn := &recordingConnector{}
	p := profile.New("default", []profile.ToolEntry{
		{Connector: conn, Descriptor: mcp.Tool{Name: "alpha__search"}, OriginalName: "search"},
	}, nil)

	handler := toolHandler(p)
	req := mcp.CallToolRequest{}
	req.Params.Name = "alpha__search"
	req.Params.Arguments = map[string]interface{}{"q": "x"}

	_, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "search", conn.lastToolName)
}

func TestPromptHandler_DispatchesThroughProfile(t *testing.T) {
	conn := &recordingConnector{}
	p := profile.New("default", nil, []profile.PromptEntry{
		{Connector: conn, Descriptor: mcp.Prompt{Name: "alpha__timezone"}, OriginalName: "timezone"},
	})

	handler := promptHandler(p)
	req := mcp.GetPromptRequest{}
	req.Params.Name = "alpha__timezone"

	_, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "timezone", conn.lastPromptName)
}

func TestNewMCPServer_BuildsWithoutPanicking(t *testing.T) {
	p := profile.New("default", nil, nil)
	require.NotPanics(t, func() { newMCPServer(p) })
}
