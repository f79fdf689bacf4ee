package profile

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

// recordingConnector captures the name CallTool/GetPrompt is invoked with, so
// tests can assert that dispatch rewrites the exported name back to the
// upstream's original name (spec.md §8, Scenario G).
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

func TestCallTool_RewritesToOriginalName(t *testing.T) {
	conn := &recordingConnector{}
	p := New("default", []ToolEntry{
		{Connector: conn, Descriptor: mcp.Tool{Name: "alpha__search"}, OriginalName: "search"},
	}, nil)

	_, err := p.CallTool(context.Background(), "alpha__search", map[string]interface{}{})
	require.NoError(t, err)
	require.Equal(t, "search", conn.lastToolName)
}

func TestCallTool_UnknownNameFails(t *testing.T) {
	p := New("default", nil, nil)
	_, err := p.CallTool(context.Background(), "ghost", nil)
	require.Error(t, err)
	var unknown *ErrUnknownTool
	require.ErrorAs(t, err, &unknown)
}

func TestListTools_PreservesResolutionOrder(t *testing.T) {
	p := New("default", []ToolEntry{
		{Descriptor: mcp.Tool{Name: "b"}},
		{Descriptor: mcp.Tool{Name: "a"}},
	}, nil)
	names := p.ToolNames()
	require.Equal(t, []string{"b", "a"}, names)
}

func TestGetPrompt_RewritesToOriginalName(t *testing.T) {
	conn := &recordingConnector{}
	p := New("default", nil, []PromptEntry{
		{Connector: conn, Descriptor: mcp.Prompt{Name: "alpha__timezone"}, OriginalName: "timezone"},
	})

	_, err := p.GetPrompt(context.Background(), "alpha__timezone", nil)
	require.NoError(t, err)
	require.Equal(t, "timezone", conn.lastPromptName)
}
