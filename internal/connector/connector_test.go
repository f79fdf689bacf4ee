package connector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

// fakeClient implements client.MCPClient with canned responses, letting the
// connector tests exercise base's caching/retry logic without a real
// subprocess or HTTP server.
type fakeClient struct {
	closeCalls int32
	tools      []mcp.Tool
	listErr    error
}

func (f *fakeClient) Initialize(ctx context.Context, r mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	return &mcp.InitializeResult{}, nil
}
func (f *fakeClient) Close() error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}
func (f *fakeClient) ListTools(ctx context.Context, r mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}
func (f *fakeClient) ListResources(ctx context.Context, r mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	return &mcp.ListResourcesResult{}, nil
}
func (f *fakeClient) ReadResource(ctx context.Context, r mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}
func (f *fakeClient) ListPrompts(ctx context.Context, r mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	return &mcp.ListPromptsResult{}, nil
}
func (f *fakeClient) GetPrompt(ctx context.Context, r mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}
func (f *fakeClient) CallTool(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{}, nil
}
func (f *fakeClient) Ping(ctx context.Context) error { return nil }

var _ client.MCPClient = (*fakeClient)(nil)

func newTestConnector(factory func() (client.MCPClient, error)) *base {
	return newBase("test", func(ctx context.Context) (client.MCPClient, error) {
		return factory()
	}, false)
}

func TestEnsureReady_Idempotent(t *testing.T) {
	calls := int32(0)
	b := newTestConnector(func() (client.MCPClient, error) {
		atomic.AddInt32(&calls, 1)
		return &fakeClient{}, nil
	})

	require.NoError(t, b.EnsureReady(context.Background()))
	require.NoError(t, b.EnsureReady(context.Background()))
	require.Equal(t, int32(1), calls)
}

func TestEnsureReady_ConcurrentCallersShareOneInit(t *testing.T) {
	calls := int32(0)
	b := newTestConnector(func() (client.MCPClient, error) {
		atomic.AddInt32(&calls, 1)
		return &fakeClient{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, b.EnsureReady(context.Background()))
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), calls)
}

func TestEnsureReady_RetriesAfterFailure(t *testing.T) {
	calls := int32(0)
	b := newTestConnector(func() (client.MCPClient, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, errors.New("boom")
		}
		return &fakeClient{}, nil
	})

	require.Error(t, b.EnsureReady(context.Background()))
	require.NoError(t, b.EnsureReady(context.Background()))
	require.Equal(t, int32(2), calls)
}

func TestEnsureReady_DisposedIsTerminal(t *testing.T) {
	b := newTestConnector(func() (client.MCPClient, error) {
		return &fakeClient{}, nil
	})
	require.NoError(t, b.Dispose())
	err := b.EnsureReady(context.Background())
	require.ErrorIs(t, err, ErrDisposed)
}

func TestListTools_CachesResult(t *testing.T) {
	fc := &fakeClient{tools: []mcp.Tool{{Name: "time"}}}
	b := newTestConnector(func() (client.MCPClient, error) { return fc, nil })

	tools, err := b.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)

	// Mutating the returned slice must not affect the cache.
	tools[0].Name = "mutated"
	again, err := b.ListTools(context.Background())
	require.NoError(t, err)
	require.Equal(t, "time", again[0].Name)
}

func TestEnsureReady_HealthCheckBoundsDeadline(t *testing.T) {
	var gotDeadline bool
	b := newBase("test", func(ctx context.Context) (client.MCPClient, error) {
		_, gotDeadline = ctx.Deadline()
		return &fakeClient{}, nil
	}, true)

	require.NoError(t, b.EnsureReady(context.Background()))
	require.True(t, gotDeadline, "healthCheck-enabled connector should bound initialisation to a deadline even when the caller's context has none")
}

func TestListTools_MethodNotFoundTranslatesToSentinel(t *testing.T) {
	fc := &fakeClient{listErr: errors.New("JSON-RPC error -32601: Method not found")}
	b := newTestConnector(func() (client.MCPClient, error) { return fc, nil })

	_, err := b.ListTools(context.Background())
	require.ErrorIs(t, err, ErrMethodNotFound)
}

func TestDispose_ClosesUnderlyingClientOnce(t *testing.T) {
	fc := &fakeClient{}
	b := newTestConnector(func() (client.MCPClient, error) { return fc, nil })
	require.NoError(t, b.EnsureReady(context.Background()))

	require.NoError(t, b.Dispose())
	require.NoError(t, b.Dispose())
	require.Equal(t, int32(1), fc.closeCalls)
}

func TestMergeEnv_OverridesWinOverInherited(t *testing.T) {
	t.Setenv("MCPGATEWAY_TEST_VAR", "inherited")
	merged := mergeEnv(map[string]string{"MCPGATEWAY_TEST_VAR": "override"})

	found := false
	for _, kv := range merged {
		if kv == "MCPGATEWAY_TEST_VAR=override" {
			found = true
		}
	}
	require.True(t, found)
}
