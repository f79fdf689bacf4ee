// Package connector implements the gateway's per-upstream connection
// lifecycle (spec.md §4.1): lazy initialisation shared by concurrent callers,
// cached tool/prompt listings, and idempotent disposal. Two variants exist —
// HTTPConnector and StdioConnector — differing only in how they construct the
// underlying mark3labs/mcp-go client transport.
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"mcpgateway/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultHealthCheckTimeout bounds EnsureReady when a connector's config
// opts into healthCheck (spec.md §3.1): the handshake context gets a deadline
// at most this far away, so a single unreachable upstream flagged this way
// cannot stall profile resolution for longer than that. A caller deadline
// that is already shorter still applies.
const defaultHealthCheckTimeout = 10 * time.Second

// ErrDisposed is returned by any operation attempted on a disposed connector.
var ErrDisposed = errors.New("connector: disposed")

// ErrMethodNotFound is surfaced by ListTools/ListPrompts when the upstream
// does not implement that capability at all; callers treat it as "this
// upstream exposes nothing of that kind" rather than a hard failure.
var ErrMethodNotFound = errors.New("connector: method not found")

// Connector represents a single upstream MCP server. Implementations must be
// safe for concurrent use: multiple goroutines may call EnsureReady, ListTools,
// ListPrompts, CallTool, GetPrompt, and Dispose concurrently.
type Connector interface {
	// EnsureReady performs (or awaits an in-flight) initialisation. It is
	// idempotent: once initialised, subsequent calls return immediately.
	EnsureReady(ctx context.Context) error

	// ListTools returns a defensive copy of the cached tool listing,
	// populated on first successful call.
	ListTools(ctx context.Context) ([]mcp.Tool, error)

	// ListPrompts is the prompt equivalent of ListTools.
	ListPrompts(ctx context.Context) ([]mcp.Prompt, error)

	// CallTool forwards a call to the upstream using its original (non
	// prefixed) tool name.
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)

	// GetPrompt forwards a prompt fetch to the upstream using its original name.
	GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error)

	// Dispose idempotently tears the connector down. Safe to call multiple
	// times and safe to call even if the connector was never initialised.
	Dispose() error
}

// transportFactory constructs and initialises the underlying mcp-go client.
// HTTPConnector and StdioConnector each supply their own.
type transportFactory func(ctx context.Context) (client.MCPClient, error)

// base implements the EnsureReady/cache/dispose machinery shared by both
// connector variants, following the once-guard-with-retryable-failure shape
// spec.md §9 calls for: an in-flight result slot whose success latches the
// client and whose failure clears the slot so the next caller may retry.
type base struct {
	serverID  string
	newClient transportFactory

	// healthCheckTimeout, when non-zero, caps the handshake performed by
	// EnsureReady: the caller's context is wrapped with this timeout, so the
	// earlier of the two deadlines applies. Zero means "trust the caller".
	healthCheckTimeout time.Duration

	mu       sync.Mutex
	client   client.MCPClient
	initErr  error
	initOnce *sync.WaitGroup // non-nil while an initialisation is in flight
	disposed bool

	toolsMu  sync.RWMutex
	tools    []mcp.Tool
	toolsSet bool

	promptsMu  sync.RWMutex
	prompts    []mcp.Prompt
	promptsSet bool
}

func newBase(serverID string, factory transportFactory, healthCheck bool) *base {
	b := &base{serverID: serverID, newClient: factory}
	if healthCheck {
		b.healthCheckTimeout = defaultHealthCheckTimeout
	}
	return b
}

// EnsureReady is idempotent and serialises concurrent initialisation
// attempts: the first caller performs the handshake, later concurrent
// callers await the same in-flight attempt instead of starting their own.
func (b *base) EnsureReady(ctx context.Context) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", b.serverID, ErrDisposed)
	}
	if b.client != nil {
		b.mu.Unlock()
		return nil
	}
	if wg := b.initOnce; wg != nil {
		b.mu.Unlock()
		wg.Wait()
		b.mu.Lock()
		err := b.initErr
		ready := b.client != nil
		b.mu.Unlock()
		if ready {
			return nil
		}
		return err
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	b.initOnce = wg
	healthCheckTimeout := b.healthCheckTimeout
	b.mu.Unlock()

	initCtx := ctx
	if healthCheckTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
	}

	c, err := b.newClient(initCtx)

	b.mu.Lock()
	if err != nil {
		b.initErr = err
		b.initOnce = nil
		b.mu.Unlock()
		wg.Done()
		return err
	}
	b.client = c
	b.initErr = nil
	b.initOnce = nil
	b.mu.Unlock()
	wg.Done()
	return nil
}

func (b *base) currentClient() (client.MCPClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil, fmt.Errorf("%s: %w", b.serverID, ErrDisposed)
	}
	if b.client == nil {
		return nil, fmt.Errorf("%s: not initialised", b.serverID)
	}
	return b.client, nil
}

// ListTools ensures readiness, then serves from cache, populating it on the
// first successful call. Returned slices are copies so callers may mutate
// them freely without corrupting the cache.
func (b *base) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if err := b.EnsureReady(ctx); err != nil {
		return nil, err
	}

	b.toolsMu.RLock()
	if b.toolsSet {
		cached := make([]mcp.Tool, len(b.tools))
		copy(cached, b.tools)
		b.toolsMu.RUnlock()
		return cached, nil
	}
	b.toolsMu.RUnlock()

	c, err := b.currentClient()
	if err != nil {
		return nil, err
	}
	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		if isMethodNotFound(err) {
			return nil, fmt.Errorf("%s: %w", b.serverID, ErrMethodNotFound)
		}
		return nil, fmt.Errorf("%s: list tools: %w", b.serverID, err)
	}

	b.toolsMu.Lock()
	b.tools = result.Tools
	b.toolsSet = true
	b.toolsMu.Unlock()

	cached := make([]mcp.Tool, len(result.Tools))
	copy(cached, result.Tools)
	return cached, nil
}

// ListPrompts mirrors ListTools for prompts.
func (b *base) ListPrompts(ctx context.Context) ([]mcp.Prompt, error) {
	if err := b.EnsureReady(ctx); err != nil {
		return nil, err
	}

	b.promptsMu.RLock()
	if b.promptsSet {
		cached := make([]mcp.Prompt, len(b.prompts))
		copy(cached, b.prompts)
		b.promptsMu.RUnlock()
		return cached, nil
	}
	b.promptsMu.RUnlock()

	c, err := b.currentClient()
	if err != nil {
		return nil, err
	}
	result, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		if isMethodNotFound(err) {
			return nil, fmt.Errorf("%s: %w", b.serverID, ErrMethodNotFound)
		}
		return nil, fmt.Errorf("%s: list prompts: %w", b.serverID, err)
	}

	b.promptsMu.Lock()
	b.prompts = result.Prompts
	b.promptsSet = true
	b.promptsMu.Unlock()

	cached := make([]mcp.Prompt, len(result.Prompts))
	copy(cached, result.Prompts)
	return cached, nil
}

func (b *base) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	if err := b.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c, err := b.currentClient()
	if err != nil {
		return nil, err
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: call tool %s: %w", b.serverID, name, err)
	}
	return result, nil
}

func (b *base) GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error) {
	if err := b.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c, err := b.currentClient()
	if err != nil {
		return nil, err
	}
	stringArgs := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			stringArgs[k] = s
		} else {
			stringArgs[k] = fmt.Sprintf("%v", v)
		}
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = stringArgs
	result, err := c.GetPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: get prompt %s: %w", b.serverID, name, err)
	}
	return result, nil
}

// Dispose clears caches and any in-flight init state, then closes the
// underlying transport on a best-effort basis. Safe to call more than once.
func (b *base) Dispose() error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return nil
	}
	b.disposed = true
	c := b.client
	b.client = nil
	b.initOnce = nil
	b.mu.Unlock()

	b.toolsMu.Lock()
	b.tools = nil
	b.toolsSet = false
	b.toolsMu.Unlock()

	b.promptsMu.Lock()
	b.prompts = nil
	b.promptsSet = false
	b.promptsMu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		logging.Warn("Connector", "error closing client for %s: %v", b.serverID, err)
		return err
	}
	return nil
}

// isMethodNotFound best-effort detects the upstream returning a
// "method not found" style JSON-RPC error for capabilities it doesn't
// implement (e.g. a tools-only server with no prompts/list). mcp-go
// surfaces JSON-RPC error responses as plain errors carrying the
// server's message text, so matching is done on that text rather than
// a typed error value.
func isMethodNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "method not found")
}
