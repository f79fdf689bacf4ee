package connector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"mcpgateway/pkg/logging"

	"github.com/mark3labs/mcp-go/client"
)

// StdioConnector spawns the upstream MCP server as a child process and talks
// to it over line-framed stdio. Grounded on the teacher's StdioClient,
// including its stderr-capture mechanism, generalised here to forward every
// line to the gateway's own log stream prefixed with the server-id.
type StdioConnector struct {
	*base

	stderrMu   sync.Mutex
	stderrDone chan struct{}
	stopStderr func()
}

// NewStdioConnector builds a StdioConnector that will spawn command with args
// when first used. env is unioned with the gateway process's own environment,
// with entries in env taking precedence over any same-named variable already
// present in the process environment.
func NewStdioConnector(serverID, command string, args []string, env map[string]string, healthCheck bool) *StdioConnector {
	c := &StdioConnector{}
	c.base = newBase(serverID, func(ctx context.Context) (client.MCPClient, error) {
		envStrings := mergeEnv(env)

		mcpClient, err := client.NewStdioMCPClient(command, envStrings, args...)
		if err != nil {
			return nil, fmt.Errorf("%s: spawning %s: %w", serverID, command, err)
		}

		// EnsureReady already applies healthCheckTimeout when the server opted
		// into it, so ctx carries a deadline in that case. This fallback only
		// covers the remaining case: healthCheck disabled and the caller
		// itself passed a context with no deadline at all, which would
		// otherwise let a hung child process block initialisation forever.
		initCtx := ctx
		var cancel context.CancelFunc
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			initCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
		}

		if _, err := mcpClient.Initialize(initCtx, newInitializeRequest(serverID)); err != nil {
			mcpClient.Close()
			return nil, fmt.Errorf("%s: initializing %s: %w", serverID, command, err)
		}

		c.startStderrPump(serverID, mcpClient)
		return mcpClient, nil
	}, healthCheck)
	return c
}

// mergeEnv overlays the process environment with the server-specific
// overrides, env-specified entries winning over same-named inherited ones.
func mergeEnv(overrides map[string]string) []string {
	merged := make(map[string]string, len(overrides)+16)
	for _, kv := range os.Environ() {
		for i := range kv {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// startStderrPump forwards the child's stderr, line by line, to the gateway
// log stream, tagged with the server-id and a timestamp. It runs on its own
// goroutine and is stopped before the transport is closed during Dispose, so
// no reads race against process teardown.
func (c *StdioConnector) startStderrPump(serverID string, mcpClient client.MCPClient) {
	concrete, ok := mcpClient.(*client.Client)
	if !ok {
		return
	}
	stderr, ok := client.GetStderr(concrete)
	if !ok || stderr == nil {
		return
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	c.stderrMu.Lock()
	c.stderrDone = done
	c.stopStderr = sync.OnceFunc(func() { close(stopped) })
	c.stderrMu.Unlock()

	go func() {
		defer close(done)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			select {
			case <-stopped:
				return
			default:
			}
			logging.Info("Connector", "[%s %s] %s", serverID, time.Now().Format(time.RFC3339), scanner.Text())
		}
	}()
}

// Dispose stops the stderr pump before closing the underlying transport, then
// delegates to base.Dispose for the rest of the teardown.
func (c *StdioConnector) Dispose() error {
	c.stderrMu.Lock()
	stop := c.stopStderr
	done := c.stderrDone
	c.stderrMu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
	return c.base.Dispose()
}
