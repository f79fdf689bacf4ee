// Package registry builds and owns the set of connectors for every upstream
// MCP server declared in the gateway configuration. Grounded on the
// teacher's aggregator.ServerRegistry, simplified to this gateway's flat
// server/profile model: there is no dynamic register/deregister, only a
// fixed set built once at startup and torn down once at shutdown.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"mcpgateway/internal/config"
	"mcpgateway/internal/connector"
)

// ErrUnknownServer is returned by Get for a server-id not present in the
// configuration.
type ErrUnknownServer struct {
	ServerID string
}

func (e *ErrUnknownServer) Error() string {
	return fmt.Sprintf("unknown mcp server %q", e.ServerID)
}

// ConnectorRegistry owns one connector per configured upstream MCP server.
type ConnectorRegistry struct {
	connectors map[string]connector.Connector
}

// New builds a ConnectorRegistry from a loaded configuration. Connectors are
// constructed but not connected — EnsureReady is deferred to first use,
// mirroring each connector's own lazy-init contract.
func New(cfg *config.Config) *ConnectorRegistry {
	reg := &ConnectorRegistry{connectors: make(map[string]connector.Connector, len(cfg.MCPServers))}
	for serverID, desc := range cfg.MCPServers {
		switch desc.Type {
		case config.ServerTypeHTTP:
			reg.connectors[serverID] = connector.NewHTTPConnector(serverID, desc.URL, desc.Headers, desc.HealthCheck)
		case config.ServerTypeStdio:
			reg.connectors[serverID] = connector.NewStdioConnector(serverID, desc.Command, desc.Args, desc.Env, desc.HealthCheck)
		}
	}
	return reg
}

// Get returns the connector registered for serverID.
func (r *ConnectorRegistry) Get(serverID string) (connector.Connector, error) {
	c, ok := r.connectors[serverID]
	if !ok {
		return nil, &ErrUnknownServer{ServerID: serverID}
	}
	return c, nil
}

// ServerIDs returns every configured server-id, in no particular order.
func (r *ConnectorRegistry) ServerIDs() []string {
	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	return ids
}

// DisposeAll disposes every connector concurrently. A single connector's
// dispose failure does not stop the others from being attempted; all
// failures are collected and joined into one aggregate error. If ctx ends
// before every dispose call has returned, DisposeAll returns ctx's error
// without waiting further; the remaining dispose calls keep running.
func (r *ConnectorRegistry) DisposeAll(ctx context.Context) error {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errMsg []string
	)
	for id, c := range r.connectors {
		wg.Add(1)
		go func(id string, c connector.Connector) {
			defer wg.Done()
			if err := c.Dispose(); err != nil {
				mu.Lock()
				errMsg = append(errMsg, fmt.Sprintf("%s: %v", id, err))
				mu.Unlock()
			}
		}(id, c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("disposing connectors: %w", ctx.Err())
	}

	if len(errMsg) == 0 {
		return nil
	}
	return errors.New(strings.Join(errMsg, "; "))
}
