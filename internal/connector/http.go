package connector

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

const protocolVersion = "2024-11-05"

// HTTPConnector reaches an upstream MCP server over streaming HTTP, with an
// optional set of static headers (e.g. a bearer token) attached to every
// request. Grounded on the teacher's StreamableHTTPClient.
type HTTPConnector struct {
	*base
}

// NewHTTPConnector builds an HTTPConnector for the given upstream URL. No
// network activity happens until EnsureReady is first called.
func NewHTTPConnector(serverID, url string, headers map[string]string, healthCheck bool) *HTTPConnector {
	c := &HTTPConnector{}
	c.base = newBase(serverID, func(ctx context.Context) (client.MCPClient, error) {
		var opts []transport.StreamableHTTPCOption
		if len(headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(headers))
		}

		mcpClient, err := client.NewStreamableHttpClient(url, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: creating streamable-http client: %w", serverID, err)
		}

		if _, err := mcpClient.Initialize(ctx, newInitializeRequest(serverID)); err != nil {
			mcpClient.Close()
			return nil, fmt.Errorf("%s: initializing: %w", serverID, err)
		}
		return mcpClient, nil
	}, healthCheck)
	return c
}

func newInitializeRequest(serverID string) mcp.InitializeRequest {
	return mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "mcpgateway",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}
}
