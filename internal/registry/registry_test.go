package registry

import (
	"context"
	"testing"

	"mcpgateway/internal/config"

	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Listen: "localhost:8080",
		MCPServers: map[string]config.ServerDescriptor{
			"alpha": {Type: config.ServerTypeHTTP, URL: "https://alpha.example.com/mcp"},
			"beta":  {Type: config.ServerTypeStdio, Command: "beta-server"},
		},
	}
}

func TestNew_BuildsOneConnectorPerServer(t *testing.T) {
	reg := New(testConfig())
	require.Len(t, reg.ServerIDs(), 2)

	_, err := reg.Get("alpha")
	require.NoError(t, err)
	_, err = reg.Get("beta")
	require.NoError(t, err)
}

func TestGet_UnknownServerIDFails(t *testing.T) {
	reg := New(testConfig())
	_, err := reg.Get("ghost")
	require.Error(t, err)
	var unknown *ErrUnknownServer
	require.ErrorAs(t, err, &unknown)
}

func TestDisposeAll_NoConnectorsIsNoop(t *testing.T) {
	reg := New(&config.Config{})
	require.NoError(t, reg.DisposeAll(context.Background()))
}
