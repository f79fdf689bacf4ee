package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcpgateway/internal/config"
	"mcpgateway/internal/gateway"
	"mcpgateway/internal/registry"
	"mcpgateway/pkg/logging"

	"github.com/briandowns/spinner"
	"github.com/coreos/go-systemd/v22/activation"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// shutdownGracePeriod bounds both the HTTP server's graceful shutdown and
// the connector registry's dispose-all, per spec.md §6's 5s fail-safe timer.
const shutdownGracePeriod = 5 * time.Second

var (
	serveConfigPath string
	serveQuiet      bool
)

func newServeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP gateway HTTP server",
		Long: `Loads the gateway configuration, builds connectors for every configured
upstream MCP server, and serves the HTTP dispatcher until a termination
signal is received.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	c.Flags().StringVarP(&serveConfigPath, "config", "c", defaultConfigPath, "path to the gateway config file")
	c.Flags().BoolVarP(&serveQuiet, "quiet", "q", false, "suppress the startup progress spinner")
	return c
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	connectors := registry.New(cfg)
	warmUpConnectors(cmd.Context(), connectors)

	dispatcher := gateway.NewDispatcher(cfg, connectors)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := listenAndServe(cfg.Listen, dispatcher.Handler())
	if err != nil {
		return err
	}

	logging.Info("Serve", "mcpgateway listening on %s", cfg.Listen)
	<-ctx.Done()
	logging.Info("Serve", "shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Serve", err, "error shutting down HTTP server")
	}

	disposeCtx, disposeCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer disposeCancel()
	if err := connectors.DisposeAll(disposeCtx); err != nil {
		logging.Error("Serve", err, "error disposing connectors")
	}

	return nil
}

// listenAndServe starts the HTTP server over either a systemd-activated
// listener (when present) or a plain TCP listener on cfg.Listen, mirroring
// the teacher's socket-activation detection in aggregator.Start.
func listenAndServe(addr string, handler http.Handler) (*http.Server, error) {
	srv := &http.Server{Handler: handler}

	listeners, err := activation.Listeners()
	if err != nil {
		logging.Warn("Serve", "failed to inspect systemd listeners: %v", err)
	}
	if len(listeners) > 0 {
		logging.Info("Serve", "systemd socket activation detected, using provided listener")
		l := listeners[0]
		go func() {
			if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
				logging.Error("Serve", err, "HTTP server error")
			}
		}()
		return srv, nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			logging.Error("Serve", err, "HTTP server error")
		}
	}()
	return srv, nil
}

// warmUpConnectors calls EnsureReady on every configured upstream before the
// server starts accepting requests, so the first request against any profile
// doesn't pay a cold-start handshake cost. A failure here only logs — the
// resolver downgrades a still-unready connector to an empty contribution per
// spec.md §7, it does not fail startup.
func warmUpConnectors(ctx context.Context, connectors *registry.ConnectorRegistry) {
	ids := connectors.ServerIDs()
	if len(ids) == 0 {
		return
	}

	var s *spinner.Spinner
	if !serveQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Connecting to %d upstream server(s)...", len(ids))
		s.Start()
	}

	for _, id := range ids {
		conn, err := connectors.Get(id)
		if err != nil {
			continue
		}
		if err := conn.EnsureReady(ctx); err != nil {
			logging.Warn("Serve", "server %s failed to initialize during warm-up: %v", id, err)
		}
	}

	if s != nil {
		s.FinalMSG = text.FgGreen.Sprint("Upstream servers ready") + "\n"
		s.Stop()
	}
}
