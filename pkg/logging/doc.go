// Package logging provides a structured logging system for the gateway's CLI
// surface, built on Go's standard slog package.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// Each log entry carries a subsystem identifier for categorization (e.g.
// "Serve", "Gateway", "Resolver", "Connector"), a message with optional
// formatting, and optional error detail, written via slog.TextHandler.
//
// # Usage
//
//	import "mcpgateway/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Bootstrap", "gateway starting up")
//	logging.Debug("Config", "loaded configuration from %s", configPath)
//	logging.Warn("Resolver", "server dependency not ready")
//	logging.Error("Gateway", err, "failed to dispatch request")
//
// InitForCLI may be called again to change the active filter level, as the
// root command's --debug flag does.
package logging
