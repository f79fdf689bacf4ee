package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"mcpgateway/internal/cleanup"
	"mcpgateway/internal/config"
	"mcpgateway/internal/registry"
	"mcpgateway/internal/resolver"
	"mcpgateway/pkg/logging"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// bodySnippetLen bounds how much of an unparseable POST body gets logged
// (spec.md §4.7 step 5's "raw body snippet").
const bodySnippetLen = 256

// Dispatcher is the HTTP Dispatcher (C7): a single "/mcp" endpoint plus the
// operational "/health" and "/metrics" endpoints, backed by a live
// config+registry pair shared across every request.
type Dispatcher struct {
	cfg        *config.Config
	connectors *registry.ConnectorRegistry
}

// NewDispatcher builds a Dispatcher over a loaded config and its connector
// registry. Both are read-only after construction (spec.md §5).
func NewDispatcher(cfg *config.Config, connectors *registry.ConnectorRegistry) *Dispatcher {
	return &Dispatcher{cfg: cfg, connectors: connectors}
}

// Handler returns the assembled http.Handler: "/mcp" routed to ServeMCP,
// "/health" to a plain status probe, "/metrics" to Prometheus exposition,
// everything else falling through to a 404 JSON-RPC error — grounded on the
// teacher's createStandardMux, generalized to the gateway's flat routing
// (no OAuth callback mounting, no session-id middleware: this gateway is
// sessionless per spec.md §4.5).
func (d *Dispatcher) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", d.ServeMCP)
	mux.HandleFunc("/health", serveHealth)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/", serveNotFound)
	return mux
}

func serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func serveNotFound(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		writeJSONError(w, http.StatusNotFound, newEnvelope(codeInvalidRequest, "not found"))
		return
	}
	writeJSONError(w, http.StatusNotFound, newEnvelope(codeInvalidRequest, fmt.Sprintf("not found: %s", r.URL.Path)))
}

// ServeMCP implements the request pipeline of spec.md §4.7.
func (d *Dispatcher) ServeMCP(w http.ResponseWriter, r *http.Request) {
	// requestID correlates this request's log lines end-to-end; surfaced to
	// the caller via a response header for cross-referencing support reports.
	requestID := uuid.New().String()
	w.Header().Set("X-Request-Id", requestID)

	// 1. Validate method.
	switch r.Method {
	case http.MethodPost, http.MethodGet, http.MethodDelete:
	default:
		recordDispatch("method_not_allowed")
		writeJSONError(w, http.StatusMethodNotAllowed, newEnvelope(codeInvalidRequest, fmt.Sprintf("method %s not allowed on /mcp", r.Method)))
		return
	}

	// 2. Validate profile.
	profileName := r.URL.Query().Get("profile")
	if profileName == "" {
		recordDispatch("missing_profile")
		writeJSONError(w, http.StatusBadRequest, newEnvelope(codeInvalidRequest, "Missing profile query parameter"))
		return
	}

	// 3. Resolve profile, with a fresh resolver per request (clean cache).
	res := resolver.New(d.cfg, d.connectors)
	resolved, err := res.Resolve(r.Context(), profileName)
	if err != nil {
		logging.Warn("Gateway", "request %s: profile %s: resolve failed: %v", requestID, profileName, err)
		recordDispatch("resolve_failed")
		writeJSONError(w, http.StatusBadRequest, newEnvelope(codeForResolveError(err), err.Error()))
		return
	}

	// 4. Assemble: transport, server, cleanup manager.
	mcpSrv := newMCPServer(resolved)
	transport := mcpserver.NewStreamableHTTPServer(mcpSrv)

	cm := cleanup.New(profileName)
	stream := newRequestStream()
	cm.WatchEmitter(stream, "close", "finish", "error")
	cm.Register(func() { closeTransportAndServer(profileName, transport, mcpSrv) })

	// "close" (client disconnect) and "finish" (normal completion) are
	// mutually exclusive outcomes of the same request; cleanup only needs to
	// run once either way, so both paths share one sync.Once.
	ctxDone := r.Context().Done()
	var once sync.Once
	go func() {
		<-ctxDone
		once.Do(func() { stream.emit("close") })
	}()
	defer once.Do(func() { stream.emit("finish") })

	// 5. Dispatch. POST bodies are read and, best-effort, validated as JSON
	// before being handed to the transport; a parse failure only logs — the
	// transport reads r.Body itself and may interpret it regardless.
	if r.Method == http.MethodPost {
		r.Body = peekJSONBody(r.Body, profileName)
	}

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				logging.Error("Gateway", err, "request %s: profile %s: dispatch panicked", requestID, profileName)
				recordDispatch("panic")
				stream.emit("error", err)
				cm.Run(err)
			}
		}()
		transport.ServeHTTP(w, r)
		recordDispatch("ok")
	}()

	// 7. The transport has already written (or is writing) the response
	// directly; nothing further to signal to net/http here.
}

// closeTransportAndServer is the cleanup callback registered in step 4.
// mark3labs/mcp-go's per-request StreamableHTTPServer/MCPServer values carry
// no explicit Close/Shutdown hook (unlike the long-lived http.Server the
// process itself owns) — they are plain values reclaimed by the garbage
// collector once the request scope ends. The call is still wrapped exactly
// like the teacher wraps its own transport teardown, so a future mcp-go
// version that does add one is picked up without changing the cleanup
// contract.
func closeTransportAndServer(profileName string, transport *mcpserver.StreamableHTTPServer, srv *mcpserver.MCPServer) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Gateway", "profile %s: cleanup: transport/server teardown panicked: %v", profileName, r)
		}
	}()
	if closer, ok := interface{}(transport).(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Warn("Gateway", "profile %s: cleanup: error closing transport: %v", profileName, err)
		}
	}
	if closer, ok := interface{}(srv).(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Warn("Gateway", "profile %s: cleanup: error closing server: %v", profileName, err)
		}
	}
}

// peekJSONBody reads the body fully (streaming transports need the whole
// thing buffered anyway for single-shot POST requests), logs a warning with
// a snippet if it isn't valid JSON, and returns a fresh reader so the
// transport can still consume it.
func peekJSONBody(body io.ReadCloser, profileName string) io.ReadCloser {
	if body == nil {
		return body
	}
	data, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		logging.Warn("Gateway", "profile %s: failed to read request body: %v", profileName, err)
		return io.NopCloser(bytes.NewReader(nil))
	}
	if !json.Valid(data) {
		snippet := data
		if len(snippet) > bodySnippetLen {
			snippet = snippet[:bodySnippetLen]
		}
		logging.Warn("Gateway", "profile %s: request body is not valid JSON: %q", profileName, snippet)
	}
	return io.NopCloser(bytes.NewReader(data))
}

func writeJSONError(w http.ResponseWriter, status int, env errorEnvelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// requestStream is the minimal per-request Emitter (spec.md §9 "Emitter
// abstraction") standing in for the teacher's Node-style outgoing stream:
// net/http's ResponseWriter has no close/finish/error events of its own, so
// this adapter synthesizes them from request-context cancellation and
// explicit dispatch completion/panic signals.
type requestStream struct {
	mu        sync.Mutex
	listeners map[string][]func(args ...interface{})
}

func newRequestStream() *requestStream {
	return &requestStream{listeners: make(map[string][]func(args ...interface{}))}
}

func (s *requestStream) On(event string, listener func(args ...interface{})) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

func (s *requestStream) emit(event string, args ...interface{}) {
	s.mu.Lock()
	listeners := append([]func(args ...interface{}){}, s.listeners[event]...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(args...)
	}
}
