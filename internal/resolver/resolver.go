// Package resolver implements the profile resolution algorithm (spec.md
// §4.3): recursively composing server and nested-profile entries into a flat,
// first-wins mapping of exported tool/prompt names to the connector and
// upstream-side name that serves them. Grounded on the teacher's
// aggregator.NameTracker prefixing idiom, generalised to recursive profile
// composition with explicit cycle detection.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"mcpgateway/internal/config"
	"mcpgateway/internal/connector"
	"mcpgateway/internal/profile"
	"mcpgateway/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"
)

// ConnectorLookup is the subset of registry.ConnectorRegistry the resolver
// depends on, kept narrow so the resolver can be unit tested against a fake.
type ConnectorLookup interface {
	Get(serverID string) (connector.Connector, error)
}

// ErrInvalidRequest covers every resolution failure spec.md classifies as
// *invalid-request*: unknown profile/server references and cycles.
type ErrInvalidRequest struct {
	Message string
}

func (e *ErrInvalidRequest) Error() string { return e.Message }

// Resolver resolves profile names against a fixed config+registry pair. It
// carries a cache private to itself — the HTTP dispatcher builds a fresh
// Resolver per inbound request, so no cache is ever shared across requests.
type Resolver struct {
	cfg       *config.Config
	connectors ConnectorLookup
	cache     map[string]*profile.Profile
}

// New builds a Resolver with an empty cache.
func New(cfg *config.Config, connectors ConnectorLookup) *Resolver {
	return &Resolver{cfg: cfg, connectors: connectors, cache: make(map[string]*profile.Profile)}
}

// Resolve resolves the named profile into an immutable Profile snapshot.
func (r *Resolver) Resolve(ctx context.Context, name string) (*profile.Profile, error) {
	return r.resolve(ctx, name, nil)
}

func (r *Resolver) resolve(ctx context.Context, name string, stack []string) (*profile.Profile, error) {
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	for _, s := range stack {
		if s == name {
			chain := append(append([]string{}, stack...), name)
			return nil, &ErrInvalidRequest{Message: fmt.Sprintf("circular profile reference: %s", strings.Join(chain, " -> "))}
		}
	}

	def, ok := r.cfg.Profiles[name]
	if !ok {
		return nil, &ErrInvalidRequest{Message: fmt.Sprintf("unknown profile %q", name)}
	}

	stack = append(stack, name)

	tools := newOrderedEntries[profile.ToolEntry]()
	prompts := newOrderedEntries[profile.PromptEntry]()

	for _, entry := range def.Entries {
		switch {
		case r.cfg.IsServer(entry.Name):
			r.applyServerEntry(ctx, name, entry, tools, prompts)
		case r.cfg.IsProfile(entry.Name):
			nested, err := r.resolve(ctx, entry.Name, stack)
			if err != nil {
				return nil, err
			}
			applyNestedEntry(entry, nested, tools, prompts)
		default:
			return nil, &ErrInvalidRequest{Message: fmt.Sprintf("profile %q: unknown server or profile %q", name, entry.Name)}
		}
	}

	resolved := profile.New(name, tools.values(), prompts.values())
	r.cache[name] = resolved
	return resolved, nil
}

// applyServerEntry resolves one server-backed profile entry, per spec.md
// §4.3's "server entry handling". Initialisation and listing failures are
// logged and downgrade to an empty contribution rather than failing the
// whole resolution.
func (r *Resolver) applyServerEntry(ctx context.Context, profileName string, entry config.ProfileEntry, tools *orderedEntries[profile.ToolEntry], prompts *orderedEntries[profile.PromptEntry]) {
	conn, err := r.connectors.Get(entry.Name)
	if err != nil {
		logging.Warn("Resolver", "profile %s: server %s: %v", profileName, entry.Name, err)
		return
	}

	if err := conn.EnsureReady(ctx); err != nil {
		logging.Warn("Resolver", "profile %s: server %s failed to initialise: %v", profileName, entry.Name, err)
		return
	}

	prefix := entry.Selection.Prefix
	if !entry.Selection.PrefixSet {
		prefix = entry.Name + "__"
	}

	upstreamTools, upstreamPrompts := fetchListings(ctx, profileName, entry.Name, conn)

	for _, t := range upstreamTools {
		if !allowed(entry.Selection.Tools, t.Name) {
			continue
		}
		exported := prefix + t.Name
		if tools.has(exported) {
			continue
		}
		descriptor := t
		descriptor.Name = exported
		tools.insert(exported, profile.ToolEntry{
			Connector:    conn,
			Descriptor:   descriptor,
			OriginalName: t.Name,
		})
	}

	for _, p := range upstreamPrompts {
		if !allowed(entry.Selection.Prompts, p.Name) {
			continue
		}
		exported := prefix + p.Name
		if prompts.has(exported) {
			continue
		}
		descriptor := p
		descriptor.Name = exported
		prompts.insert(exported, profile.PromptEntry{
			Connector:    conn,
			Descriptor:   descriptor,
			OriginalName: p.Name,
		})
	}
}

// fetchListings fetches a server's tool and prompt listings concurrently via
// errgroup — each listing's own failure is logged and downgraded to empty
// independently, so the group's returned error (which only reports the first
// failure) is discarded; errgroup here is purely a fan-out/join primitive,
// not an error-aggregation one.
func fetchListings(ctx context.Context, profileName, serverID string, conn connector.Connector) ([]mcp.Tool, []mcp.Prompt) {
	var tools []mcp.Tool
	var prompts []mcp.Prompt

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := conn.ListTools(gctx)
		if err != nil {
			if !isMethodNotFound(err) {
				logging.Warn("Resolver", "profile %s: server %s: list tools: %v", profileName, serverID, err)
			}
			return nil
		}
		tools = t
		return nil
	})
	g.Go(func() error {
		p, err := conn.ListPrompts(gctx)
		if err != nil {
			if !isMethodNotFound(err) {
				logging.Warn("Resolver", "profile %s: server %s: list prompts: %v", profileName, serverID, err)
			}
			return nil
		}
		prompts = p
		return nil
	})
	_ = g.Wait()

	return tools, prompts
}

// applyNestedEntry applies one nested-profile-backed entry, per spec.md
// §4.3's "nested profile handling": allow-lists are matched against the
// nested profile's exported names, and the connector/original-name carried on
// each nested entry is preserved unchanged.
func applyNestedEntry(entry config.ProfileEntry, nested *profile.Profile, tools *orderedEntries[profile.ToolEntry], prompts *orderedEntries[profile.PromptEntry]) {
	prefix := entry.Selection.Prefix
	if !entry.Selection.PrefixSet {
		prefix = ""
	}

	for _, nestedExported := range nested.ToolNames() {
		if !allowed(entry.Selection.Tools, nestedExported) {
			continue
		}
		nestedEntry, _ := nested.ToolEntry(nestedExported)
		exported := prefix + nestedExported
		if tools.has(exported) {
			continue
		}
		descriptor := nestedEntry.Descriptor
		descriptor.Name = exported
		tools.insert(exported, profile.ToolEntry{
			Connector:    nestedEntry.Connector,
			Descriptor:   descriptor,
			OriginalName: nestedEntry.OriginalName,
		})
	}

	for _, nestedExported := range nested.PromptNames() {
		if !allowed(entry.Selection.Prompts, nestedExported) {
			continue
		}
		nestedEntry, _ := nested.PromptEntry(nestedExported)
		exported := prefix + nestedExported
		if prompts.has(exported) {
			continue
		}
		descriptor := nestedEntry.Descriptor
		descriptor.Name = exported
		prompts.insert(exported, profile.PromptEntry{
			Connector:    nestedEntry.Connector,
			Descriptor:   descriptor,
			OriginalName: nestedEntry.OriginalName,
		})
	}
}

// allowed reports whether name passes an optional allow-list: nil means
// "allow all", a non-nil (possibly empty) slice means "only these".
func allowed(list []string, name string) bool {
	if list == nil {
		return true
	}
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func isMethodNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), connector.ErrMethodNotFound.Error())
}

// orderedEntries keeps insertion order alongside O(1) membership checks, used
// to implement the first-wins conflict policy while preserving resolution
// order for deterministic output (spec.md §4.3 Determinism).
type orderedEntries[T any] struct {
	seen map[string]struct{}
	list []namedEntry[T]
}

type namedEntry[T any] struct {
	Name  string
	Value T
}

func newOrderedEntries[T any]() *orderedEntries[T] {
	return &orderedEntries[T]{seen: make(map[string]struct{})}
}

func (o *orderedEntries[T]) has(name string) bool {
	_, ok := o.seen[name]
	return ok
}

func (o *orderedEntries[T]) insert(name string, value T) {
	o.seen[name] = struct{}{}
	o.list = append(o.list, namedEntry[T]{Name: name, Value: value})
}

// values returns the inserted values in insertion order, discarding the name
// key (each value already carries its exported name on its descriptor).
func (o *orderedEntries[T]) values() []T {
	out := make([]T, len(o.list))
	for i, e := range o.list {
		out[i] = e.Value
	}
	return out
}
