// Package profile holds the immutable, resolved view of a profile (spec.md
// §4.4): a flat mapping of exported tool/prompt names to the connector and
// upstream-side name that serves them, built once by the resolver and never
// mutated afterward.
package profile

import (
	"context"
	"fmt"

	"mcpgateway/internal/connector"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolEntry is one resolved tool: the connector that serves it, its exported
// descriptor (name already rewritten), and the upstream's original name.
type ToolEntry struct {
	Connector    connector.Connector
	Descriptor   mcp.Tool
	OriginalName string
}

// PromptEntry is the prompt equivalent of ToolEntry.
type PromptEntry struct {
	Connector    connector.Connector
	Descriptor   mcp.Prompt
	OriginalName string
}

// ErrUnknownTool/ErrUnknownPrompt are *method-not-found* per spec.md §7: a
// call naming a tool/prompt absent from the resolved profile.
type ErrUnknownTool struct{ Name string }

func (e *ErrUnknownTool) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

type ErrUnknownPrompt struct{ Name string }

func (e *ErrUnknownPrompt) Error() string { return fmt.Sprintf("unknown prompt: %s", e.Name) }

// Profile is an immutable, resolved snapshot: {name, tools-map, prompts-map}
// plus precomputed ordered lists for enumeration.
type Profile struct {
	name string

	toolOrder []string
	tools     map[string]ToolEntry

	promptOrder []string
	prompts     map[string]PromptEntry
}

// New builds a Profile from ordered tool/prompt entry lists, as produced by
// the resolver. Each entry's Descriptor.Name is the exported name and is used
// as the map key.
func New(name string, tools []ToolEntry, prompts []PromptEntry) *Profile {
	p := &Profile{
		name:    name,
		tools:   make(map[string]ToolEntry, len(tools)),
		prompts: make(map[string]PromptEntry, len(prompts)),
	}
	for _, t := range tools {
		p.toolOrder = append(p.toolOrder, t.Descriptor.Name)
		p.tools[t.Descriptor.Name] = t
	}
	for _, pr := range prompts {
		p.promptOrder = append(p.promptOrder, pr.Descriptor.Name)
		p.prompts[pr.Descriptor.Name] = pr
	}
	return p
}

// Name returns the resolved profile's name.
func (p *Profile) Name() string { return p.name }

// ToolNames returns the exported tool names in resolution order.
func (p *Profile) ToolNames() []string {
	out := make([]string, len(p.toolOrder))
	copy(out, p.toolOrder)
	return out
}

// PromptNames returns the exported prompt names in resolution order.
func (p *Profile) PromptNames() []string {
	out := make([]string, len(p.promptOrder))
	copy(out, p.promptOrder)
	return out
}

// ToolEntry looks up the resolved entry behind an exported tool name.
func (p *Profile) ToolEntry(exportedName string) (ToolEntry, bool) {
	e, ok := p.tools[exportedName]
	return e, ok
}

// PromptEntry looks up the resolved entry behind an exported prompt name.
func (p *Profile) PromptEntry(exportedName string) (PromptEntry, bool) {
	e, ok := p.prompts[exportedName]
	return e, ok
}

// ListTools returns an immutable-by-convention copy of the resolved tool
// descriptors, in resolution order.
func (p *Profile) ListTools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(p.toolOrder))
	for _, name := range p.toolOrder {
		out = append(out, p.tools[name].Descriptor)
	}
	return out
}

// ListPrompts is the prompt equivalent of ListTools.
func (p *Profile) ListPrompts() []mcp.Prompt {
	out := make([]mcp.Prompt, 0, len(p.promptOrder))
	for _, name := range p.promptOrder {
		out = append(out, p.prompts[name].Descriptor)
	}
	return out
}

// CallTool dispatches a call by exported name, rewriting it to the upstream's
// original name before forwarding to the owning connector.
func (p *Profile) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	entry, ok := p.tools[name]
	if !ok {
		return nil, &ErrUnknownTool{Name: name}
	}
	return entry.Connector.CallTool(ctx, entry.OriginalName, args)
}

// GetPrompt is the prompt equivalent of CallTool.
func (p *Profile) GetPrompt(ctx context.Context, name string, args map[string]interface{}) (*mcp.GetPromptResult, error) {
	entry, ok := p.prompts[name]
	if !ok {
		return nil, &ErrUnknownPrompt{Name: name}
	}
	return entry.Connector.GetPrompt(ctx, entry.OriginalName, args)
}
