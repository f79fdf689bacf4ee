// Package config loads the gateway's configuration file: the listen address,
// the upstream MCP server descriptors, and the named profiles that curate
// which tools and prompts each upstream (or nested profile) contributes.
package config

// ServerType identifies which transport a ServerDescriptor uses.
type ServerType string

const (
	// ServerTypeHTTP reaches the upstream over streaming HTTP.
	ServerTypeHTTP ServerType = "http"
	// ServerTypeStdio spawns the upstream as a child process using stdio framing.
	ServerTypeStdio ServerType = "stdio"
)

// ServerDescriptor is the tagged-union description of one upstream MCP server,
// keyed by server-id in Config.MCPServers. It is created at startup and never
// mutated afterward.
type ServerDescriptor struct {
	// Type selects the transport variant. Required.
	Type ServerType `json:"type" yaml:"type"`

	// HTTP variant fields.
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Stdio variant fields.
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// HealthCheck, when true, caps the stdio/http handshake performed by
	// ensure-ready at a short default timeout; a shorter deadline already on
	// the caller's context still applies. See SPEC_FULL.md §3.1.
	HealthCheck bool `json:"healthCheck,omitempty" yaml:"healthCheck,omitempty"`
}

// Selection describes how one profile entry (a server-id or a nested profile
// name) contributes to the profile that references it.
type Selection struct {
	// Tools is an optional allow-list of upstream/nested-exported tool names.
	// Nil means "allow all"; an empty, non-nil slice exports nothing.
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`

	// Prompts is the prompt equivalent of Tools.
	Prompts []string `json:"prompts,omitempty" yaml:"prompts,omitempty"`

	// PrefixSet records whether Prefix was present in the source document at
	// all, so the resolver can tell "absent" (context-dependent default)
	// apart from "explicitly empty" (PrefixSet && Prefix == "").
	PrefixSet bool `json:"-" yaml:"-"`

	// Prefix is the exported-name prefix. Ignored unless PrefixSet is true.
	Prefix string `json:"-" yaml:"-"`
}

// ProfileDefinition maps an entry-name (server-id or another profile name) to
// its Selection, preserving declaration order — resolution is deterministic
// and first-wins conflicts are judged by this order.
type ProfileDefinition struct {
	Entries []ProfileEntry
}

// ProfileEntry is one (entry-name, selection) pair in declaration order.
type ProfileEntry struct {
	Name      string
	Selection Selection
}

// Lookup returns the Selection for entryName, preserving declaration order
// semantics by scanning linearly (profile definitions are small).
func (d ProfileDefinition) Lookup(entryName string) (Selection, bool) {
	for _, e := range d.Entries {
		if e.Name == entryName {
			return e.Selection, true
		}
	}
	return Selection{}, false
}

// Config is the immutable, fully loaded gateway configuration.
type Config struct {
	Listen     string                       `json:"listen" yaml:"listen"`
	MCPServers map[string]ServerDescriptor  `json:"mcpServers" yaml:"mcpServers"`
	Profiles   map[string]ProfileDefinition `json:"profiles" yaml:"profiles"`
}

// IsServer reports whether name identifies an upstream server.
func (c *Config) IsServer(name string) bool {
	_, ok := c.MCPServers[name]
	return ok
}

// IsProfile reports whether name identifies a profile.
func (c *Config) IsProfile(name string) bool {
	_, ok := c.Profiles[name]
	return ok
}
