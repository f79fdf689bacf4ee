package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"mcpgateway/pkg/logging"

	"gopkg.in/yaml.v3"
)

// listenPattern matches "<host>:<port>", per spec.md §6.
var listenPattern = regexp.MustCompile(`^[\w.-]+:\d+$`)

// envVarPattern matches "${VAR}" substrings for environment substitution.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses a gateway config file, substituting ${VAR} references
// from the process environment and validating the result. The file may be
// JSON or YAML — gopkg.in/yaml.v3 parses both, and its yaml.Node preserves
// mapping key order, which Parse relies on to keep profile-entry declaration
// order (required for deterministic, first-wins resolution).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses raw config bytes into a Config, substituting env vars first.
func Parse(data []byte) (*Config, error) {
	data = substituteEnv(data)

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("parsing config: empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing config: expected a top-level mapping")
	}

	cfg := &Config{
		MCPServers: make(map[string]ServerDescriptor),
		Profiles:   make(map[string]ProfileDefinition),
	}

	for i := 0; i < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]
		switch key {
		case "listen":
			if err := val.Decode(&cfg.Listen); err != nil {
				return nil, fmt.Errorf("parsing listen: %w", err)
			}
		case "mcpServers":
			if err := parseServers(val, cfg.MCPServers); err != nil {
				return nil, err
			}
		case "profiles":
			if err := parseProfiles(val, cfg.Profiles); err != nil {
				return nil, err
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseServers(node *yaml.Node, out map[string]ServerDescriptor) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mcpServers: expected a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var desc ServerDescriptor
		if err := node.Content[i+1].Decode(&desc); err != nil {
			return fmt.Errorf("mcpServers.%s: %w", id, err)
		}
		out[id] = desc
	}
	return nil
}

func parseProfiles(node *yaml.Node, out map[string]ProfileDefinition) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("profiles: expected a mapping")
	}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		def, err := parseProfileDefinition(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("profiles.%s: %w", name, err)
		}
		out[name] = def
	}
	return nil
}

func parseProfileDefinition(node *yaml.Node) (ProfileDefinition, error) {
	var def ProfileDefinition
	if node.Kind != yaml.MappingNode {
		return def, fmt.Errorf("expected a mapping of entry-name to selection")
	}
	for i := 0; i < len(node.Content); i += 2 {
		entryName := node.Content[i].Value
		sel, err := parseSelection(node.Content[i+1])
		if err != nil {
			return def, fmt.Errorf("%s: %w", entryName, err)
		}
		def.Entries = append(def.Entries, ProfileEntry{Name: entryName, Selection: sel})
	}
	return def, nil
}

func parseSelection(node *yaml.Node) (Selection, error) {
	var sel Selection
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		// `entry: ` with no body means "include everything, no prefix override".
		return sel, nil
	}
	if node.Kind != yaml.MappingNode {
		return sel, fmt.Errorf("expected a mapping")
	}

	raw := make(map[string]*yaml.Node)
	for i := 0; i < len(node.Content); i += 2 {
		raw[node.Content[i].Value] = node.Content[i+1]
	}

	if toolsNode, ok := raw["tools"]; ok {
		if err := toolsNode.Decode(&sel.Tools); err != nil {
			return sel, fmt.Errorf("tools: %w", err)
		}
		if sel.Tools == nil {
			sel.Tools = []string{}
		}
	}
	if promptsNode, ok := raw["prompts"]; ok {
		if err := promptsNode.Decode(&sel.Prompts); err != nil {
			return sel, fmt.Errorf("prompts: %w", err)
		}
		if sel.Prompts == nil {
			sel.Prompts = []string{}
		}
	}
	if prefixNode, ok := raw["prefix"]; ok {
		sel.PrefixSet = true
		switch prefixNode.Tag {
		case "!!bool":
			var b bool
			if err := prefixNode.Decode(&b); err != nil {
				return sel, fmt.Errorf("prefix: %w", err)
			}
			if b {
				return sel, fmt.Errorf("prefix: boolean value must be false (explicit empty prefix)")
			}
			sel.Prefix = ""
		case "!!str":
			if err := prefixNode.Decode(&sel.Prefix); err != nil {
				return sel, fmt.Errorf("prefix: %w", err)
			}
		default:
			return sel, fmt.Errorf("prefix: must be a string or `false`")
		}
	}
	return sel, nil
}

// substituteEnv replaces ${VAR} with the value of the matching environment
// variable. A missing variable logs a warning and becomes the empty string,
// per spec.md §6.
func substituteEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		val, ok := os.LookupEnv(string(name))
		if !ok {
			logging.Warn("Config", "environment variable %s referenced in config but not set; using empty string", name)
			return []byte("")
		}
		return []byte(val)
	})
}

func validate(cfg *Config) error {
	var errs ValidationErrors

	if !listenPattern.MatchString(cfg.Listen) {
		errs.add("listen", fmt.Sprintf("must match host:port, got %q", cfg.Listen))
	}

	for id, desc := range cfg.MCPServers {
		switch desc.Type {
		case ServerTypeHTTP:
			u, err := url.Parse(desc.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs.add(fmt.Sprintf("mcpServers.%s.url", id), fmt.Sprintf("invalid URL %q", desc.URL))
			}
		case ServerTypeStdio:
			if strings.TrimSpace(desc.Command) == "" {
				errs.add(fmt.Sprintf("mcpServers.%s.command", id), "must not be empty")
			}
		default:
			errs.add(fmt.Sprintf("mcpServers.%s.type", id), fmt.Sprintf("unknown server type %q", desc.Type))
		}
	}

	for profileName, def := range cfg.Profiles {
		for _, entry := range def.Entries {
			if !cfg.IsServer(entry.Name) && !cfg.IsProfile(entry.Name) {
				errs.add(fmt.Sprintf("profiles.%s.%s", profileName, entry.Name), "references an unknown server or profile")
			}
		}
	}

	if errs.HasErrors() {
		return fmt.Errorf("invalid configuration: %w", errs)
	}
	return nil
}
