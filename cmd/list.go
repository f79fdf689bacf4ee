package cmd

import (
	"fmt"

	"mcpgateway/internal/config"
	"mcpgateway/internal/profile"
	"mcpgateway/internal/registry"
	"mcpgateway/internal/resolver"
	pkgstrings "mcpgateway/pkg/strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"
)

// descriptionColumnMaxLen bounds the DESCRIPTION column width in list-tools
// and list-prompts output, the same 60-character cap as
// pkgstrings.DefaultDescriptionMaxLen.
const descriptionColumnMaxLen = 60

func newListToolsCmd() *cobra.Command {
	var configPath, profileName string
	c := &cobra.Command{
		Use:   "list-tools",
		Short: "List the tools a resolved profile exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfileForCmd(cmd, configPath, profileName)
			if err != nil {
				return err
			}
			printToolsTable(cmd, p.ListTools())
			return nil
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the gateway config file")
	c.Flags().StringVarP(&profileName, "profile", "p", "default", "profile to resolve")
	return c
}

func newListPromptsCmd() *cobra.Command {
	var configPath, profileName string
	c := &cobra.Command{
		Use:   "list-prompts",
		Short: "List the prompts a resolved profile exposes",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfileForCmd(cmd, configPath, profileName)
			if err != nil {
				return err
			}
			printPromptsTable(cmd, p.ListPrompts())
			return nil
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the gateway config file")
	c.Flags().StringVarP(&profileName, "profile", "p", "default", "profile to resolve")
	return c
}

// resolveProfileForCmd is the shared load-config/build-registry/resolve
// sequence every inspection subcommand (list-tools, list-prompts, call)
// drives directly against the connectors, bypassing the HTTP dispatcher.
func resolveProfileForCmd(cmd *cobra.Command, configPath, profileName string) (*profile.Profile, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	connectors := registry.New(cfg)
	res := resolver.New(cfg, connectors)
	p, err := res.Resolve(cmd.Context(), profileName)
	if err != nil {
		return nil, fmt.Errorf("resolving profile %q: %w", profileName, err)
	}
	return p, nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	return t
}

func printToolsTable(cmd *cobra.Command, tools []mcp.Tool) {
	if len(tools) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools found")
		return
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})
	for _, tool := range tools {
		t.AppendRow(table.Row{
			text.FgHiCyan.Sprint(tool.Name),
			pkgstrings.TruncateDescription(tool.Description, descriptionColumnMaxLen),
		})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d tools\n", text.FgHiBlue.Sprint("Total:"), len(tools))
}

func printPromptsTable(cmd *cobra.Command, prompts []mcp.Prompt) {
	if len(prompts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No prompts found")
		return
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
		text.FgHiCyan.Sprint("ARGUMENTS"),
	})
	for _, p := range prompts {
		t.AppendRow(table.Row{
			text.FgHiCyan.Sprint(p.Name),
			pkgstrings.TruncateDescription(p.Description, descriptionColumnMaxLen),
			fmt.Sprintf("%d", len(p.Arguments)),
		})
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d prompts\n", text.FgHiBlue.Sprint("Total:"), len(prompts))
}
