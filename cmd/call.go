package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mcpgateway/internal/profile"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// commandExecutionTimeout bounds a single REPL command so a hung upstream
// tool call cannot wedge the session indefinitely.
const commandExecutionTimeout = 5 * time.Minute

func newCallCmd() *cobra.Command {
	var configPath, profileName string
	c := &cobra.Command{
		Use:   "call",
		Short: "Open an interactive session against a resolved profile",
		Long: `Resolves a profile and opens a REPL for inspecting and invoking its
tools and prompts directly, without going through the HTTP dispatcher.

Commands:
  tools                       list exposed tools
  call <name> [json-args]     invoke a tool
  prompts                     list exposed prompts
  prompt <name> [json-args]   fetch a prompt
  exit                        leave the session`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveProfileForCmd(cmd, configPath, profileName)
			if err != nil {
				return err
			}
			return runREPL(cmd, p)
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the gateway config file")
	c.Flags().StringVarP(&profileName, "profile", "p", "default", "profile to resolve")
	return c
}

// runREPL drives the read-eval-print loop: read one line, dispatch it against
// the resolved profile, print the result, repeat until "exit" or EOF.
func runREPL(cmd *cobra.Command, p *profile.Profile) error {
	historyFile := filepath.Join(os.TempDir(), ".mcpgateway_call_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("%s> ", p.Name()),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to profile %q. Type 'help' for commands.\n\n", p.Name())

	for {
		line, err := rl.Readline()
		switch {
		case err == readline.ErrInterrupt:
			if len(line) == 0 {
				continue
			}
			continue
		case err == io.EOF:
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandExecutionTimeout)
		if err := dispatchREPLLine(ctx, out, p, input); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		cancel()
		fmt.Fprintln(out)
	}
}

func dispatchREPLLine(ctx context.Context, out io.Writer, p *profile.Profile, input string) error {
	fields := strings.Fields(input)
	command := fields[0]

	switch command {
	case "help":
		fmt.Fprintln(out, "tools | call <name> [json-args] | prompts | prompt <name> [json-args] | exit")
		return nil
	case "tools":
		printToolNames(out, p)
		return nil
	case "prompts":
		printPromptNames(out, p)
		return nil
	case "call":
		name, rest, err := splitNameAndArgs(input)
		if err != nil {
			return fmt.Errorf("usage: call <name> [json-args]")
		}
		args, err := parseJSONArgs(rest)
		if err != nil {
			return err
		}
		result, err := p.CallTool(ctx, name, args)
		if err != nil {
			return err
		}
		return printJSON(out, result)
	case "prompt":
		name, rest, err := splitNameAndArgs(input)
		if err != nil {
			return fmt.Errorf("usage: prompt <name> [json-args]")
		}
		args, err := parseJSONArgs(rest)
		if err != nil {
			return err
		}
		result, err := p.GetPrompt(ctx, name, args)
		if err != nil {
			return err
		}
		return printJSON(out, result)
	default:
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", command)
	}
}

// splitNameAndArgs splits "call <name> [json-args]" into the name and the
// (possibly empty) raw JSON-args remainder, splitting on single spaces into at
// most three fields.
func splitNameAndArgs(input string) (name, rest string, err error) {
	parts := strings.SplitN(input, " ", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("missing name")
	}
	name = parts[1]
	if len(parts) == 3 {
		rest = strings.TrimSpace(parts[2])
	}
	return name, rest, nil
}

// parseJSONArgs decodes a trailing JSON object; an empty remainder means "no
// arguments".
func parseJSONArgs(rest string) (map[string]interface{}, error) {
	if rest == "" {
		return map[string]interface{}{}, nil
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return args, nil
}

func printToolNames(out io.Writer, p *profile.Profile) {
	names := p.ToolNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No tools found")
		return
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
}

func printPromptNames(out io.Writer, p *profile.Profile) {
	names := p.PromptNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No prompts found")
		return
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
