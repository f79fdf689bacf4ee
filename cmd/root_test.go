package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "mcpgateway" {
		t.Errorf("Expected Use to be 'mcpgateway', got %s", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}
	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	expectedCommands := []string{"version", "serve", "list-tools", "list-prompts", "call"}
	found := make(map[string]bool)
	for _, c := range commands {
		found[c.Name()] = true
	}
	for _, expected := range expectedCommands {
		if !found[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "mcpgateway") {
		t.Errorf("Help output should contain 'mcpgateway'. Got: %q", output)
	}
}

func TestDebugFlagRegistered(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("debug")
	if flag == nil {
		t.Fatal("Expected a persistent --debug flag")
	}
	if flag.DefValue != "false" {
		t.Errorf("Expected --debug to default to false, got %s", flag.DefValue)
	}
}
