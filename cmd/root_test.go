package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
	if GetVersion() != testVersion {
		t.Errorf("Expected GetVersion to return %s, got %s", testVersion, GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "testprobe" {
		t.Errorf("Expected Use to be 'testprobe', got %s", rootCmd.Use)
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

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "testprobe version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	if err := testCmd.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	expected := "testprobe version 1.0.0\n"
	if buf.String() != expected {
		t.Errorf("Expected version output %q, got %q", expected, buf.String())
	}
}

func TestSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	expectedCommands := []string{"version", "serve"}
	found := map[string]bool{}
	for _, cmd := range commands {
		found[cmd.Name()] = true
	}
	for _, name := range expectedCommands {
		if !found[name] {
			t.Errorf("Expected subcommand %s to be registered", name)
		}
	}
}

func TestRootCommandHelp(t *testing.T) {
	var buf bytes.Buffer
	testRootCmd := &cobra.Command{
		Use:          "testprobe",
		Short:        "Orchestrate end-to-end Kafka test scenarios",
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})

	if err := testRootCmd.Execute(); err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "testprobe") {
		t.Errorf("Help output should contain 'testprobe'. Got: %q", output)
	}
	if !strings.Contains(output, "Kafka") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
