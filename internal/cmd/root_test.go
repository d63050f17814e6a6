package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
)

// testHome points XHSASSIST_HOME at a temp dir and writes config.yaml
// there when config is non-empty.
func testHome(t *testing.T, config string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XHSASSIST_HOME", home)
	if config != "" {
		if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(config), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	return home
}

// writeScript writes an executable shell script into dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("helper scripts need /bin/sh")
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	color.NoColor = true

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("--help returned error: %v", err)
	}
	if !strings.Contains(stdout, "xhsassist") {
		t.Errorf("Help text should contain 'xhsassist', got: %s", stdout)
	}
	for _, flag := range []string{"--config", "--timeout", "--log-level", "--json"} {
		if !strings.Contains(stdout, flag) {
			t.Errorf("Help text should list %s", flag)
		}
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "xhsassist" {
		t.Errorf("Expected Use to be 'xhsassist', got '%s'", cmd.Use)
	}

	want := []string{"transcribe", "fetch-note", "fetch-profile", "analyze", "usage", "history", "export"}
	have := map[string]bool{}
	for _, c := range cmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	old := Version
	Version = "1.2.3"
	defer func() { Version = old }()

	stdout, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(stdout, "1.2.3") {
		t.Errorf("expected version in output, got %q", stdout)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	testHome(t, "log_level: loud\n")
	_, _, err := execute(t, "usage", "stats")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected invalid configuration error, got %v", err)
	}
}

func TestInvalidTimeoutFlag(t *testing.T) {
	testHome(t, "")
	_, _, err := execute(t, "transcribe", "--timeout", "soon", "https://www.bilibili.com/video/BV1xx411c7mD")
	if err == nil || !strings.Contains(err.Error(), "invalid timeout") {
		t.Errorf("expected invalid timeout error, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	writeFile(t, filepath.Join(home, "config.yaml"), content)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
