package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/xhsassist/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PythonPath != "python3" {
		t.Errorf("PythonPath = %q, want python3", cfg.PythonPath)
	}
	if cfg.Timeouts.Fetch != 60*time.Second {
		t.Errorf("Timeouts.Fetch = %v, want 60s", cfg.Timeouts.Fetch)
	}
	if cfg.Timeouts.Transcribe != 10*time.Minute {
		t.Errorf("Timeouts.Transcribe = %v, want 10m", cfg.Timeouts.Transcribe)
	}
	if cfg.Timeouts.Analyze != 3*time.Minute {
		t.Errorf("Timeouts.Analyze = %v, want 3m", cfg.Timeouts.Analyze)
	}
	if cfg.Usage.MaxEntries != 1000 {
		t.Errorf("Usage.MaxEntries = %d, want 1000", cfg.Usage.MaxEntries)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	path := writeConfig(t, `python_path: /opt/venv/bin/python
crawler_script: helpers/crawler_api.py
work_dir: /srv/xhs
timeouts:
  fetch: 30s
  transcribe: 20m
max_output_bytes: 1024
log_level: debug
usage:
  max_entries: 50
history:
  enabled: false
exit_codes:
  fetch-note:
    2: invalid_input
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.PythonPath != "/opt/venv/bin/python" {
		t.Errorf("PythonPath = %q", cfg.PythonPath)
	}
	if cfg.CrawlerScript != "helpers/crawler_api.py" {
		t.Errorf("CrawlerScript = %q", cfg.CrawlerScript)
	}
	if cfg.TranscriberScript != "video_transcriber.py" {
		t.Errorf("TranscriberScript = %q, want default", cfg.TranscriberScript)
	}
	if cfg.Timeouts.Fetch != 30*time.Second {
		t.Errorf("Timeouts.Fetch = %v, want 30s", cfg.Timeouts.Fetch)
	}
	if cfg.Timeouts.Transcribe != 20*time.Minute {
		t.Errorf("Timeouts.Transcribe = %v, want 20m", cfg.Timeouts.Transcribe)
	}
	if cfg.Timeouts.Analyze != 3*time.Minute {
		t.Errorf("Timeouts.Analyze = %v, want default 3m", cfg.Timeouts.Analyze)
	}
	if cfg.MaxOutputBytes != 1024 {
		t.Errorf("MaxOutputBytes = %d, want 1024", cfg.MaxOutputBytes)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Usage.MaxEntries != 50 {
		t.Errorf("Usage.MaxEntries = %d, want 50", cfg.Usage.MaxEntries)
	}
	if cfg.Usage.Path != filepath.Join("logs", "api-usage.json") {
		t.Errorf("Usage.Path = %q, want default", cfg.Usage.Path)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false from file")
	}
	if cfg.History.DBPath != "history.db" {
		t.Errorf("History.DBPath = %q, want default", cfg.History.DBPath)
	}

	overrides, err := cfg.ExitCodeOverrides()
	if err != nil {
		t.Fatalf("ExitCodeOverrides() error = %v", err)
	}
	if got := overrides[models.TaskFetchNote][2]; got != models.CategoryInvalidInput {
		t.Errorf("fetchNote code 2 = %q, want InvalidInput", got)
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info (default)", cfg.LogLevel)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "timeouts: [unclosed", "failed to parse config file"},
		{"bad duration", "timeouts:\n  fetch: soon\n", "invalid timeouts.fetch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigZeroValuesAreExplicit(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "max_output_bytes: 0\nhistory:\n  keep_days: 0\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MaxOutputBytes != 0 {
		t.Errorf("MaxOutputBytes = %d, want 0", cfg.MaxOutputBytes)
	}
	if cfg.History.KeepDays != 0 {
		t.Errorf("History.KeepDays = %d, want 0", cfg.History.KeepDays)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should keep its default when not set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"empty python", func(c *Config) { c.PythonPath = "" }, "python_path"},
		{"empty claude", func(c *Config) { c.ClaudePath = "" }, "claude_path"},
		{"negative timeout", func(c *Config) { c.Timeouts.Fetch = -time.Second }, "timeouts"},
		{"negative output cap", func(c *Config) { c.MaxOutputBytes = -1 }, "max_output_bytes"},
		{"zero usage entries", func(c *Config) { c.Usage.MaxEntries = 0 }, "usage.max_entries"},
		{"history without db", func(c *Config) { c.History.DBPath = "" }, "history.db_path"},
		{"negative keep days", func(c *Config) { c.History.KeepDays = -1 }, "keep_days"},
		{"unknown task", func(c *Config) { c.ExitCodes = map[string]map[int]string{"upload": {2: "cancelled"}} }, "unknown task kind"},
		{"unknown category", func(c *Config) { c.ExitCodes = map[string]map[int]string{"transcribe": {2: "oops"}} }, "unknown error category"},
		{"remap success", func(c *Config) { c.ExitCodes = map[string]map[int]string{"transcribe": {0: "cancelled"}} }, "code 0"},
		{"analyze policy", func(c *Config) { c.ExitCodes = map[string]map[int]string{"analyze": {1: "cancelled"}} }, "claude CLI"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("history disabled may omit db", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.History.Enabled = false
		cfg.History.DBPath = ""
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	level := "trace"
	cookies := "/tmp/cookies.json"
	cfg.MergeWithFlags(&level, nil, &cookies)

	if cfg.LogLevel != "trace" {
		t.Errorf("LogLevel = %q, want trace", cfg.LogLevel)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("LogDir = %q, nil flag must not override", cfg.LogDir)
	}
	if cfg.CookiesFile != cookies {
		t.Errorf("CookiesFile = %q", cfg.CookiesFile)
	}
}

func TestResolvePaths(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig()
	cfg.CookiesFile = "/abs/cookies.json"
	cfg.ResolvePaths(home)

	if cfg.LogDir != filepath.Join(home, "logs") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Usage.Path != filepath.Join(home, "logs", "api-usage.json") {
		t.Errorf("Usage.Path = %q", cfg.Usage.Path)
	}
	if cfg.History.DBPath != filepath.Join(home, "history.db") {
		t.Errorf("History.DBPath = %q", cfg.History.DBPath)
	}
	if cfg.CookiesFile != "/abs/cookies.json" {
		t.Errorf("CookiesFile = %q, absolute paths stay as they are", cfg.CookiesFile)
	}
}

func TestTimeoutFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetTimeout(models.TaskFetchProfile, 5*time.Second)
	cfg.SetTimeout(models.TaskAnalyze, time.Minute)

	if got := cfg.TimeoutFor(models.TaskFetchNote); got != 5*time.Second {
		t.Errorf("fetchNote timeout = %v, shares the fetch timeout", got)
	}
	if got := cfg.TimeoutFor(models.TaskAnalyze); got != time.Minute {
		t.Errorf("analyze timeout = %v", got)
	}
	if got := cfg.TimeoutFor(models.TaskTranscribe); got != 10*time.Minute {
		t.Errorf("transcribe timeout = %v", got)
	}
}
