package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/xhsassist/internal/models"
)

// ConfigFileName is the config file looked up inside the home directory.
const ConfigFileName = "config.yaml"

// TimeoutConfig bounds how long each kind of helper may run.
type TimeoutConfig struct {
	// Fetch applies to note and profile crawls
	Fetch time.Duration `yaml:"fetch"`

	// Transcribe applies to video transcription
	Transcribe time.Duration `yaml:"transcribe"`

	// Analyze applies to claude CLI calls
	Analyze time.Duration `yaml:"analyze"`
}

// UsageConfig configures the usage log.
type UsageConfig struct {
	// Path is the JSON file holding usage entries
	Path string `yaml:"path"`

	// MaxEntries is how many entries are kept; older ones are dropped
	MaxEntries int `yaml:"max_entries"`
}

// HistoryConfig configures the task history database.
type HistoryConfig struct {
	// Enabled records every task in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the sqlite database
	DBPath string `yaml:"db_path"`

	// KeepDays is the retention used by `history prune` (0 = keep everything)
	KeepDays int `yaml:"keep_days"`
}

// Config represents xhsassist configuration options
type Config struct {
	// PythonPath is the interpreter used for the crawler and transcriber
	PythonPath string `yaml:"python_path"`

	// CrawlerScript is the note/profile crawler helper
	CrawlerScript string `yaml:"crawler_script"`

	// TranscriberScript is the video transcription helper
	TranscriberScript string `yaml:"transcriber_script"`

	// ClaudePath is the claude CLI binary used by analyze
	ClaudePath string `yaml:"claude_path"`

	// WorkDir is the working directory of every helper process
	WorkDir string `yaml:"work_dir"`

	Timeouts TimeoutConfig `yaml:"timeouts"`

	// MaxOutputBytes caps captured stdout and stderr per stream (0 = unbounded)
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	Usage   UsageConfig   `yaml:"usage"`
	History HistoryConfig `yaml:"history"`

	// CookiesFile is a JSON array of {name, value} passed to the crawler
	CookiesFile string `yaml:"cookies_file"`

	// ExitCodes overrides the exit code policy: task -> code -> category
	ExitCodes map[string]map[int]string `yaml:"exit_codes"`
}

// DefaultConfig returns a Config with sensible default values. Relative
// paths are resolved against the home directory by ResolvePaths.
func DefaultConfig() *Config {
	return &Config{
		PythonPath:        "python3",
		CrawlerScript:     "crawler_api.py",
		TranscriberScript: "video_transcriber.py",
		ClaudePath:        "claude",
		Timeouts: TimeoutConfig{
			Fetch:      60 * time.Second,
			Transcribe: 10 * time.Minute,
			Analyze:    3 * time.Minute,
		},
		MaxOutputBytes: 16 << 20,
		LogLevel:       "info",
		LogDir:         "logs",
		Usage: UsageConfig{
			Path:       filepath.Join("logs", "api-usage.json"),
			MaxEntries: 1000,
		},
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   "history.db",
			KeepDays: 30,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML
	type yamlConfig struct {
		PythonPath        string `yaml:"python_path"`
		CrawlerScript     string `yaml:"crawler_script"`
		TranscriberScript string `yaml:"transcriber_script"`
		ClaudePath        string `yaml:"claude_path"`
		WorkDir           string `yaml:"work_dir"`
		Timeouts          struct {
			Fetch      string `yaml:"fetch"`
			Transcribe string `yaml:"transcribe"`
			Analyze    string `yaml:"analyze"`
		} `yaml:"timeouts"`
		MaxOutputBytes *int64                    `yaml:"max_output_bytes"`
		LogLevel       string                    `yaml:"log_level"`
		LogDir         string                    `yaml:"log_dir"`
		Usage          UsageConfig               `yaml:"usage"`
		History        HistoryConfig             `yaml:"history"`
		CookiesFile    string                    `yaml:"cookies_file"`
		ExitCodes      map[string]map[int]string `yaml:"exit_codes"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setString(&cfg.PythonPath, yamlCfg.PythonPath)
	setString(&cfg.CrawlerScript, yamlCfg.CrawlerScript)
	setString(&cfg.TranscriberScript, yamlCfg.TranscriberScript)
	setString(&cfg.ClaudePath, yamlCfg.ClaudePath)
	setString(&cfg.WorkDir, yamlCfg.WorkDir)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.LogDir, yamlCfg.LogDir)
	setString(&cfg.CookiesFile, yamlCfg.CookiesFile)

	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"timeouts.fetch", yamlCfg.Timeouts.Fetch, &cfg.Timeouts.Fetch},
		{"timeouts.transcribe", yamlCfg.Timeouts.Transcribe, &cfg.Timeouts.Transcribe},
		{"timeouts.analyze", yamlCfg.Timeouts.Analyze, &cfg.Timeouts.Analyze},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format %q: %w", d.key, d.raw, err)
		}
		*d.dst = v
	}

	if yamlCfg.MaxOutputBytes != nil {
		cfg.MaxOutputBytes = *yamlCfg.MaxOutputBytes
	}
	if len(yamlCfg.ExitCodes) > 0 {
		cfg.ExitCodes = yamlCfg.ExitCodes
	}

	// Nested sections: only keys present in the file override defaults
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, ok := rawMap["usage"].(map[string]interface{}); ok {
			if _, exists := section["path"]; exists {
				cfg.Usage.Path = yamlCfg.Usage.Path
			}
			if _, exists := section["max_entries"]; exists {
				cfg.Usage.MaxEntries = yamlCfg.Usage.MaxEntries
			}
		}
		if section, ok := rawMap["history"].(map[string]interface{}); ok {
			if _, exists := section["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := section["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
			if _, exists := section["keep_days"]; exists {
				cfg.History.KeepDays = yamlCfg.History.KeepDays
			}
		}
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadConfigFromHome loads config.yaml from the home directory.
func LoadConfigFromHome(home string) (*Config, error) {
	return LoadConfig(filepath.Join(home, ConfigFileName))
}

// ResolvePaths makes the log, usage, history and cookie paths absolute by
// joining relative ones onto home.
func (c *Config) ResolvePaths(home string) {
	for _, p := range []*string{&c.LogDir, &c.Usage.Path, &c.History.DBPath, &c.CookiesFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(home, *p)
		}
	}
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, cookiesFile *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if cookiesFile != nil {
		c.CookiesFile = *cookiesFile
	}
}

// TimeoutFor returns the configured timeout for a task kind.
func (c *Config) TimeoutFor(kind models.TaskKind) time.Duration {
	switch kind {
	case models.TaskTranscribe:
		return c.Timeouts.Transcribe
	case models.TaskAnalyze:
		return c.Timeouts.Analyze
	default:
		return c.Timeouts.Fetch
	}
}

// SetTimeout overrides the timeout of one task kind.
func (c *Config) SetTimeout(kind models.TaskKind, d time.Duration) {
	switch kind {
	case models.TaskTranscribe:
		c.Timeouts.Transcribe = d
	case models.TaskAnalyze:
		c.Timeouts.Analyze = d
	default:
		c.Timeouts.Fetch = d
	}
}

// ExitCodeOverrides parses the exit_codes section.
func (c *Config) ExitCodeOverrides() (map[models.TaskKind]map[int]models.ErrorCategory, error) {
	out := make(map[models.TaskKind]map[int]models.ErrorCategory, len(c.ExitCodes))
	for task, codes := range c.ExitCodes {
		kind, err := models.ParseTaskKind(task)
		if err != nil {
			return nil, fmt.Errorf("exit_codes: %w", err)
		}
		if kind == models.TaskAnalyze {
			return nil, fmt.Errorf("exit_codes: %s uses the claude CLI policy and cannot be overridden", task)
		}
		m := make(map[int]models.ErrorCategory, len(codes))
		for code, name := range codes {
			if code == 0 {
				return nil, fmt.Errorf("exit_codes.%s: code 0 always means success", task)
			}
			cat, err := models.ParseErrorCategory(strings.TrimSpace(name))
			if err != nil {
				return nil, fmt.Errorf("exit_codes.%s.%d: %w", task, code, err)
			}
			m[code] = cat
		}
		out[kind] = m
	}
	return out, nil
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.PythonPath == "" {
		return fmt.Errorf("python_path cannot be empty")
	}
	if c.ClaudePath == "" {
		return fmt.Errorf("claude_path cannot be empty")
	}

	// 0 disables the timer, negative is invalid
	if c.Timeouts.Fetch < 0 || c.Timeouts.Transcribe < 0 || c.Timeouts.Analyze < 0 {
		return fmt.Errorf("timeouts must be >= 0, got fetch=%v transcribe=%v analyze=%v",
			c.Timeouts.Fetch, c.Timeouts.Transcribe, c.Timeouts.Analyze)
	}

	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("max_output_bytes must be >= 0, got %d", c.MaxOutputBytes)
	}

	if c.Usage.Path == "" {
		return fmt.Errorf("usage.path cannot be empty")
	}
	if c.Usage.MaxEntries <= 0 {
		return fmt.Errorf("usage.max_entries must be > 0, got %d", c.Usage.MaxEntries)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if c.History.KeepDays < 0 {
		return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
	}

	if _, err := c.ExitCodeOverrides(); err != nil {
		return err
	}

	return nil
}
