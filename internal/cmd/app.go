package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/xhsassist/internal/claude"
	"github.com/harrison/xhsassist/internal/config"
	"github.com/harrison/xhsassist/internal/history"
	"github.com/harrison/xhsassist/internal/logger"
	"github.com/harrison/xhsassist/internal/models"
	"github.com/harrison/xhsassist/internal/orchestrator"
	"github.com/harrison/xhsassist/internal/runner"
	"github.com/harrison/xhsassist/internal/usage"
)

// loadConfig resolves the home directory, loads the config file and applies
// the persistent flags. kind selects which timeout --timeout overrides; pass
// "" for commands that run no task.
func loadConfig(cmd *cobra.Command, kind models.TaskKind) (*config.Config, string, error) {
	home, err := config.GetHome()
	if err != nil {
		return nil, "", err
	}

	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromHome(home)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
	}

	var logLevelPtr, logDirPtr, cookiesPtr *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}
	if cmd.Flags().Changed("cookies") {
		v, _ := cmd.Flags().GetString("cookies")
		cookiesPtr = &v
	}
	cfg.MergeWithFlags(logLevelPtr, logDirPtr, cookiesPtr)

	if kind != "" && cmd.Flags().Changed("timeout") {
		raw, _ := cmd.Flags().GetString("timeout")
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, "", fmt.Errorf("invalid timeout format %q: %w", raw, err)
		}
		cfg.SetTimeout(kind, d)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ResolvePaths(home)
	return cfg, home, nil
}

// app wires the loggers, the process runner and the observers used by the
// task commands.
type app struct {
	cfg      *config.Config
	log      logger.TaskLogger
	fileLog  *logger.FileLogger
	orch     *orchestrator.Orchestrator
	analyzer *claude.Analyzer
	usage    *usage.Tracker
	history  *history.Store
	creds    models.CredentialSet
	jsonOut  bool
}

func newApp(cmd *cobra.Command, kind models.TaskKind) (*app, error) {
	cfg, _, err := loadConfig(cmd, kind)
	if err != nil {
		return nil, err
	}

	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		// a broken log dir should not block the task
		console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		fileLog = nil
	}
	var log logger.TaskLogger = console
	if fileLog != nil {
		log = logger.NewMultiLogger(console, fileLog)
	}

	a := &app{cfg: cfg, log: log, fileLog: fileLog}
	a.jsonOut, _ = cmd.Flags().GetBool("json")

	creds, err := loadCredentials(cfg.CookiesFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.creds = creds

	a.usage = usage.NewTracker(cfg.Usage.Path, cfg.Usage.MaxEntries, log)
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			log.LogWarn(fmt.Sprintf("task history disabled: %v", err))
		} else {
			a.history = store
		}
	}

	exec := runner.New(cfg.MaxOutputBytes, log)

	a.orch = orchestrator.New(exec, orchestrator.Settings{
		PythonPath:        cfg.PythonPath,
		CrawlerScript:     cfg.CrawlerScript,
		TranscriberScript: cfg.TranscriberScript,
		WorkDir:           cfg.WorkDir,
		FetchTimeout:      cfg.Timeouts.Fetch,
		TranscribeTimeout: cfg.Timeouts.Transcribe,
		DetailLimit:       orchestrator.DefaultDetailLimit,
	}, log)
	overrides, err := cfg.ExitCodeOverrides()
	if err != nil {
		a.Close()
		return nil, err
	}
	for k, m := range overrides {
		a.orch.SetExitPolicy(k, orchestrator.DefaultExitPolicy().WithOverrides(m))
	}
	a.orch.Observe(a.record)

	a.analyzer = claude.NewAnalyzer(exec, cfg.ClaudePath, cfg.Timeouts.Analyze, log)
	a.analyzer.WorkDir = cfg.WorkDir
	a.analyzer.Observe(a.record)

	return a, nil
}

// record stores a finished task in the usage log and the history. Failures
// to record are logged and never fail the task.
func (a *app) record(r models.TaskReport) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.usage.RecordReport(ctx, r); err != nil {
		a.log.LogWarn(fmt.Sprintf("usage log: %v", err))
	}
	if a.history != nil {
		if _, err := a.history.RecordReport(ctx, r); err != nil {
			a.log.LogWarn(fmt.Sprintf("task history: %v", err))
		}
	}
}

// Close releases the history database and the run log.
func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.fileLog != nil {
		a.fileLog.Close()
	}
}

func loadCredentials(path string) (models.CredentialSet, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookies file: %w", err)
	}
	return models.ParseCredentialSet(data)
}

// taskError renders a task failure for the user. RawDetail only goes to
// the run log.
func taskError(err error) error {
	if te, ok := models.AsTaskError(err); ok {
		return fmt.Errorf("%s: %s", te.Category, te.Message)
	}
	return err
}
