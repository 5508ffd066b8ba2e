package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/vibeline/internal/app"
	"github.com/MrWong99/vibeline/internal/config"
	"github.com/MrWong99/vibeline/internal/layout"
)

// cli carries state shared by all subcommands. Config is loaded once in the
// root's PersistentPreRunE.
type cli struct {
	configPath string
	envPath    string
	logLevel   string

	cfg      *config.Config
	registry *config.Registry
	out      io.Writer
	errOut   io.Writer
}

func newCLI() *cli {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	return &cli{registry: reg, out: os.Stdout, errOut: os.Stderr}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "vibeline",
		Short: "Turn voice memo transcripts into plugin-driven artifacts",
		Long: `vibeline cleans voice memo transcripts against a personal vocabulary,
activates the plugins whose keywords appear in them, and generates one
artifact per plugin through a local or hosted language model. Plugins may
run a shell command on their artifact afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "vibeline.yaml", "path to the YAML configuration file (optional)")
	pf.StringVar(&c.envPath, "env-file", ".env", "dotenv file loaded before reading the environment (optional)")
	pf.StringVar(&c.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(
		newExtractCommand(c),
		newBatchCommand(c),
		newCleanCommand(c),
		newPluginsCommand(c),
		newTodosCommand(c),
		newMonthlyCommand(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath, c.envPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		lvl := config.LogLevel(strings.ToLower(c.logLevel))
		if !lvl.IsValid() {
			return fmt.Errorf("--log-level %q is invalid; valid values: debug, info, warn, error", c.logLevel)
		}
		cfg.LogLevel = lvl
	}
	c.cfg = cfg
	slog.SetDefault(newLogger(c.errOut, cfg.LogLevel))
	slog.Debug("configuration loaded",
		"config", c.configPath,
		"voice_memos_dir", cfg.Paths.VoiceMemosDir,
		"plugins_dir", cfg.Paths.PluginsDir,
		"llm", cfg.Providers.LLM.Name,
		"model", cfg.Generation.DefaultModel,
	)
	return nil
}

// newApp builds the backend and the application for commands that generate.
func (c *cli) newApp() (*app.App, error) {
	backend, err := app.NewBackend(c.cfg, c.registry)
	if err != nil {
		return nil, err
	}
	return app.New(c.cfg, backend)
}

// defaultTranscriptDir is <voice_memos_dir>/transcripts.
func (c *cli) defaultTranscriptDir() string {
	return layout.New(c.cfg.Paths.VoiceMemosDir).TranscriptDir()
}

func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
