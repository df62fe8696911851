// Package cli defines the timer-ocr-mcp command line: the MCP server plus
// one-shot scan, parse and countdown commands for use from a shell.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/config"
	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
)

// BuildInfo is stamped by ldflags in main.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// app carries state shared by the commands of one invocation.
type app struct {
	build    BuildInfo
	cfgFile  string
	logLevel string
	envFiles []string

	cfg       *config.Config
	logCloser io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd(build BuildInfo) *cobra.Command {
	a := &app{build: build}

	root := &cobra.Command{
		Use:   "timer-ocr-mcp",
		Short: "Read kitchen-timer displays and run their countdown",
		Long: `timer-ocr-mcp reads the time shown on a photographed timer display with
Tesseract OCR and runs the countdown it shows.

Without a subcommand it serves MCP over stdin/stdout. Configure it in your
MCP client (e.g., Claude Desktop).

Configuration is read from --config, timer-ocr.yaml or .timer-ocr.yaml,
then .env, then TIMER_OCR_* environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
		RunE: a.runServe,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./timer-ocr.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "dotenv files to load (default is ./.env)")

	root.AddCommand(
		a.newServeCmd(),
		a.newScanCmd(),
		a.newParseCmd(),
		a.newCountdownCmd(),
		a.newInstallModelCmd(),
		a.newVersionCmd(),
	)
	return root
}

// Execute runs the command line.
func Execute(build BuildInfo) error {
	return NewRootCmd(build).Execute()
}

// setup runs before every command. It loads the config file, .env and
// TIMER_OCR_* overrides, applies --log-level, validates the result and
// configures the global logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if err := config.LoadEnv(cfg, a.envFiles...); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logCloser = closer

	log := logger.WithComponent("cli")
	log.Debug().
		Str("command", cmd.Name()).
		Str("config", cfg.Source).
		Str("version", a.build.Version).
		Msg("configuration loaded")
	return nil
}
