package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
	"github.com/ironsheep/timer-ocr-mcp/internal/server"
)

// newServeCmd builds "serve". The root command runs the same thing.
func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  a.runServe,
	}
}

// runServe serves MCP on stdin/stdout until stdin closes or the process is
// interrupted. An engine that fails to initialize leaves the server
// running with recognition disabled.
func (a *app) runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cli")
	log.Info().
		Str("version", a.build.Version).
		Str("build_time", a.build.BuildTime).
		Str("commit", a.build.GitCommit).
		Msg("timer OCR MCP server starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.cfg, ocr.NewTesseractEngine(), server.WithVersion(a.build.Version))
	srv.Start()
	defer func() {
		if err := srv.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release OCR engine")
		}
	}()

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
