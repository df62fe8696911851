package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
)

// newInstallModelCmd installs a .traineddata file with ocr.InstallModel.
func (a *app) newInstallModelCmd() *cobra.Command {
	var tessdataDir string

	cmd := &cobra.Command{
		Use:   "install-model <file.traineddata>",
		Short: "Copy a trained Tesseract model into the tessdata directory",
		Long: `Copy a trained model, such as 7seg.traineddata, into the tessdata
directory the OCR engine loads from. The directory defaults to
ocr.tessdata_dir from the configuration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := tessdataDir
			if dir == "" {
				dir = a.cfg.OCR.TessdataDir
			}
			if dir == "" {
				return errors.New("no tessdata directory: set --tessdata or ocr.tessdata_dir")
			}

			path, err := ocr.InstallModel(args[0], dir)
			if err != nil {
				return err
			}
			logger.WithComponent("cli").Info().Str("path", path).Msg("model installed")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&tessdataDir, "tessdata", "", "Destination tessdata directory")
	return cmd
}
