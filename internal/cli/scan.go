package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/duration"
	"github.com/ironsheep/timer-ocr-mcp/internal/imaging"
	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
	"github.com/ironsheep/timer-ocr-mcp/internal/runner"
)

// scanOptions holds the scan flags.
type scanOptions struct {
	rect         imaging.Rect
	label        string
	noPreprocess bool
	start        bool
	jsonOutput   bool
}

// scanOutput is printed by scan --json.
type scanOutput struct {
	Crop       *imaging.CropResult `json:"crop"`
	Text       *string             `json:"text"`
	Duration   string              `json:"duration,omitempty"`
	Millis     int64               `json:"millis,omitempty"`
	ParseError string              `json:"parse_error,omitempty"`
}

func (a *app) newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Crop, recognize and parse a timer display photo",
		Long: `Crop the display region from a photo, read it with Tesseract and parse
the time it shows. Without a region the whole image is read.

With --start the parsed duration is counted down in the terminal.`,
		Example: `  timer-ocr-mcp scan photo.jpg --x1 120 --y1 80 --x2 360 --y2 170
  timer-ocr-mcp scan file:///tmp/display.png --json
  timer-ocr-mcp scan photo.jpg --x1 120 --y1 80 --x2 360 --y2 170 --start`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runScan(ctx, cmd, args[0], opts, ocr.NewTesseractEngine())
		},
	}

	cmd.Flags().IntVar(&opts.rect.X1, "x1", 0, "Left edge X coordinate")
	cmd.Flags().IntVar(&opts.rect.Y1, "y1", 0, "Top edge Y coordinate")
	cmd.Flags().IntVar(&opts.rect.X2, "x2", 0, "Right edge X coordinate (exclusive)")
	cmd.Flags().IntVar(&opts.rect.Y2, "y2", 0, "Bottom edge Y coordinate (exclusive)")
	cmd.Flags().StringVar(&opts.label, "label", runner.LabelTime, "What the region holds")
	cmd.Flags().BoolVar(&opts.noPreprocess, "no-preprocess", false, "Save the crop without OCR normalization")
	cmd.Flags().BoolVar(&opts.start, "start", false, "Count down the parsed duration")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// runScan crops source, recognizes the crop with a runner of its own and
// parses "time" results. With opts.start a parsed, non-zero duration is
// counted down in the terminal.
//
// Parameters:
//   - source: path or file:// URI of the photo
//   - opts: crop rectangle (all zero reads the whole image) and output flags
//   - engine: the OCR engine; disposed before returning
//
// Returns an error for unreadable sources, empty crops, engine failures, and
// --start without a duration. A parse failure alone is reported in the
// output, not as an error.
func (a *app) runScan(ctx context.Context, cmd *cobra.Command, source string, opts scanOptions, engine ocr.Engine) error {
	log := logger.WithComponent("scan")

	path, err := imaging.ResolveSource(source)
	if err != nil {
		return err
	}
	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}

	rect := opts.rect
	if rect == (imaging.Rect{}) {
		b := img.Bounds()
		rect = imaging.Rect{X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y}
	}
	pre := a.cfg.Preprocess
	if opts.noPreprocess {
		pre.Enabled = false
	}
	crop, err := imaging.CropToCache(img, rect, imaging.CropOptions{
		CacheDir:   a.cfg.CacheDir,
		Label:      opts.label,
		Preprocess: pre,
	})
	if err != nil {
		return err
	}
	log.Debug().Str("path", crop.Path).Msg("cropped display")

	r := runner.New(engine, runner.WithLogger(log))
	if err := r.Init(a.cfg.OCR); err != nil {
		return err
	}
	defer func() {
		if err := r.Dispose(); err != nil && !errors.Is(err, runner.ErrEngineDisposed) {
			log.Warn().Err(err).Msg("failed to release OCR engine")
		}
	}()

	results, err := r.Submit(ctx, runner.Request{Label: opts.label, ImagePath: crop.Path})
	if err != nil {
		return err
	}
	var res runner.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		r.Stop()
		res = <-results
	}
	if res.Err != nil && !errors.Is(res.Err, runner.ErrStopped) {
		return res.Err
	}

	out := scanOutput{Crop: crop, Text: res.Text}
	var parsed *duration.Duration
	if res.Success && opts.label == runner.LabelTime {
		d, err := duration.Parse(*res.Text)
		if err != nil {
			out.ParseError = err.Error()
		} else {
			parsed = &d
			out.Duration = d.String()
			out.Millis = d.Millis()
		}
	}

	if opts.jsonOutput {
		if err := writeJSON(cmd, out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "crop: %s\n", crop.Path)
		if out.Text != nil {
			fmt.Fprintf(w, "text: %q\n", *out.Text)
		}
		switch {
		case parsed != nil:
			fmt.Fprintf(w, "duration: %s\n", out.Duration)
		case out.ParseError != "":
			fmt.Fprintf(w, "parse error: %s\n", out.ParseError)
		}
	}

	if !opts.start || ctx.Err() != nil {
		return nil
	}
	if parsed == nil || parsed.IsZero() {
		return errors.New("no duration to start")
	}
	return a.runCountdown(ctx, cmd.OutOrStdout(), parsed.Std())
}
