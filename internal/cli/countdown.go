package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/timer-ocr-mcp/internal/countdown"
	"github.com/ironsheep/timer-ocr-mcp/internal/duration"
	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
)

func (a *app) newCountdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countdown <HH:MM|HHMM|minutes>",
		Short: "Run a countdown in the terminal",
		Long: `Run a countdown of the given duration, printing the time remaining about
once a second. Interrupt to cancel.`,
		Example: `  timer-ocr-mcp countdown 0:45
  timer-ocr-mcp countdown 130`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := duration.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runCountdown(ctx, cmd.OutOrStdout(), d.Std())
		},
	}
}

// runCountdown blocks until the countdown finishes or ctx is cancelled.
func (a *app) runCountdown(ctx context.Context, w io.Writer, total time.Duration) error {
	term := newTerminalNotifier(w)
	svc := countdown.New(
		countdown.Multi{countdown.NewLogNotifier(logger.WithComponent("countdown")), term},
		countdown.WithInterval(a.cfg.TickInterval),
	)
	if err := svc.Start(total.Milliseconds()); err != nil {
		return err
	}

	select {
	case <-term.finished:
		svc.Dismiss()
		return nil
	case <-ctx.Done():
		svc.Stop()
		term.println("Timer cancelled.")
		return nil
	}
}

// terminalNotifier prints countdown notifications as lines of text.
type terminalNotifier struct {
	mu       sync.Mutex
	w        io.Writer
	finished chan struct{}
	once     sync.Once
}

// newTerminalNotifier returns a notifier printing to w.
func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w, finished: make(chan struct{})}
}

func (n *terminalNotifier) println(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, s)
}

// Progress prints "Time remaining: MM:SS".
func (n *terminalNotifier) Progress(remaining time.Duration) {
	n.println(countdown.FormatRemaining(remaining))
}

// Cancel also precedes Finished, so it prints nothing.
func (n *terminalNotifier) Cancel() {}

// Finished prints FinishedText.
func (n *terminalNotifier) Finished() {
	n.println(countdown.FinishedText)
}

// StartAlarm releases runCountdown; the terminal has no sound.
func (n *terminalNotifier) StartAlarm() {
	n.once.Do(func() { close(n.finished) })
}

func (n *terminalNotifier) StopAlarm() {}

func (n *terminalNotifier) Dismissed() {}
