package countdown

import (
	"time"

	"github.com/rs/zerolog"
)

// FinishedText is the body of the finished notification.
const FinishedText = "Your timer has finished!"

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier returns a notifier that logs to l.
func NewLogNotifier(l zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

// Progress logs the remaining time at info level.
func (n *LogNotifier) Progress(remaining time.Duration) {
	n.log.Info().Dur("remaining", remaining).Msg(FormatRemaining(remaining))
}

// Cancel logs at debug level.
func (n *LogNotifier) Cancel() {
	n.log.Debug().Msg("countdown notification cancelled")
}

// Finished logs FinishedText as a warning so it stands out.
func (n *LogNotifier) Finished() {
	n.log.Warn().Msg(FinishedText)
}

// StartAlarm logs that the alarm is ringing.
func (n *LogNotifier) StartAlarm() {
	n.log.Info().Msg("alarm started")
}

// StopAlarm logs that the alarm was silenced.
func (n *LogNotifier) StopAlarm() {
	n.log.Info().Msg("alarm stopped")
}

// Dismissed logs at debug level.
func (n *LogNotifier) Dismissed() {
	n.log.Debug().Msg("finished notification dismissed")
}

// Multi fans notifications out to several notifiers in order.
type Multi []Notifier

// Progress forwards to every notifier.
func (m Multi) Progress(remaining time.Duration) {
	for _, n := range m {
		n.Progress(remaining)
	}
}

// Cancel forwards to every notifier.
func (m Multi) Cancel() {
	for _, n := range m {
		n.Cancel()
	}
}

// Finished forwards to every notifier.
func (m Multi) Finished() {
	for _, n := range m {
		n.Finished()
	}
}

// StartAlarm forwards to every notifier.
func (m Multi) StartAlarm() {
	for _, n := range m {
		n.StartAlarm()
	}
}

// StopAlarm forwards to every notifier.
func (m Multi) StopAlarm() {
	for _, n := range m {
		n.StopAlarm()
	}
}

// Dismissed forwards to every notifier.
func (m Multi) Dismissed() {
	for _, n := range m {
		n.Dismissed()
	}
}
