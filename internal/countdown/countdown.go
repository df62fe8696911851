// Package countdown runs the kitchen-timer countdown armed from a
// recognized duration and reports it through a Notifier.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
)

// DefaultInterval is the default progress tick.
const DefaultInterval = time.Second

// ErrInvalidDuration is returned by Start for a non-positive duration.
var ErrInvalidDuration = errors.New("countdown duration must be positive")

// Notifier receives countdown notifications. Methods are called from the
// countdown goroutine and must not block for long.
type Notifier interface {
	// Progress posts or updates the ongoing notification.
	Progress(remaining time.Duration)
	// Cancel removes the ongoing notification.
	Cancel()
	// Finished posts the high-priority "timer finished" notification.
	Finished()
	// StartAlarm starts the looping alarm sound.
	StartAlarm()
	// StopAlarm silences the alarm.
	StopAlarm()
	// Dismissed clears the finished notification.
	Dismissed()
}

// Option configures a Service.
type Option func(*Service)

// WithInterval sets the progress tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// Service runs at most one countdown at a time.
type Service struct {
	notifier Notifier
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	deadline time.Time
	running  bool
	ringing  bool
}

// New creates a countdown service that reports to n.
func New(n Notifier, opts ...Option) *Service {
	s := &Service{
		notifier: n,
		interval: DefaultInterval,
		log:      logger.WithComponent("countdown"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms a countdown of durationMillis, replacing any running one.
func (s *Service) Start(durationMillis int64) error {
	if durationMillis <= 0 {
		return fmt.Errorf("%w: %d ms", ErrInvalidDuration, durationMillis)
	}
	total := time.Duration(durationMillis) * time.Millisecond

	s.mu.Lock()
	prev, wasRinging := s.haltLocked()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.deadline = time.Now().Add(total)
	s.running = true
	deadline := s.deadline
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	if wasRinging {
		s.notifier.StopAlarm()
	}

	s.log.Info().Dur("duration", total).Msg("countdown started")
	s.notifier.Progress(total)
	go s.run(ctx, deadline, done)
	return nil
}

func (s *Service) run(ctx context.Context, deadline time.Time, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.finish(ctx)
			return
		}
		s.notifier.Progress(remaining)
	}
}

func (s *Service) finish(ctx context.Context) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ringing = true
	s.mu.Unlock()

	s.log.Info().Msg("countdown finished")
	s.notifier.Cancel()
	s.notifier.Finished()
	s.notifier.StartAlarm()
}

// Stop cancels the countdown and any ringing alarm.
func (s *Service) Stop() {
	s.mu.Lock()
	prev, wasRinging := s.haltLocked()
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	if wasRinging {
		s.notifier.StopAlarm()
	}
	s.notifier.Cancel()
	s.log.Info().Msg("countdown stopped")
}

// haltLocked cancels the running countdown and clears the alarm flag. It
// returns the loop's done channel, if any, and whether the alarm was ringing.
func (s *Service) haltLocked() (<-chan struct{}, bool) {
	var prev <-chan struct{}
	if s.cancel != nil {
		s.cancel()
		prev = s.done
		s.cancel = nil
		s.done = nil
	}
	wasRinging := s.ringing
	s.running = false
	s.ringing = false
	return prev, wasRinging
}

// Dismiss silences a ringing alarm and clears the finished notification.
// It reports whether an alarm was ringing.
func (s *Service) Dismiss() bool {
	s.mu.Lock()
	wasRinging := s.ringing
	s.ringing = false
	s.mu.Unlock()

	if !wasRinging {
		return false
	}
	s.notifier.StopAlarm()
	s.notifier.Dismissed()
	s.log.Info().Msg("alarm dismissed")
	return true
}

// Remaining returns the time left, or zero when no countdown runs.
func (s *Service) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return max(0, time.Until(s.deadline))
}

// Running reports whether a countdown is in progress.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ringing reports whether the alarm is sounding.
func (s *Service) Ringing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ringing
}

// FormatRemaining renders d as "Time remaining: MM:SS". Minutes are not
// wrapped into hours.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("Time remaining: %02d:%02d", secs/60, secs%60)
}
