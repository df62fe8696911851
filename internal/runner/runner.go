package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
)

// LabelTime is the label of a request whose text holds a timer duration.
const LabelTime = "time"

// Request asks for the text in one cropped image.
type Request struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	ImagePath string `json:"image_path"`
}

// Result is the outcome of one accepted Request. Text is nil when the
// recognition failed for a reason other than a user stop.
type Result struct {
	RequestID string        `json:"request_id"`
	Label     string        `json:"label"`
	Text      *string       `json:"text"`
	Success   bool          `json:"success"`
	Err       error         `json:"-"`
	Elapsed   time.Duration `json:"elapsed"`
}

// EventKind identifies what an Event reports.
type EventKind int

// Event kinds, in the order an accepted request produces them.
const (
	// EventResultCleared resets the label's text to "not computed".
	EventResultCleared EventKind = iota
	// EventProgress carries a human readable status message.
	EventProgress
	// EventResult carries the recognized (or stopped) text.
	EventResult
	// EventCompleted signals that the task finished, successfully or not.
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventResultCleared:
		return "result-cleared"
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	case EventCompleted:
		return "completed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is published to observers as a request moves through the runner.
type Event struct {
	Kind      EventKind
	RequestID string
	Label     string
	Text      *string
	Success   bool
	Message   string
}

// Observer receives runner events. It is called from the submitting
// goroutine and from worker goroutines and must not block.
type Observer func(Event)

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers an event observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// Status is a snapshot of the runner for status reporting.
type Status struct {
	State          string   `json:"state"`
	LastLabel      string   `json:"last_label,omitempty"`
	DisposePending bool     `json:"dispose_pending"`
	Engine         ocr.Info `json:"engine"`
}

// Runner serializes recognition requests against a single engine. At most
// one request is in flight; a second Submit is rejected, never queued.
type Runner struct {
	engine    ocr.Engine
	observers []Observer
	log       zerolog.Logger

	mu                     sync.Mutex
	state                  State
	recycleAfterProcessing bool
	cancel                 context.CancelFunc
	done                   chan struct{}
	lastLabel              string
}

// New creates a runner around engine. Call Init before Submit.
func New(engine ocr.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		log:    logger.WithComponent("runner"),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init loads the engine model. Failures wrap ocr.ErrEngineInit and leave
// the runner uninitialized.
func (r *Runner) Init(cfg ocr.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := next(r.state, trigInit); err != nil {
		return err
	}

	if err := r.engine.Init(cfg); err != nil {
		r.state, _ = next(r.state, trigInitFailed)
		if !errors.Is(err, ocr.ErrEngineInit) {
			err = fmt.Errorf("%w: %w", ocr.ErrEngineInit, err)
		}
		r.log.Error().Err(err).
			Str("language", cfg.Language).
			Str("tessdata_dir", cfg.TessdataDir).
			Msg("OCR engine initialization failed")
		return err
	}

	r.state, _ = next(r.state, trigInit)
	r.log.Info().
		Str("language", cfg.Language).
		Stringer("engine_mode", cfg.EngineMode).
		Msg("OCR engine initialized")
	return nil
}

// Submit starts recognition of req on a worker goroutine. The returned
// channel yields exactly one Result and is then closed.
//
// Rejected submissions return ErrEngineNotInitialized, ErrEngineBusy or
// ErrEngineDisposed and also publish a failed EventCompleted.
func (r *Runner) Submit(ctx context.Context, req Request) (<-chan Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	r.mu.Lock()
	st, err := next(r.state, trigSubmit)
	if err != nil {
		r.mu.Unlock()
		r.log.Warn().Err(err).Str("label", req.Label).Msg("OCR request rejected")
		r.publish(Event{
			Kind:      EventCompleted,
			RequestID: req.ID,
			Label:     req.Label,
			Message:   err.Error(),
		})
		return nil, err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.state = st
	r.cancel = cancel
	r.done = done
	r.lastLabel = req.Label
	r.mu.Unlock()

	r.publish(Event{Kind: EventResultCleared, RequestID: req.ID, Label: req.Label})
	r.publish(Event{
		Kind:      EventProgress,
		RequestID: req.ID,
		Label:     req.Label,
		Message:   fmt.Sprintf("Processing OCR for %s...", req.Label),
	})

	out := make(chan Result, 1)
	go r.work(taskCtx, cancel, req, out, done)
	return out, nil
}

// work runs one request. Events are published while the task still holds
// the engine, so a caller reacting to the Result cannot get a new task
// accepted before this task's completion event is out.
func (r *Runner) work(ctx context.Context, cancel context.CancelFunc, req Request, out chan<- Result, done chan struct{}) {
	start := time.Now()

	text, err := r.recognize(ctx, req.ImagePath)
	cancel()

	r.mu.Lock()
	stopped := r.state == StateStoppingRequested
	r.mu.Unlock()

	res := Result{
		RequestID: req.ID,
		Label:     req.Label,
		Elapsed:   time.Since(start),
	}
	switch {
	case stopped || errors.Is(err, ocr.ErrInterrupted):
		msg := ocr.StoppedText
		res.Text = &msg
		res.Err = ErrStopped
		r.log.Info().Str("label", req.Label).Msg("OCR stopped")
	case err != nil:
		res.Err = err
		r.log.Error().Err(err).Str("label", req.Label).Str("image", req.ImagePath).Msg("OCR failed")
	default:
		res.Text = &text
		res.Success = true
		r.log.Debug().Str("label", req.Label).Str("text", text).Dur("elapsed", res.Elapsed).Msg("OCR complete")
	}

	r.publish(Event{
		Kind:      EventResult,
		RequestID: req.ID,
		Label:     req.Label,
		Text:      res.Text,
		Success:   res.Success,
	})
	completed := Event{
		Kind:      EventCompleted,
		RequestID: req.ID,
		Label:     req.Label,
		Success:   res.Success,
	}
	if res.Err != nil {
		completed.Message = res.Err.Error()
	}
	r.publish(completed)

	r.mu.Lock()
	r.state, _ = next(r.state, trigComplete)
	dispose := r.recycleAfterProcessing
	if dispose {
		r.recycleAfterProcessing = false
		r.state = StateDisposed
	}
	r.cancel = nil
	r.mu.Unlock()

	if dispose {
		if cerr := r.engine.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("failed to close OCR engine")
		}
		r.log.Info().Msg("OCR engine disposed after task completion")
	}

	out <- res
	close(out)
	close(done)
}

// recognize calls the engine, converting a panic into an error so the
// runner always returns to a usable state.
func (r *Runner) recognize(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("OCR engine panic: %v", p)
		}
	}()
	return r.engine.Recognize(ctx, path)
}

// Stop asks the in-flight task to stop. It is a no-op when idle.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.state.inFlight() {
		st := r.state
		r.mu.Unlock()
		r.log.Debug().Stringer("state", st).Msg("no active OCR task to stop")
		return
	}
	r.state, _ = next(r.state, trigStop)
	cancel := r.cancel
	r.mu.Unlock()

	r.log.Info().Msg("stopping OCR task")
	if cancel != nil {
		cancel()
	}
	r.engine.Interrupt()
}

// Dispose releases the engine. When a task is in flight the task is
// stopped and the engine is closed once it finishes.
func (r *Runner) Dispose() error {
	r.mu.Lock()
	st, err := next(r.state, trigDispose)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	if st == StateStoppingRequested {
		if r.recycleAfterProcessing {
			r.mu.Unlock()
			return ErrEngineDisposed
		}
		r.recycleAfterProcessing = true
		r.state = st
		cancel := r.cancel
		r.mu.Unlock()

		r.log.Info().Msg("OCR task in flight, disposing after completion")
		if cancel != nil {
			cancel()
		}
		r.engine.Interrupt()
		return nil
	}

	r.state = st
	r.mu.Unlock()

	if err := r.engine.Close(); err != nil {
		return fmt.Errorf("failed to close OCR engine: %w", err)
	}
	r.log.Info().Msg("OCR engine disposed")
	return nil
}

// State returns the current engine state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns a snapshot of the runner and its engine.
func (r *Runner) Status() Status {
	r.mu.Lock()
	s := Status{
		State:          r.state.String(),
		LastLabel:      r.lastLabel,
		DisposePending: r.recycleAfterProcessing,
	}
	r.mu.Unlock()

	s.Engine = r.engine.Info()
	return s
}

// Wait blocks until the most recently submitted task has finished,
// including its cleanup, or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) publish(ev Event) {
	for _, o := range r.observers {
		o(ev)
	}
}
