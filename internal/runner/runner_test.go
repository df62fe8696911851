package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
)

// fakeEngine is an in-memory ocr.Engine. When gate is non-nil Recognize
// blocks until a value arrives on it or the task is interrupted.
type fakeEngine struct {
	initErr error
	gate    chan struct{}
	started chan struct{}

	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error

	inits      atomic.Int32
	closes     atomic.Int32
	interrupts atomic.Int32
	interruptC chan struct{}
	once       sync.Once

	// seq orders engine calls: recognizedAt and closedAt hold the step at
	// which the last Recognize returned and Close ran.
	seq          atomic.Int32
	recognizedAt atomic.Int32
	closedAt     atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		texts:      make(map[string]string),
		errs:       make(map[string]error),
		interruptC: make(chan struct{}),
	}
}

func (f *fakeEngine) Init(ocr.Config) error {
	f.inits.Add(1)
	return f.initErr
}

func (f *fakeEngine) Recognize(ctx context.Context, path string) (string, error) {
	defer func() { f.recognizedAt.Store(f.seq.Add(1)) }()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-f.interruptC:
			return "", ocr.ErrInterrupted
		case <-ctx.Done():
			return "", errors.Join(ocr.ErrInterrupted, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[path]; ok {
		return "", err
	}
	if text, ok := f.texts[path]; ok {
		return text, nil
	}
	return "12:34\n", nil
}

func (f *fakeEngine) Interrupt() {
	f.interrupts.Add(1)
	f.once.Do(func() { close(f.interruptC) })
}

func (f *fakeEngine) Close() error {
	f.closes.Add(1)
	f.closedAt.Store(f.seq.Add(1))
	return nil
}

func (f *fakeEngine) Info() ocr.Info {
	return ocr.Info{Backend: "fake", Initialized: f.inits.Load() > 0}
}

// recorder collects events in publish order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func newTestRunner(t *testing.T, engine ocr.Engine, opts ...Option) *Runner {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	r := New(engine, opts...)
	if err := r.Init(ocr.Config{Language: "7seg", EngineMode: ocr.OEMLSTMOnly}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return r
}

func await(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func wait(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestRunner_SubmitBeforeInit(t *testing.T) {
	rec := &recorder{}
	r := New(newFakeEngine(), WithLogger(logger.Nop()), WithObserver(rec.observe))

	_, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "x.jpg"})
	if !errors.Is(err, ErrEngineNotInitialized) {
		t.Fatalf("got %v, want ErrEngineNotInitialized", err)
	}

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != EventCompleted {
		t.Fatalf("events: got %v, want one completed", kinds)
	}
	if rec.events[0].Success {
		t.Error("rejected submission reported success")
	}
}

func TestRunner_InitFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.initErr = errors.New("no such model")
	r := New(engine, WithLogger(logger.Nop()))

	err := r.Init(ocr.Config{Language: "7seg"})
	if !errors.Is(err, ocr.ErrEngineInit) {
		t.Fatalf("got %v, want ErrEngineInit", err)
	}
	if r.State() != StateUninitialized {
		t.Errorf("state: got %s, want uninitialized", r.State())
	}
}

func TestRunner_SubmitSuccess(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(t, newFakeEngine(), WithObserver(rec.observe))

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res := await(t, ch)
	wait(t, r)

	if !res.Success || res.Err != nil {
		t.Fatalf("result: %+v", res)
	}
	if res.Text == nil || *res.Text != "12:34\n" {
		t.Errorf("text: got %v", res.Text)
	}
	if res.RequestID == "" {
		t.Error("request ID was not assigned")
	}
	if _, ok := <-ch; ok {
		t.Error("result channel not closed after one value")
	}

	want := []EventKind{EventResultCleared, EventProgress, EventResult, EventCompleted}
	got := rec.kinds()
	if len(got) != len(want) {
		t.Fatalf("events: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if rec.events[0].Text != nil {
		t.Error("cleared event should carry nil text")
	}
	if r.State() != StateReady {
		t.Errorf("state: got %s, want ready", r.State())
	}
}

func TestRunner_CompletionOrderAcrossSubmits(t *testing.T) {
	var (
		mu        sync.Mutex
		completed []string
	)
	slowObserver := func(ev Event) {
		switch ev.Kind {
		case EventResult:
			if ev.RequestID == "1" {
				time.Sleep(20 * time.Millisecond)
			}
		case EventCompleted:
			mu.Lock()
			completed = append(completed, ev.RequestID)
			mu.Unlock()
		}
	}
	r := newTestRunner(t, newFakeEngine(), WithObserver(slowObserver))

	// Each request is submitted as soon as the previous result arrives.
	for _, id := range []string{"1", "2"} {
		ch, err := r.Submit(context.Background(), Request{ID: id, Label: LabelTime, ImagePath: "a.jpg"})
		if err != nil {
			t.Fatalf("Submit %s: %v", id, err)
		}
		await(t, ch)
	}
	wait(t, r)

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 2 || completed[0] != "1" || completed[1] != "2" {
		t.Errorf("completion order: got %v, want [1 2]", completed)
	}
}

func TestRunner_StopCompletesBeforeNextSubmit(t *testing.T) {
	engine := newFakeEngine()
	engine.gate = make(chan struct{})
	engine.started = make(chan struct{}, 1)
	rec := &recorder{}
	r := newTestRunner(t, engine, WithObserver(rec.observe))

	ch, err := r.Submit(context.Background(), Request{ID: "1", Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-engine.started
	r.Stop()
	await(t, ch)

	rec.mu.Lock()
	var stoppedDone bool
	for _, ev := range rec.events {
		if ev.Kind == EventCompleted && ev.RequestID == "1" && !ev.Success {
			stoppedDone = true
		}
	}
	rec.mu.Unlock()
	if !stoppedDone {
		t.Fatal("stopped task's completion event not published before its result")
	}

	engine.gate = nil
	ch, err = r.Submit(context.Background(), Request{ID: "2", Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit after stop: %v", err)
	}
	if res := await(t, ch); !res.Success {
		t.Errorf("second task: %+v", res)
	}
}

func TestRunner_SequentialCyclesReturnToReady(t *testing.T) {
	r := newTestRunner(t, newFakeEngine())

	for i := 0; i < 20; i++ {
		ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
		if err != nil {
			t.Fatalf("cycle %d: Submit: %v", i, err)
		}
		await(t, ch)
		wait(t, r)
		if r.State() != StateReady {
			t.Fatalf("cycle %d: state %s, want ready", i, r.State())
		}
	}
}

func TestRunner_BusyRejectsSecondSubmit(t *testing.T) {
	engine := newFakeEngine()
	engine.gate = make(chan struct{})
	rec := &recorder{}
	r := newTestRunner(t, engine, WithObserver(rec.observe))

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err = r.Submit(context.Background(), Request{Label: "temp", ImagePath: "b.jpg"})
	if !errors.Is(err, ErrEngineBusy) {
		t.Fatalf("second Submit: got %v, want ErrEngineBusy", err)
	}
	if err := r.Init(ocr.Config{Language: "7seg"}); !errors.Is(err, ErrEngineBusy) {
		t.Errorf("Init while busy: got %v, want ErrEngineBusy", err)
	}

	close(engine.gate)
	res := await(t, ch)
	wait(t, r)
	if !res.Success {
		t.Errorf("first task should still succeed: %+v", res)
	}

	var rejected int
	for _, ev := range rec.events {
		if ev.Kind == EventCompleted && ev.Label == "temp" && !ev.Success {
			rejected++
		}
	}
	if rejected != 1 {
		t.Errorf("rejected completion events: got %d, want 1", rejected)
	}
}

func TestRunner_Stop(t *testing.T) {
	engine := newFakeEngine()
	engine.gate = make(chan struct{})
	engine.started = make(chan struct{}, 1)
	r := newTestRunner(t, engine)

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-engine.started

	r.Stop()
	if st := r.State(); st != StateStoppingRequested && st != StateReady {
		t.Errorf("state after Stop: %s", st)
	}

	res := await(t, ch)
	wait(t, r)

	if res.Success {
		t.Error("stopped task reported success")
	}
	if !errors.Is(res.Err, ErrStopped) {
		t.Errorf("err: got %v, want ErrStopped", res.Err)
	}
	if res.Text == nil || *res.Text != ocr.StoppedText {
		t.Errorf("text: got %v, want %q", res.Text, ocr.StoppedText)
	}
	if engine.interrupts.Load() != 1 {
		t.Errorf("interrupts: got %d, want 1", engine.interrupts.Load())
	}
	if r.State() != StateReady {
		t.Errorf("state: got %s, want ready", r.State())
	}
}

func TestRunner_StopWhenIdle(t *testing.T) {
	engine := newFakeEngine()
	r := newTestRunner(t, engine)

	r.Stop()
	if engine.interrupts.Load() != 0 {
		t.Error("idle Stop interrupted the engine")
	}
	if r.State() != StateReady {
		t.Errorf("state: got %s, want ready", r.State())
	}
}

func TestRunner_EngineError(t *testing.T) {
	engine := newFakeEngine()
	engine.errs["bad.jpg"] = errors.New("tesseract exploded")
	r := newTestRunner(t, engine)

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "bad.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res := await(t, ch)
	wait(t, r)

	if res.Success || res.Err == nil {
		t.Fatalf("expected failure, got %+v", res)
	}
	if res.Text != nil {
		t.Errorf("failed result should have nil text, got %q", *res.Text)
	}
	if r.State() != StateReady {
		t.Errorf("state: got %s, want ready", r.State())
	}
}

type panicEngine struct{ *fakeEngine }

func (panicEngine) Recognize(context.Context, string) (string, error) {
	panic("native crash")
}

func TestRunner_RecoversEnginePanic(t *testing.T) {
	r := newTestRunner(t, panicEngine{newFakeEngine()})

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res := await(t, ch)
	wait(t, r)

	if res.Success || res.Err == nil {
		t.Errorf("expected failure, got %+v", res)
	}
	if r.State() != StateReady {
		t.Errorf("state: got %s, want ready", r.State())
	}
}

func TestRunner_DisposeIdle(t *testing.T) {
	engine := newFakeEngine()
	r := newTestRunner(t, engine)

	if err := r.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := r.Dispose(); !errors.Is(err, ErrEngineDisposed) {
		t.Errorf("second Dispose: got %v, want ErrEngineDisposed", err)
	}
	if engine.closes.Load() != 1 {
		t.Errorf("closes: got %d, want 1", engine.closes.Load())
	}
	if _, err := r.Submit(context.Background(), Request{Label: LabelTime}); !errors.Is(err, ErrEngineDisposed) {
		t.Errorf("Submit after Dispose: got %v, want ErrEngineDisposed", err)
	}
}

func TestRunner_DisposeWhileBusy(t *testing.T) {
	engine := newFakeEngine()
	engine.gate = make(chan struct{})
	engine.started = make(chan struct{}, 1)
	r := newTestRunner(t, engine)

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-engine.started

	if err := r.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := r.Dispose(); !errors.Is(err, ErrEngineDisposed) {
		t.Errorf("second Dispose while pending: got %v, want ErrEngineDisposed", err)
	}
	if !r.Status().DisposePending && r.State() != StateDisposed {
		t.Error("dispose was not recorded")
	}

	res := await(t, ch)
	wait(t, r)

	if res.Success {
		t.Error("task interrupted by Dispose reported success")
	}
	if engine.closes.Load() != 1 {
		t.Errorf("closes: got %d, want exactly 1", engine.closes.Load())
	}
	if rec, closed := engine.recognizedAt.Load(), engine.closedAt.Load(); rec == 0 || closed <= rec {
		t.Errorf("Close ran at step %d, Recognize returned at step %d; want close after", closed, rec)
	}
	if r.State() != StateDisposed {
		t.Errorf("state: got %s, want disposed", r.State())
	}
	if err := r.Dispose(); !errors.Is(err, ErrEngineDisposed) {
		t.Errorf("Dispose after completion: got %v, want ErrEngineDisposed", err)
	}
	if engine.closes.Load() != 1 {
		t.Errorf("closes after extra Dispose: got %d, want 1", engine.closes.Load())
	}
}

func TestRunner_Status(t *testing.T) {
	r := newTestRunner(t, newFakeEngine())

	ch, err := r.Submit(context.Background(), Request{Label: LabelTime, ImagePath: "a.jpg"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	await(t, ch)
	wait(t, r)

	s := r.Status()
	if s.State != "ready" || s.LastLabel != LabelTime {
		t.Errorf("status: %+v", s)
	}
	if s.Engine.Backend != "fake" {
		t.Errorf("engine info not included: %+v", s.Engine)
	}
}

// writeImage creates a non-empty file so imaging.CheckAccess accepts it.
func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("jpeg"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
