package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/otiai10/gosseract/v2"
)

const backendName = "gosseract"

// TesseractEngine implements Engine with a single gosseract client.
//
// gosseract initializes the native API lazily on the first Text call and
// offers no way to abort a call already inside Tesseract. Interrupt is
// therefore honored at the checkpoints between the configuration steps and
// after Text returns; a call that is already running finishes and its text
// is discarded.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client

	mu          sync.Mutex
	client      *gosseract.Client
	cfg         Config
	version     string
	initialized bool
	closed      bool

	interrupted atomic.Bool
}

// NewTesseractEngine constructs an engine. Call Init before Recognize.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

// Init validates cfg and prepares the client.
func (e *TesseractEngine) Init(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return newInitError("", ErrEngineClosed)
	}
	e.initialized = false

	if cfg.Language == "" {
		return newInitError("language is required", nil)
	}
	if !cfg.EngineMode.Valid() {
		return newInitError(fmt.Sprintf("unknown engine mode %d", int(cfg.EngineMode)), nil)
	}

	dir, err := ResolveTessdataDir(cfg.TessdataDir, cfg.Language)
	if err != nil {
		return newInitError("", err)
	}
	cfg.TessdataDir = dir

	if e.client != nil {
		e.client.Close()
	}
	client := e.clientFactory()

	if err := client.SetTessdataPrefix(dir); err != nil {
		client.Close()
		return newInitError("failed to set tessdata path", err)
	}
	if err := client.SetLanguage(cfg.Language); err != nil {
		client.Close()
		return newInitError("failed to set language", err)
	}

	e.client = client
	e.cfg = cfg
	e.version = client.Version()
	e.initialized = true
	return nil
}

// Recognize runs one recognition against the image at imagePath.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	e.interrupted.Store(false)

	e.mu.Lock()
	client, err := e.readyClient()
	e.mu.Unlock()
	if err != nil {
		return "", err
	}

	if err := e.checkpoint(ctx); err != nil {
		return "", err
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", &EngineError{Op: "SetImage", Err: err, Details: imagePath}
	}
	if err := client.SetPageSegMode(gosseract.PSM_RAW_LINE); err != nil {
		return "", &EngineError{Op: "SetPageSegMode", Err: err}
	}
	if err := client.SetWhitelist(Whitelist); err != nil {
		return "", &EngineError{Op: "SetWhitelist", Err: err}
	}

	if err := e.checkpoint(ctx); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		if strings.Contains(err.Error(), "initialize") {
			return "", &EngineError{Op: "Text", Err: fmt.Errorf("%w: %w", ErrEngineInit, err)}
		}
		return "", &EngineError{Op: "Text", Err: err}
	}

	if err := e.checkpoint(ctx); err != nil {
		return "", err
	}
	return text, nil
}

func (e *TesseractEngine) readyClient() (*gosseract.Client, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if !e.initialized || e.client == nil {
		return nil, ErrNotInitialized
	}
	return e.client, nil
}

func (e *TesseractEngine) checkpoint(ctx context.Context) error {
	if e.interrupted.Load() {
		return ErrInterrupted
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrInterrupted, err)
	}
	return nil
}

// Interrupt marks the current recognition as stopped.
func (e *TesseractEngine) Interrupt() {
	e.interrupted.Store(true)
}

// Close releases the client. Closing twice returns ErrEngineClosed.
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	e.closed = true
	e.initialized = false
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// Info reports the engine configuration and availability.
func (e *TesseractEngine) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := Info{
		Available:   e.initialized,
		Initialized: e.initialized,
		Closed:      e.closed,
		Version:     e.version,
		Backend:     backendName,
		TessdataDir: e.cfg.TessdataDir,
		Language:    e.cfg.Language,
	}
	if e.cfg.Language != "" {
		info.EngineMode = e.cfg.EngineMode.String()
	}
	return info
}
