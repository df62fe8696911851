package ocr

import (
	"context"
	"fmt"
)

// Whitelist is the character set Tesseract may emit for a timer display.
const Whitelist = "01:23456789"

// StoppedText is reported as the recognized text of a task stopped by the user.
const StoppedText = "OCR stopped by user."

// EngineMode selects the Tesseract recognizer.
type EngineMode int

// Tesseract OCR engine modes.
const (
	OEMTesseractOnly EngineMode = iota
	OEMLSTMOnly
	OEMTesseractLSTMCombined
	OEMDefault
)

// String returns the Tesseract name of the mode.
func (m EngineMode) String() string {
	switch m {
	case OEMTesseractOnly:
		return "TESSERACT_ONLY"
	case OEMLSTMOnly:
		return "LSTM_ONLY"
	case OEMTesseractLSTMCombined:
		return "TESSERACT_LSTM_COMBINED"
	case OEMDefault:
		return "DEFAULT"
	default:
		return fmt.Sprintf("EngineMode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m EngineMode) Valid() bool {
	return m >= OEMTesseractOnly && m <= OEMDefault
}

// Config holds the externally supplied engine parameters.
type Config struct {
	// TessdataDir is the directory holding <Language>.traineddata.
	TessdataDir string `json:"tessdata_dir" yaml:"tessdata_dir"`

	// Language is the model identifier, e.g. "7seg" or "eng".
	Language string `json:"language" yaml:"language"`

	// EngineMode selects the recognizer.
	EngineMode EngineMode `json:"engine_mode" yaml:"engine_mode"`
}

// Info describes the state of an engine for status reporting.
type Info struct {
	Available   bool   `json:"available"`
	Initialized bool   `json:"initialized"`
	Closed      bool   `json:"closed"`
	Version     string `json:"version,omitempty"`
	Backend     string `json:"backend"`
	TessdataDir string `json:"tessdata_dir,omitempty"`
	Language    string `json:"language,omitempty"`
	EngineMode  string `json:"engine_mode,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Engine is a single recognition engine instance.
type Engine interface {
	// Init loads the model. It may be called again to reconfigure an idle
	// engine.
	Init(cfg Config) error

	// Recognize reads the image at path and returns the raw text. It blocks
	// until the engine finishes or gives up after Interrupt or ctx
	// cancellation.
	Recognize(ctx context.Context, imagePath string) (string, error)

	// Interrupt asks a running Recognize to stop. It is safe to call from any
	// goroutine and is a no-op when idle.
	Interrupt()

	// Close releases native resources. The engine is unusable afterwards.
	Close() error

	// Info reports engine status.
	Info() Info
}
