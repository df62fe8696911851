// Package ocr wraps the Tesseract engine (via gosseract/v2) for reading the
// digits of a timer display.
//
// # Prerequisites
//
// Tesseract and its development headers must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// A trained model is also required. Seven-segment displays read best with a
// dedicated model such as "7seg.traineddata"; the stock "eng" model works
// for sharp, high-contrast crops.
//
// # Engine lifecycle
//
// An Engine holds a single native client for its whole life. Init loads the
// configuration, Recognize runs one synchronous recognition, Interrupt asks a
// running recognition to give up, and Close releases the client. Engines are
// not safe for concurrent Recognize calls; the runner package serializes
// access.
//
// # Fixed recognition settings
//
// Every call uses the Whitelist character set (digits and colon) and
// PSM_RAW_LINE page segmentation, which treats the crop as a single line of
// raw text.
//
// # Error Handling
//
// Init failures wrap ErrEngineInit. Recognize on an engine that was never
// initialized returns ErrNotInitialized, and on a closed engine
// ErrEngineClosed. An interrupted recognition returns ErrInterrupted.
package ocr
