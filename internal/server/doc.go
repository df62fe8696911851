// Package server implements the MCP (Model Context Protocol) server for
// reading kitchen-timer displays and running the countdown they show.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// tools/call requests are handled on their own goroutines so that ocr_stop
// and the countdown tools stay responsive while a recognition runs. All
// output shares one encoder guarded by a mutex.
//
// # Available Tools
//
// Image intake:
//   - timer_crop: Crop the display region from a photo into the cache
//
// Recognition:
//   - timer_recognize: OCR one cropped image (one at a time)
//   - timer_recognize_batch: OCR several images in order
//   - timer_parse: Turn display text into hours and minutes
//   - timer_scan: Crop, recognize, parse and optionally start
//   - ocr_stop: Stop the running recognition
//   - ocr_info: Engine state and model
//
// Countdown:
//   - timer_start, timer_stop, timer_dismiss, timer_status
//
// # Notifications
//
// The countdown reports through notifications/timer/progress (about once a
// second, "Time remaining: MM:SS"), notifications/timer/cancelled,
// notifications/timer/finished and notifications/timer/alarm. Recognition
// progress is reported through notifications/ocr/progress and
// notifications/ocr/completed.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A second recognition submitted while one is running fails with
// "another OCR task is active"; requests are never queued behind it.
//
// # Usage
//
//	srv := server.New(cfg, ocr.NewTesseractEngine(), server.WithVersion(version))
//	srv.Start()
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
