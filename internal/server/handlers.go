package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/timer-ocr-mcp/internal/countdown"
	"github.com/ironsheep/timer-ocr-mcp/internal/duration"
	"github.com/ironsheep/timer-ocr-mcp/internal/imaging"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
	"github.com/ironsheep/timer-ocr-mcp/internal/runner"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "timer_crop", "timer_recognize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A recognition that ran but did not succeed is not an error; its result
// carries success=false.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Err(err).Str("tool", params.Name).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image intake
	case "timer_crop":
		return s.handleTimerCrop(args)

	// Recognition
	case "timer_recognize":
		return s.handleTimerRecognize(ctx, args)
	case "timer_recognize_batch":
		return s.handleTimerRecognizeBatch(ctx, args)
	case "timer_parse":
		return s.handleTimerParse(args)
	case "timer_scan":
		return s.handleTimerScan(ctx, args)
	case "ocr_stop":
		return s.handleOCRStop()
	case "ocr_info":
		return s.handleOCRInfo()

	// Countdown
	case "timer_start":
		return s.handleTimerStart(args)
	case "timer_stop":
		return s.handleTimerStop()
	case "timer_dismiss":
		return s.handleTimerDismiss()
	case "timer_status":
		return s.handleTimerStatus()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating absent arguments as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Image Intake Handlers ===

type timerCropArgs struct {
	Source     string `json:"source"`
	X1         int    `json:"x1"`
	Y1         int    `json:"y1"`
	X2         int    `json:"x2"`
	Y2         int    `json:"y2"`
	Label      string `json:"label"`
	Preprocess *bool  `json:"preprocess"`
	Snapshot   bool   `json:"snapshot"`
}

type timerCropResult struct {
	*imaging.CropResult
	Source      string             `json:"source"`
	SourceImage *imaging.ImageInfo `json:"source_image"`
}

func (s *Server) handleTimerCrop(args json.RawMessage) (interface{}, error) {
	var a timerCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.crop(a)
}

// crop resolves the source photo, optionally snapshots it into the cache,
// and saves the cropped region.
func (s *Server) crop(a timerCropArgs) (*timerCropResult, error) {
	if a.Label == "" {
		a.Label = runner.LabelTime
	}

	var (
		path string
		err  error
	)
	if a.Snapshot {
		path, err = imaging.CopyToCache(a.Source, s.cfg.CacheDir)
	} else {
		path, err = imaging.ResolveSource(a.Source)
	}
	if err != nil {
		return nil, err
	}

	info, err := imaging.LoadImageInfo(s.cache, path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	if a.Snapshot {
		s.cache.Evict(path)
	}

	pre := s.cfg.Preprocess
	if a.Preprocess != nil {
		pre.Enabled = *a.Preprocess
	}

	res, err := imaging.CropToCache(img, imaging.Rect{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, imaging.CropOptions{
		CacheDir:   s.cfg.CacheDir,
		Label:      a.Label,
		Preprocess: pre,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("label", a.Label).Str("path", res.Path).Msg("cropped display")
	return &timerCropResult{CropResult: res, Source: path, SourceImage: info}, nil
}

// === Recognition Handlers ===

type durationView struct {
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Formatted string `json:"formatted"`
	Millis    int64  `json:"millis"`
}

func newDurationView(d duration.Duration) *durationView {
	return &durationView{
		Hours:     d.Hours,
		Minutes:   d.Minutes,
		Formatted: d.String(),
		Millis:    d.Millis(),
	}
}

type recognizeResult struct {
	RequestID  string        `json:"request_id,omitempty"`
	Label      string        `json:"label"`
	Image      string        `json:"image"`
	Text       *string       `json:"text"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	ElapsedMS  int64         `json:"elapsed_ms"`
	Duration   *durationView `json:"duration,omitempty"`
	ParseError string        `json:"parse_error,omitempty"`
}

func newRecognizeResult(image string, res runner.Result) *recognizeResult {
	r := &recognizeResult{
		RequestID: res.RequestID,
		Label:     res.Label,
		Image:     image,
		Text:      res.Text,
		Success:   res.Success,
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

func (r *recognizeResult) parse() {
	if !r.Success || r.Label != runner.LabelTime || r.Text == nil {
		return
	}
	d, err := duration.Parse(*r.Text)
	if err != nil {
		r.ParseError = err.Error()
		return
	}
	r.Duration = newDurationView(d)
}

type timerRecognizeArgs struct {
	Image string `json:"image"`
	Label string `json:"label"`
}

func (s *Server) handleTimerRecognize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a timerRecognizeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return s.recognize(ctx, a.Image, a.Label)
}

// recognize submits one image and waits for its result. Rejections by the
// runner are returned as errors.
func (s *Server) recognize(ctx context.Context, image, label string) (*recognizeResult, error) {
	if label == "" {
		label = runner.LabelTime
	}
	path, err := imaging.ResolveSource(image)
	if err != nil {
		return nil, err
	}

	ch, err := s.runner.Submit(ctx, runner.Request{Label: label, ImagePath: path})
	if err != nil {
		return nil, err
	}

	var res runner.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		s.runner.Stop()
		res = <-ch
	}

	out := newRecognizeResult(path, res)
	out.parse()
	return out, nil
}

type timerRecognizeBatchArgs struct {
	Images []timerRecognizeArgs `json:"images"`
}

func (s *Server) handleTimerRecognizeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a timerRecognizeBatchArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Images) == 0 {
		return nil, errors.New("images is required")
	}

	reqs := make([]runner.Request, len(a.Images))
	for i, img := range a.Images {
		label := img.Label
		if label == "" {
			label = runner.LabelTime
		}
		path, err := imaging.SourcePath(img.Image)
		if err != nil {
			// The queue reports the access failure for this entry.
			path = img.Image
		}
		reqs[i] = runner.Request{Label: label, ImagePath: path}
	}

	outcomes := s.queue.Run(ctx, reqs)
	results := make([]*recognizeResult, len(outcomes))
	for i, o := range outcomes {
		r := newRecognizeResult(o.Request.ImagePath, o.Result)
		if o.Duration != nil {
			r.Duration = newDurationView(*o.Duration)
		}
		if o.ParseErr != nil {
			r.ParseError = o.ParseErr.Error()
		}
		results[i] = r
	}
	return map[string]interface{}{"results": results}, nil
}

type timerParseArgs struct {
	Text string `json:"text"`
}

func (s *Server) handleTimerParse(args json.RawMessage) (interface{}, error) {
	var a timerParseArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	d, err := duration.Parse(a.Text)
	if err != nil {
		return nil, err
	}
	return newDurationView(d), nil
}

type timerScanArgs struct {
	timerCropArgs
	Start bool `json:"start"`
}

type timerScanResult struct {
	Crop       *timerCropResult `json:"crop"`
	Recognized *recognizeResult `json:"recognized"`
	Started    bool             `json:"started"`
	StartError string           `json:"start_error,omitempty"`
}

func (s *Server) handleTimerScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a timerScanArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	crop, err := s.crop(a.timerCropArgs)
	if err != nil {
		return nil, err
	}
	rec, err := s.recognize(ctx, crop.Path, crop.Label)
	if err != nil {
		return nil, err
	}

	out := &timerScanResult{Crop: crop, Recognized: rec}
	if a.Start && rec.Duration != nil {
		if err := s.countdown.Start(rec.Duration.Millis); err != nil {
			out.StartError = err.Error()
		} else {
			out.Started = true
		}
	}
	return out, nil
}

func (s *Server) handleOCRStop() (interface{}, error) {
	before := s.runner.State()
	s.runner.Stop()
	return map[string]interface{}{
		"stopped": before == runner.StateBusy || before == runner.StateStoppingRequested,
		"state":   s.runner.State().String(),
	}, nil
}

func (s *Server) handleOCRInfo() (interface{}, error) {
	st := s.runner.Status()
	return map[string]interface{}{
		"state":           st.State,
		"last_label":      st.LastLabel,
		"dispose_pending": st.DisposePending,
		"engine":          st.Engine,
		"whitelist":       ocr.Whitelist,
		"cache_dir":       s.cfg.CacheDir,
	}, nil
}

// === Countdown Handlers ===

type timerStartArgs struct {
	Hours   *int   `json:"hours"`
	Minutes *int   `json:"minutes"`
	Millis  *int64 `json:"millis"`
}

func (s *Server) handleTimerStart(args json.RawMessage) (interface{}, error) {
	var a timerStartArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	var millis int64
	switch {
	case a.Millis != nil:
		millis = *a.Millis
		if _, err := duration.FromMillis(millis); err != nil {
			return nil, err
		}
	case a.Hours != nil || a.Minutes != nil:
		var d duration.Duration
		if a.Hours != nil {
			d.Hours = *a.Hours
		}
		if a.Minutes != nil {
			d.Minutes = *a.Minutes
		}
		if !d.Valid() {
			return nil, fmt.Errorf("invalid duration %d:%d: hours must be 0-%d and minutes 0-%d",
				d.Hours, d.Minutes, duration.MaxHours, duration.MaxMinutes)
		}
		millis = d.Millis()
	default:
		return nil, errors.New("hours/minutes or millis is required")
	}

	if err := s.countdown.Start(millis); err != nil {
		return nil, err
	}
	return s.timerStatus(), nil
}

func (s *Server) handleTimerStop() (interface{}, error) {
	s.countdown.Stop()
	return s.timerStatus(), nil
}

func (s *Server) handleTimerDismiss() (interface{}, error) {
	dismissed := s.countdown.Dismiss()
	return map[string]interface{}{"dismissed": dismissed}, nil
}

func (s *Server) handleTimerStatus() (interface{}, error) {
	return s.timerStatus(), nil
}

type timerStatusResult struct {
	Running     bool   `json:"running"`
	Ringing     bool   `json:"ringing"`
	RemainingMS int64  `json:"remaining_ms"`
	Text        string `json:"text"`
}

func (s *Server) timerStatus() *timerStatusResult {
	rem := s.countdown.Remaining()
	return &timerStatusResult{
		Running:     s.countdown.Running(),
		Ringing:     s.countdown.Ringing(),
		RemainingMS: rem.Milliseconds(),
		Text:        countdown.FormatRemaining(rem),
	}
}
