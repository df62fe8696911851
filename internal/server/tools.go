package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// cropProperties are the source and rectangle arguments shared by the
// crop-based tools.
func cropProperties() map[string]interface{} {
	return map[string]interface{}{
		"source": map[string]interface{}{
			"type":        "string",
			"description": "Path or file:// URI of the photo showing the timer display",
		},
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge X coordinate (0-based)",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge Y coordinate (0-based)",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "Right edge X coordinate (exclusive)",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Bottom edge Y coordinate (exclusive)",
		},
		"label": map[string]interface{}{
			"type":        "string",
			"description": "What the region holds. Default \"time\"",
			"default":     "time",
		},
		"preprocess": map[string]interface{}{
			"type":        "boolean",
			"description": "Normalize the crop for OCR (grayscale, contrast, polarity). Defaults to the server configuration",
		},
	}
}

func withProps(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

var emptySchema = map[string]interface{}{
	"type":       "object",
	"properties": map[string]interface{}{},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image intake
		{
			Name:        "timer_crop",
			Description: "Crop the timer display out of a photo and save it as a JPEG in the cache. Returns the crop path and file:// URI for timer_recognize.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": cropProperties(),
				"required":   []string{"source", "x1", "y1", "x2", "y2"},
			},
		},

		// Recognition
		{
			Name:        "timer_recognize",
			Description: "Run OCR on a cropped display image. Only one recognition runs at a time; a second call while one is active fails with a busy error. Labels \"time\" are parsed into hours and minutes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Path or file:// URI of the cropped image",
					},
					"label": map[string]interface{}{
						"type":        "string",
						"description": "What the image holds. Default \"time\"",
						"default":     "time",
					},
				},
				"required": []string{"image"},
			},
		},
		{
			Name:        "timer_recognize_batch",
			Description: "Recognize several cropped images one after another. One failing image does not stop the rest; results are returned in order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"images": map[string]interface{}{
						"type":        "array",
						"description": "Images to recognize, in order",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"image": map[string]interface{}{"type": "string"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"image"},
						},
					},
				},
				"required": []string{"images"},
			},
		},
		{
			Name:        "timer_parse",
			Description: "Parse recognized display text such as \"12:34\", \"1234\" or \"5\" into hours and minutes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text read from the display",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "timer_scan",
			Description: "Crop, recognize and parse a timer display in one step. With start=true the countdown is armed with the parsed duration.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProps(cropProperties(), map[string]interface{}{
					"start": map[string]interface{}{
						"type":        "boolean",
						"description": "Start the countdown when a duration was read. Default false",
						"default":     false,
					},
				}),
				"required": []string{"source", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "ocr_stop",
			Description: "Stop the running recognition. Its result reports \"OCR stopped by user.\". No effect when idle.",
			InputSchema: emptySchema,
		},
		{
			Name:        "ocr_info",
			Description: "Report the OCR engine state, model and Tesseract version.",
			InputSchema: emptySchema,
		},

		// Countdown
		{
			Name:        "timer_start",
			Description: "Start the countdown. Give hours and minutes, or millis. Replaces a running countdown. Progress is pushed as notifications/timer/progress.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"hours": map[string]interface{}{
						"type":        "integer",
						"description": "Hours, 0-99",
					},
					"minutes": map[string]interface{}{
						"type":        "integer",
						"description": "Minutes, 0-59",
					},
					"millis": map[string]interface{}{
						"type":        "integer",
						"description": "Total duration in milliseconds; overrides hours and minutes",
					},
				},
			},
		},
		{
			Name:        "timer_stop",
			Description: "Cancel the countdown and silence a ringing alarm.",
			InputSchema: emptySchema,
		},
		{
			Name:        "timer_dismiss",
			Description: "Silence the alarm of a finished countdown and clear its notification.",
			InputSchema: emptySchema,
		},
		{
			Name:        "timer_status",
			Description: "Report whether a countdown is running or ringing and the time remaining.",
			InputSchema: emptySchema,
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
