package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/timer-ocr-mcp/internal/config"
	"github.com/ironsheep/timer-ocr-mcp/internal/countdown"
	"github.com/ironsheep/timer-ocr-mcp/internal/imaging"
	"github.com/ironsheep/timer-ocr-mcp/internal/logger"
	"github.com/ironsheep/timer-ocr-mcp/internal/ocr"
	"github.com/ironsheep/timer-ocr-mcp/internal/runner"
)

// Server handles MCP protocol communication
type Server struct {
	cfg       *config.Config
	version   string
	log       zerolog.Logger
	base      *zerolog.Logger
	cache     *imaging.ImageCache
	runner    *runner.Runner
	queue     *runner.Queue
	countdown *countdown.Service

	outMu sync.Mutex
	out   *json.Encoder

	calls sync.WaitGroup
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported in the initialize handshake.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the base logger. The server, runner and countdown each
// add their own component field to it.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.base = &l
	}
}

// New creates a server around engine. The engine is initialized by Start.
func New(cfg *config.Config, engine ocr.Engine, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		version: "dev",
		cache:   imaging.NewImageCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.componentLogger("server")

	s.runner = runner.New(engine,
		runner.WithLogger(s.componentLogger("runner")),
		runner.WithObserver(s.onRunnerEvent),
	)
	s.queue = runner.NewQueue(s.runner)

	notifier := countdown.Multi{
		countdown.NewLogNotifier(s.componentLogger("countdown")),
		&mcpNotifier{s: s},
	}
	s.countdown = countdown.New(notifier,
		countdown.WithInterval(cfg.TickInterval),
		countdown.WithLogger(s.componentLogger("countdown")),
	)
	return s
}

func (s *Server) componentLogger(name string) zerolog.Logger {
	if s.base == nil {
		return logger.WithComponent(name)
	}
	return logger.Component(*s.base, name)
}

// Start prunes the crop cache and initializes the OCR engine. An engine
// failure is logged and reported by ocr_info; the server still runs.
func (s *Server) Start() {
	if n, err := imaging.CleanCache(s.cfg.CacheDir, s.cfg.CacheMaxAge, time.Now()); err != nil {
		s.log.Warn().Err(err).Msg("cache cleanup incomplete")
	} else if n > 0 {
		s.log.Info().Int("removed", n).Msg("cleaned crop cache")
	}

	if err := s.runner.Init(s.cfg.OCR); err != nil {
		s.log.Error().Err(err).Msg("OCR disabled until the engine can be initialized")
	}
}

// Run serves MCP on stdin/stdout until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads requests from r and writes responses and notifications to w.
// tools/call requests run concurrently so ocr_stop can reach a running
// recognition; everything else is answered in order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	s.outMu.Lock()
	s.out = json.NewEncoder(w)
	s.outMu.Unlock()

	defer s.calls.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warn().Err(err).Msg("failed to parse request")
			s.write(s.errorResponse(nil, -32700, "Parse error", err.Error()))
			continue
		}

		if req.Method == "tools/call" {
			s.calls.Add(1)
			go func(req MCPRequest) {
				defer s.calls.Done()
				s.write(s.handleRequest(ctx, &req))
			}(req)
			continue
		}

		if resp := s.handleRequest(ctx, &req); resp != nil {
			s.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return ctx.Err()
}

// Close stops the countdown and releases the OCR engine.
func (s *Server) Close() error {
	s.countdown.Stop()
	s.runner.Stop()
	s.cache.Clear()
	if err := s.runner.Dispose(); err != nil && !errors.Is(err, runner.ErrEngineDisposed) {
		return err
	}
	return nil
}

// write encodes v under the output lock. Before Serve it is a no-op.
func (s *Server) write(v interface{}) {
	if v == nil {
		return
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.out == nil {
		return
	}
	if err := s.out.Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode message")
	}
}

// notify pushes a notification to the client.
func (s *Server) notify(method string, params interface{}) {
	s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "timer-ocr-mcp",
				"version": s.version,
			},
		},
	}
}
