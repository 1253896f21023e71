// Package mcpserver exposes conversation sessions as MCP tools over HTTP so
// agent hosts can drive a recipe walkthrough with tool calls.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/hammamikhairi/stepchat/internal/chat"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/engine"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Tool names.
const (
	ToolStartSession  = "start_session"
	ToolSendMessage   = "send_message"
	ToolEndSession    = "end_session"
	ToolSessionStatus = "session_status"
)

var errInvalidParams = errors.New("invalid parameters")

// Server answers POSTed protocol.CallToolRequest bodies.
type Server struct {
	info       protocol.Implementation
	engine     *engine.Engine
	router     *chat.Router
	log        *logger.Logger
	httpServer *http.Server
	tools      map[string]func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error)
}

// New creates a tool server listening on addr. Sessions started here are
// registered with router under the caller-supplied owner.
func New(addr, version string, eng *engine.Engine, router *chat.Router, log *logger.Logger) *Server {
	s := &Server{
		info:   protocol.Implementation{Name: "stepchat", Version: version},
		engine: eng,
		router: router,
		log:    log,
	}
	s.tools = map[string]func(context.Context, *protocol.CallToolRequest) (*protocol.CallToolResult, error){
		ToolStartSession:  s.handleStartSession,
		ToolSendMessage:   s.handleSendMessage,
		ToolEndSession:    s.handleEndSession,
		ToolSessionStatus: s.handleSessionStatus,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHTTP)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mcp server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("mcp server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("mcp server shutdown: %w", err)
	}
	s.log.Info("mcp server stopped")
	return nil
}

func (s *Server) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		// Server info doubles as a health check.
		json.NewEncoder(w).Encode(s.info)
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		s.log.Debug("tool %s failed: %v", request.Name, err)
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.Error("encoding %s response: %v", request.Name, err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionEnded):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoRecipe), errors.Is(err, domain.ErrUnsupportedURL),
		errors.Is(err, domain.ErrEmptyRecipe), errors.Is(err, domain.ErrStepNumbering):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func jsonResult(data any) (*protocol.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(b),
			},
		},
	}, nil
}
