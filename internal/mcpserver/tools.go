package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/domain"
)

type StartSessionParams struct {
	Owner string `json:"owner" description:"Caller-chosen user key"`
	URL   string `json:"url" description:"AllRecipes recipe URL"`
}

type SendMessageParams struct {
	SessionID string `json:"session_id" description:"Session returned by start_session"`
	Message   string `json:"message" description:"What the user said"`
}

type SessionParams struct {
	SessionID string `json:"session_id" description:"Session returned by start_session"`
}

// SessionView is the JSON shape returned for a session.
type SessionView struct {
	SessionID  string `json:"session_id"`
	Owner      string `json:"owner"`
	Title      string `json:"title"`
	Step       int    `json:"step"` // 1-based
	TotalSteps int    `json:"total_steps"`
	Status     string `json:"status"`
	Turns      int    `json:"turns"`
	Reply      string `json:"reply,omitempty"`
}

func viewOf(s *domain.Session) SessionView {
	return SessionView{
		SessionID:  s.ID,
		Owner:      s.Owner,
		Title:      s.Recipe.Title,
		Step:       s.CurrentStep + 1,
		TotalSteps: len(s.Recipe.Steps),
		Status:     s.Status.String(),
		Turns:      len(s.History),
	}
}

// extractParams converts the loosely typed arguments into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	b, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	if err := json.Unmarshal(b, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func (s *Server) handleStartSession(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params StartSessionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Owner == "" || params.URL == "" {
		return nil, fmt.Errorf("%w: owner and url are required", errInvalidParams)
	}

	session, err := s.router.Start(ctx, params.Owner, params.URL)
	if err != nil {
		return nil, err
	}
	view := viewOf(session)
	view.Reply = answer.LineGreeting(session.Recipe.Title)
	return jsonResult(view)
}

func (s *Server) handleSendMessage(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SendMessageParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.SessionID == "" || params.Message == "" {
		return nil, fmt.Errorf("%w: session_id and message are required", errInvalidParams)
	}

	reply, err := s.engine.HandleTurn(ctx, params.SessionID, params.Message)
	if err != nil {
		return nil, err
	}
	session, err := s.engine.Status(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	view := viewOf(session)
	view.Reply = reply
	return jsonResult(view)
}

func (s *Server) handleEndSession(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SessionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", errInvalidParams)
	}

	session, err := s.engine.Status(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.EndSession(ctx, params.SessionID); err != nil {
		return nil, err
	}
	s.router.Expired(session)

	view := viewOf(session)
	view.Status = domain.SessionEnded.String()
	view.Reply = answer.LineConversationEnded()
	return jsonResult(view)
}

func (s *Server) handleSessionStatus(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SessionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", errInvalidParams)
	}

	session, err := s.engine.Status(ctx, params.SessionID)
	if err != nil {
		return nil, err
	}
	view := viewOf(session)
	view.Reply = answer.LineStatus(view.Step, view.TotalSteps, view.Title)
	return jsonResult(view)
}
