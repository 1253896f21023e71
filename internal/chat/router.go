// Package chat routes free-text messages from any transport to the
// conversation engine. It owns the owner -> session registry, so a user
// who has not picked a recipe yet is asked for one and everyone else is
// talking to their own session.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/engine"
	"github.com/hammamikhairi/stepchat/internal/logger"
	"github.com/hammamikhairi/stepchat/internal/recipe"
)

// Option configures the router.
type Option func(*Router)

// WithRefExtractor overrides how a recipe reference is pulled out of a
// message. The default finds an AllRecipes URL.
func WithRefExtractor(fn func(message string) string) Option {
	return func(r *Router) {
		r.extract = fn
	}
}

// Router maps transport users to sessions.
type Router struct {
	engine  *engine.Engine
	source  domain.RecipeSource
	log     *logger.Logger
	extract func(string) string

	mu       sync.Mutex
	sessions map[string]string // owner -> session ID
}

// NewRouter creates a router that starts sessions from source.
func NewRouter(eng *engine.Engine, source domain.RecipeSource, log *logger.Logger, opts ...Option) *Router {
	r := &Router{
		engine:   eng,
		source:   source,
		log:      log,
		extract:  recipe.ExtractURL,
		sessions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle answers one message from owner. Every outcome is a reply string.
func (r *Router) Handle(ctx context.Context, owner, text string) string {
	command := strings.ToLower(strings.TrimSpace(text))
	if command == "help" {
		return answer.LineHelp()
	}

	id, ok := r.SessionID(owner)
	if !ok {
		return r.start(ctx, owner, text, command)
	}

	if command == "stop" {
		r.Forget(owner)
		if err := r.engine.EndSession(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn("ending session %s: %v", id, err)
		}
		return answer.LineConversationEnded()
	}

	reply, err := r.engine.HandleTurn(ctx, id, text)
	switch {
	case err == nil:
		return reply
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionEnded):
		// Ended elsewhere (reaper, MCP). Treat the message as a fresh start.
		r.forgetID(owner, id)
		return r.start(ctx, owner, text, command)
	default:
		r.log.Error("turn for %s failed: %v", owner, err)
		return answer.LineSomethingWrong()
	}
}

func (r *Router) start(ctx context.Context, owner, text, command string) string {
	if command == "stop" {
		return answer.LineNoSession()
	}
	ref := r.extract(text)
	if ref == "" {
		return answer.LineAskForURL()
	}

	session, err := r.Start(ctx, owner, ref)
	switch {
	case err == nil:
		return answer.LineGreeting(session.Recipe.Title)
	case errors.Is(err, domain.ErrNoRecipe), errors.Is(err, domain.ErrEmptyRecipe), errors.Is(err, domain.ErrStepNumbering):
		return answer.LineNoRecipeFound()
	case errors.Is(err, domain.ErrUnsupportedURL), errors.Is(err, domain.ErrNotFound):
		return answer.LineAskForURL()
	default:
		r.log.Warn("fetching %s for %s: %v", ref, owner, err)
		return answer.LineFetchFailed()
	}
}

// Start fetches ref and opens a session for owner, replacing any session
// the owner already had.
func (r *Router) Start(ctx context.Context, owner, ref string) (*domain.Session, error) {
	rec, err := r.source.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching recipe: %w", err)
	}
	session, err := r.engine.CreateSession(ctx, owner, rec)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	previous, had := r.sessions[owner]
	r.sessions[owner] = session.ID
	r.mu.Unlock()

	if had {
		if err := r.engine.EndSession(ctx, previous); err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn("ending replaced session %s: %v", previous, err)
		}
	}
	return session, nil
}

// SessionID returns the session owner is talking to.
func (r *Router) SessionID(owner string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessions[owner]
	return id, ok
}

// Forget drops owner from the registry without touching the engine.
func (r *Router) Forget(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, owner)
}

// Expired removes an ended session from the registry. It is meant to be
// passed to the reaper so idle owners start over on their next message.
func (r *Router) Expired(s *domain.Session) {
	r.forgetID(s.Owner, s.ID)
}

// forgetID drops owner only while it still points at id.
func (r *Router) forgetID(owner, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[owner] == id {
		delete(r.sessions, owner)
	}
}
