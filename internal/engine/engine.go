// Package engine implements the conversation session state machine: one
// turn in, one reply out, with the step pointer kept in bounds.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/conversation"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides how session IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// Engine runs conversation sessions. It depends only on a session store
// and is fully testable with the in-memory one.
//
// Turns for one session are serialized by a per-session mutex, so
// transports may call HandleTurn from any goroutine.
type Engine struct {
	store      domain.SessionStore
	log        *logger.Logger
	classifier *conversation.Classifier
	navigator  *conversation.Navigator
	resolver   *conversation.Resolver
	now        func() time.Time
	newID      func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a conversation engine with the given dependencies and options.
func New(store domain.SessionStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		log:        log,
		classifier: conversation.NewClassifier(log),
		navigator:  conversation.NewNavigator(log),
		resolver:   conversation.NewResolver(log),
		now:        time.Now,
		newID:      uuid.NewString,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateSession starts a conversation over recipe for owner. Malformed
// recipes are rejected.
func (e *Engine) CreateSession(ctx context.Context, owner string, recipe *domain.Recipe) (*domain.Session, error) {
	if err := recipe.Validate(); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	now := e.now()
	session := &domain.Session{
		ID:        e.newID(),
		Owner:     owner,
		Recipe:    recipe,
		Status:    domain.SessionActive,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	e.log.Info("started session %s for %q (%d steps, owner=%s)", session.ID, recipe.Title, len(recipe.Steps), owner)
	return snapshot(session), nil
}

// HandleTurn processes one utterance and returns the reply. Every
// conversational outcome, including navigation and reference errors, is a
// reply; the error is reserved for unknown or ended sessions.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, utterance string) (string, error) {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		e.dropLock(sessionID)
		return "", fmt.Errorf("loading session: %w", err)
	}
	if session.Status != domain.SessionActive {
		return "", domain.ErrSessionEnded
	}

	session.History = append(session.History, utterance)
	reply := e.turn(session, utterance)
	session.UpdatedAt = e.now()

	if err := e.store.Save(ctx, session); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return reply, nil
}

// EndSession ends the conversation and drops it from the store.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.end(ctx, sessionID); err != nil {
		return err
	}
	e.log.Info("session %s ended", sessionID)
	return nil
}

// Status returns a point-in-time copy of the session.
func (e *Engine) Status(ctx context.Context, sessionID string) (*domain.Session, error) {
	lock := e.lockFor(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		e.dropLock(sessionID)
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return snapshot(session), nil
}

// ExpireIdle ends every active session whose last turn happened before
// cutoff and returns copies of the sessions it ended.
func (e *Engine) ExpireIdle(ctx context.Context, cutoff time.Time) ([]*domain.Session, error) {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var expired []*domain.Session
	for _, s := range active {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if ended := e.expireOne(ctx, s.ID, cutoff); ended != nil {
			expired = append(expired, ended)
		}
	}
	return expired, nil
}

func (e *Engine) expireOne(ctx context.Context, id string, cutoff time.Time) *domain.Session {
	lock := e.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock; a turn may have landed since ListActive.
	s, err := e.store.Load(ctx, id)
	if err != nil || s.Status != domain.SessionActive || !s.UpdatedAt.Before(cutoff) {
		return nil
	}
	ended, err := e.end(ctx, id)
	if err != nil {
		e.log.Warn("expiring session %s: %v", id, err)
		return nil
	}
	e.log.Info("session %s expired after going idle since %s", id, s.UpdatedAt.Format(time.Kitchen))
	return ended
}

// end marks the session ended, removes it and returns the ended copy.
// Caller holds the session lock.
func (e *Engine) end(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	session.Status = domain.SessionEnded
	session.UpdatedAt = e.now()
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("deleting session: %w", err)
	}

	e.dropLock(sessionID)
	return session, nil
}

func (e *Engine) dropLock(id string) {
	e.mu.Lock()
	delete(e.locks, id)
	e.mu.Unlock()
}

func (e *Engine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// ── Turn handling ────────────────────────────────────────────────

var (
	howMuchPattern = regexp.MustCompile(`(?i)\bhow\s+(?:much|many)\b`)
	howLongPattern = regexp.MustCompile(`(?i)\bhow\s+long\b`)
)

// answerRule maps a keyword pattern to a composer call. Rules are checked
// in order; the first match answers.
type answerRule struct {
	name    string
	pattern *regexp.Regexp
	reply   func(c *answer.Composer, step int) string
}

// stepRules answer questions scoped to the active step.
var stepRules = []answerRule{
	{"methods", regexp.MustCompile(`(?i)\bmethods?\b`), (*answer.Composer).StepMethods},
	{"ingredients", regexp.MustCompile(`(?i)\bingredients?\b`), (*answer.Composer).StepIngredients},
	{"time", regexp.MustCompile(`(?i)\b(?:time|long|duration)\b`), (*answer.Composer).Time},
	{"tools", regexp.MustCompile(`(?i)\b(?:tools?|equipment)\b`), (*answer.Composer).StepTools},
}

// recipeRules answer questions about the whole recipe.
var recipeRules = []answerRule{
	{"ingredients", regexp.MustCompile(`(?i)\bingredients\b`), func(c *answer.Composer, _ int) string { return c.Ingredients() }},
	{"steps", regexp.MustCompile(`(?i)\b(?:steps|instructions)\b`), func(c *answer.Composer, _ int) string { return c.Steps() }},
	{"tools", regexp.MustCompile(`(?i)\b(?:tools|equipment)\b`), func(c *answer.Composer, _ int) string { return c.Tools() }},
	{"methods", regexp.MustCompile(`(?i)\bmethods\b`), func(c *answer.Composer, _ int) string { return c.Methods() }},
}

func (e *Engine) turn(s *domain.Session, utterance string) string {
	category, rule := e.classifier.Match(utterance)
	e.log.Debug("session %s turn %d: %q -> %s (%s)", s.ID, len(s.History), utterance, category, rule)

	switch category {
	case domain.IntentNavigation:
		return e.navigate(s, utterance)
	case domain.IntentStep:
		return e.stepQuestion(s, utterance)
	default:
		return e.generalQuestion(s, utterance)
	}
}

// navigate applies a navigation request. The pointer only moves on success,
// and the reply always ends with the step the user is on.
func (e *Engine) navigate(s *domain.Session, utterance string) string {
	total := len(s.Recipe.Steps)
	var msg string

	switch e.navigator.Detect(utterance) {
	case domain.NavCurrent:
	case domain.NavPrevious:
		if s.CurrentStep > 0 {
			s.CurrentStep--
			msg = answer.LineNavigated(s.CurrentStep + 1)
		} else {
			msg = answer.LineAtFirstStep()
		}
	case domain.NavNext:
		if s.CurrentStep < total-1 {
			s.CurrentStep++
			msg = answer.LineNavigated(s.CurrentStep + 1)
		} else {
			msg = answer.LineAtLastStep()
		}
	case domain.NavNth:
		n, ok := conversation.StepNumber(utterance, total)
		switch {
		case !ok:
			msg = answer.LineNoStepNumber(total)
		case n < 1 || n > total:
			msg = answer.LineStepOutOfRange(conversation.StepLabel(utterance, n), total)
		default:
			s.CurrentStep = n - 1
			msg = answer.LineNavigated(n)
		}
	default:
		msg = answer.LineUnknownNavigation()
	}

	active := answer.LineActiveStep(s.CurrentStep+1, s.ActiveStep().Text)
	if msg == "" {
		return active
	}
	return msg + "\n" + active
}

func (e *Engine) stepQuestion(s *domain.Session, utterance string) string {
	c := answer.NewComposer(s.Recipe)
	for _, r := range stepRules {
		if r.pattern.MatchString(utterance) {
			e.log.Debug("step question answered by %s rule", r.name)
			return r.reply(c, s.CurrentStep)
		}
	}
	return c.Directions(s.CurrentStep)
}

func (e *Engine) generalQuestion(s *domain.Session, utterance string) string {
	c := answer.NewComposer(s.Recipe)
	for _, r := range recipeRules {
		if r.pattern.MatchString(utterance) {
			e.log.Debug("general question answered by %s rule", r.name)
			return r.reply(c, s.CurrentStep)
		}
	}

	res := e.resolver.Resolve(utterance, s.Recipe, s.CurrentStep)
	e.log.Debug("reference resolution: %s %q", res.Outcome, res.Text)
	switch res.Outcome {
	case conversation.DirectAnswer:
		return res.Text
	case conversation.Ambiguous:
		return answer.LineWhichOne(res.Candidates)
	case conversation.Unresolved:
		return answer.LineUnresolvedReference()
	}

	// NoReference, Substituted and NotSubstituted carry on with res.Text.
	text := res.Text
	switch {
	case howMuchPattern.MatchString(text):
		return c.Quantity(text)
	// The classifier sends whole-word "long" to the step path first, so
	// this only fires if that rule is ever narrowed.
	case howLongPattern.MatchString(text):
		return c.Duration(s.CurrentStep)
	default:
		return answer.SearchQuery(text)
	}
}

// snapshot copies a session so callers can read it without holding the
// session lock. The recipe is shared; it is never mutated.
func snapshot(s *domain.Session) *domain.Session {
	return s.Clone()
}
