package domain

import (
	"context"
	"time"
)

// RecipeSource resolves a reference (a URL, or a key for built-in recipes)
// to a parsed recipe. Implementations can scrape the web, read a cache, or
// serve seeded data.
type RecipeSource interface {
	Fetch(ctx context.Context, ref string) (*Recipe, error)
}

// RecipeCache stores parsed recipes keyed by their source reference.
type RecipeCache interface {
	Get(ctx context.Context, ref string) (*Recipe, error)
	Put(ctx context.Context, ref string, recipe *Recipe, fetchedAt time.Time) error
}

// SessionStore holds conversation sessions in process memory.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]*Session, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout, speak through text-to-speech, or post to a chat platform.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
