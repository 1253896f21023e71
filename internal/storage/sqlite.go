package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeCache = (*SQLiteRecipeCache)(nil)

// CacheOption configures the recipe cache.
type CacheOption func(*SQLiteRecipeCache)

// WithMaxAge makes entries older than d count as misses. Zero keeps
// entries forever.
func WithMaxAge(d time.Duration) CacheOption {
	return func(c *SQLiteRecipeCache) {
		c.maxAge = d
	}
}

// SQLiteRecipeCache keeps parsed recipes on disk so a URL is scraped once.
// It stores recipe records only, never conversation state.
type SQLiteRecipeCache struct {
	db     *sql.DB
	log    *logger.Logger
	maxAge time.Duration
	now    func() time.Time
}

// NewSQLiteRecipeCache opens (or creates) the cache database at path.
func NewSQLiteRecipeCache(path string, log *logger.Logger, opts ...CacheOption) (*SQLiteRecipeCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening recipe cache: %w", err)
	}

	c := &SQLiteRecipeCache{db: db, log: log, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing recipe cache: %w", err)
	}
	return c, nil
}

// Close releases the database handle.
func (c *SQLiteRecipeCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteRecipeCache) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS recipes (
        url TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        body TEXT NOT NULL,
        fetched_at INTEGER NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_recipes_fetched_at ON recipes(fetched_at);
    `
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Get returns the cached recipe for url, or domain.ErrNotFound when it is
// absent or stale.
func (c *SQLiteRecipeCache) Get(ctx context.Context, url string) (*domain.Recipe, error) {
	var body string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM recipes WHERE url = ?`, url,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached recipe: %w", err)
	}

	if c.maxAge > 0 && c.now().Sub(time.Unix(fetchedAt, 0)) > c.maxAge {
		c.log.Debug("cached recipe for %s is stale", url)
		return nil, domain.ErrNotFound
	}

	var r domain.Recipe
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decoding cached recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("cached recipe for %s: %w", url, err)
	}
	return &r, nil
}

// Put stores recipe under url, replacing any previous entry.
func (c *SQLiteRecipeCache) Put(ctx context.Context, url string, recipe *domain.Recipe, fetchedAt time.Time) error {
	body, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("encoding recipe: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
    INSERT INTO recipes (url, title, body, fetched_at) VALUES (?, ?, ?, ?)
    ON CONFLICT(url) DO UPDATE SET title = excluded.title, body = excluded.body, fetched_at = excluded.fetched_at`,
		url, recipe.Title, string(body), fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cached recipe: %w", err)
	}
	c.log.Debug("cached %q for %s", recipe.Title, url)
	return nil
}

// Prune deletes entries fetched before cutoff and reports how many went.
func (c *SQLiteRecipeCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM recipes WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning recipe cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning recipe cache: %w", err)
	}
	return n, nil
}
