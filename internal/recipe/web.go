package recipe

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// DefaultUserAgent identifies the fetcher to recipe sites.
const DefaultUserAgent = "StepChatBot/0.1"

// allRecipesPattern matches AllRecipes recipe page URLs.
var allRecipesPattern = regexp.MustCompile(`https?://(?:www\.)?allrecipes\.com/recipe/\d+/[^/\s]+/?`)

// ExtractURL returns the first AllRecipes recipe URL in message, or "".
func ExtractURL(message string) string {
	return allRecipesPattern.FindString(message)
}

// Compile-time interface check.
var _ domain.RecipeSource = (*WebSource)(nil)

// WebOption configures a WebSource.
type WebOption func(*WebSource)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) WebOption {
	return func(s *WebSource) {
		s.userAgent = ua
	}
}

// WithRequestTimeout bounds each page fetch.
func WithRequestTimeout(d time.Duration) WebOption {
	return func(s *WebSource) {
		s.timeout = d
	}
}

// WithURLPattern replaces the check a URL must pass before it is fetched.
func WithURLPattern(re *regexp.Regexp) WebOption {
	return func(s *WebSource) {
		s.allowed = re
	}
}

// WebSource scrapes recipe pages and parses their JSON-LD markup.
type WebSource struct {
	log       *logger.Logger
	userAgent string
	timeout   time.Duration
	allowed   *regexp.Regexp
}

// NewWebSource creates a scraper that accepts AllRecipes URLs.
func NewWebSource(log *logger.Logger, opts ...WebOption) *WebSource {
	s := &WebSource{
		log:       log,
		userAgent: DefaultUserAgent,
		timeout:   15 * time.Second,
		allowed:   allRecipesPattern,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads url and returns the recipe described by its JSON-LD.
func (s *WebSource) Fetch(ctx context.Context, url string) (*domain.Recipe, error) {
	if !s.allowed.MatchString(url) {
		return nil, fmt.Errorf("fetching %s: %w", url, domain.ErrUnsupportedURL)
	}

	// A fresh collector per fetch so no visited-URL state is shared.
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	var scripts []string
	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		scripts = append(scripts, e.Text)
	})

	s.log.Debug("fetching recipe page %s", url)
	start := time.Now()
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	node, err := ExtractJSONLD(scripts)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	r, err := Parse(node)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	s.log.Info("parsed %q from %s (%d ingredients, %d steps) in %s",
		r.Title, url, len(r.Ingredients), len(r.Steps), time.Since(start).Round(time.Millisecond))
	return r, nil
}
