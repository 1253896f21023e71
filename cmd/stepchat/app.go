package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hammamikhairi/stepchat/internal/chat"
	"github.com/hammamikhairi/stepchat/internal/config"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/engine"
	"github.com/hammamikhairi/stepchat/internal/logger"
	"github.com/hammamikhairi/stepchat/internal/reaper"
	"github.com/hammamikhairi/stepchat/internal/recipe"
	"github.com/hammamikhairi/stepchat/internal/storage"
)

// app holds the dependencies every transport shares.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	store  domain.SessionStore
	engine *engine.Engine
	source domain.RecipeSource
	cached *recipe.CachedSource // nil when the cache is disabled or --sample
	router *chat.Router

	closers []io.Closer
}

type appOptions struct {
	sample         bool   // serve built-in recipes instead of scraping
	defaultLogFile string // used when neither flag nor config names one
}

func newApp(flags *rootFlags, opts appOptions) (*app, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg}

	logOut, err := a.openLog(flags, opts.defaultLogFile)
	if err != nil {
		return nil, err
	}
	level := logger.ParseLevel(cfg.Log.Level)
	if flags.verbose {
		level = logger.LevelVerbose
	}
	if flags.quiet {
		level = logger.LevelOff
	}
	a.log = logger.New(level, logOut)

	if opts.sample {
		mem := recipe.NewMemorySource(a.log.Named("recipes"))
		a.source = mem
	} else {
		web := recipe.NewWebSource(a.log.Named("recipes"),
			recipe.WithUserAgent(cfg.Recipes.UserAgent),
			recipe.WithRequestTimeout(cfg.FetchTimeout()),
		)
		a.source = web
		if cfg.Recipes.CachePath != "" {
			if err := a.openCache(web); err != nil {
				a.log.Warn("recipe cache disabled: %v", err)
			}
		}
	}

	a.store = storage.NewMemoryStore(a.log.Named("store"))
	a.engine = engine.New(a.store, a.log.Named("engine"))

	var routerOpts []chat.Option
	if mem, ok := a.source.(*recipe.MemorySource); ok {
		routerOpts = append(routerOpts, chat.WithRefExtractor(sampleExtractor(mem.Keys())))
	}
	a.router = chat.NewRouter(a.engine, a.source, a.log.Named("router"), routerOpts...)
	return a, nil
}

func (a *app) openLog(flags *rootFlags, fallback string) (io.Writer, error) {
	path := flags.logFile
	if path == "" {
		path = a.cfg.Log.File
	}
	if path == "" {
		path = fallback
	}
	if path == "" || path == "stderr" {
		return os.Stderr, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	a.closers = append(a.closers, f)
	return f, nil
}

func (a *app) openCache(next domain.RecipeSource) error {
	path := a.cfg.Recipes.CachePath
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	cache, err := storage.NewSQLiteRecipeCache(path, a.log.Named("cache"),
		storage.WithMaxAge(a.cfg.CacheMaxAge()),
	)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, cache)

	if maxAge := a.cfg.CacheMaxAge(); maxAge > 0 {
		n, err := cache.Prune(context.Background(), time.Now().Add(-maxAge))
		if err != nil {
			a.log.Warn("pruning recipe cache: %v", err)
		} else if n > 0 {
			a.log.Info("pruned %d stale recipes from the cache", n)
		}
	}
	a.cached = recipe.NewCachedSource(next, cache, a.log.Named("cache"))
	a.source = a.cached
	return nil
}

// newReaper builds the idle-session reaper. Expired owners are always
// dropped from the router; extra callbacks can notify them.
func (a *app) newReaper(onExpire ...func(context.Context, *domain.Session)) *reaper.Reaper {
	opts := []reaper.Option{
		reaper.WithTickInterval(a.cfg.ReapInterval()),
		reaper.WithIdleTTL(a.cfg.IdleTTL()),
		reaper.WithOnExpire(func(_ context.Context, s *domain.Session) { a.router.Expired(s) }),
	}
	for _, fn := range onExpire {
		opts = append(opts, reaper.WithOnExpire(fn))
	}
	return reaper.New(a.engine, a.log.Named("reaper"), opts...)
}

func (a *app) Close() {
	a.log.Sync()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// sampleExtractor finds a built-in recipe key in a message.
func sampleExtractor(keys []string) func(string) string {
	return func(msg string) string {
		for _, f := range strings.Fields(strings.ToLower(msg)) {
			if slices.Contains(keys, f) {
				return f
			}
		}
		return ""
	}
}
