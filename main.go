package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/postly/internal/blog"
	"github.com/debemdeboas/postly/internal/cache"
	"github.com/debemdeboas/postly/internal/config"
	"github.com/debemdeboas/postly/internal/db"
	"github.com/debemdeboas/postly/internal/editor"
	"github.com/debemdeboas/postly/internal/editor/composer"
	"github.com/debemdeboas/postly/internal/editor/debounce"
	"github.com/debemdeboas/postly/internal/editor/draft"
	"github.com/debemdeboas/postly/internal/images"
	"github.com/debemdeboas/postly/internal/logger"
	"github.com/debemdeboas/postly/internal/middleware"
	"github.com/debemdeboas/postly/internal/model"
	"github.com/debemdeboas/postly/internal/render"
	"github.com/debemdeboas/postly/internal/repository"
	"github.com/debemdeboas/postly/internal/retry"
	"github.com/debemdeboas/postly/internal/routes"
	"github.com/debemdeboas/postly/internal/rpc"
	"github.com/debemdeboas/postly/internal/sse"
	"github.com/debemdeboas/postly/internal/theme"
	"github.com/debemdeboas/postly/internal/util/compression"
	"github.com/debemdeboas/postly/internal/web"
)

const defaultConfigPath = "config.yaml"

var mainLogger zerolog.Logger

// setLoggers hands every package its component logger.
func setLoggers(l zerolog.Logger) {
	mainLogger = logger.Component(l, "main")
	config.SetLogger(logger.Component(l, "config"))
	db.SetLogger(logger.Component(l, "db"))
	repository.SetLogger(logger.Component(l, "repository"))
	retry.SetLogger(logger.Component(l, "retry"))
	blog.SetLogger(logger.Component(l, "blog"))
	rpc.SetLogger(logger.Component(l, "rpc"))
	render.SetLogger(logger.Component(l, "render"))
	sse.SetLogger(logger.Component(l, "sse"))
	images.SetLogger(logger.Component(l, "images"))
	web.SetLogger(logger.Component(l, "web"))
	editor.SetLogger(logger.Component(l, "editor"))
	composer.SetLogger(logger.Component(l, "composer"))
	draft.SetLogger(logger.Component(l, "draft"))
	debounce.SetLogger(logger.Component(l, "debounce"))
}

func main() {
	setLoggers(logger.New("info"))

	if err := godotenv.Load(); err != nil {
		mainLogger.Debug().Err(err).Msg("No .env file loaded")
	}

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if err := config.LoadConfig(configPath); err != nil {
		mainLogger.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}
	cfg := config.AppConfig

	setLoggers(logger.New(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		mainLogger.Fatal().Err(err).Msg("Failed to start")
	}
	defer a.Close()

	a.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		mainLogger.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Error().Err(err).Msg("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	mainLogger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// app holds the wired server and what it must release on exit.
type app struct {
	cfg     *config.Config
	db      *db.SQLite
	posts   *repository.DBPostRepository
	svc     *blog.Service
	clients *sse.SSEClients
	limiter *middleware.RateLimiter
	handler http.Handler
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, clients: sse.NewSSEClients()}

	a.db = db.NewSQLite(cfg.Database.Path)
	if err := a.db.InitDB(); err != nil {
		mainLogger.Error().Msgf(config.ErrInitializeDatabaseFmt, err)
		return nil, err
	}
	a.closers = append(a.closers, a.db.Close)

	a.posts = repository.NewDBPostRepository(a.db,
		repository.WithPollInterval(time.Duration(cfg.Content.PollInterval)*time.Second))
	a.svc = blog.NewService(a.posts, repository.NewDBCategoryRepository(a.db))

	ttl := time.Duration(cfg.Content.RenderCacheMinutes) * time.Minute
	cache.ConfigureRendered(ttl, 2*ttl)

	drafts, err := a.draftStore(ctx)
	if err != nil {
		a.Close()
		mainLogger.Error().Msgf(config.ErrDraftStoreFmt, err)
		return nil, err
	}

	uploads, uploadsHandler, err := imageStore(ctx, cfg)
	if err != nil {
		a.Close()
		mainLogger.Error().Msgf(config.ErrImageStoreFmt, err)
		return nil, err
	}

	tmpl, err := web.ParseTemplates()
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := web.RecordStaticHashes(); err != nil {
		mainLogger.Warn().Err(err).Msg("Failed to hash static assets")
	}

	mux := http.NewServeMux()
	web.NewHandler(a.svc, a.clients, tmpl).Register(mux)
	editor.NewHandler(a.svc, drafts, uploads, tmpl, editor.OptionsFromConfig(cfg)).Register(mux)
	if uploadsHandler != nil {
		mux.Handle("GET "+images.UploadsURLPath, uploadsHandler)
	}

	rpcServer := rpc.NewServer(a.svc)
	mux.Handle(routes.RPCProcedure, middleware.Chain(rpcServer, middleware.CORS(cfg.CORS.AllowedOrigins)))

	mws := []middleware.Middleware{
		middleware.AccessLog(mainLogger),
		middleware.SecureHeaders,
		middleware.CacheHeaders,
	}
	gzip, err := middleware.Gzip()
	if err != nil {
		a.Close()
		return nil, err
	}
	mws = append(mws, gzip)

	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		mws = append(mws, middleware.RateLimit(a.limiter, func(r *http.Request) bool {
			return rpcServer.IsMutation(r) || r.URL.Path == routes.APIImages
		}))
	}

	a.handler = middleware.Chain(mux, mws...)
	return a, nil
}

func (a *app) draftStore(ctx context.Context) (draft.Store, error) {
	c := a.cfg.Drafts
	compressor, err := compression.New(c.Compression)
	if err != nil {
		return nil, err
	}

	switch c.Store {
	case "memory":
		return draft.NewMemoryStore(), nil
	case "file":
		return draft.NewFileStore(c.Dir)
	case "redis":
		client, err := draft.DialRedis(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return draft.NewRedisStore(client, "postly:drafts", c.Freshness(), compressor), nil
	case "sqlite", "":
		return draft.NewSQLStore(a.db, compressor), nil
	}
	return nil, errors.New("unknown draft store " + c.Store)
}

// imageStore builds the upload backend. The handler serves local uploads and
// is nil when objects are served from a bucket.
func imageStore(ctx context.Context, cfg *config.Config) (images.Store, http.Handler, error) {
	c := cfg.Images
	switch c.Backend {
	case "s3":
		s, err := images.NewS3Store(ctx, images.S3Options{
			AccessKeyID:     c.AccessKeyID,
			AccessKeySecret: c.AccessKeySecret,
			Endpoint:        c.Endpoint,
			Region:          c.Region,
			Bucket:          c.Bucket,
			PublicURL:       c.PublicURL,
			PathStyle:       c.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "fs", "":
		s, err := images.NewFSStore(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Handler(), nil
	}
	return nil, nil, errors.New("unknown image backend " + c.Backend)
}

// Start runs the background work: change polling that reloads open post
// pages, limiter cleanup and render cache warming.
func (a *app) Start(ctx context.Context) {
	go a.posts.Watch(ctx, func(slug string) {
		if n := a.clients.Broadcast(slug, sse.MsgReload); n > 0 {
			mainLogger.Debug().Str("slug", slug).Int("clients", n).Msg("Reload sent")
		}
	})

	if a.limiter != nil {
		go a.limiter.Run(time.Minute, ctx.Done())
	}

	go a.warm(ctx)
}

func (a *app) warm(ctx context.Context) {
	published := true
	posts, err := a.svc.ListPosts(ctx, model.PostFilter{Published: &published, Limit: blog.MaxLimit})
	if err != nil {
		mainLogger.Error().Msgf(config.ErrGetPostsFmt, err)
		return
	}
	render.WarmCache(posts, theme.GetDefaultSyntaxTheme(config.ThemeClass(a.cfg.Theme.Default)))
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			mainLogger.Warn().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
