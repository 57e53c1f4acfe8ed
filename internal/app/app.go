// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/post-scheduler/internal/channels"
	"github.com/bissquit/post-scheduler/internal/channels/facebook"
	"github.com/bissquit/post-scheduler/internal/channels/graph"
	"github.com/bissquit/post-scheduler/internal/channels/instagram"
	"github.com/bissquit/post-scheduler/internal/config"
	"github.com/bissquit/post-scheduler/internal/delivery"
	"github.com/bissquit/post-scheduler/internal/pkg/auth"
	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
	"github.com/bissquit/post-scheduler/internal/pkg/httputil"
	"github.com/bissquit/post-scheduler/internal/pkg/i18n"
	"github.com/bissquit/post-scheduler/internal/pkg/metrics"
	"github.com/bissquit/post-scheduler/internal/pkg/postgres"
	"github.com/bissquit/post-scheduler/internal/posts"
	postspostgres "github.com/bissquit/post-scheduler/internal/posts/postgres"
	"github.com/bissquit/post-scheduler/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config           *config.Config
	logger           *slog.Logger
	db               *pgxpool.Pool
	server           *http.Server
	metricsServer    *http.Server
	backgroundCancel context.CancelFunc
	coordinator      *delivery.Coordinator
	scheduler        *delivery.Scheduler
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}

	policy, err := delivery.ParseRetryPolicy(cfg.Delivery.RetryPolicy)
	if err != nil {
		return nil, err
	}

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())

	app := &App{
		config:           cfg,
		logger:           logger,
		db:               db,
		backgroundCancel: backgroundCancel,
	}

	router, err := app.setupRouter(loc, policy)
	if err != nil {
		db.Close()
		backgroundCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	repo := postspostgres.NewRepository(db)
	go metrics.CollectDBPoolMetrics(backgroundCtx, db, metrics.DBPoolInterval)
	go delivery.CollectStats(backgroundCtx, repo, cfg.Delivery.StatsInterval)

	if cfg.Delivery.SchedulerEnabled {
		scheduler, err := delivery.NewScheduler(cfg.Delivery.Schedule, app.coordinator)
		if err != nil {
			db.Close()
			backgroundCancel()
			return nil, fmt.Errorf("create scheduler: %w", err)
		}
		app.scheduler = scheduler
		scheduler.Start(backgroundCtx)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
		"commit", version.GitCommit,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	// Let a running trigger check record its results before the pool closes.
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	a.backgroundCancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Coordinator returns the delivery coordinator.
// Used in tests to run a trigger check at a chosen instant.
func (a *App) Coordinator() *delivery.Coordinator {
	return a.coordinator
}

// DB returns the database pool.
func (a *App) DB() *pgxpool.Pool {
	return a.db
}

func (a *App) setupRouter(loc *time.Location, policy delivery.RetryPolicy) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Post Scheduler API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	translator, err := i18n.New()
	if err != nil {
		return nil, fmt.Errorf("create translator: %w", err)
	}

	publishers, err := buildPublishers(a.config.Channels)
	if err != nil {
		return nil, err
	}
	dispatcher := channels.NewDispatcher(publishers...)

	slog.Info("channels configured",
		"channels", dispatcher.Channels(),
		"retry_policy", policy,
	)
	if len(dispatcher.Channels()) == 0 {
		slog.Warn("no publishing channel is enabled: due posts will fail to deliver")
	}

	repo := postspostgres.NewRepository(a.db)
	postsService := posts.NewService(repo, loc)
	postsHandler := posts.NewHandler(postsService, translator)

	a.coordinator = delivery.NewCoordinator(delivery.NewMatcher(repo), repo, dispatcher, policy)
	triggerHandler := delivery.NewHandler(a.coordinator, translator)

	var authMiddleware func(http.Handler) http.Handler
	if a.config.Auth.Enabled {
		validator, err := auth.NewValidator(auth.Config{
			Secret: a.config.Auth.Secret,
			Issuer: a.config.Auth.Issuer,
			Leeway: a.config.Auth.Leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("create token validator: %w", err)
		}
		authMiddleware = httputil.AuthMiddleware(validator)
	} else {
		slog.Warn("authentication is disabled: api routes are public")
	}

	r.Route("/api/v1", func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		postsHandler.RegisterRoutes(r)
		triggerHandler.RegisterRoutes(r)
	})

	return r, nil
}

// buildPublishers creates a publisher for every enabled channel.
func buildPublishers(cfg config.ChannelsConfig) ([]channels.Publisher, error) {
	graphConfig := graph.Config{
		BaseURL:     cfg.Graph.BaseURL,
		AccessToken: cfg.Graph.AccessToken,
		Timeout:     cfg.Graph.Timeout,
		RateLimit:   cfg.Graph.RateLimit,
	}

	var publishers []channels.Publisher

	if cfg.Facebook.Enabled {
		p, err := facebook.NewPublisher(facebook.Config{
			PageID:   cfg.Graph.PageID,
			Endpoint: cfg.Facebook.Endpoint,
			Graph:    graphConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("create facebook publisher: %w", err)
		}
		publishers = append(publishers, p)
	}

	if cfg.Instagram.Enabled {
		p, err := instagram.NewPublisher(instagram.Config{
			PageID: cfg.Graph.PageID,
			Graph:  graphConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("create instagram publisher: %w", err)
		}
		publishers = append(publishers, p)
	}

	return publishers, nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
