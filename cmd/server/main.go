package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/juhojo/blabbermouth/internal/config"
	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/internal/handlers"
	"github.com/juhojo/blabbermouth/internal/logging"
	"github.com/juhojo/blabbermouth/internal/metrics"
	"github.com/juhojo/blabbermouth/internal/middleware"
	"github.com/juhojo/blabbermouth/internal/routes"
	"github.com/juhojo/blabbermouth/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg := config.Load()
	log := logging.New(cfg.IsProduction())
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("API_JWT_SECRET not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("connecting to PostgreSQL")
	db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		log.Info("connecting to Redis")
		rdb, err = database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	rec := metrics.Init(cfg.MetricsEnabled)

	users := services.NewUserService(db)
	passcodes := services.NewPasscodeService(db)
	configs := services.NewConfigService(db)
	fields := services.NewFieldService(db)
	keys := services.NewKeyService(db)
	tokens := services.NewTokenService(cfg.JWTSecret)
	auth := services.NewAuthService(db, users, passcodes, passcodeSender(cfg, log))

	hub := services.NewHub(log, rec)
	var publisher services.Publisher = hub
	if rdb != nil {
		publisher = services.NewRedisPublisher(rdb)
	}
	notifier := services.NewNotifier(configs, publisher, log)

	apiServer := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           apiRouter(cfg, log, rec, rdb, users, passcodes, configs, fields, tokens, auth, notifier),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ws := chi.NewRouter()
	ws.Use(chimw.RequestID)
	ws.Use(chimw.Recoverer)
	routes.SetupSubscribeRoutes(ws, handlers.NewSubscribeHandler(keys, hub, log))
	// No read/write timeouts: subscriber connections stay open indefinitely.
	wsServer := &http.Server{
		Addr:              ":" + cfg.WSPort,
		Handler:           ws,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return serve(log, "api", apiServer) })
	g.Go(func() error { return serve(log, "websocket", wsServer) })
	if rdb != nil {
		g.Go(func() error {
			services.NewRedisSubscriber(rdb, hub, log).Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.Close()
		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			wsServer.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func serve(log *slog.Logger, name string, srv *http.Server) error {
	log.Info("server listening", "server", name, "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func apiRouter(
	cfg *config.Config,
	log *slog.Logger,
	rec metrics.Recorder,
	rdb *redis.Client,
	users *services.UserService,
	passcodes *services.PasscodeService,
	configs *services.ConfigService,
	fields *services.FieldService,
	tokens *services.TokenService,
	auth *services.AuthService,
	notifier *services.Notifier,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(rec.HTTPMiddleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit.
	// With Redis the per-IP window is shared across instances.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, routes.AuthPaths(cfg.APIVersion)...) {
			r.Use(mw)
		}
	}
	if rdb != nil {
		r.Use(middleware.NewRedisRateLimiter(rdb, middleware.RateLimitMaxRequests, middleware.RateLimitWindow, log).Middleware)
	}

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	guard := middleware.NewGuard(tokens, users, log, rec)
	routes.SetupRoutes(r, cfg.APIVersion, routes.Handlers{
		Auth:      handlers.NewAuthHandler(auth, tokens, log, rec),
		Users:     handlers.NewUserHandler(users, log),
		Passcodes: handlers.NewPasscodeHandler(passcodes, log),
		Configs:   handlers.NewConfigHandler(configs, log),
		Fields:    handlers.NewFieldHandler(configs, fields, notifier, log),
	}, guard.RequireOwner)

	return r
}

// passcodeSender logs passcodes outside production. Production has no
// delivery channel yet, so passcodes are not written to the log there.
func passcodeSender(cfg *config.Config, log *slog.Logger) services.PasscodeSender {
	if cfg.IsProduction() {
		return nil
	}
	return services.LogPasscodeSender{Log: log}
}
