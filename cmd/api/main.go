// Package main is the entry point for the trip planner daemon.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"

	"github.com/pkordes/globaltrip/backend/internal/config"
	"github.com/pkordes/globaltrip/backend/internal/controller"
	"github.com/pkordes/globaltrip/backend/internal/gateway"
	"github.com/pkordes/globaltrip/backend/internal/handler"
	"github.com/pkordes/globaltrip/backend/internal/metrics"
	"github.com/pkordes/globaltrip/backend/internal/middleware"
	"github.com/pkordes/globaltrip/backend/internal/repo"
	"github.com/pkordes/globaltrip/backend/internal/service"
	"github.com/pkordes/globaltrip/backend/internal/supabase"
	"github.com/pkordes/globaltrip/backend/internal/tokenstore"
	"github.com/pkordes/globaltrip/backend/migrations"
)

const (
	authBurst          = 10
	realtimeRetryDelay = 5 * time.Second
	refreshTimeout     = 30 * time.Second
)

func main() {
	envFile := pflag.String("env-file", "", "load environment variables from this file first")
	pflag.Parse()

	if err := loadEnv(*envFile); err != nil {
		slog.Error("env file error", "error", err)
		os.Exit(1)
	}

	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// loadEnv reads path into the environment. Without a path, a .env in the
// working directory is used when present. Variables already set win.
func loadEnv(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New()

	// --- Secure token store ----------------------------------------------
	tokens, closeTokens, err := openTokenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTokens()

	// --- Identity provider -----------------------------------------------
	client, err := supabase.New(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.HTTPTimeout,
	})
	if err != nil {
		return err
	}
	gw := gateway.New(client, tokens, gateway.Options{
		AllowProvisional: cfg.AllowUnverified,
		JWTSecret:        cfg.SupabaseJWTSecret,
		Logger:           logger.With("component", "gateway"),
	})

	// --- Trip store -------------------------------------------------------
	trips, closeTrips, err := openTripStore(ctx, cfg, client, tokens, logger)
	if err != nil {
		return err
	}
	defer closeTrips()
	logger.Info("trip store ready", "store", cfg.TripStore)

	// --- Controllers ------------------------------------------------------
	svc := service.NewTripService(trips)
	auth := controller.NewAuthController(gw, controller.AuthOptions{
		Logger:  logger.With("component", "auth"),
		Metrics: m,
	})
	auth.Start(ctx)
	list := controller.NewTripListController(svc, controller.ListOptions{
		Logger:  logger.With("component", "trip_list"),
		Metrics: m,
	})
	list.Start(ctx)

	// --- Background session refresh --------------------------------------
	if cfg.SessionRefreshSchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.SessionRefreshSchedule, func() { refreshSession(ctx, auth, logger) }); err != nil {
			return fmt.Errorf("SESSION_REFRESH_SCHEDULE: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	// --- Router -----------------------------------------------------------
	srv := handler.NewServer(handler.Deps{
		Trips:   svc,
		List:    list,
		Auth:    auth,
		Export:  service.NewExportService(trips, nil),
		Metrics: m,
		Logger:  logger,
	})
	router := handler.NewRouter(srv, handler.RouterConfig{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		AuthLimiter:  middleware.NewRateLimiter(cfg.AuthRateLimit, authBurst, nil),
	})

	// --- HTTP Server ------------------------------------------------------
	// Event streams lift their own write deadline.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func openTokenStore(ctx context.Context, cfg config.Config) (tokenstore.Store, func(), error) {
	switch cfg.TokenStore {
	case config.TokensMemory:
		return tokenstore.NewMemory(), func() {}, nil
	case config.TokensRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return tokenstore.NewRedis(rdb, ""), func() { rdb.Close() }, nil
	default:
		id, err := tokenstore.LoadOrCreateIdentity(cfg.TokenStoreKeyPath)
		if err != nil {
			return nil, nil, err
		}
		f, err := tokenstore.OpenFile(cfg.TokenStorePath, id)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	}
}

func openTripStore(ctx context.Context, cfg config.Config, client *supabase.Client, tokens tokenstore.Store, logger *slog.Logger) (repo.TripRepo, func(), error) {
	storeLogger := logger.With("component", "trip_store")

	switch cfg.TripStore {
	case config.StorePostgres:
		// New() does not open connections immediately; the ping does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		db := stdlib.OpenDBFromPool(pool)
		if err := migrations.Up(ctx, db, storeLogger); err != nil {
			db.Close()
			pool.Close()
			return nil, nil, err
		}
		return repo.NewPostgresTripRepo(pool, storeLogger), func() {
			db.Close()
			pool.Close()
		}, nil

	case config.StoreRemote:
		remote := repo.NewRemoteTripRepo(repo.RemoteConfig{
			Table:  client,
			Tokens: accessToken(tokens),
			Logger: storeLogger,
		})
		if cfg.TripRealtime {
			go listenForChanges(ctx, remote, client.Realtime(storeLogger), storeLogger)
		}
		return remote, func() {}, nil

	default:
		local, err := repo.OpenSQLite(repo.SQLiteConfig{Path: cfg.SQLitePath, Logger: storeLogger})
		if err != nil {
			return nil, nil, err
		}
		return local, func() {
			if err := local.Close(); err != nil {
				storeLogger.Warn("close sqlite", "error", err)
			}
		}, nil
	}
}

// accessToken reads the signed-in user's token for remote requests. No
// token means the anonymous key is used.
func accessToken(tokens tokenstore.Store) repo.TokenSource {
	return func(ctx context.Context) (string, error) {
		v, ok, err := tokens.Get(ctx, tokenstore.KeyAccessToken)
		if err != nil || !ok {
			return "", err
		}
		return v, nil
	}
}

// listenForChanges keeps the realtime feed connected until ctx ends.
func listenForChanges(ctx context.Context, remote *repo.RemoteTripRepo, feed repo.ChangeFeed, logger *slog.Logger) {
	for {
		err := remote.Listen(ctx, feed)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("realtime disconnected", "error", err, "retry_in", realtimeRetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(realtimeRetryDelay):
		}
	}
}

// refreshSession renews a signed-in, verified session. Provisional users
// have no provider session to renew.
func refreshSession(ctx context.Context, auth *controller.AuthController, logger *slog.Logger) {
	st := auth.State()
	if !st.IsAuthenticated() || strings.HasPrefix(st.User.ID, gateway.ProvisionalIDPrefix) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	if err := auth.RefreshSession(ctx); err != nil {
		logger.Warn("scheduled session refresh failed", "error", err)
		return
	}
	logger.Debug("session refreshed")
}
