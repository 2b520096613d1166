// @title                       Shoe Inventory API
// @version                     1.0
// @description                 Shoe inventory records with HTML pages and a JSON/XML API.
// @BasePath                    /
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        x-access-token
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	_ "github.com/shoehub/inventory-system/docs"
	"github.com/shoehub/inventory-system/internal/api"
	"github.com/shoehub/inventory-system/internal/api/handler"
	"github.com/shoehub/inventory-system/internal/core/service"
	"github.com/shoehub/inventory-system/internal/infrastructure/config"
	"github.com/shoehub/inventory-system/internal/infrastructure/db/mongo"
	"github.com/shoehub/inventory-system/internal/infrastructure/db/postgres"
	"github.com/shoehub/inventory-system/internal/infrastructure/db/redis"
	"github.com/shoehub/inventory-system/internal/infrastructure/queue"
	"github.com/shoehub/inventory-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log := logger.Init(logger.Options{Service: "inventory"})
		log.Error().Err(err).Msg("load config")
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "inventory",
	})

	// --- Postgres: users and shoes ---
	db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
	if err != nil {
		log.Error().Err(err).Msg("connect postgres")
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error().Err(err).Msg("migrate postgres")
		return err
	}

	// --- Mongo: audit trail ---
	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Error().Err(err).Msg("connect mongo")
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	auditRepo := mongo.NewAuditRepository(mongoDB)
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("audit index not created")
	}

	// --- Redis: idempotency keys and rate limits ---
	rdb, closeRedis, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB, Embedded: cfg.Redis.Embedded})
	if err != nil {
		log.Error().Err(err).Msg("connect redis")
		return err
	}
	defer closeRedis()

	// --- Services ---
	auditService := service.NewAuditService(auditRepo, log)
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, log)
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	dispatcher.Start(dispatcherCtx)

	authService := service.NewAuthService(postgres.NewUserRepository(db), cfg.JWTSecret, cfg.TokenTTL, log)
	shoeService := service.NewShoeService(
		postgres.NewShoeRepository(db),
		redis.NewIdempotencyStore(rdb),
		dispatcher,
		log,
	)

	e, err := api.NewRouter(api.Deps{
		Auth:    authService,
		Shoes:   shoeService,
		Audit:   auditService,
		Limiter: redis.NewRateLimiter(rdb),
		Health: map[string]handler.Pinger{
			"postgres": handler.PingerFunc(db.PingContext),
			"mongodb": handler.PingerFunc(func(ctx context.Context) error {
				return mongoClient.Ping(ctx, readpref.Primary())
			}),
			"redis": handler.PingerFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		},
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		CookieSecure:       cfg.CookieSecure,
		TrustedProxies:     cfg.TrustedProxies,
		Log:                log,
	})
	if err != nil {
		log.Error().Err(err).Msg("build router")
		return err
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
			return err
		}
	case <-ctx.Done():
	}

	return shutdown(e, dispatcher, log)
}

type server interface {
	Shutdown(ctx context.Context) error
}

func shutdown(srv server, dispatcher *queue.Dispatcher, log zerolog.Logger) error {
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Requests are finished, so no more audit events can arrive.
	dispatcher.Shutdown()
	log.Info().Msg("audit queue drained")
	return err
}
