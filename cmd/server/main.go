package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/store-rating/internal/auth"
	"github.com/iliyamo/store-rating/internal/config"
	"github.com/iliyamo/store-rating/internal/database"
	"github.com/iliyamo/store-rating/internal/handler"
	"github.com/iliyamo/store-rating/internal/middleware"
	"github.com/iliyamo/store-rating/internal/queue"
	"github.com/iliyamo/store-rating/internal/rating"
	"github.com/iliyamo/store-rating/internal/repository"
	"github.com/iliyamo/store-rating/internal/router"
	"github.com/iliyamo/store-rating/internal/service"
	"github.com/iliyamo/store-rating/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Config) *zap.Logger {
	build := zap.NewProduction
	if cfg.Dev() {
		build = zap.NewDevelopment
	}
	log, err := build()
	if err != nil {
		return zap.NewExample()
	}
	return log
}

func main() {
	cfg := config.Load() // Load environment config
	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal("schema setup failed", zap.Error(err))
	}

	users := repository.NewUserRepo(db)
	stores := repository.NewStoreRepo(db)
	ratings := repository.NewRatingRepo(db)
	tokens := utils.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	if cfg.AdminSeedEnabled {
		seed := service.DefaultAdminSeed(cfg.AdminPassword)
		seed.Email = cfg.AdminEmail
		if _, err := service.EnsureAdmin(ctx, users, cfg.BcryptCost, seed, log); err != nil {
			log.Fatal("admin provisioning failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = queue.NewAMQPPublisher(cfg.RabbitURL, log)
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; domain events are not published")
	}

	aggregator := rating.NewAggregator(rating.NewSQLStore(db, stores, ratings), log)
	accounts := service.NewUserService(db, users, stores, ratings, tokens, cfg.BcryptCost, log)
	lifecycle := service.NewStoreService(db, users, stores, ratings, events, log)
	gate := auth.NewGate(tokens, users)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(middleware.RequestID(), middleware.RequestLogger(log), echomw.Recover())
	e.Use(echomw.CORS(), echomw.BodyLimit("1M"))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(accounts, users), gate, limit)
	router.RegisterUser(e, handler.NewBrowseHandler(stores, ratings, aggregator, events, cache, log), gate, cache.Middleware(), limit)
	router.RegisterOwner(e, handler.NewOwnerHandler(stores, ratings), gate)
	router.RegisterAdmin(e, handler.NewAdminHandler(accounts, users, stores, lifecycle, ratings, cache, log), gate)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
