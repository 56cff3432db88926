package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/novadent/clinic-core/internal/auth"
	"github.com/novadent/clinic-core/internal/config"
	"github.com/novadent/clinic-core/internal/database"
	"github.com/novadent/clinic-core/internal/handler"
	"github.com/novadent/clinic-core/internal/queue"
	"github.com/novadent/clinic-core/internal/repository"
	"github.com/novadent/clinic-core/internal/router"
	"github.com/novadent/clinic-core/internal/service"
	"github.com/novadent/clinic-core/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("opening database", zap.Error(err))
	}

	// May be nil: blacklist then reports unavailable (fail-open) and the
	// rate limiter disables itself.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable, token blacklist and rate limiting degraded")
	}

	accounts := repository.NewAccountRepo(db)
	tokens := repository.NewTokenRepo(db)
	blacklist := repository.NewBlacklistRepo(rdb)

	issuer := auth.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	lockout := auth.NewLockout(accounts)
	lockout.OnLock = func(acc *auth.Account, until time.Time) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = service.PublishSecurityEvent(ctx, queue.SecurityEvent{
				Type:       queue.EventAccountLocked,
				AccountID:  acc.ID,
				Username:   acc.Username,
				Count:      int64(acc.FailedLoginAttempts),
				Detail:     "locked until " + until.UTC().Format(time.RFC3339),
				OccurredAt: time.Now().UTC(),
			})
		}()
	}
	verifier := auth.NewCredentialVerifier(accounts, lockout, utils.VerifyPassword, logger)
	sessions := auth.NewSessionManager(accounts, verifier, issuer, tokens, blacklist, logger)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, logger), sessions, rdb, config.LoadRateLimitConfig(), logger)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, accounts, logger), sessions, logger)

	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			logger.Warn("security consumer stopped", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" || env == "test" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
