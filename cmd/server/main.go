package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"residentportal/docs"
	"residentportal/internal/auth"
	"residentportal/internal/cache"
	"residentportal/internal/config"
	"residentportal/internal/db"
	"residentportal/internal/handler"
	"residentportal/internal/logging"
	"residentportal/internal/mailer"
	"residentportal/internal/model"
	"residentportal/internal/repository"
	"residentportal/internal/router"
	"residentportal/internal/service"
)

// @title Resident Portal Auth API
// @version 1.0
// @description Account registration, email verification, login, password reset and session refresh for the resident-services portal.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping all tables")
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, request throttling disabled", "addr", cfg.RedisAddr, "error", err)
	}

	// Initialize auth components
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		log.Fatalf("password hasher: %v", err)
	}
	jwtService, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("jwt service: %v", err)
	}
	issuer := auth.NewTokenIssuer(
		auth.WithTTL(model.TokenKindVerification, cfg.VerificationTTL),
		auth.WithTTL(model.TokenKindReset, cfg.ResetTTL),
	)
	throttle := auth.NewThrottle(cacheClient, cfg.ThrottleMax, cfg.ThrottleWindow)

	mail, err := mailer.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("mailer init: %v", err)
	}

	accountRepo := repository.NewAccountRepository(gormDB)

	// Initialize services
	authService := service.NewAuthService(
		accountRepo,
		hasher,
		issuer,
		jwtService,
		mail,
		throttle,
		logger,
		service.WithMinPasswordLength(cfg.MinPasswordLength),
	)
	accountService := service.NewAccountService(accountRepo, hasher, logger, cfg.MinPasswordLength)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		Verifier:       jwtService,
		AuthHandler:    handler.NewAuthHandler(authService),
		AccountHandler: handler.NewAccountHandler(accountService),
		Cache:          cacheClient,
	})

	logger.Info("swagger documentation available", "url", configureSwagger(cfg))

	go func() {
		addr := ":" + cfg.ServerPort
		logger.Info("server listening", "addr", addr, "db_driver", cfg.DBDriver, "mailer", cfg.MailerType)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// configureSwagger points the generated docs at SWAGGER_HOST, which may
// include a scheme, and returns the docs URL.
func configureSwagger(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	scheme := "http"
	if rest, ok := strings.CutPrefix(host, "https://"); ok {
		scheme, host = "https", rest
	} else {
		host = strings.TrimPrefix(host, "http://")
	}
	host = strings.TrimRight(host, "/")

	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = []string{scheme}
	return scheme + "://" + host + "/swagger/index.html"
}
