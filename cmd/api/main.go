package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"ctv-portal/internal/config"
	"ctv-portal/internal/db"
	"ctv-portal/internal/email"
	apihttp "ctv-portal/internal/http"
	"ctv-portal/internal/repository"
	"ctv-portal/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	ctxDB, cancelDB := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(ctxDB, pool); err != nil {
		cancelDB()
		logger.Fatal("db ping", zap.Error(err))
	}
	cancelDB()

	userRepo := repository.NewPgUserRepository(pool)
	tokenRepo := repository.NewPgTokenRepository(pool)
	configRepo := repository.NewPgConfigRepository(pool)
	loginLogRepo := repository.NewPgLoginLogRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS, cfg.AppURL)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		resetLimiter service.RequestRateLimiter
		sessionStore service.SessionStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			resetLimiter = service.NewRedisRequestRateLimiter(redisClient, time.Hour, 3)
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}

	settingsCache := service.NewSettingsCache(logger, configRepo, 0)
	tokenSvc := service.NewTokenService(logger, tokenRepo, userRepo)
	authSvc := service.NewAuthService(logger, userRepo, loginLogRepo, tokenSvc, settingsCache, emailSender, resetLimiter)
	sessionSvc := service.NewSessionServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.SessionTTLDays)*24*time.Hour,
		userRepo,
		sessionStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	authHandler := apihttp.NewAuthHandler(logger, authSvc, sessionSvc)
	profileHandler := apihttp.NewProfileHandler(logger, authSvc)
	settingsHandler := apihttp.NewSettingsHandler(logger, configRepo, settingsCache)
	router := apihttp.NewRouter(logger, sessionSvc, authHandler, profileHandler, settingsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
