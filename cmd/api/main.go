package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"prepwise/internal/config"
	"prepwise/internal/db"
	"prepwise/internal/email"
	apihttp "prepwise/internal/http"
	"prepwise/internal/llm"
	"prepwise/internal/ratelimit"
	"prepwise/internal/repository"
	"prepwise/internal/service"
	"prepwise/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	jwtSvc, err := service.NewJWTService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		logger.Fatal("jwt init", zap.Error(err))
	}

	emailSender, closeEmail := newEmailSender(cfg, logger)
	defer closeEmail()

	userRepo := repository.NewPgUserRepository(pool)
	interviewRepo := repository.NewPgInterviewRepository(pool)

	userSvc := service.NewUserService(logger, userRepo, jwtSvc, emailSender, newUploader(ctx, cfg, logger), cfg.FrontendURL)
	interviewSvc := service.NewInterviewService(logger, newLLMClient(cfg, logger), interviewRepo)

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	router := apihttp.NewRouter(
		logger,
		apihttp.RouterConfig{
			CORSOrigins: cfg.CORSOrigins,
			Limiter:     limiter,
			HealthCheck: func(ctx context.Context) error { return db.Ping(ctx, pool) },
		},
		apihttp.NewUserHandler(logger, userSvc, cfg.IsProduction()),
		apihttp.NewInterviewHandler(logger, interviewSvc),
		apihttp.JWTAuthMiddleware(userSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func newEmailSender(cfg *config.Config, logger *zap.Logger) (email.Sender, func()) {
	noop := func() {}
	switch cfg.EmailDriver {
	case "smtp":
		if cfg.SMTPHost == "" {
			break
		}
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
			break
		}
		return sender, noop
	case "amqp":
		sender, err := email.NewQueueSender(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("amqp sender init failed", zap.Error(err))
			break
		}
		return sender, func() { _ = sender.Close() }
	}
	logger.Warn("email sender not configured", zap.String("driver", cfg.EmailDriver))
	return email.NewDisabledSender("email sender not configured"), noop
}

func newUploader(ctx context.Context, cfg *config.Config, logger *zap.Logger) storage.Uploader {
	if cfg.S3Bucket == "" {
		logger.Warn("file storage not configured")
		return storage.NewDisabledUploader("file storage not configured")
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		logger.Warn("s3 store init failed", zap.Error(err))
		return storage.NewDisabledUploader("file storage unavailable")
	}
	return store
}

func newLLMClient(cfg *config.Config, logger *zap.Logger) llm.LLMClient {
	if cfg.LLMAPIKey == "" {
		logger.Warn("llm api key not configured")
		return llm.NewDisabledClient("llm api key not configured")
	}
	client := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	return llm.NewBreakerClient(client, cfg.LLMBreakerMaxFailures, cfg.LLMBreakerTimeout, logger)
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ratelimit.Limiter, func()) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
			_ = client.Close()
		} else {
			return ratelimit.NewRedisLimiter(client, time.Minute, cfg.RateLimitPerMinute, logger), func() { _ = client.Close() }
		}
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute), func() {}
}
