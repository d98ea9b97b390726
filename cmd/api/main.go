// @title        KodeCamp LMS API
// @version      1.0
// @description  Credential lifecycle and learning content API.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
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

	"github.com/kodecamp/lms/internal/api"
	"github.com/kodecamp/lms/internal/core/ports"
	"github.com/kodecamp/lms/internal/core/security"
	"github.com/kodecamp/lms/internal/core/service"
	"github.com/kodecamp/lms/internal/infrastructure/db/memory"
	mongostore "github.com/kodecamp/lms/internal/infrastructure/db/mongo"
	redisstore "github.com/kodecamp/lms/internal/infrastructure/db/redis"
	"github.com/kodecamp/lms/internal/infrastructure/http/handlers"
	"github.com/kodecamp/lms/internal/infrastructure/notify"
	"github.com/kodecamp/lms/internal/pkg/config"
	"github.com/kodecamp/lms/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "lms-api",
		Env:     cfg.Env,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "lms-api",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	users := mongostore.NewUserRepository(db)
	contents := mongostore.NewContentRepository(db)
	if err := mongostore.EnsureIndexes(ctx, users, contents); err != nil {
		return err
	}

	checks := []handlers.Check{handlers.MongoCheck(db)}

	var otpStore ports.OTPStore
	switch cfg.Auth.OTPStore {
	case "memory":
		mem := memory.NewOTPStore()
		go mem.RunJanitor(ctx, time.Minute)
		otpStore = mem
		log.Warn().Msg("using in-memory OTP store; codes do not survive restarts or span replicas")
	default:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		otpStore = redisstore.NewOTPStore(rdb)
		checks = append(checks, handlers.RedisCheck(rdb))
	}

	// --- Notifications ---
	var sender notify.Sender = notify.NewLogSender(logger.Component("notify"))
	if cfg.Notify.SMTPEnabled() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.SMTPUser,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.SMTPFrom,
		})
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, sender, logger.Component("notify"))
	dispatcher.Start(ctx)

	// --- Core ---
	tokens, err := security.NewTokenIssuer(cfg.JWTSecret)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(
		users,
		security.NewHasher(cfg.Auth.BcryptCost),
		tokens,
		security.NewOTPManager(otpStore, cfg.Auth.OTPTTL),
		dispatcher,
		service.AuthConfig{
			SessionTTL:         cfg.Auth.SessionTTL,
			ResetTokenTTL:      cfg.Auth.ResetTokenTTL,
			RevealUnknownEmail: cfg.Auth.ForgotPasswordRevealUnknown,
			VerifyEmailURL:     cfg.Auth.VerifyEmailURL,
			PasswordResetURL:   cfg.Auth.PasswordResetURL,
		},
		logger.Component("auth"),
	)
	contentService := service.NewContentService(contents, logger.Component("content"))

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:    authService,
		Content: contentService,
		Checks:  checks,
		Log:     logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server started")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	dispatcher.Wait()
	log.Info().Msg("server stopped")
	return nil
}
