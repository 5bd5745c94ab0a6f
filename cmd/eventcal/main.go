package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/eventcal/internal/application"
	"github.com/example/eventcal/internal/config"
	httptransport "github.com/example/eventcal/internal/http"
	"github.com/example/eventcal/internal/mail"
	"github.com/example/eventcal/internal/persistence/sqlite"
	"github.com/example/eventcal/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine; the environment may be set directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	personRepo := sqlite.NewPersonRepository(storage)
	eventRepo := sqlite.NewEventRepository(storage)
	sessionRepo := sqlite.NewSessionRepository(storage)

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	eventService := application.NewEventService(eventRepo, personRepo, idGenerator, now, logger)
	accountService := application.NewAccountService(personRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthService(personRepo, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	inviteGenerator := application.NewInviteGenerator("-//eventcal//EN", idGenerator, now)
	dispatchService := application.NewDispatchService(eventRepo, inviteGenerator, mailer, logger)
	reminderService := application.NewReminderService(eventRepo, mailer, cfg.ReminderWindow, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Accounts:    httptransport.NewAccountHandler(accountService, logger),
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Events:      httptransport.NewEventHandler(eventService, dispatchService, logger),
		RequireAuth: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	reminderLoop := scheduler.NewLoop(reminderService, cfg.ReminderPollInterval, logger)
	go func() {
		if err := reminderLoop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reminder loop exited", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("eventcal API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
