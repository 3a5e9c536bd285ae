package main

import (
	"civicwatch/backend/internal/api/handler"
	"civicwatch/backend/internal/auth"
	"civicwatch/backend/internal/certify"
	"civicwatch/backend/internal/complaint"
	"civicwatch/backend/internal/config"
	"civicwatch/backend/internal/live"
	"civicwatch/backend/internal/localization"
	"civicwatch/backend/internal/notify"
	"civicwatch/backend/internal/offline"
	"civicwatch/backend/internal/social"
	"civicwatch/backend/internal/storage"
	"civicwatch/backend/internal/telegram"
	"civicwatch/backend/internal/users"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func setupDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client, error) {
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	logger.Info("database and redis connections established")
	return db, rdb, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, rdb, err := setupDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect dependencies", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	loc, err := localization.NewLocalizer(cfg.LocalizationDir)
	if err != nil {
		logger.Fatal("failed to load localizations", zap.Error(err))
	}

	var notifier notify.Notifier = notify.Nop{}
	var botAPI *tgbotapi.BotAPI
	if cfg.TelegramBotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			logger.Fatal("failed to start telegram bot", zap.Error(err))
		}
		tn := telegram.NewNotifier(botAPI, s, loc, cfg.TelegramOfficialChatID, logger)
		go tn.Run(ctx)
		notifier = tn
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	complaints := complaint.NewService(s, notifier, logger)
	liveSvc := live.NewService(s, cfg.ICEServers, logger)
	hub := live.NewHub(liveSvc, s, logger)
	replayer := offline.NewService(complaints, s, logger)

	go hub.Run(ctx)
	go hub.ListenRedis(ctx)
	go replayer.Run(ctx)
	if botAPI != nil {
		bot := telegram.NewBot(botAPI, s, complaints, loc, logger)
		go bot.Run(ctx)
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger.Named("http")))

	h := &handler.Handler{
		Tokens:     auth.NewTokens(cfg.JWTSecret, 0),
		Users:      users.NewService(s, logger),
		Complaints: complaints,
		Social:     social.NewService(s, logger),
		Live:       liveSvc,
		Hub:        hub,
		Offline:    replayer,
		Certify:    certify.NewService(s, logger),
		Logger:     logger.Named("http"),
	}
	h.Routes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.WithCORS(r, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
