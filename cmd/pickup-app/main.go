package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-pickup/api/swagger"
	"github.com/noah-isme/sma-pickup/internal/handler"
	"github.com/noah-isme/sma-pickup/internal/models"
	"github.com/noah-isme/sma-pickup/internal/repository"
	"github.com/noah-isme/sma-pickup/internal/service"
	"github.com/noah-isme/sma-pickup/pkg/cache"
	"github.com/noah-isme/sma-pickup/pkg/config"
	"github.com/noah-isme/sma-pickup/pkg/database"
	"github.com/noah-isme/sma-pickup/pkg/logger"
	"github.com/noah-isme/sma-pickup/pkg/supabase"
)

// @title SMA Pickup App
// @version 0.1.0
// @description Local app shell for the school pickup client
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, session storage is in-memory", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	authClient := supabase.NewAuthClient(supabase.Config{
		URL:       cfg.Supabase.URL,
		AnonKey:   cfg.Supabase.AnonKey,
		JWTSecret: cfg.Supabase.JWTSecret,
		Timeout:   cfg.Supabase.HTTPTimeout,
	})

	storage := repository.NewStorageRepository(redisClient, logr)
	defer storage.Close() //nolint:errcheck
	profiles := repository.NewProfileRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	auth := service.NewAuthStateService(authClient, storage, metrics, service.AuthStateConfig{
		RedirectURL:   cfg.Auth.RedirectURL,
		RefreshMargin: cfg.Auth.RefreshMargin,
	}, logr)
	sessions := service.NewSessionStore(auth, profiles, cfg.Auth.LinkCooldown, logr)
	defer sessions.Close()

	onboarding := service.NewOnboardingService(models.DefaultSlides(), storage, cfg.Onboarding.Persist, metrics, logr)
	authFlow := service.NewAuthFlowService(sessions, validate, logr)
	navigator := service.NewNavigator()
	students := service.NewStudentService(studentRepo, cfg.Students.Statuses, validate, metrics, logr)
	notifications := service.NewNotificationService(service.NewLogNotifier(logr, 0), service.NotificationConfig{
		Enabled: cfg.Notifications.Enabled,
		Workers: cfg.Notifications.Workers,
	}, metrics, logr)
	pickup := service.NewPickupService(students, notifications)
	chat := service.NewChatService(cfg.Chat.Contacts)
	roster := service.NewRosterExportService(students, logr)

	app := service.NewAppService(service.AppDeps{
		Auth:          auth,
		Sessions:      sessions,
		Onboarding:    onboarding,
		AuthFlow:      authFlow,
		Navigator:     navigator,
		Students:      students,
		Pickup:        pickup,
		Chat:          chat,
		Notifications: notifications,
	}, logr)

	notifications.Start(ctx)
	defer notifications.Stop()

	app.Boot(ctx)
	auth.StartAutoRefresh(ctx, cfg.Auth.RefreshInterval)

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
		"auth":     authClient.Health,
	}
	if redisClient != nil {
		checks["storage"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := newRouter(cfg, logr, metrics, routeHandlers{
		app:           handler.NewAppHandler(app, onboarding),
		auth:          handler.NewAuthHandler(authFlow, sessions, auth),
		navigation:    handler.NewNavigationHandler(navigator),
		students:      handler.NewStudentHandler(students, roster),
		pickup:        handler.NewPickupHandler(pickup),
		chat:          handler.NewChatHandler(chat),
		notifications: handler.NewNotificationHandler(notifications),
		metrics:       handler.NewMetricsHandler(metrics, checks, storage),
	}, sessions)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}
