package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymclub/internal/config"
	"gymclub/internal/database"
	"gymclub/internal/event"
	"gymclub/internal/handler"
	"gymclub/internal/identity"
	"gymclub/internal/repository"
	"gymclub/internal/router"
	"gymclub/internal/service"
	"gymclub/internal/session"
	"gymclub/internal/storage"
	"gymclub/internal/websocket"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	profileRepo := repository.NewProfileRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	slog.Info("database ready")

	files, uploadsRoot, err := newFileStore(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	ids := identity.NewClient(cfg.IdentityURL, cfg.IdentityAnonKey, cfg.IdentityJWTSecret)
	identityBus := identity.NewBus()

	manager := session.NewManager(ids, profileRepo, identityBus, session.Timeouts{
		Init:        cfg.AuthInitTimeout,
		SafetyValve: cfg.AuthSafetyValve,
		Profile:     cfg.ProfileTimeout,
		Refresh:     cfg.AuthRefreshTimeout,
	}, cfg.SessionIdleExpiry)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	var mailer service.Mailer = service.NoopMailer{}
	if cfg.ResendAPIKey != "" {
		mailer = service.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
	}

	membershipService := service.NewMembershipService(profileRepo, notificationRepo, bus)
	paymentService := service.NewPaymentService(paymentRepo, files, bus, cfg.MontoCuota, cfg.MaxUploadSize)
	notificationService := service.NewNotificationService(notificationRepo, profileRepo, files, mailer, bus)

	authHandler := handler.NewAuthHandler(manager, profileRepo, cfg.MagicLinkRedirect)
	memberHandler := handler.NewMemberHandler(membershipService, paymentService, notificationService, cfg.MaxUploadSize)
	adminHandler := handler.NewAdminHandler(membershipService, paymentService, notificationService, cfg.MaxUploadSize)

	appRouter := router.New(cfg, db, manager, hub, authHandler, memberHandler, adminHandler, uploadsRoot)

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go manager.RunJanitor(janitorCtx, time.Minute)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				janitorCancel()
			},
			func() {
				manager.Close()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

// newFileStore builds the configured storage driver. The second return is
// the local root to serve under /uploads, empty for the S3 driver.
func newFileStore(cfg *config.Config) (storage.FileStore, string, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(context.Background(), storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}

	store, err := storage.NewLocalStore(cfg.UploadRoot, cfg.PublicBaseURL)
	if err != nil {
		return nil, "", err
	}
	return store, store.RootAbs(), nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Run cleanup functions
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
