package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kvistad/russekort/internal/album"
	"github.com/kvistad/russekort/internal/config"
	"github.com/kvistad/russekort/internal/database"
	"github.com/kvistad/russekort/internal/deeplink"
	"github.com/kvistad/russekort/internal/editor"
	"github.com/kvistad/russekort/internal/handlers"
	"github.com/kvistad/russekort/internal/logging"
	"github.com/kvistad/russekort/internal/middleware"
	"github.com/kvistad/russekort/internal/services"
)

const albumTTL = 365 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Absent .env is fine; real deployments configure the environment.
	_ = godotenv.Load()

	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting russekort server...")

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	cardService := services.NewCardService(dbAdapter)
	qrService := services.NewQRService(redisDB.Client)
	mediaStore, err := services.NewMediaStore(cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("opening media store: %w", err)
	}

	resolver := deeplink.NewResolver(cfg.App.PublicBaseURL)
	sessions := editor.NewManager(editor.DefaultTTL)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go sessions.Run(sweepCtx, editor.DefaultSweepInterval)

	// Handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	cardHandler := handlers.NewCardHandler(cardService, mediaStore, qrService, resolver, cfg.Storage.MaxUploadMB)
	albumHandler := handlers.NewAlbumHandler(func(deviceID string) album.Store {
		return album.NewRedisStore(redisDB.Client, deviceID, albumTTL)
	}, cardService, cfg.Server.Secure)
	editorHandler := handlers.NewEditorHandler(sessions, cfg.Storage.MaxUploadMB)
	cardPageHandler, err := handlers.NewCardPageHandler("web/templates", cardService, resolver)
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	// Middleware
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)
	scanRateLimiter := middleware.NewRateLimiter(redisDB.Client, 60, time.Minute, "ratelimit:scan:", middleware.GetClientIP, true)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", healthHandler.Health)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Card endpoints
	mux.HandleFunc("POST /api/cards", cardHandler.Create)
	mux.HandleFunc("GET /api/cards/{id}", cardHandler.Get)
	mux.Handle("POST /api/cards/{id}/scan", scanRateLimiter.Middleware(http.HandlerFunc(cardHandler.Scan)))
	mux.HandleFunc("GET /api/cards/{id}/qrcode", cardHandler.QRCode)
	mux.HandleFunc("GET /api/cards/{id}/image", cardHandler.Image)
	mux.HandleFunc("GET /api/top", cardHandler.Top)

	// Album endpoints
	mux.HandleFunc("GET /api/album", albumHandler.List)
	mux.HandleFunc("POST /api/album/{id}", albumHandler.Add)
	mux.HandleFunc("DELETE /api/album/{id}", albumHandler.Remove)

	// Editor sessions
	mux.HandleFunc("POST /api/editor", editorHandler.Create)
	mux.HandleFunc("GET /api/editor/{sid}", editorHandler.Get)
	mux.HandleFunc("PATCH /api/editor/{sid}", editorHandler.Update)
	mux.HandleFunc("DELETE /api/editor/{sid}", editorHandler.Delete)
	mux.HandleFunc("POST /api/editor/{sid}/stickers", editorHandler.AddSticker)
	mux.HandleFunc("POST /api/editor/{sid}/stickers/{handle}/drag", editorHandler.Drag)
	mux.HandleFunc("DELETE /api/editor/{sid}/stickers/{handle}", editorHandler.RemoveSticker)
	mux.HandleFunc("PUT /api/editor/{sid}/image", editorHandler.SetImage)
	mux.HandleFunc("DELETE /api/editor/{sid}/image", editorHandler.RemoveImage)
	mux.HandleFunc("POST /api/editor/{sid}/resize", editorHandler.Resize)
	mux.HandleFunc("GET /api/editor/{sid}/preview.png", editorHandler.Preview)

	// Deep-link landing page
	mux.HandleFunc("GET /card/{id}", cardPageHandler.Serve)

	// Static mounts
	mux.Handle("GET /media/", http.StripPrefix("/media/", http.FileServer(http.Dir(mediaStore.Dir()))))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// Middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		sweepCancel()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
