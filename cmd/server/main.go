package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/nadasuara/server/adapters"
	mongodb "github.com/nadasuara/server/adapters/mongo"
	"github.com/nadasuara/server/adapters/recognizer"
	"github.com/nadasuara/server/domain/entities"
	"github.com/nadasuara/server/domain/repositories"
	"github.com/nadasuara/server/internal/api"
	"github.com/nadasuara/server/internal/auth"
	"github.com/nadasuara/server/internal/config"
	"github.com/nadasuara/server/internal/session"
	"github.com/nadasuara/server/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}
	authn, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLDuration())
	if err != nil {
		logger.Fatal("Failed to initialize authenticator", zap.Error(err))
	}

	// Recognition backend
	var rec repositories.Recognizer
	switch cfg.Recognizer.Backend {
	case "google":
		google, err := recognizer.NewGoogleRecognizer(context.Background(), cfg.Session.SampleRate)
		if err != nil {
			logger.Fatal("Failed to initialize Google recognizer", zap.Error(err))
		}
		defer google.Close()
		rec = google
	default:
		rec = recognizer.NewMockRecognizer(logger)
	}
	rec = recognizer.NewLimited(rec, cfg.Recognizer.MaxConcurrent)
	logger.Info("Recognition backend ready",
		zap.String("backend", cfg.Recognizer.Backend),
		zap.Int("maxConcurrent", cfg.Recognizer.MaxConcurrent))

	// Transcript archive
	var archive repositories.TranscriptArchive
	if cfg.Mongo.Enabled {
		client, err := mongodb.NewClient(cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Close(ctx)
		}()
		archive = mongodb.NewTranscriptRepository(client.Database)
	} else {
		logger.Info("MongoDB disabled, archiving transcripts in memory")
		archive = adapters.NewMemoryTranscriptArchive()
	}

	devices := adapters.NewMemoryDeviceRepository()
	provisionDevices(devices, logger)

	// Streaming engine
	registry := session.NewRegistry()
	hub := websocket.NewHub(registry, rec, archive, cfg.SessionEngineConfig(), logger)
	go hub.Run()

	cleanup := websocket.NewSessionCleanupService(registry, cfg.Server.IdleTimeoutDuration(), logger)
	cleanup.Start()
	defer cleanup.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.NewServer(hub, devices, archive, rec, authn, cfg.Session.SampleRate, logger).InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(cfg.Addr()); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// provisionDevices registers the device fleet from the environment. A
// single DEVICE_SERIAL/DEVICE_SECRET pair covers the common case of one
// device per deployment during development.
func provisionDevices(repo *adapters.MemoryDeviceRepository, logger *zap.Logger) {
	serial := os.Getenv("DEVICE_SERIAL")
	secret := os.Getenv("DEVICE_SECRET")
	if serial == "" || secret == "" {
		logger.Warn("No device credentials configured, device auth will reject everything")
		return
	}

	device := &entities.Device{
		SerialNumber: serial,
		SecretKey:    secret,
		Model:        os.Getenv("DEVICE_MODEL"),
	}
	if err := repo.Register(device); err != nil {
		logger.Fatal("Failed to provision device", zap.Error(err))
	}
	logger.Info("Device provisioned",
		zap.String("serial", serial),
		zap.String("deviceID", device.ID))
}
