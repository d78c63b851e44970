// Command backend stores uploaded composites and serves the QR code,
// detail page and download each visitor scans.
//
// Usage:
//
//	backend -config srh-photo.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SRHS-SPAM/srh-photo/internal/api"
	"github.com/SRHS-SPAM/srh-photo/internal/catalog"
	"github.com/SRHS-SPAM/srh-photo/internal/config"
	"github.com/SRHS-SPAM/srh-photo/internal/db"
	"github.com/SRHS-SPAM/srh-photo/internal/logging"
	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting srh-photo backend",
		"version", config.Version,
		"port", cfg.Backend.Port,
		"db_path", cfg.Backend.DBPath,
		"media_dir", cfg.Backend.MediaDir,
	)

	if err := util.EnsureDir(cfg.Backend.MediaDir); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}

	database, err := db.New(cfg.Backend.DBPath, logging.WithComponent(logger, "db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	photos := catalog.NewService(catalog.NewRepository(database.Conn()), cfg.Backend.MediaDir, logging.WithComponent(logger, "catalog"))

	r := gin.Default()
	r.MaxMultipartMemory = api.MaxUploadBytes
	api.RegisterBackendRoutes(r, api.BackendConfig{
		Photos:    photos,
		PublicURL: cfg.Backend.PublicURL,
		Version:   config.Version,
		Logger:    logging.WithComponent(logger, "api"),
	})

	srv := api.NewServer(fmt.Sprintf(":%d", cfg.Backend.Port), r, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("backend stopped")
	return nil
}
