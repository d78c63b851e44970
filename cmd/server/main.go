// Command server runs the photo booth kiosk: it composes the visitor's
// photos into the chosen frame, uploads the result for a QR code and
// prints or downloads it on request.
//
// Usage:
//
//	server -config srh-photo.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SRHS-SPAM/srh-photo/internal/api"
	"github.com/SRHS-SPAM/srh-photo/internal/config"
	"github.com/SRHS-SPAM/srh-photo/internal/export"
	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/logging"
	"github.com/SRHS-SPAM/srh-photo/internal/printing"
	"github.com/SRHS-SPAM/srh-photo/internal/session"
	"github.com/SRHS-SPAM/srh-photo/internal/snapshot"
	"github.com/SRHS-SPAM/srh-photo/internal/upload"
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
	logger.Info("starting srh-photo kiosk",
		"version", config.Version,
		"commit", config.GitCommit,
		"port", cfg.Server.Port,
		"assets_dir", cfg.AssetsDir,
		"print_mode", cfg.Print.Mode,
	)

	for _, dir := range []string{cfg.DownloadsDir, cfg.Print.SpoolDir} {
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	loader := imagepkg.NewLoader(cfg.AssetsDir, cfg.Upload.Timeout)
	compositor := imagepkg.NewCompositor(loader, logging.WithComponent(logger, "compositor"))

	var snapshots export.Producer
	if cfg.Browser.Enabled {
		browser := snapshot.NewBrowser(snapshot.BrowserConfig{
			RemoteURL: cfg.Browser.RemoteURL,
			Logger:    logging.WithComponent(logger, "browser"),
		})
		defer browser.Close()
		snapshots = snapshot.NewSnapshotter(loader, snapshot.NewRodRasterizer(browser), logging.WithComponent(logger, "snapshot"))
	}

	printer := printing.NewPrinter(newOpener(cfg, logger), cfg.Title, cfg.PrintSettle(), logging.WithComponent(logger, "printer"))

	var uploader session.Uploader
	if base := cfg.UploadBaseURL(); base != "" {
		uploader = upload.NewClient(base, cfg.Title, cfg.Upload.Timeout, logging.WithComponent(logger, "upload"))
		logger.Info("upload endpoint selected", "host", cfg.Server.Host, "url", base)
	} else {
		logger.Warn("no upload endpoint for host, composites will carry no QR", "host", cfg.Server.Host)
	}

	exporter := export.New(export.Options{
		Compose:  compositor,
		Snapshot: snapshots,
		Printer:  printer,
		Saver:    export.DirSaver{Dir: cfg.DownloadsDir},
		Title:    cfg.Title,
		Logger:   logging.WithComponent(logger, "export"),
	})

	sessions := session.NewStore(session.Deps{
		Composer:       compositor,
		Uploader:       uploader,
		Printer:        printer,
		Exporter:       exporter,
		AutoPrint:      cfg.AutoPrintEnabled(),
		AutoPrintDelay: cfg.AutoPrintDelay(),
		Logger:         logging.WithComponent(logger, "session"),
	})
	defer sessions.CloseAll()

	r := gin.Default()
	r.Static("/assets", cfg.AssetsDir)
	api.RegisterRoutes(r, api.KioskConfig{
		Sessions:  sessions,
		Documents: printer,
		Version:   config.Version,
		Logger:    logging.WithComponent(logger, "api"),
	})

	srv := api.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), r, logger)
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
	logger.Info("kiosk stopped")
	return nil
}

func newOpener(cfg *config.Config, logger *slog.Logger) printing.Opener {
	switch cfg.Print.Mode {
	case config.PrintModeCommand:
		return &printing.CommandOpener{Command: cfg.Print.Command, Args: cfg.Print.Args, SpoolDir: cfg.Print.SpoolDir}
	case config.PrintModeNone:
		logger.Warn("printing disabled")
		return printing.DisabledOpener{}
	default:
		return printing.NewFolderOpener(cfg.Print.SpoolDir)
	}
}
