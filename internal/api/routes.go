package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/printing"
	"github.com/SRHS-SPAM/srh-photo/internal/session"
)

// DocumentBuilder renders the print document of a composite.
type DocumentBuilder interface {
	Document(img imagepkg.ComposedImage) (*printing.Document, error)
}

// KioskConfig wires the kiosk routes.
type KioskConfig struct {
	Sessions  *session.Store
	Documents DocumentBuilder
	Version   string
	Logger    *slog.Logger
}

// RegisterRoutes mounts the kiosk API under /api.
func RegisterRoutes(r *gin.Engine, cfg KioskConfig) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	api := r.Group("/api")
	{
		api.GET("/health", health(cfg))
		api.GET("/frames", listFrames)
		api.POST("/sessions", createSession(cfg))

		s := api.Group("/sessions/:id", withSession(cfg))
		s.GET("", getSession)
		s.GET("/preview.png", previewPNG)
		s.GET("/print.html", printHTML(cfg))
		s.GET("/print.pdf", printPDF(cfg))
		s.POST("/photos", setPhotos)
		s.POST("/export", exportSession)
		s.POST("/back", backSession)
	}
}

// RegisterBackendRoutes mounts the photo backend.
func RegisterBackendRoutes(r *gin.Engine, cfg BackendConfig) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r.GET("/api/health", backendHealth(cfg))
	r.POST("/api/upload/", uploadPhoto(cfg))
	r.GET("/api/photos/", listPhotos(cfg))
	r.GET("/api/photos/:id", getPhoto(cfg))
	r.GET("/api/photos/:id/download/", downloadPhoto(cfg))
	r.GET("/photo/:id/", photoDetail(cfg))
	r.Static("/media", cfg.Photos.MediaDir())
}
