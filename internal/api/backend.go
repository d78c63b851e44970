package api

import (
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SRHS-SPAM/srh-photo/internal/catalog"
)

// MaxUploadBytes caps one uploaded image.
const MaxUploadBytes = 32 << 20

// BackendConfig wires the photo backend routes.
type BackendConfig struct {
	Photos *catalog.Service
	// PublicURL is the externally reachable base of the backend. When
	// empty it is derived from the request.
	PublicURL string
	Version   string
	Logger    *slog.Logger
}

func (cfg BackendConfig) baseURL(c *gin.Context) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host
}

func backendHealth(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.Version})
	}
}

func uploadPhoto(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
			return
		}
		if fh.Size > MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		base := cfg.baseURL(c)
		p, err := cfg.Photos.Upload(c.Request.Context(), base, c.PostForm("title"), data)
		if err != nil {
			if errors.Is(err, catalog.ErrNoImage) || errors.Is(err, catalog.ErrInvalidImage) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			cfg.Logger.Error("upload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, cfg.Photos.View(p, base))
	}
}

func listPhotos(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		photos, err := cfg.Photos.List(c.Request.Context(), 0)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		base := cfg.baseURL(c)
		out := make([]catalog.View, 0, len(photos))
		for _, p := range photos {
			out = append(out, cfg.Photos.View(p, base))
		}
		c.JSON(http.StatusOK, gin.H{"count": len(out), "photos": out})
	}
}

// lookupPhoto writes the error response itself and returns nil when the
// photo cannot be served.
func lookupPhoto(cfg BackendConfig, c *gin.Context) *catalog.Photo {
	p, err := cfg.Photos.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return nil
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil
	}
	return p
}

func getPhoto(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := lookupPhoto(cfg, c); p != nil {
			c.JSON(http.StatusOK, cfg.Photos.View(p, cfg.baseURL(c)))
		}
	}
}

func downloadPhoto(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := lookupPhoto(cfg, c); p != nil {
			c.FileAttachment(cfg.Photos.FilePath(p.Image), catalog.DownloadName(p))
		}
	}
}

var detailTmpl = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; padding: 16px; font-family: sans-serif; text-align: center; background: #fafafa; }
img { max-width: 100%; max-height: 80vh; box-shadow: 0 2px 8px rgba(0,0,0,.2); }
a.button { display: inline-block; margin-top: 16px; padding: 12px 24px; background: #222; color: #fff; text-decoration: none; border-radius: 6px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<img src="{{.Image}}" alt="{{.Title}}">
<div><a class="button" href="/api/photos/{{.ID}}/download/">Download</a></div>
</body>
</html>
`))

func photoDetail(cfg BackendConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := lookupPhoto(cfg, c)
		if p == nil {
			return
		}
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := detailTmpl.Execute(c.Writer, cfg.Photos.View(p, cfg.baseURL(c))); err != nil {
			cfg.Logger.Error("render detail page", "photo_id", p.ID, "error", err)
		}
	}
}
