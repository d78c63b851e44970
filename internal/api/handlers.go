package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SRHS-SPAM/srh-photo/internal/export"
	"github.com/SRHS-SPAM/srh-photo/internal/frames"
	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/session"
)

const sessionKey = "session"

type createSessionRequest struct {
	Photos    []string `json:"photos"`
	FrameType string   `json:"frame_type"`
}

type photosRequest struct {
	Photos []string `json:"photos"`
}

// health
func health(cfg KioskConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"version":  cfg.Version,
			"sessions": cfg.Sessions.Len(),
		})
	}
}

func listFrames(c *gin.Context) {
	all := frames.All()
	c.JSON(http.StatusOK, gin.H{"count": len(all), "frames": all})
}

// createSession starts a result screen. A session without photos is still
// created and waits for a photo update.
func createSession(cfg KioskConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s, err := cfg.Sessions.Create(c.Request.Context(), req.Photos, req.FrameType)
		if err != nil && !errors.Is(err, session.ErrNoPhotos) {
			cfg.Logger.Error("session start failed", "session_id", s.ID(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "session": s.Snapshot()})
			return
		}
		c.JSON(http.StatusCreated, s.Snapshot())
	}
}

func withSession(cfg KioskConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := cfg.Sessions.Get(c.Param("id"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func getSession(c *gin.Context) {
	c.JSON(http.StatusOK, current(c).Snapshot())
}

func previewPNG(c *gin.Context) {
	img, ok := current(c).Preview()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "preview not ready"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img.PNG)
}

func printHTML(cfg KioskConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		img, ok := current(c).Preview()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "preview not ready"})
			return
		}
		doc, err := cfg.Documents.Document(img)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", doc.HTML)
	}
}

func printPDF(cfg KioskConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		img, ok := current(c).Preview()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "preview not ready"})
			return
		}
		doc, err := cfg.Documents.Document(img)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/pdf", doc.PDF)
	}
}

func setPhotos(c *gin.Context) {
	var req photosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := current(c)
	if err := s.SetPhotos(c.Request.Context(), req.Photos); err != nil {
		c.JSON(sessionErrorStatus(err), gin.H{"error": err.Error(), "session": s.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, s.Snapshot())
}

// exportSession runs a print or download. Downloads stream the PNG as an
// attachment; prints answer 202 once the job is submitted.
func exportSession(c *gin.Context) {
	var req export.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Strategy == "" {
		req.Strategy = imagepkg.StrategyCompose
	}

	res, err := current(c).Export(c.Request.Context(), req)
	if err != nil {
		c.JSON(sessionErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	switch res.Action {
	case export.ActionDownload:
		c.Header("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
		c.Data(http.StatusOK, "image/png", res.Image.PNG)
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "submitted", "strategy": res.Image.Strategy})
	}
}

func backSession(c *gin.Context) {
	s := current(c)
	s.Back()
	c.JSON(http.StatusOK, s.Snapshot())
}

func sessionErrorStatus(err error) int {
	switch {
	case errors.Is(err, export.ErrInvalidRequest), errors.Is(err, session.ErrNoPhotos):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrEnded):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
