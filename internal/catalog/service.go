package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

var (
	ErrNoImage      = errors.New("no image uploaded")
	ErrInvalidImage = errors.New("uploaded file is not an image")
	ErrNotFound     = errors.New("photo not found")
)

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Service struct {
	repo     Repository
	mediaDir string
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, mediaDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, mediaDir: mediaDir, logger: logger, now: time.Now}
}

// MediaDir is the directory served under /media/.
func (s *Service) MediaDir() string {
	return s.mediaDir
}

// Upload stores the image, generates a QR code pointing at the photo's
// detail page under baseURL and records the photo.
func (s *Service) Upload(ctx context.Context, baseURL, title string, data []byte) (*Photo, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	ext, ok := imageExt[http.DetectContentType(data)]
	if !ok {
		return nil, ErrInvalidImage
	}

	id := NewID()
	title = strings.TrimSpace(title)
	if title == "" {
		title = id
	}

	p := &Photo{
		ID:        id,
		Title:     title,
		Image:     path.Join(PhotosDir, id+ext),
		QRCode:    path.Join(QRCodesDir, "qr_"+id+".png"),
		CreatedAt: s.now().UTC(),
	}

	if err := s.write(p.Image, data); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	detail := strings.TrimRight(baseURL, "/") + DetailPath(id)
	qr, err := imagepkg.GenerateQRPNG(detail, QRCodeSize)
	if err == nil {
		err = s.write(p.QRCode, qr)
	}
	if err != nil {
		s.logger.Warn("qr code generation failed", "photo_id", id, "error", err)
		p.QRCode = ""
	}

	if err := s.repo.CreatePhoto(ctx, p); err != nil {
		s.remove(p)
		return nil, fmt.Errorf("record photo: %w", err)
	}

	s.logger.Info("photo stored", "photo_id", id, "title", title, "bytes", len(data), "detail", detail)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Photo, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}
	p, err := s.repo.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]*Photo, error) {
	return s.repo.ListPhotos(ctx, limit)
}

// Delete removes the record and its files.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePhoto(ctx, id); err != nil {
		return err
	}
	s.remove(p)
	return nil
}

// FilePath returns the on-disk path of a media-relative path.
func (s *Service) FilePath(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

// View renders p for clients; absolute URLs are built on baseURL.
func (s *Service) View(p *Photo, baseURL string) View {
	base := strings.TrimRight(baseURL, "/")
	v := View{
		ID:        p.ID,
		Title:     p.Title,
		Image:     MediaURL(p.Image),
		QRCode:    MediaURL(p.QRCode),
		DetailURL: base + DetailPath(p.ID),
		CreatedAt: p.CreatedAt,
	}
	if v.QRCode != "" {
		v.QRCodeURL = base + v.QRCode
	}
	return v
}

// DownloadName is the attachment filename of a photo.
func DownloadName(p *Photo) string {
	return p.Title + path.Ext(p.Image)
}

func (s *Service) write(rel string, data []byte) error {
	return util.WriteFileAtomic(s.FilePath(rel), data)
}

func (s *Service) remove(p *Photo) {
	for _, rel := range []string{p.Image, p.QRCode} {
		if rel == "" {
			continue
		}
		if err := os.Remove(s.FilePath(rel)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove media file", "path", rel, "error", err)
		}
	}
}
