// Package snapshot is the alternate export path: it lays the photos and
// frame overlay out as a styled page region and captures that region with
// headless Chrome at twice its on-screen size.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

// Scale is the capture device scale factor.
const Scale = 2

// CaptureError means no snapshot was produced.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("image capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

var ErrNoContainer = errors.New("frame container not found")

// Fetcher returns raw asset bytes; *imagepkg.Loader satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, string, error)
}

// Snapshotter captures containers through a Rasterizer.
type Snapshotter struct {
	fetch  Fetcher
	raster Rasterizer
	logger *slog.Logger
}

func NewSnapshotter(fetch Fetcher, raster Rasterizer, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{fetch: fetch, raster: raster, logger: logger}
}

// Snapshot captures c. A nil container is a *CaptureError and nothing is
// rasterized.
func (s *Snapshotter) Snapshot(ctx context.Context, c *Container) (imagepkg.ComposedImage, error) {
	if c == nil {
		return imagepkg.ComposedImage{}, &CaptureError{Err: ErrNoContainer}
	}
	if s.raster == nil {
		return imagepkg.ComposedImage{}, &CaptureError{Err: errors.New("no rasterizer configured")}
	}

	inlined := s.inline(ctx, c)
	html, err := inlined.HTML()
	if err != nil {
		return imagepkg.ComposedImage{}, &CaptureError{Err: err}
	}

	png, err := s.raster.Rasterize(ctx, RasterRequest{
		HTML:     html,
		Selector: "#" + ContainerID,
		Width:    c.Width,
		Height:   c.Height,
		Scale:    Scale,
	})
	if err != nil {
		s.logger.Error("snapshot rasterization failed", "frame", c.FrameID, "error", err)
		return imagepkg.ComposedImage{}, &CaptureError{Err: err}
	}

	img, err := imagepkg.FromPNG(png, imagepkg.StrategySnapshot)
	if err != nil {
		return imagepkg.ComposedImage{}, &CaptureError{Err: fmt.Errorf("decode capture: %w", err)}
	}
	s.logger.Debug("snapshot ready", "frame", c.FrameID, "width", img.Width, "height", img.Height)
	return img, nil
}

// Produce satisfies the export strategy contract. The captured region
// carries no QR badge, so qrRef is unused.
func (s *Snapshotter) Produce(ctx context.Context, photos []string, frameID, _ string) (imagepkg.ComposedImage, error) {
	return s.Snapshot(ctx, NewContainer(photos, frameID))
}

// inline returns a copy of c whose sources are all data URIs, so the page
// needs no network or file access. Sources that cannot be fetched are kept
// as is; the page treats their load error as "proceed anyway".
func (s *Snapshotter) inline(ctx context.Context, c *Container) *Container {
	out := *c
	out.Photos = append([]Placed(nil), c.Photos...)
	for _, p := range out.Images() {
		if p.Src == "" || imagepkg.IsDataURI(p.Src) || s.fetch == nil {
			continue
		}
		b, mt, err := s.fetch.Fetch(ctx, p.Src)
		if err != nil {
			s.logger.Warn("snapshot asset unavailable", "src", imagepkg.ShortSource(p.Src), "error", err)
			continue
		}
		p.Src = imagepkg.EncodeDataURI(mt, b)
	}
	return &out
}
