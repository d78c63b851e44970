package imagepkg

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/SRHS-SPAM/srh-photo/internal/frames"
)

const (
	// QRSize is the edge of the square QR badge.
	QRSize = 300
	// QRMargin is the badge distance from the right and bottom edges.
	QRMargin = 50
)

// QRPosition is the top-left corner of the QR badge on the canonical canvas.
func QRPosition() image.Point {
	return image.Pt(frames.CanvasWidth-QRSize-QRMargin, frames.CanvasHeight-QRSize-QRMargin)
}

// Compositor draws photos, frame artwork and an optional QR badge onto a
// fresh canonical canvas for every call.
type Compositor struct {
	src    Source
	logger *slog.Logger
}

func NewCompositor(src Source, logger *slog.Logger) *Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{src: src, logger: logger}
}

type loaded struct {
	img image.Image
	err error
}

type assets struct {
	photos []loaded
	frame  loaded
	qr     loaded
}

// Compose renders photos into the slots of frameID, overlays the frame
// artwork and, when qrRef is set, the QR badge.
//
// A photo that fails to load leaves its slot blank, a missing frame yields
// a photos-only composite and a missing QR yields no badge. Only an
// unusable canvas (cancelled context, encode failure) is returned as a
// *CompositionFatalError.
func (c *Compositor) Compose(ctx context.Context, photos []string, frameID, qrRef string) (ComposedImage, error) {
	tpl := frames.Lookup(frameID)
	n := min(len(photos), len(tpl.Slots))

	a := c.load(ctx, photos[:n], frameID, qrRef)
	if err := ctx.Err(); err != nil {
		return ComposedImage{}, &CompositionFatalError{Err: err}
	}

	// Opaque white so transparent sources never leave holes.
	canvas := imaging.New(frames.CanvasWidth, frames.CanvasHeight, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})

	for i := 0; i < n; i++ {
		p := a.photos[i]
		if p.err != nil {
			c.logger.Warn("photo load failed, slot left blank", "slot", i, "error", p.err)
			continue
		}
		if p.img == nil {
			continue
		}
		slot := tpl.Slots[i]
		stretched := imaging.Resize(p.img, slot.Width, slot.Height, imaging.Lanczos)
		canvas = imaging.Overlay(canvas, stretched, image.Pt(slot.Left, slot.Top), 1.0)
	}

	if a.frame.err != nil {
		c.logger.Warn("frame artwork load failed, returning photos only", "frame", frameID, "error", a.frame.err)
	} else {
		frame := a.frame.img
		if b := frame.Bounds(); b.Dx() != frames.CanvasWidth || b.Dy() != frames.CanvasHeight {
			frame = imaging.Resize(frame, frames.CanvasWidth, frames.CanvasHeight, imaging.Lanczos)
		}
		canvas = imaging.Overlay(canvas, frame, image.Pt(0, 0), 1.0)
	}

	if qrRef != "" {
		if a.qr.err != nil {
			c.logger.Warn("qr badge load failed, composing without it", "error", a.qr.err)
		} else {
			badge := imaging.Resize(a.qr.img, QRSize, QRSize, imaging.Lanczos)
			canvas = imaging.Overlay(canvas, badge, QRPosition(), 1.0)
		}
	}

	out, err := newComposedImage(canvas, StrategyCompose)
	if err != nil {
		return ComposedImage{}, &CompositionFatalError{Err: err}
	}
	c.logger.Debug("composite ready", "frame", frameID, "photos", n, "qr", qrRef != "", "bytes", len(out.PNG))
	return out, nil
}

// Produce satisfies the export strategy contract.
func (c *Compositor) Produce(ctx context.Context, photos []string, frameID, qrRef string) (ComposedImage, error) {
	return c.Compose(ctx, photos, frameID, qrRef)
}

// load fetches every asset concurrently; drawing order is decided later.
func (c *Compositor) load(ctx context.Context, photos []string, frameID, qrRef string) assets {
	a := assets{photos: make([]loaded, len(photos))}
	var wg sync.WaitGroup

	for i, src := range photos {
		if src == "" {
			continue
		}
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			img, err := c.src.Load(ctx, src)
			a.photos[i] = loaded{img: img, err: err}
		}(i, src)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		img, err := c.src.Load(ctx, FrameSource(frameID))
		a.frame = loaded{img: img, err: err}
	}()

	if qrRef != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := c.src.Load(ctx, qrRef)
			a.qr = loaded{img: img, err: err}
		}()
	}

	wg.Wait()
	return a
}
