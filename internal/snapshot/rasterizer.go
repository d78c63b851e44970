package snapshot

import (
	"context"
	"fmt"
	"math"

	"github.com/go-rod/rod/lib/proto"
)

// Rasterizer renders markup and captures one element as PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, req RasterRequest) ([]byte, error)
}

// RasterRequest describes one capture.
type RasterRequest struct {
	HTML     string
	Selector string
	Width    float64
	Height   float64
	Scale    float64
}

// waitImages resolves once every image in the container has loaded or
// failed; a failed image does not block the capture.
const waitImages = `() => Promise.all(
  Array.from(document.querySelectorAll('#frame_container img')).map((img) =>
    img.complete ? Promise.resolve() : new Promise((resolve) => {
      img.onload = resolve;
      img.onerror = resolve;
    })
  )
)`

// RodRasterizer captures through headless Chrome.
type RodRasterizer struct {
	browser *Browser
}

func NewRodRasterizer(b *Browser) *RodRasterizer {
	return &RodRasterizer{browser: b}
}

func (r *RodRasterizer) Rasterize(ctx context.Context, req RasterRequest) ([]byte, error) {
	b, err := r.browser.Get(ctx)
	if err != nil {
		return nil, err
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		// A dead connection is rebuilt on the next capture.
		r.browser.Reset()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(math.Ceil(req.Width)),
		Height:            int(math.Ceil(req.Height)),
		DeviceScaleFactor: req.Scale,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	transparent := 0.0
	err = proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: &transparent},
	}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("transparent background: %w", err)
	}

	if err := page.SetDocumentContent(req.HTML); err != nil {
		return nil, fmt.Errorf("load markup: %w", err)
	}
	if _, err := page.Eval(waitImages); err != nil {
		return nil, fmt.Errorf("wait for images: %w", err)
	}

	el, err := page.Element(req.Selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", req.Selector, err)
	}
	png, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}
