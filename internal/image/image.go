// Package imagepkg loads photo and frame assets and composes them into
// the final booth print.
package imagepkg

import (
	"bytes"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Strategy names the pipeline that produced a ComposedImage.
type Strategy string

const (
	StrategyCompose  Strategy = "compose"
	StrategySnapshot Strategy = "snapshot"
)

// ComposedImage is a fully rendered PNG. It is never modified after it
// has been produced.
type ComposedImage struct {
	PNG       []byte
	Width     int
	Height    int
	Ready     bool
	Strategy  Strategy
	CreatedAt time.Time
}

// DataURI returns the image as a data:image/png URI.
func (c ComposedImage) DataURI() string {
	if len(c.PNG) == 0 {
		return ""
	}
	return EncodeDataURI("image/png", c.PNG)
}

// Decode decodes the PNG payload.
func (c ComposedImage) Decode() (image.Image, error) {
	return imaging.Decode(bytes.NewReader(c.PNG))
}

func newComposedImage(img image.Image, strategy Strategy) (ComposedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return ComposedImage{}, err
	}
	b := img.Bounds()
	return ComposedImage{
		PNG:       buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Ready:     true,
		Strategy:  strategy,
		CreatedAt: time.Now(),
	}, nil
}

// FromPNG wraps already encoded PNG bytes, reading the dimensions from
// the header.
func FromPNG(png []byte, strategy Strategy) (ComposedImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return ComposedImage{}, err
	}
	return ComposedImage{
		PNG:       png,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Ready:     true,
		Strategy:  strategy,
		CreatedAt: time.Now(),
	}, nil
}
