package imagepkg

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func solidDataURI(t *testing.T, c color.Color) string {
	t.Helper()
	return EncodeDataURI("image/png", solidPNG(t, 40, 60, c))
}

// writeFrame writes a fully transparent frame with an opaque 10px top band.
func writeFrame(t *testing.T, dir, frameID string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 1200, 1800))
	band := color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff}
	for y := 0; y < 10; y++ {
		for x := 0; x < 1200; x++ {
			img.SetNRGBA(x, y, band)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, frameID+".png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func assertColor(t *testing.T, img image.Image, x, y int, want color.NRGBA) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) || !near(got.A, want.A) {
		t.Errorf("pixel (%d,%d) = %v, want %v", x, y, got, want)
	}
}
