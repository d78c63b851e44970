package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var (
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.NRGBA{A: 0xff}
	band  = color.NRGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff}
)

func fourPhotos(t *testing.T) ([]string, []color.NRGBA) {
	cols := []color.NRGBA{
		{R: 0xff, A: 0xff},
		{G: 0xff, A: 0xff},
		{B: 0xff, A: 0xff},
		{R: 0xff, G: 0xff, A: 0xff},
	}
	srcs := make([]string, len(cols))
	for i, c := range cols {
		srcs[i] = solidDataURI(t, c)
	}
	return srcs, cols
}

func decode(t *testing.T, ci ComposedImage) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(ci.PNG))
	if err != nil {
		t.Fatalf("decode composite: %v", err)
	}
	return img
}

func TestCompose_FullSetWithoutQR(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "light_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, cols := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos, "light_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !ci.Ready {
		t.Fatal("Ready = false")
	}
	if ci.Strategy != StrategyCompose {
		t.Errorf("Strategy = %q", ci.Strategy)
	}
	img := decode(t, ci)

	centers := []image.Point{{334, 484}, {866, 484}, {334, 1201}, {866, 1201}}
	for i, p := range centers {
		assertColor(t, img, p.X, p.Y, cols[i])
	}
	// frame band drawn over everything
	assertColor(t, img, 600, 5, band)
	// background outside slots
	assertColor(t, img, 20, 1700, white)
}

func TestCompose_RoundTripCanonicalSize(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "dark_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, _ := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos, "dark_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b, mt, err := ParseDataURI(ci.DataURI())
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if mt != "image/png" {
		t.Errorf("media type = %q", mt)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1200 || cfg.Height != 1800 {
		t.Errorf("size = %dx%d, want 1200x1800", cfg.Width, cfg.Height)
	}
	if ci.Width != 1200 || ci.Height != 1800 {
		t.Errorf("ComposedImage size = %dx%d", ci.Width, ci.Height)
	}
}

func TestCompose_UnknownFrameYieldsBackgroundOnly(t *testing.T) {
	c := NewCompositor(NewLoader(t.TempDir(), time.Second), testLogger())
	photos, _ := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos, "mystery_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !ci.Ready {
		t.Fatal("Ready = false")
	}
	img := decode(t, ci)
	for _, p := range []image.Point{{334, 484}, {866, 1201}, {0, 0}, {1199, 1799}} {
		assertColor(t, img, p.X, p.Y, white)
	}
}

func TestCompose_FailedPhotoLeavesSlotBlank(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "light_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, cols := fourPhotos(t)
	photos[1] = "data:image/png;base64,bm90IGFuIGltYWdl"

	ci, err := c.Compose(context.Background(), photos, "light_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decode(t, ci)
	assertColor(t, img, 334, 484, cols[0])
	assertColor(t, img, 866, 484, white)
	assertColor(t, img, 600, 5, band)
}

func TestCompose_MissingFrameStillDrawsPhotos(t *testing.T) {
	c := NewCompositor(NewLoader(t.TempDir(), time.Second), testLogger())
	photos, cols := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos[:2], "spam_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decode(t, ci)
	// spam_frame slot 0: top 220, left 63, 512x712
	assertColor(t, img, 63+256, 220+356, cols[0])
	assertColor(t, img, 600, 5, white)
	// slot 2 has no photo
	assertColor(t, img, 63+256, 952+356, white)
}

func TestCompose_QRBadgeBottomRight(t *testing.T) {
	qr := solidPNG(t, 50, 50, black)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(qr)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFrame(t, dir, "light_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, _ := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos, "light_frame", srv.URL+"/y.png")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decode(t, ci)

	if p := QRPosition(); p.X != 850 || p.Y != 1450 {
		t.Fatalf("QRPosition = %v, want (850,1450)", p)
	}
	assertColor(t, img, 850, 1450, black)
	assertColor(t, img, 1149, 1749, black)
	assertColor(t, img, 1150, 1750, white)
	assertColor(t, img, 849, 1600, white)
	assertColor(t, img, 1000, 1760, white)
}

func TestCompose_QRFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "light_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, _ := fourPhotos(t)

	ci, err := c.Compose(context.Background(), photos, "light_frame", "missing_qr.png")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !ci.Ready {
		t.Fatal("Ready = false")
	}
	assertColor(t, decode(t, ci), 1000, 1700, white)
}

func TestCompose_CancelledContextIsFatal(t *testing.T) {
	c := NewCompositor(NewLoader(t.TempDir(), time.Second), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compose(ctx, nil, "light_frame", "")
	var fe *CompositionFatalError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *CompositionFatalError", err)
	}
}

func TestCompose_EmptySourceSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "light_frame")
	c := NewCompositor(NewLoader(dir, time.Second), testLogger())
	photos, cols := fourPhotos(t)
	photos[0] = ""

	ci, err := c.Compose(context.Background(), photos, "light_frame", "")
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decode(t, ci)
	assertColor(t, img, 334, 484, white)
	assertColor(t, img, 866, 484, cols[1])
}

func TestGenerateQRPNG(t *testing.T) {
	b, err := GenerateQRPNG("https://example.com/photo/1/", 256)
	if err != nil {
		t.Fatalf("GenerateQRPNG: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 256 || cfg.Height != 256 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
}
