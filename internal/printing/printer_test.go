package printing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testComposite(t *testing.T) imagepkg.ComposedImage {
	t.Helper()
	return compositeOfSize(t, 120, 180)
}

func compositeOfSize(t *testing.T, w, h int) imagepkg.ComposedImage {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(10, 10, color.NRGBA{R: 0xff, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	ci, err := imagepkg.FromPNG(buf.Bytes(), imagepkg.StrategyCompose)
	if err != nil {
		t.Fatal(err)
	}
	return ci
}

type fakeOpener struct {
	mu      sync.Mutex
	openErr error
	opened  int
	ctxs    []*fakeContext
}

func (o *fakeOpener) Open(context.Context, string) (Context, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.opened++
	c := &fakeContext{}
	o.ctxs = append(o.ctxs, c)
	return c, nil
}

type fakeContext struct {
	loaded  *Document
	printed int
	waited  bool
	closed  bool
}

func (c *fakeContext) Load(_ context.Context, d *Document) error { c.loaded = d; return nil }
func (c *fakeContext) Print(context.Context) error               { c.printed++; return nil }
func (c *fakeContext) Wait(context.Context) error                { c.waited = true; return nil }
func (c *fakeContext) Close() error                              { c.closed = true; return nil }

func TestPrint_SubmitsOnceAndCloses(t *testing.T) {
	op := &fakeOpener{}
	p := NewPrinter(op, "life4cut", 0, testLogger())

	if err := p.Print(context.Background(), testComposite(t)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if op.opened != 1 {
		t.Fatalf("opened = %d, want 1", op.opened)
	}
	c := op.ctxs[0]
	if c.loaded == nil || len(c.loaded.PDF) == 0 || len(c.loaded.HTML) == 0 {
		t.Fatal("document not loaded into context")
	}
	if c.printed != 1 || !c.waited || !c.closed {
		t.Errorf("context = %+v", c)
	}
}

func TestPrint_OpenFailureIsPrintContextError(t *testing.T) {
	p := NewPrinter(&fakeOpener{openErr: errors.New("popup blocked")}, "t", 0, testLogger())
	err := p.Print(context.Background(), testComposite(t))
	var pce *PrintContextError
	if !errors.As(err, &pce) {
		t.Fatalf("err = %v, want *PrintContextError", err)
	}

	err = NewPrinter(DisabledOpener{}, "t", 0, testLogger()).Print(context.Background(), testComposite(t))
	if !errors.As(err, &pce) {
		t.Fatalf("disabled opener err = %v, want *PrintContextError", err)
	}
}

func TestPrint_NoImage(t *testing.T) {
	p := NewPrinter(&fakeOpener{}, "t", 0, testLogger())
	if err := p.Print(context.Background(), imagepkg.ComposedImage{}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestPrint_SettleDelay(t *testing.T) {
	op := &fakeOpener{}
	p := NewPrinter(op, "t", 30*time.Millisecond, testLogger())
	start := time.Now()
	if err := p.Print(context.Background(), testComposite(t)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("print submitted before settle delay elapsed")
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(`<b>title</b>`, testComposite(t), 500)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	s := string(html)
	for _, want := range []string{
		"size: 100mm 148mm",
		"margin: 0",
		"object-fit: contain",
		`src="data:image/png;base64,`,
		"window.print()",
		"window.close()",
		"&lt;b&gt;title&lt;/b&gt;",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("print html missing %q", want)
		}
	}
	if strings.Count(s, "<img") != 1 {
		t.Errorf("print html must hold exactly one image")
	}
}

func TestRenderPDF_PageIsHagaki(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"small", 120, 180},
		{"canonical", 1200, 1800},
		{"landscape", 900, 300},
	}
	const ptPerMM = 72 / 25.4
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, err := RenderPDF(compositeOfSize(t, tt.w, tt.h))
			if err != nil {
				t.Fatalf("RenderPDF: %v", err)
			}
			dims, err := api.PageDims(bytes.NewReader(pdf), model.NewDefaultConfiguration())
			if err != nil {
				t.Fatalf("PageDims: %v", err)
			}
			if len(dims) != 1 {
				t.Fatalf("pages = %d, want 1", len(dims))
			}
			if math.Abs(dims[0].Width-100*ptPerMM) > 1 || math.Abs(dims[0].Height-148*ptPerMM) > 1 {
				t.Errorf("page = %.1fx%.1f pt, want 100x148mm (%.1fx%.1f pt)",
					dims[0].Width, dims[0].Height, 100*ptPerMM, 148*ptPerMM)
			}
		})
	}
}

func TestFolderOpener_DropsOnePDF(t *testing.T) {
	dir := t.TempDir()
	op := NewFolderOpener(dir)
	op.now = func() time.Time { return time.UnixMilli(42) }
	p := NewPrinter(op, "life4cut", 0, testLogger())

	if err := p.Print(context.Background(), testComposite(t)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "life4cut_42.pdf" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("spool dir = %v, want [life4cut_42.pdf]", names)
	}
	b, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Error("spooled file is not a PDF")
	}
}

func TestFolderContext_SecondPrintRejected(t *testing.T) {
	op := NewFolderOpener(t.TempDir())
	pc, err := op.Open(context.Background(), "t")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()
	doc, err := BuildDocument("t", testComposite(t), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := pc.Load(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if err := pc.Print(context.Background()); err != nil {
		t.Fatalf("first Print: %v", err)
	}
	if err := pc.Print(context.Background()); !errors.Is(err, errAlreadySubmitted) {
		t.Fatalf("second Print err = %v, want errAlreadySubmitted", err)
	}
}

func TestCommandOpener_MissingCommand(t *testing.T) {
	op := &CommandOpener{Command: "definitely-not-a-print-command", SpoolDir: t.TempDir()}
	err := NewPrinter(op, "t", 0, testLogger()).Print(context.Background(), testComposite(t))
	var pce *PrintContextError
	if !errors.As(err, &pce) {
		t.Fatalf("err = %v, want *PrintContextError", err)
	}
}
