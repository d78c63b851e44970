// Package printing renders composites onto postcard paper and hands them
// to the print station exactly once per call.
package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

var ErrNoImage = errors.New("printing: no image to print")

// PrintContextError means no print context could be opened. The attempt
// is over; callers may invoke Print again.
type PrintContextError struct {
	Err error
}

func (e *PrintContextError) Error() string {
	return fmt.Sprintf("could not open print context: %v", e.Err)
}

func (e *PrintContextError) Unwrap() error {
	return e.Err
}

// Printer builds the print document, opens a fresh print context, submits
// once and always closes the context.
type Printer struct {
	opener Opener
	title  string
	settle time.Duration
	logger *slog.Logger
}

func NewPrinter(opener Opener, title string, settle time.Duration, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Printer{opener: opener, title: title, settle: settle, logger: logger}
}

// Document renders the print document without printing it.
func (p *Printer) Document(img imagepkg.ComposedImage) (*Document, error) {
	return BuildDocument(p.title, img, int(p.settle/time.Millisecond))
}

// Print prints img.
func (p *Printer) Print(ctx context.Context, img imagepkg.ComposedImage) error {
	doc, err := p.Document(img)
	if err != nil {
		return err
	}

	pc, err := p.opener.Open(ctx, p.title)
	if err != nil {
		p.logger.Error("print context unavailable", "error", err)
		return &PrintContextError{Err: err}
	}
	defer func() {
		if err := pc.Close(); err != nil {
			p.logger.Warn("closing print context", "error", err)
		}
	}()

	if err := pc.Load(ctx, doc); err != nil {
		return fmt.Errorf("load print document: %w", err)
	}

	if p.settle > 0 {
		t := time.NewTimer(p.settle)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := pc.Print(ctx); err != nil {
		return fmt.Errorf("submit print: %w", err)
	}
	if err := pc.Wait(ctx); err != nil {
		return fmt.Errorf("print job: %w", err)
	}
	p.logger.Info("print submitted", "title", p.title, "pdf_bytes", len(doc.PDF))
	return nil
}
