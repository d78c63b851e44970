package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProducer struct {
	strategy imagepkg.Strategy
	err      error
	block    chan struct{}
	started  chan struct{}
	calls    int
	mu       sync.Mutex
}

func (p *fakeProducer) Produce(context.Context, []string, string, string) (imagepkg.ComposedImage, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		close(p.started)
	}
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return imagepkg.ComposedImage{}, p.err
	}
	return imagepkg.ComposedImage{PNG: []byte("png"), Ready: true, Strategy: p.strategy}, nil
}

type fakePrinter struct {
	calls int
	err   error
}

func (p *fakePrinter) Print(context.Context, imagepkg.ComposedImage) error {
	p.calls++
	return p.err
}

type fakeSaver struct {
	names []string
}

func (s *fakeSaver) Save(_ context.Context, name string, _ []byte) error {
	s.names = append(s.names, name)
	return nil
}

func newTestOrchestrator(compose, snapshot Producer, pr Printer, sv Saver) *Orchestrator {
	return New(Options{Compose: compose, Snapshot: snapshot, Printer: pr, Saver: sv, Title: "life4cut", Logger: testLogger()})
}

func TestExport_DownloadCompose(t *testing.T) {
	sv := &fakeSaver{}
	o := newTestOrchestrator(&fakeProducer{strategy: imagepkg.StrategyCompose}, nil, &fakePrinter{}, sv)

	res, err := o.Export(context.Background(), Request{Action: ActionDownload, Strategy: imagepkg.StrategyCompose}, Input{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !regexp.MustCompile(`^.+_\d+\.png$`).MatchString(res.Filename) {
		t.Errorf("filename = %q", res.Filename)
	}
	if len(sv.names) != 1 || sv.names[0] != res.Filename {
		t.Errorf("saved = %v", sv.names)
	}
	if o.Busy() {
		t.Error("busy flag left set")
	}
}

func TestExport_PrintRoutesToStrategy(t *testing.T) {
	compose := &fakeProducer{strategy: imagepkg.StrategyCompose}
	snap := &fakeProducer{strategy: imagepkg.StrategySnapshot}
	pr := &fakePrinter{}
	o := newTestOrchestrator(compose, snap, pr, nil)

	res, err := o.Export(context.Background(), Request{Action: ActionPrint, Strategy: imagepkg.StrategySnapshot}, Input{})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Image.Strategy != imagepkg.StrategySnapshot {
		t.Errorf("strategy = %q", res.Image.Strategy)
	}
	if snap.calls != 1 || compose.calls != 0 {
		t.Errorf("calls compose=%d snapshot=%d", compose.calls, snap.calls)
	}
	if pr.calls != 1 {
		t.Errorf("print calls = %d", pr.calls)
	}
}

func TestExport_FailureHasNoSideEffects(t *testing.T) {
	pr := &fakePrinter{}
	sv := &fakeSaver{}
	o := newTestOrchestrator(&fakeProducer{err: errors.New("no canvas")}, nil, pr, sv)

	for _, a := range []Action{ActionPrint, ActionDownload} {
		if _, err := o.Export(context.Background(), Request{Action: a, Strategy: imagepkg.StrategyCompose}, Input{}); err == nil {
			t.Fatalf("%s: expected error", a)
		}
	}
	if pr.calls != 0 || len(sv.names) != 0 {
		t.Errorf("side effects: prints=%d saves=%d", pr.calls, len(sv.names))
	}
	if o.Busy() {
		t.Error("busy flag left set after failure")
	}
}

func TestExport_RejectsWhileBusy(t *testing.T) {
	p := &fakeProducer{block: make(chan struct{}), started: make(chan struct{})}
	o := newTestOrchestrator(p, nil, &fakePrinter{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.Export(context.Background(), Request{Action: ActionDownload, Strategy: imagepkg.StrategyCompose}, Input{})
		done <- err
	}()
	<-p.started
	if !o.Busy() {
		t.Fatal("Busy() = false during export")
	}

	_, err := o.Export(context.Background(), Request{Action: ActionPrint, Strategy: imagepkg.StrategyCompose}, Input{})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second export err = %v, want ErrBusy", err)
	}

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("producer calls = %d, want 1", p.calls)
	}
}

func TestExport_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(&fakeProducer{}, nil, &fakePrinter{}, nil)
	tests := []Request{
		{Action: "fax", Strategy: imagepkg.StrategyCompose},
		{Action: ActionPrint, Strategy: "html2canvas"},
		{Action: ActionPrint, Strategy: imagepkg.StrategySnapshot},
	}
	for _, req := range tests {
		if _, err := o.Export(context.Background(), req, Input{}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%+v: err = %v, want ErrInvalidRequest", req, err)
		}
	}
}

func TestFilename(t *testing.T) {
	o := newTestOrchestrator(nil, nil, nil, nil)
	o.now = func() time.Time { return time.UnixMilli(1712345678901) }
	if got := o.Filename(); got != "life4cut_1712345678901.png" {
		t.Errorf("Filename() = %q", got)
	}
}

func TestDirSaver(t *testing.T) {
	dir := t.TempDir()
	if err := (DirSaver{Dir: dir}).Save(context.Background(), "../x_1.png", []byte("png")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x_1.png")); err != nil {
		t.Errorf("file not written inside dir: %v", err)
	}
}
