// Package export runs one print or download request at a time against
// either rendering strategy.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

// Action is what happens to the produced image.
type Action string

const (
	ActionPrint    Action = "print"
	ActionDownload Action = "download"
)

var (
	ErrBusy           = errors.New("an export is already in progress")
	ErrInvalidRequest = errors.New("invalid export request")
)

// Producer renders the composite; the compositor and the snapshotter are
// the two implementations.
type Producer interface {
	Produce(ctx context.Context, photos []string, frameID, qrRef string) (imagepkg.ComposedImage, error)
}

// Printer prints a finished image.
type Printer interface {
	Print(ctx context.Context, img imagepkg.ComposedImage) error
}

// Saver stores a downloaded file.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// Request is one export. It carries no identity.
type Request struct {
	Action   Action            `json:"action"`
	Strategy imagepkg.Strategy `json:"strategy"`
}

// Validate reports whether action and strategy are known.
func (r Request) Validate() error {
	switch r.Action {
	case ActionPrint, ActionDownload:
	default:
		return fmt.Errorf("%w: action %q", ErrInvalidRequest, r.Action)
	}
	switch r.Strategy {
	case imagepkg.StrategyCompose, imagepkg.StrategySnapshot:
	default:
		return fmt.Errorf("%w: strategy %q", ErrInvalidRequest, r.Strategy)
	}
	return nil
}

// Input is the current session content handed to the producer.
type Input struct {
	Photos  []string
	FrameID string
	QRRef   string
}

// Result describes a finished export.
type Result struct {
	Action   Action
	Filename string
	Image    imagepkg.ComposedImage
}

// Orchestrator routes requests to producers and sinks. It is busy for the
// whole duration of an export; overlapping requests are rejected.
type Orchestrator struct {
	producers map[imagepkg.Strategy]Producer
	printer   Printer
	saver     Saver
	title     string
	logger    *slog.Logger
	now       func() time.Time
	busy      atomic.Bool
}

// Options wires an Orchestrator.
type Options struct {
	Compose  Producer
	Snapshot Producer
	Printer  Printer
	Saver    Saver
	Title    string
	Logger   *slog.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	producers := map[imagepkg.Strategy]Producer{}
	if opts.Compose != nil {
		producers[imagepkg.StrategyCompose] = opts.Compose
	}
	if opts.Snapshot != nil {
		producers[imagepkg.StrategySnapshot] = opts.Snapshot
	}
	return &Orchestrator{
		producers: producers,
		printer:   opts.Printer,
		saver:     opts.Saver,
		title:     opts.Title,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Busy reports whether an export is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Filename returns the download name {title}_{epochMillis}.png.
func (o *Orchestrator) Filename() string {
	return o.title + "_" + strconv.FormatInt(o.now().UnixMilli(), 10) + ".png"
}

// Export produces an image with the requested strategy, then saves or
// prints it.
func (o *Orchestrator) Export(ctx context.Context, req Request, in Input) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	producer, ok := o.producers[req.Strategy]
	if !ok {
		return Result{}, fmt.Errorf("%w: strategy %q is not available", ErrInvalidRequest, req.Strategy)
	}
	if req.Action == ActionPrint && o.printer == nil {
		return Result{}, fmt.Errorf("%w: no printer configured", ErrInvalidRequest)
	}

	if !o.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer o.busy.Store(false)

	log := o.logger.With("action", req.Action, "strategy", req.Strategy)

	img, err := producer.Produce(ctx, in.Photos, in.FrameID, in.QRRef)
	if err != nil {
		log.Error("export produced no image", "error", err)
		return Result{}, err
	}
	if !img.Ready || len(img.PNG) == 0 {
		return Result{}, fmt.Errorf("export: %s strategy returned no image", req.Strategy)
	}

	res := Result{Action: req.Action, Image: img}
	switch req.Action {
	case ActionDownload:
		res.Filename = o.Filename()
		if o.saver != nil {
			if err := o.saver.Save(ctx, res.Filename, img.PNG); err != nil {
				log.Error("saving download failed", "file", res.Filename, "error", err)
				return Result{}, fmt.Errorf("save %s: %w", res.Filename, err)
			}
		}
		log.Info("download ready", "file", res.Filename, "bytes", len(img.PNG))
	case ActionPrint:
		if err := o.printer.Print(ctx, img); err != nil {
			log.Error("print failed", "error", err)
			return Result{}, err
		}
	}
	return res, nil
}

// DirSaver writes downloads into a directory.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(_ context.Context, filename string, data []byte) error {
	return util.WriteFileAtomic(filepath.Join(s.Dir, filepath.Base(filename)), data)
}
