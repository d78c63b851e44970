// Package session is the result screen controller: it owns one visitor's
// photo list, composes the preview, uploads it for a QR code, prints the
// first composite exactly once and serves on-demand exports.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SRHS-SPAM/srh-photo/internal/export"
	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/logging"
	"github.com/SRHS-SPAM/srh-photo/internal/printing"
	"github.com/SRHS-SPAM/srh-photo/internal/snapshot"
)

// MaxPhotos is the number of shots in one session.
const MaxPhotos = 4

const maxNotices = 20

var (
	ErrNoPhotos = errors.New("session has no photos or no frame")
	ErrEnded    = errors.New("session has ended")
)

// Uploader turns a composite into a QR reference.
type Uploader interface {
	Upload(ctx context.Context, img imagepkg.ComposedImage) (string, bool)
}

// Exporter runs user-triggered exports.
type Exporter interface {
	Export(ctx context.Context, req export.Request, in export.Input) (export.Result, error)
	Busy() bool
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Composer       export.Producer
	Uploader       Uploader
	Printer        export.Printer
	Exporter       Exporter
	AutoPrint      bool
	AutoPrintDelay time.Duration
	Logger         *slog.Logger
}

// Params describe one visitor.
type Params struct {
	ID        string
	Photos    []string
	FrameType string
	OnBack    func()
}

// Status is a read-only view of a session for the UI.
type Status struct {
	ID           string   `json:"id"`
	FrameType    string   `json:"frame_type"`
	PhotoCount   int      `json:"photo_count"`
	PreviewReady bool     `json:"preview_ready"`
	QRCodeURL    string   `json:"qr_code_url,omitempty"`
	Uploading    bool     `json:"uploading"`
	Busy         bool     `json:"busy"`
	AutoPrinted  bool     `json:"auto_printed"`
	Ended        bool     `json:"ended"`
	Notices      []string `json:"notices"`
}

// Session holds the state of one result screen.
type Session struct {
	deps   Deps
	id     string
	onBack func()
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sleep  func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	photos    []string
	frameID   string
	preview   imagepkg.ComposedImage
	qr        string
	started   bool
	uploading bool
	// printed latches the automatic print. It is set before the print is
	// scheduled and never reset for the life of the session.
	printed     bool
	autoPending bool
	// gen counts photo list replacements; uploads and composites of an
	// older generation are discarded.
	gen         uint64
	ended       bool
	notices     []string
}

// New creates a session. Call Start to compose and kick off upload and
// auto-print.
func New(deps Deps, p Params) *Session {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		deps:    deps,
		id:      p.ID,
		onBack:  p.OnBack,
		logger:  logging.WithSessionID(deps.Logger, p.ID),
		ctx:     ctx,
		cancel:  cancel,
		sleep:   sleepCtx,
		photos:  clampPhotos(p.Photos),
		frameID: p.FrameType,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

func clampPhotos(photos []string) []string {
	if len(photos) > MaxPhotos {
		photos = photos[:MaxPhotos]
	}
	return append([]string(nil), photos...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Start composes the initial preview, then uploads it in the background
// and schedules the one-time auto-print. A session without photos or
// frame stays idle until SetPhotos supplies them.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrEnded
	}
	photos, frameID, gen := s.photos, s.frameID, s.gen
	s.mu.Unlock()

	if len(photos) == 0 || frameID == "" {
		return ErrNoPhotos
	}

	img, current, err := s.composeAndUpload(ctx, gen, photos, frameID)
	if err != nil {
		return err
	}
	if current {
		s.maybeAutoPrint(img)
	}
	return nil
}

// composeAndUpload renders photos without a QR, publishes the result as
// the preview and starts the upload bound to that exact image. current is
// false when a newer photo list superseded gen meanwhile.
func (s *Session) composeAndUpload(ctx context.Context, gen uint64, photos []string, frameID string) (img imagepkg.ComposedImage, current bool, err error) {
	img, err = s.deps.Composer.Produce(ctx, photos, frameID, "")
	if err != nil {
		s.logger.Error("composition failed", "error", err)
		s.notify("An error occurred while composing the image.")
		return img, false, err
	}

	s.mu.Lock()
	if s.gen != gen || s.ended {
		s.mu.Unlock()
		return img, false, nil
	}
	s.preview = img
	s.started = true
	s.uploading = s.deps.Uploader != nil
	s.mu.Unlock()

	if s.deps.Uploader != nil {
		s.wg.Add(1)
		go s.uploadAndRecompose(gen, img, photos, frameID)
	}
	return img, true, nil
}

// uploadAndRecompose runs strictly after the composition it uploads; the
// QR-badged preview is composed from the same photos once the upload has
// settled. Results of a superseded photo list are dropped.
func (s *Session) uploadAndRecompose(gen uint64, uploaded imagepkg.ComposedImage, photos []string, frameID string) {
	defer s.wg.Done()

	qr, ok := s.deps.Uploader.Upload(s.ctx, uploaded)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("dropping upload result of replaced photos", "qr", qr)
		return
	}
	s.uploading = false
	if !ok || s.ended {
		s.mu.Unlock()
		return
	}
	s.qr = qr
	s.mu.Unlock()

	img, err := s.deps.Composer.Produce(s.ctx, photos, frameID, qr)
	if err != nil {
		s.logger.Warn("qr composition failed, keeping preview without badge", "error", err)
		return
	}
	s.mu.Lock()
	if s.gen == gen && !s.ended {
		s.preview = img
	}
	s.mu.Unlock()
	s.logger.Info("preview updated with qr badge", "qr", qr)
}

func (s *Session) maybeAutoPrint(img imagepkg.ComposedImage) {
	if !s.deps.AutoPrint || s.deps.Printer == nil {
		return
	}
	s.mu.Lock()
	if s.printed {
		s.mu.Unlock()
		return
	}
	s.printed = true
	s.autoPending = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.autoPending = false
			s.mu.Unlock()
		}()
		if err := s.sleep(s.ctx, s.deps.AutoPrintDelay); err != nil {
			return
		}
		if err := s.deps.Printer.Print(s.ctx, img); err != nil {
			s.logger.Error("auto print failed", "error", err)
			s.notify(noticeFor(err))
			return
		}
		s.logger.Info("auto print submitted")
	}()
}

// SetPhotos replaces the photo list. The previous QR belongs to the
// previous image, so it is dropped and the new composite is uploaded
// again. The auto-print latch still holds: a session never auto-prints
// twice.
func (s *Session) SetPhotos(ctx context.Context, photos []string) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return ErrEnded
	}
	s.photos = clampPhotos(photos)
	s.gen++
	s.qr = ""
	started, frameID, gen := s.started, s.frameID, s.gen
	photos = s.photos
	if started && len(photos) == 0 {
		s.preview = imagepkg.ComposedImage{}
		s.uploading = false
	}
	s.mu.Unlock()

	if !started {
		return s.Start(ctx)
	}
	if len(photos) == 0 {
		return ErrNoPhotos
	}

	img, current, err := s.composeAndUpload(ctx, gen, photos, frameID)
	if err != nil {
		return err
	}
	if current {
		s.maybeAutoPrint(img)
	}
	return nil
}

// Export runs a user-triggered print or download. It is rejected with
// export.ErrBusy while the automatic print is pending or printing. User
// prints bypass the auto-print latch.
func (s *Session) Export(ctx context.Context, req export.Request) (export.Result, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return export.Result{}, ErrEnded
	}
	if s.autoPending {
		s.mu.Unlock()
		s.notify(noticeFor(export.ErrBusy))
		return export.Result{}, export.ErrBusy
	}
	in := export.Input{
		Photos:  append([]string(nil), s.photos...),
		FrameID: s.frameID,
		QRRef:   s.qr,
	}
	s.mu.Unlock()

	res, err := s.deps.Exporter.Export(ctx, req, in)
	if err != nil {
		s.notify(noticeFor(err))
		return export.Result{}, err
	}
	return res, nil
}

// Back clears the photo list, ends the session and calls OnBack.
func (s *Session) Back() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.photos = nil
	s.mu.Unlock()

	if s.onBack != nil {
		s.onBack()
	}
}

// Preview returns the latest composite, if any.
func (s *Session) Preview() (imagepkg.ComposedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview, s.preview.Ready
}

// Snapshot returns a read-only view of the session state.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	busy := s.autoPending
	if s.deps.Exporter != nil && s.deps.Exporter.Busy() {
		busy = true
	}
	return Status{
		ID:           s.id,
		FrameType:    s.frameID,
		PhotoCount:   len(s.photos),
		PreviewReady: s.preview.Ready,
		QRCodeURL:    s.qr,
		Uploading:    s.uploading,
		Busy:         busy,
		AutoPrinted:  s.printed,
		Ended:        s.ended,
		Notices:      append([]string{}, s.notices...),
	}
}

// Wait blocks until background upload and print work has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels background work and waits for it.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Session) notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, msg)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// noticeFor maps an error to the message shown to the visitor.
func noticeFor(err error) string {
	var (
		pce *printing.PrintContextError
		ce  *snapshot.CaptureError
		fe  *imagepkg.CompositionFatalError
	)
	switch {
	case errors.Is(err, export.ErrBusy):
		return "Already processing, please wait."
	case errors.As(err, &pce):
		return "The print window could not be opened. Please check the printer and try again."
	case errors.Is(err, snapshot.ErrNoContainer):
		return "The frame could not be found."
	case errors.As(err, &ce):
		return "An error occurred while capturing the image."
	case errors.As(err, &fe):
		return "An error occurred while composing the image."
	default:
		return "Something went wrong: " + err.Error()
	}
}
