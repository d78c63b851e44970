package printing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

var errAlreadySubmitted = errors.New("print already submitted in this context")

// Opener opens a fresh print context for one print attempt.
type Opener interface {
	Open(ctx context.Context, title string) (Context, error)
}

// Context is one print attempt: the document is loaded, submitted once,
// awaited and closed.
type Context interface {
	Load(ctx context.Context, doc *Document) error
	Print(ctx context.Context) error
	Wait(ctx context.Context) error
	Close() error
}

// DisabledOpener refuses every print, like a blocked popup.
type DisabledOpener struct{}

func (DisabledOpener) Open(context.Context, string) (Context, error) {
	return nil, errors.New("printing is disabled on this kiosk")
}

// staging is the per-attempt scratch directory shared by the openers.
type staging struct {
	dir       string
	title     string
	mu        sync.Mutex
	doc       *Document
	submitted bool
}

func newStaging(root, title string) (*staging, error) {
	if err := util.EnsureDir(root); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(root, ".job-*")
	if err != nil {
		return nil, err
	}
	return &staging{dir: dir, title: title}, nil
}

func (s *staging) Load(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, "document.pdf"), doc.PDF, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, "document.html"), doc.HTML, 0o644); err != nil {
		return err
	}
	s.doc = doc
	return nil
}

// claim marks the context as submitted; it fails on the second call.
func (s *staging) claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return errors.New("no document loaded")
	}
	if s.submitted {
		return errAlreadySubmitted
	}
	s.submitted = true
	return nil
}

func (s *staging) pdfPath() string {
	return filepath.Join(s.dir, "document.pdf")
}

func (s *staging) Close() error {
	return os.RemoveAll(s.dir)
}

// FolderOpener drops PDFs into a hot folder watched by the print station.
type FolderOpener struct {
	Dir string
	now func() time.Time
}

func NewFolderOpener(dir string) *FolderOpener {
	return &FolderOpener{Dir: dir, now: time.Now}
}

func (o *FolderOpener) Open(_ context.Context, title string) (Context, error) {
	st, err := newStaging(o.Dir, title)
	if err != nil {
		return nil, err
	}
	return &folderContext{staging: st, dir: o.Dir, now: o.now}, nil
}

type folderContext struct {
	*staging
	dir string
	now func() time.Time
}

func (c *folderContext) Print(context.Context) error {
	if err := c.claim(); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s.pdf", c.title, strconv.FormatInt(c.now().UnixMilli(), 10))
	return os.Rename(c.pdfPath(), filepath.Join(c.dir, name))
}

// Wait returns at once: the hot folder owns the job after the rename.
func (c *folderContext) Wait(context.Context) error {
	return nil
}

// CommandOpener spools PDFs through an external command such as lp.
type CommandOpener struct {
	Command  string
	Args     []string
	SpoolDir string
}

func (o *CommandOpener) Open(_ context.Context, title string) (Context, error) {
	bin, err := exec.LookPath(o.Command)
	if err != nil {
		return nil, fmt.Errorf("print command %q: %w", o.Command, err)
	}
	st, err := newStaging(o.SpoolDir, title)
	if err != nil {
		return nil, err
	}
	return &commandContext{staging: st, bin: bin, args: o.Args}, nil
}

type commandContext struct {
	*staging
	bin  string
	args []string
	cmd  *exec.Cmd
}

func (c *commandContext) Print(ctx context.Context) error {
	if err := c.claim(); err != nil {
		return err
	}
	args := append(append([]string{}, c.args...), c.pdfPath())
	c.cmd = exec.CommandContext(ctx, c.bin, args...)
	return c.cmd.Start()
}

func (c *commandContext) Wait(context.Context) error {
	if c.cmd == nil {
		return errors.New("print command not started")
	}
	return c.cmd.Wait()
}
