package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

// Source resolves an image reference into a decoded image.
type Source interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// Loader resolves data URIs, http(s) URLs and paths under an asset root.
// Remote fetches go out anonymously: no cookie jar, no credentials, so the
// bytes are always safe to read back after drawing.
type Loader struct {
	root   string
	client *http.Client
}

// NewLoader returns a Loader rooted at root, which is either a directory
// or an http(s) base URL.
func NewLoader(root string, timeout time.Duration) *Loader {
	return &Loader{root: root, client: util.NewClient(timeout)}
}

// Root returns the asset root.
func (l *Loader) Root() string {
	return l.root
}

// FrameSource returns the asset reference of a frame's artwork.
func FrameSource(frameID string) string {
	return frameID + ".png"
}

// Load fetches and decodes source.
func (l *Loader) Load(ctx context.Context, source string) (image.Image, error) {
	b, _, err := l.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Source: source, Err: err}
	}
	return img, nil
}

// Fetch returns the raw bytes of source and its media type.
func (l *Loader) Fetch(ctx context.Context, source string) ([]byte, string, error) {
	if source == "" {
		return nil, "", &ImageLoadError{Source: source, Err: fmt.Errorf("empty source")}
	}
	if err := ctx.Err(); err != nil {
		return nil, "", &ImageLoadError{Source: source, Err: err}
	}
	if IsDataURI(source) {
		b, mt, err := ParseDataURI(source)
		if err != nil {
			return nil, "", &ImageLoadError{Source: source, Err: err}
		}
		return b, mt, nil
	}
	if isRemote(source) {
		return l.fetchRemote(ctx, source)
	}
	if isRemote(l.root) {
		u, err := url.Parse(l.root)
		if err != nil {
			return nil, "", &ImageLoadError{Source: source, Err: err}
		}
		u.Path = path.Join(u.Path, path.Clean("/"+source))
		return l.fetchRemote(ctx, u.String())
	}

	p := filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+source)))
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, "", &ImageLoadError{Source: source, Err: err}
	}
	return b, mediaTypeOf(p, b), nil
}

func (l *Loader) fetchRemote(ctx context.Context, u string) ([]byte, string, error) {
	b, ct, err := util.GetBytes(ctx, l.client, u)
	if err != nil {
		return nil, "", &ImageLoadError{Source: u, Err: err}
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil && strings.HasPrefix(mt, "image/") {
		return b, mt, nil
	}
	return b, mediaTypeOf(u, b), nil
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func mediaTypeOf(name string, b []byte) string {
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(name))); mt != "" {
		return mt
	}
	return http.DetectContentType(b)
}
