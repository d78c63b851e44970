// Package catalog stores uploaded composites and their QR codes for the
// photo backend.
package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PhotosDir  = "photos"
	QRCodesDir = "qr_codes"

	// QRCodeSize is the edge of the generated QR PNG.
	QRCodeSize = 300
)

// Photo is one uploaded composite. Image and QRCode are slash-separated
// paths relative to the media root.
type Photo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	QRCode    string    `json:"qr_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// View is the JSON shape returned to clients.
type View struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	QRCode    string    `json:"qr_code,omitempty"`
	QRCodeURL string    `json:"qr_code_url,omitempty"`
	DetailURL string    `json:"detail_url"`
	CreatedAt time.Time `json:"created_at"`
}

func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like a photo id.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// MediaURL turns a media-relative path into the URL path served under /media/.
func MediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + strings.TrimLeft(rel, "/")
}

// DetailPath is the public detail page of a photo; the QR code encodes it.
func DetailPath(id string) string {
	return "/photo/" + id + "/"
}
