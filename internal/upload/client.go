// Package upload sends finished composites to the photo backend and
// returns the QR code reference the visitor can scan.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	imagepkg "github.com/SRHS-SPAM/srh-photo/internal/image"
	"github.com/SRHS-SPAM/srh-photo/internal/util"
)

// Path is the upload endpoint relative to the base URL.
const Path = "/api/upload/"

// UploadError represents a failed upload attempt.
type UploadError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("photo upload failed: %v", e.Err)
	}
	return fmt.Sprintf("photo upload failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Response is the JSON body returned by the backend.
type Response struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	QRCodeURL string `json:"qr_code_url"`
	QRCode    string `json:"qr_code"`
}

// Client posts composites to {baseURL}/api/upload/.
type Client struct {
	baseURL    string
	title      string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(baseURL, title string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		title:      title,
		httpClient: util.NewClient(timeout),
		logger:     logger,
		now:        time.Now,
	}
}

// BaseURL returns the endpoint base.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends img and returns the QR reference. Every failure is logged
// and reported as ("", false); a missing QR never aborts the caller.
func (c *Client) Upload(ctx context.Context, img imagepkg.ComposedImage) (string, bool) {
	resp, err := c.upload(ctx, img)
	if err != nil {
		c.logger.Warn("upload failed, continuing without qr", "error", err)
		return "", false
	}
	qr, err := c.resolveQR(resp)
	if err != nil {
		c.logger.Warn("upload response has no usable qr", "error", err)
		return "", false
	}
	c.logger.Info("upload succeeded", "photo_id", resp.ID, "qr", qr)
	return qr, true
}

func (c *Client) upload(ctx context.Context, img imagepkg.ComposedImage) (*Response, error) {
	if c.baseURL == "" {
		return nil, &UploadError{Err: fmt.Errorf("no upload endpoint configured")}
	}
	if len(img.PNG) == 0 {
		return nil, &UploadError{Err: fmt.Errorf("empty image")}
	}

	name := c.title + "_" + strconv.FormatInt(c.now().UnixMilli(), 10)
	body, contentType, err := multipartBody(name, img.PNG)
	if err != nil {
		return nil, &UploadError{Err: err}
	}

	endpoint := c.baseURL + Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	c.logger.Info("uploading composite", "url", endpoint, "title", name, "bytes", len(img.PNG))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UploadError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &UploadError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &out, nil
}

func multipartBody(title string, png []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", title); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("image", title+".png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(png); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// resolveQR prefers the absolute qr_code_url and falls back to qr_code
// resolved against the base URL.
func (c *Client) resolveQR(resp *Response) (string, error) {
	if u := strings.TrimSpace(resp.QRCodeURL); u != "" {
		parsed, err := url.Parse(u)
		if err == nil && parsed.IsAbs() {
			return u, nil
		}
		if resp.QRCode == "" {
			resp.QRCode = u
		}
	}
	rel := strings.TrimSpace(resp.QRCode)
	if rel == "" {
		return "", &UploadError{Err: fmt.Errorf("response carries neither qr_code_url nor qr_code")}
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(rel)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("qr_code %q: %w", rel, err)}
	}
	return base.ResolveReference(ref).String(), nil
}
