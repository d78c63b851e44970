package imagepkg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNotDataURI = errors.New("not a data URI")

// IsDataURI reports whether s uses the data: scheme.
func IsDataURI(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// ParseDataURI decodes a data URI into its payload and media type.
func ParseDataURI(s string) ([]byte, string, error) {
	if !IsDataURI(s) {
		return nil, "", errNotDataURI
	}
	header, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI: missing comma")
	}
	mediaType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(header, ";") {
		switch {
		case i == 0 && part != "":
			mediaType = strings.ToLower(part)
		case strings.EqualFold(part, "base64"):
			isBase64 = true
		}
	}
	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("data URI: %w", err)
		}
		return []byte(decoded), mediaType, nil
	}
	// Some encoders emit unpadded or URL-safe base64.
	payload = strings.TrimSpace(payload)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(payload); err == nil {
			return b, mediaType, nil
		}
	}
	return nil, "", fmt.Errorf("data URI: invalid base64 payload")
}

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
