package imagepkg

import "fmt"

// ImageLoadError reports a single image that could not be fetched or
// decoded. It is recoverable: callers decide whether to degrade.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("load image %s: %v", ShortSource(e.Source), e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// CompositionFatalError means no composite could be produced at all.
type CompositionFatalError struct {
	Err error
}

func (e *CompositionFatalError) Error() string {
	return fmt.Sprintf("composition failed: %v", e.Err)
}

func (e *CompositionFatalError) Unwrap() error {
	return e.Err
}

// ShortSource trims long sources (data URIs) for logs and error text.
func ShortSource(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
