package extraction

import "errors"

var (
	// ErrUnsupportedProvider is returned by New for an unknown provider name.
	ErrUnsupportedProvider = errors.New("unsupported extraction provider")
	// ErrUnsupportedMedia is returned by the OCR backend for MIME types it cannot read.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrBackend wraps failures reported by the OCR backend.
	ErrBackend = errors.New("ocr backend failure")
)
