package documents

import "errors"

var (
	// ErrNotFound indicates no live document row matches the owner and id.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates the upload is not a kind we can extract
	// or transcribe.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNotReady indicates the extracted text was requested before the
	// extraction pipeline finished.
	ErrNotReady = errors.New("extraction pending")

	// ErrExtractionFailed indicates the document's extraction pipeline
	// failed; the stored error message has the detail.
	ErrExtractionFailed = errors.New("extraction failed")
)
