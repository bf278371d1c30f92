package ocr

import (
	"errors"
	"fmt"
)

// Common OCR errors
var (
	// ErrRasterizeFailed is returned when a PDF page cannot be rendered to an image.
	ErrRasterizeFailed = errors.New("PDF rasterization failed")

	// ErrOCRFailed is returned when the OCR engine fails on a page image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when the Vision engine is selected but
	// neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is usable.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrUnknownEngine is returned for an unsupported OCR_ENGINE value.
	ErrUnknownEngine = errors.New("unknown OCR engine")
)

// OCRError wraps errors with the operation and, when known, the page that failed.
type OCRError struct {
	// Op is the operation that failed (e.g., "ExtractDocument", "recognizePage").
	Op string

	// Page is the 1-based page number, or 0 when the failure is not page specific.
	Page int

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	where := e.Op
	if e.Page > 0 {
		where = fmt.Sprintf("%s page %d", e.Op, e.Page)
	}
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", where, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", where, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// NewPageError creates an OCRError for the page at index (0-based).
func NewPageError(op string, index int, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Page:    index + 1,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
