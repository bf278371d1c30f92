// Package docerr defines the error taxonomy shared by the extraction pipeline.
//
// Every failure that crosses a component boundary is a *Error carrying a Kind,
// so callers can branch on the kind programmatically while still rendering the
// same user-facing message.
package docerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in the pipeline.
	KindUnknown Kind = iota

	// KindArchive covers missing, unreadable or corrupt ZIP archives.
	KindArchive

	// KindDocumentRead covers PDFs that cannot be opened or parsed.
	KindDocumentRead

	// KindOCR covers rasterization and OCR engine failures.
	KindOCR

	// KindFilesystem covers directory creation, write and delete failures.
	KindFilesystem

	// KindSummary covers failures of the summarization collaborator.
	KindSummary
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindDocumentRead:
		return "document_read"
	case KindOCR:
		return "ocr"
	case KindFilesystem:
		return "filesystem"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrArchive      = errors.New("archive error")
	ErrDocumentRead = errors.New("document read error")
	ErrOCR          = errors.New("OCR failure")
	ErrFilesystem   = errors.New("filesystem error")
	ErrSummary      = errors.New("summary error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindArchive:
		return ErrArchive
	case KindDocumentRead:
		return ErrDocumentRead
	case KindOCR:
		return ErrOCR
	case KindFilesystem:
		return ErrFilesystem
	case KindSummary:
		return ErrSummary
	default:
		return nil
	}
}

// Error is a classified pipeline failure.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Op is the operation that failed (e.g. "ExtractArchive", "WriteArtifact").
	Op string

	// Path is the file or directory involved, if any.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New creates a classified error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Wrap classifies err unless it already carries a kind. A nil err stays nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	return New(kind, op, path, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}
