// Package pdftext reads the native text layer of PDF pages.
//
// A page's text is "absent" when the parser reports nothing for it. Scanned
// pages usually look like this, and the caller decides what to do about them.
package pdftext

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"pdfdigest/internal/docerr"
)

// Document is an opened PDF whose pages can be read one at a time.
type Document interface {
	// NumPage returns the number of pages.
	NumPage() int

	// PageText returns the native text of the page at index (0-based).
	// ok is false when the page has no extractable text.
	PageText(index int) (text string, ok bool, err error)

	// Close releases the underlying file handle.
	Close() error
}

// Opener opens PDF documents for page-level text extraction.
type Opener interface {
	Open(path string) (Document, error)
}

// Replaced in tests.
var (
	openFile     = os.Open
	newPDFReader = pdf.NewReader
)

// Reader is the Opener backed by github.com/ledongthuc/pdf.
type Reader struct{}

// NewReader returns a ledongthuc/pdf backed Opener.
func NewReader() *Reader {
	return &Reader{}
}

// Open opens the PDF at path. Failures are classified as document read errors.
// The file is opened before parsing starts so it is closed on every failure,
// including a parser panic.
func (Reader) Open(path string) (doc Document, err error) {
	const op = "OpenDocument"

	f, err := openFile(path)
	if err != nil {
		return nil, docerr.New(docerr.KindDocumentRead, op, path, err)
	}
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = docerr.New(docerr.KindDocumentRead, op, path, fmt.Errorf("parser panic: %v", r))
		}
		if err != nil {
			f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, docerr.New(docerr.KindDocumentRead, op, path, err)
	}

	r, err := newPDFReader(f, info.Size())
	if err != nil {
		return nil, docerr.New(docerr.KindDocumentRead, op, path, err)
	}
	return &document{path: path, file: f, reader: r}, nil
}

type document struct {
	path   string
	file   *os.File
	reader *pdf.Reader
}

func (d *document) NumPage() int {
	return d.reader.NumPage()
}

func (d *document) PageText(index int) (text string, ok bool, err error) {
	const op = "PageText"

	// The parser panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
			err = docerr.New(docerr.KindDocumentRead, op, d.path, fmt.Errorf("page %d: parser panic: %v", index+1, r))
		}
	}()

	if index < 0 || index >= d.reader.NumPage() {
		return "", false, docerr.New(docerr.KindDocumentRead, op, d.path, fmt.Errorf("page index %d out of range", index))
	}

	page := d.reader.Page(index + 1)
	if page.V.IsNull() {
		return "", false, nil
	}

	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", false, docerr.New(docerr.KindDocumentRead, op, d.path, fmt.Errorf("page %d: %w", index+1, err))
	}
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

func (d *document) Close() error {
	return d.file.Close()
}

// PageCount returns the number of pages reported by pdfcpu. It is independent
// of the text parser, so it also works on PDFs whose text layer is unreadable.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, docerr.New(docerr.KindDocumentRead, "PageCount", path, err)
	}
	return n, nil
}
