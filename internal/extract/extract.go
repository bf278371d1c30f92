// Package extract turns one PDF into text.
//
// Pages are read from the native text layer in order. The first page without
// native text switches the whole document to OCR: text gathered from earlier
// pages is discarded and the OCR output becomes the result. A document's text
// therefore always comes from exactly one strategy.
//
// Extraction never fails outright. Read and OCR errors are reported inside the
// Result so a single bad document cannot abort a batch.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/logger"
	"pdfdigest/internal/ocr"
	"pdfdigest/internal/pdftext"
)

// Strategy records which extraction path produced a Result.
type Strategy string

const (
	// StrategyNative means every page had a native text layer.
	StrategyNative Strategy = "native"

	// StrategyOCR means at least one page lacked text and the whole document was OCRed.
	StrategyOCR Strategy = "ocr"

	// StrategyFailed means the document could not be extracted; see Result.Err.
	StrategyFailed Strategy = "failed"
)

// Result is the outcome of extracting one document.
type Result struct {
	// Path is the source PDF.
	Path string `json:"path"`

	// Strategy is the path that produced Text, or StrategyFailed.
	Strategy Strategy `json:"strategy"`

	// Text is the extracted text. Empty when Strategy is StrategyFailed.
	Text string `json:"text"`

	// Pages is the number of pages the document reported, when known.
	Pages int `json:"pages,omitempty"`

	// FallbackPage is the 1-based page that triggered OCR, or 0.
	FallbackPage int `json:"fallback_page,omitempty"`

	// Err is the classified failure when Strategy is StrategyFailed.
	Err error `json:"-"`

	// Duration is the wall time spent on the document.
	Duration time.Duration `json:"duration"`
}

// OK reports whether the document was extracted.
func (r Result) OK() bool {
	return r.Err == nil
}

// Content returns what gets written for the document: the text on success,
// a diagnostic line otherwise.
func (r Result) Content() string {
	if r.Err == nil {
		return r.Text
	}
	return Diagnostic(r.Err)
}

// Diagnostic renders err as the user-facing message for its kind.
func Diagnostic(err error) string {
	switch docerr.KindOf(err) {
	case docerr.KindOCR:
		return fmt.Sprintf("Error running OCR: %v", err)
	default:
		return fmt.Sprintf("Error processing PDF: %v", err)
	}
}

// OCR runs whole-document OCR.
type OCR interface {
	ExtractDocument(ctx context.Context, path string) (*ocr.Result, error)
}

// Extractor is the per-document orchestrator.
type Extractor struct {
	opener  pdftext.Opener
	ocr     OCR
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout bounds each document's extraction. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// NewExtractor creates a document extractor.
func NewExtractor(opener pdftext.Opener, ocrExtractor OCR, opts ...Option) *Extractor {
	e := &Extractor{
		opener: opener,
		ocr:    ocrExtractor,
		log:    logger.WithComponent("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the text for the PDF at path.
func (e *Extractor) Extract(ctx context.Context, path string) Result {
	log := logger.ForContext(ctx, e.log)
	startTime := time.Now()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result := e.extract(ctx, path)
	result.Path = path
	result.Duration = time.Since(startTime)

	event := log.Info()
	if result.Err != nil {
		event = log.Warn().Err(result.Err).Str("kind", docerr.KindOf(result.Err).String())
	}
	event.
		Str("file", path).
		Str("strategy", string(result.Strategy)).
		Int("pages", result.Pages).
		Int("text_length", len(result.Text)).
		Dur("duration", result.Duration).
		Msg("Document extracted")

	return result
}

func (e *Extractor) extract(ctx context.Context, path string) Result {
	log := logger.ForContext(ctx, e.log)
	text, pages, missing, err := e.scanNative(ctx, path)
	if err != nil {
		return Result{Strategy: StrategyFailed, Pages: pages, Err: err}
	}
	if missing == 0 {
		return Result{Strategy: StrategyNative, Text: text, Pages: pages}
	}

	log.Info().
		Str("file", path).
		Int("page", missing).
		Int("discarded_length", len(text)).
		Msg("Page without text layer, switching document to OCR")

	ocrResult, err := e.ocr.ExtractDocument(ctx, path)
	if err != nil {
		return Result{
			Strategy:     StrategyFailed,
			Pages:        pages,
			FallbackPage: missing,
			Err:          docerr.Wrap(docerr.KindOCR, "ExtractDocument", path, err),
		}
	}

	return Result{
		Strategy:     StrategyOCR,
		Text:         ocrResult.Text,
		Pages:        pages,
		FallbackPage: missing,
	}
}

// scanNative reads native page text in order until a page has none.
// missing is the 1-based number of that page, or 0 when every page had text.
// The document is closed before returning so OCR can reopen the file.
func (e *Extractor) scanNative(ctx context.Context, path string) (text string, pages, missing int, err error) {
	const op = "scanNative"
	log := logger.ForContext(ctx, e.log)

	doc, err := e.opener.Open(path)
	if err != nil {
		return "", 0, 0, docerr.Wrap(docerr.KindDocumentRead, op, path, err)
	}
	defer func() {
		if closeErr := doc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", path).Msg("Failed to close PDF")
		}
	}()

	pages = doc.NumPage()
	var buf strings.Builder
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", pages, 0, docerr.New(docerr.KindDocumentRead, op, path, err)
		}

		pageText, ok, err := doc.PageText(i)
		if err != nil {
			return "", pages, 0, docerr.Wrap(docerr.KindDocumentRead, op, path, err)
		}
		if !ok {
			return buf.String(), pages, i + 1, nil
		}
		buf.WriteString(pageText)
	}

	return buf.String(), pages, 0, nil
}
