// Package ocr provides the whole-document OCR fallback for PDFs without a
// native text layer.
//
// Every page of the PDF is rasterized and handed to an OCR engine, in page
// order, and the recognized texts are concatenated exactly as the engine
// emits them. Any rasterization or recognition failure aborts the document:
// no partial text is ever returned.
//
// Engines:
//   - tesseract (default): local Tesseract through gosseract. Requires the
//     tesseract library and language data to be installed.
//   - vision: Google Cloud Vision DOCUMENT_TEXT_DETECTION on each page image.
//     Requires GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
//
// Rasterization uses MuPDF (go-fitz) at the library default resolution unless
// a DPI is configured.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"pdfdigest/internal/logger"
)

// Engine recognizes text in a single page image.
type Engine interface {
	// Name identifies the engine in logs and results.
	Name() string

	// Recognize returns the text found in a PNG-encoded image.
	Recognize(ctx context.Context, pngData []byte) (string, error)
}

// Rasterizer renders PDF pages to images.
type Rasterizer interface {
	Open(path string) (Pages, error)
}

// Pages is an opened, rasterizable PDF.
type Pages interface {
	NumPage() int

	// Image renders the page at index (0-based).
	Image(index int) (image.Image, error)

	Close() error
}

// Result contains the OCR output for one document.
type Result struct {
	// Text is the concatenated engine output for all pages, in page order.
	Text string `json:"text"`

	// PageCount is the number of pages that were recognized.
	PageCount int `json:"page_count"`

	// Engine is the name of the engine that produced Text.
	Engine string `json:"engine"`

	// ProcessedAt is when recognition completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long rasterization and recognition took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Extractor runs whole-document OCR.
type Extractor struct {
	rasterizer Rasterizer
	engine     Engine
	log        zerolog.Logger
}

// NewExtractor creates an OCR extractor from a rasterizer and an engine.
func NewExtractor(rasterizer Rasterizer, engine Engine) *Extractor {
	return &Extractor{
		rasterizer: rasterizer,
		engine:     engine,
		log:        logger.WithComponent("ocr"),
	}
}

// EngineName returns the configured engine's name.
func (e *Extractor) EngineName() string {
	return e.engine.Name()
}

// ExtractDocument rasterizes every page of the PDF at path and OCRs each
// image in page order.
func (e *Extractor) ExtractDocument(ctx context.Context, path string) (*Result, error) {
	const op = "ExtractDocument"
	log := logger.ForContext(ctx, e.log)
	startTime := time.Now()

	pages, err := e.rasterizer.Open(path)
	if err != nil {
		return nil, WrapOCRError(op, ErrRasterizeFailed, fmt.Sprintf("open %s: %v", path, err))
	}
	defer func() {
		if closeErr := pages.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", path).Msg("Failed to close rasterized document")
		}
	}()

	numPages := pages.NumPage()
	log.Debug().
		Str("file", path).
		Int("pages", numPages).
		Str("engine", e.engine.Name()).
		Msg("Starting OCR")

	var text strings.Builder
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, NewPageError(op, i, err, "canceled before page")
		}

		pageText, err := e.recognizePage(ctx, pages, i)
		if err != nil {
			return nil, err
		}
		text.WriteString(pageText)
	}

	result := &Result{
		Text:        text.String(),
		PageCount:   numPages,
		Engine:      e.engine.Name(),
		ProcessedAt: time.Now(),
	}
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	if strings.TrimSpace(result.Text) == "" {
		log.Warn().Str("file", path).Msg("OCR produced no text")
	}

	log.Info().
		Str("file", path).
		Int("pages", numPages).
		Int("text_length", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR completed")

	return result, nil
}

func (e *Extractor) recognizePage(ctx context.Context, pages Pages, index int) (string, error) {
	const op = "recognizePage"
	log := logger.ForContext(ctx, e.log)

	img, err := pages.Image(index)
	if err != nil {
		return "", NewPageError(op, index, ErrRasterizeFailed, err.Error())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", NewPageError(op, index, ErrRasterizeFailed, fmt.Sprintf("encode png: %v", err))
	}

	text, err := e.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		return "", NewPageError(op, index, ErrOCRFailed, err.Error())
	}

	log.Debug().
		Int("page", index+1).
		Int("text_length", len(text)).
		Msg("Page recognized")

	return text, nil
}
