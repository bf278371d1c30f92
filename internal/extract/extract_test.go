package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/ocr"
	"pdfdigest/internal/pdftext"
)

// fakeDoc serves pages from a slice; an empty string is a page without text.
type fakeDoc struct {
	pages  []string
	failAt int
	delay  time.Duration
	read   []int
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) PageText(index int) (string, bool, error) {
	d.read = append(d.read, index)
	time.Sleep(d.delay)
	if index == d.failAt {
		return "", false, errors.New("malformed content stream")
	}
	if d.pages[index] == "" {
		return "", false, nil
	}
	return d.pages[index], true, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

type fakeOpener struct {
	docs map[string]*fakeDoc
}

func (o *fakeOpener) Open(path string) (pdftext.Document, error) {
	doc, ok := o.docs[path]
	if !ok {
		return nil, docerr.New(docerr.KindDocumentRead, "OpenDocument", path, errors.New("not a PDF file"))
	}
	return doc, nil
}

type fakeOCR struct {
	text  string
	err   error
	calls []string
}

func (f *fakeOCR) ExtractDocument(ctx context.Context, path string) (*ocr.Result, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	return &ocr.Result{Text: f.text, Engine: "fake"}, nil
}

func TestExtractAllNativePages(t *testing.T) {
	doc := &fakeDoc{pages: []string{"page one. ", "page two."}, failAt: -1}
	recognizer := &fakeOCR{text: "ocr text"}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"a.pdf": doc}}, recognizer)

	result := extractor.Extract(context.Background(), "a.pdf")

	require.True(t, result.OK())
	require.Equal(t, StrategyNative, result.Strategy)
	require.Equal(t, "page one. page two.", result.Text)
	require.Equal(t, "page one. page two.", result.Content())
	require.Equal(t, 2, result.Pages)
	require.Empty(t, recognizer.calls)
	require.True(t, doc.closed)
}

func TestExtractMissingPageSwitchesWholeDocumentToOCR(t *testing.T) {
	doc := &fakeDoc{pages: []string{"native one", "native two", "", "native four"}, failAt: -1}
	recognizer := &fakeOCR{text: "recognized document"}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"b.pdf": doc}}, recognizer)

	result := extractor.Extract(context.Background(), "b.pdf")

	require.True(t, result.OK())
	require.Equal(t, StrategyOCR, result.Strategy)
	require.Equal(t, "recognized document", result.Text)
	require.NotContains(t, result.Text, "native")
	require.Equal(t, 3, result.FallbackPage)
	require.Equal(t, []string{"b.pdf"}, recognizer.calls)
	// Pages after the missing one are never examined.
	require.Equal(t, []int{0, 1, 2}, doc.read)
	require.True(t, doc.closed)
}

func TestExtractFirstPageMissing(t *testing.T) {
	doc := &fakeDoc{pages: []string{"", ""}, failAt: -1}
	recognizer := &fakeOCR{text: "scanned"}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"scan.pdf": doc}}, recognizer)

	result := extractor.Extract(context.Background(), "scan.pdf")

	require.Equal(t, StrategyOCR, result.Strategy)
	require.Equal(t, "scanned", result.Text)
	require.Equal(t, 1, result.FallbackPage)
}

func TestExtractUnreadableDocumentBecomesDiagnostic(t *testing.T) {
	recognizer := &fakeOCR{}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{}}, recognizer)

	result := extractor.Extract(context.Background(), "corrupt.pdf")

	require.False(t, result.OK())
	require.Equal(t, StrategyFailed, result.Strategy)
	require.Equal(t, docerr.KindDocumentRead, docerr.KindOf(result.Err))
	require.Contains(t, result.Content(), "Error processing PDF:")
	require.Contains(t, result.Content(), "not a PDF file")
	require.Empty(t, recognizer.calls)
}

func TestExtractPageReadErrorBecomesDiagnostic(t *testing.T) {
	doc := &fakeDoc{pages: []string{"fine", "broken"}, failAt: 1}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"c.pdf": doc}}, &fakeOCR{})

	result := extractor.Extract(context.Background(), "c.pdf")

	require.Equal(t, StrategyFailed, result.Strategy)
	require.ErrorIs(t, result.Err, docerr.ErrDocumentRead)
	require.Empty(t, result.Text)
	require.True(t, doc.closed)
}

func TestExtractOCRFailureBecomesDiagnostic(t *testing.T) {
	doc := &fakeDoc{pages: []string{"native", ""}, failAt: -1}
	recognizer := &fakeOCR{err: ocr.NewPageError("recognizePage", 0, ocr.ErrOCRFailed, "engine crashed")}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"d.pdf": doc}}, recognizer)

	result := extractor.Extract(context.Background(), "d.pdf")

	require.Equal(t, StrategyFailed, result.Strategy)
	require.ErrorIs(t, result.Err, docerr.ErrOCR)
	require.ErrorIs(t, result.Err, ocr.ErrOCRFailed)
	require.Contains(t, result.Content(), "Error running OCR:")
	require.NotContains(t, result.Content(), "native")
}

func TestExtractTimeout(t *testing.T) {
	doc := &fakeDoc{pages: []string{"a", "b"}, failAt: -1, delay: 50 * time.Millisecond}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"e.pdf": doc}}, &fakeOCR{}, WithTimeout(5*time.Millisecond))

	result := extractor.Extract(context.Background(), "e.pdf")

	require.Equal(t, StrategyFailed, result.Strategy)
	require.ErrorIs(t, result.Err, context.DeadlineExceeded)
	require.Equal(t, []int{0}, doc.read)
}

func TestExtractEmptyDocument(t *testing.T) {
	doc := &fakeDoc{failAt: -1}
	recognizer := &fakeOCR{}
	extractor := NewExtractor(&fakeOpener{docs: map[string]*fakeDoc{"empty.pdf": doc}}, recognizer)

	result := extractor.Extract(context.Background(), "empty.pdf")

	require.Equal(t, StrategyNative, result.Strategy)
	require.Empty(t, result.Text)
	require.Empty(t, recognizer.calls)
}
