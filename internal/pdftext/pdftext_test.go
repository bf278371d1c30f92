package pdftext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
	"pdfdigest/internal/docerr"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := NewReader().Open(filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	require.ErrorIs(t, err, docerr.ErrDocumentRead)
}

func TestOpenGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf at all"), 0o644))

	_, err := NewReader().Open(path)

	require.Error(t, err)
	require.Equal(t, docerr.KindDocumentRead, docerr.KindOf(err))
}

func TestPageCountGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0o644))

	_, err := PageCount(path)

	require.ErrorIs(t, err, docerr.ErrDocumentRead)
}

// buildPDF writes a minimal PDF with one page per entry of pages. An empty
// entry produces a page with an empty content stream.
func buildPDF(t *testing.T, pages ...string) string {
	t.Helper()

	fontObj := 3 + 2*len(pages)
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), len(pages)),
	}
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontObj, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestPageTextReportsPresentAndAbsentPages(t *testing.T) {
	path := buildPDF(t, "Hello world", "", "Third page")

	doc, err := NewReader().Open(path)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 3, doc.NumPage())

	text, ok, err := doc.PageText(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Hello world", strings.TrimSpace(text))

	text, ok, err = doc.PageText(1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, text)

	text, ok, err = doc.PageText(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Third page", strings.TrimSpace(text))

	_, _, err = doc.PageText(3)
	require.ErrorIs(t, err, docerr.ErrDocumentRead)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(buildPDF(t, "Hello world", "", "Third page"))

	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestOpenClosesFileWhenParserPanics(t *testing.T) {
	path := buildPDF(t, "Hello world")

	var opened *os.File
	openFile = func(name string) (*os.File, error) {
		f, err := os.Open(name)
		opened = f
		return f, err
	}
	newPDFReader = func(io.ReaderAt, int64) (*pdf.Reader, error) {
		panic("malformed xref")
	}
	t.Cleanup(func() {
		openFile = os.Open
		newPDFReader = pdf.NewReader
	})

	_, err := NewReader().Open(path)

	require.ErrorIs(t, err, docerr.ErrDocumentRead)
	require.ErrorContains(t, err, "parser panic")
	require.NotNil(t, opened)
	require.ErrorIs(t, opened.Close(), os.ErrClosed)
}
