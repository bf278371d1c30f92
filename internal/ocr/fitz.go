package ocr

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct {
	// DPI overrides MuPDF's default resolution when greater than zero.
	DPI float64
}

// NewFitzRasterizer creates a MuPDF rasterizer. A dpi of 0 keeps the library default.
func NewFitzRasterizer(dpi float64) *FitzRasterizer {
	return &FitzRasterizer{DPI: dpi}
}

// Open opens the PDF at path for rendering.
func (r *FitzRasterizer) Open(path string) (Pages, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &fitzPages{doc: doc, dpi: r.DPI}, nil
}

type fitzPages struct {
	doc *fitz.Document
	dpi float64
}

func (p *fitzPages) NumPage() int {
	return p.doc.NumPage()
}

func (p *fitzPages) Image(index int) (image.Image, error) {
	if p.dpi > 0 {
		return p.doc.ImageDPI(index, p.dpi)
	}
	return p.doc.Image(index)
}

func (p *fitzPages) Close() error {
	return p.doc.Close()
}
