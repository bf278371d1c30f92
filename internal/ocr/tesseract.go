package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes page images with a local Tesseract installation.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine creates a Tesseract engine. Empty languages keep
// Tesseract's default ("eng").
func NewTesseractEngine(languages ...string) *TesseractEngine {
	return &TesseractEngine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

// Name implements Engine.
func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize implements Engine. A fresh client is used per image so no state
// leaks between pages.
func (e *TesseractEngine) Recognize(ctx context.Context, pngData []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
