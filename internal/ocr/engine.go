package ocr

import (
	"context"
	"fmt"
	"strings"
)

// NewEngine creates the engine named by OCR_ENGINE ("tesseract" or "vision").
// The returned close function releases engine resources and is never nil.
func NewEngine(ctx context.Context, name string, languages []string) (Engine, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "tesseract":
		return NewTesseractEngine(languages...), func() error { return nil }, nil
	case "vision":
		engine, err := NewVisionEngine(ctx, languages...)
		if err != nil {
			return nil, nil, err
		}
		return engine, engine.Close, nil
	default:
		return nil, nil, NewOCRError("NewEngine", ErrUnknownEngine, fmt.Sprintf("engine %q (use tesseract or vision)", name))
	}
}
