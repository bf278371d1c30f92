package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"pdfdigest/internal/archive"
	"pdfdigest/internal/batch"
	"pdfdigest/internal/config"
	"pdfdigest/internal/extract"
	"pdfdigest/internal/ocr"
	"pdfdigest/internal/pdftext"
	"pdfdigest/internal/summary"
)

// pipeline bundles the long-lived collaborators of one command run. They are
// created once here and passed down explicitly.
type pipeline struct {
	extractor  *extract.Extractor
	summarizer *summary.Service
	closeOCR   func() error
}

// Close releases the OCR engine.
func (p *pipeline) Close() error {
	if p.closeOCR == nil {
		return nil
	}
	return p.closeOCR()
}

func (p *pipeline) orchestrator() *batch.Orchestrator {
	var summarizer batch.Summarizer
	if p.summarizer != nil {
		summarizer = p.summarizer
	}
	return batch.NewOrchestrator(archive.NewProcessor(p.extractor), summarizer)
}

// newPipeline builds the document extractor and, when withSummary is set, the
// summarizer and its language model client.
func newPipeline(ctx context.Context, cfg *config.Config, withSummary bool, log zerolog.Logger) (*pipeline, error) {
	extractor, closeOCR, err := newDocumentExtractor(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	p := &pipeline{extractor: extractor, closeOCR: closeOCR}
	if !withSummary {
		return p, nil
	}

	p.summarizer, err = newSummarizer(cfg, log)
	if err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// newDocumentExtractor wires the native text reader and the configured OCR
// engine into a document extractor.
func newDocumentExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Extractor, func() error, error) {
	engine, closeEngine, err := ocr.NewEngine(ctx, cfg.OCREngine, cfg.OCRLanguages)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials validation failed")
			return nil, nil, fmt.Errorf("Google Cloud credentials validation failed. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON\n\n" +
				"3. Or use the local engine: OCR_ENGINE=tesseract\n\n" +
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Str("engine", cfg.OCREngine).
			Msg("Failed to create OCR engine")
		return nil, nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	log.Debug().
		Str("engine", engine.Name()).
		Strs("languages", cfg.OCRLanguages).
		Float64("dpi", cfg.OCRDPI).
		Dur("document_timeout", cfg.DocumentTimeout).
		Msg("Document extractor created")

	ocrExtractor := ocr.NewExtractor(ocr.NewFitzRasterizer(cfg.OCRDPI), engine)
	return extract.NewExtractor(pdftext.NewReader(), ocrExtractor, extract.WithTimeout(cfg.DocumentTimeout)), closeEngine, nil
}

// newSummarizer creates the language model client and the summary service.
func newSummarizer(cfg *config.Config, log zerolog.Logger) (*summary.Service, error) {
	llm, err := summary.NewLLM(cfg.GetLLMConfig())
	if err != nil {
		log.Error().
			Err(err).
			Str("provider", cfg.LLMProvider).
			Msg("Failed to create LLM client")
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	log.Debug().
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.LLMModel).
		Bool("translate", cfg.SummaryTranslate).
		Msg("Summarizer created")

	return summary.NewService(llm, cfg.GetSummaryConfig()), nil
}

// createContextWithTimeout creates a context canceled on SIGINT/SIGTERM and,
// when timeoutSecs > 0, after the timeout.
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeoutSecs > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// flagOrString returns the flag value when it was set, otherwise fallback.
func flagOrString(flags *pflag.FlagSet, name, fallback string) string {
	if flags.Changed(name) {
		value, _ := flags.GetString(name)
		return value
	}
	return fallback
}

// flagOrBool returns the flag value when it was set, otherwise fallback.
func flagOrBool(flags *pflag.FlagSet, name string, fallback bool) bool {
	if flags.Changed(name) {
		value, _ := flags.GetBool(name)
		return value
	}
	return fallback
}
