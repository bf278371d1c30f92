// Package summary condenses the text artifacts of one archive into a single
// summary file using a language model.
//
// All .txt files under the directory are concatenated, sent to the model
// together with a caller-supplied instruction, optionally translated with a
// second model call, and written to resumen_final.txt in the same directory.
package summary

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/logger"
)

// DefaultOutputName is the summary file written into each archive directory.
const DefaultOutputName = "resumen_final.txt"

// LLM is a synchronous text-to-text language model call.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config configures the summary service.
type Config struct {
	// Translate enables the second, translation call.
	Translate bool

	// Language is the translation target, e.g. "Spanish".
	Language string

	// OutputName is the summary file name. Default: resumen_final.txt.
	OutputName string
}

// DefaultConfig translates the summary to Spanish and writes resumen_final.txt.
func DefaultConfig() Config {
	return Config{
		Translate:  true,
		Language:   "Spanish",
		OutputName: DefaultOutputName,
	}
}

// Result describes a written summary.
type Result struct {
	// Path is the written summary file.
	Path string `json:"path"`

	// Sources is the number of text artifacts that were combined.
	Sources int `json:"sources"`

	// InputLength is the length of the combined text in bytes.
	InputLength int `json:"input_length"`

	// Summary is the final (possibly translated) text.
	Summary string `json:"summary"`

	// Translated reports whether the translation call ran.
	Translated bool `json:"translated"`

	// Duration is the total time spent.
	Duration time.Duration `json:"duration"`
}

// Line renders the user-facing outcome.
func (r *Result) Line() string {
	return fmt.Sprintf("Summary written to: %s", r.Path)
}

// Service produces archive summaries.
type Service struct {
	llm    LLM
	config Config
	log    zerolog.Logger
}

// NewService creates a summary service around an LLM owned by the caller.
func NewService(llm LLM, config Config) *Service {
	if config.OutputName == "" {
		config.OutputName = DefaultOutputName
	}
	if config.Language == "" {
		config.Language = "Spanish"
	}
	return &Service{
		llm:    llm,
		config: config,
		log:    logger.WithComponent("summary"),
	}
}

// Summarize combines the text artifacts under dir, asks the model to summarize
// them following instruction, and writes the result into dir.
func (s *Service) Summarize(ctx context.Context, dir, instruction string) (*Result, error) {
	const op = "Summarize"
	log := logger.ForContext(ctx, s.log)
	startTime := time.Now()

	combined, sources, err := s.combine(dir)
	if err != nil {
		return nil, docerr.New(docerr.KindFilesystem, op, dir, err)
	}

	log.Info().
		Str("dir", dir).
		Int("sources", sources).
		Int("input_length", len(combined)).
		Msg("Generating summary")

	summary, err := s.llm.Complete(ctx, BuildSummaryPrompt(instruction, combined))
	if err != nil {
		return nil, docerr.New(docerr.KindSummary, op, dir, fmt.Errorf("summarize: %w", err))
	}

	result := &Result{
		Sources:     sources,
		InputLength: len(combined),
		Summary:     summary,
	}

	if s.config.Translate {
		translated, err := s.llm.Complete(ctx, BuildTranslationPrompt(s.config.Language, summary))
		if err != nil {
			return nil, docerr.New(docerr.KindSummary, op, dir, fmt.Errorf("translate: %w", err))
		}
		result.Summary = translated
		result.Translated = true
	}

	result.Path = filepath.Join(dir, s.config.OutputName)
	if err := os.WriteFile(result.Path, []byte(result.Summary), 0o644); err != nil {
		return nil, docerr.New(docerr.KindFilesystem, op, result.Path, err)
	}
	result.Duration = time.Since(startTime)

	log.Info().
		Str("file", result.Path).
		Int("summary_length", len(result.Summary)).
		Bool("translated", result.Translated).
		Dur("duration", result.Duration).
		Msg("Summary written")

	return result, nil
}

// combine concatenates every .txt under dir in lexical walk order, each
// followed by a newline. A previous summary file is skipped.
func (s *Service) combine(dir string) (string, int, error) {
	var b strings.Builder
	sources := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ".txt") {
			return nil
		}
		if d.Name() == s.config.OutputName && filepath.Dir(path) == filepath.Clean(dir) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		b.Write(data)
		b.WriteString("\n")
		sources++
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return b.String(), sources, nil
}

// BuildSummaryPrompt builds the summarization prompt.
func BuildSummaryPrompt(instruction, text string) string {
	return fmt.Sprintf("%s\nText to summarize:\n%s", instruction, text)
}

// BuildTranslationPrompt builds the translation prompt.
func BuildTranslationPrompt(language, text string) string {
	return fmt.Sprintf("Translate the following text into %s without changing its meaning:\n%s", language, text)
}
