// Package batch drives a folder of ZIP archives through the archive
// processor and the summarizer, one archive at a time.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"pdfdigest/internal/archive"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/logger"
	"pdfdigest/internal/summary"
)

const zipExt = ".zip"

// ArchiveProcessor converts one archive into text artifacts.
type ArchiveProcessor interface {
	Process(ctx context.Context, archivePath, outputDir string, keepSourcePDFs bool) *archive.Report
}

// Summarizer condenses the artifacts of one archive directory.
type Summarizer interface {
	Summarize(ctx context.Context, dir, instruction string) (*summary.Result, error)
}

// Outcome is what happened to one archive of the batch.
type Outcome struct {
	// Archive is the ZIP file path.
	Archive string

	// OutputDir is the archive's own output subdirectory.
	OutputDir string

	// Report is the archive processor's status report.
	Report *archive.Report

	// Summary is the written summary. Nil when summarization was skipped or failed.
	Summary *summary.Result

	// SummaryErr is the summarizer failure, if any.
	SummaryErr error
}

// Failed reports whether any stage of the archive failed.
func (o Outcome) Failed() bool {
	return o.Report.Failed() || o.SummaryErr != nil
}

// Lines renders the archive's report followed by its summary line.
func (o Outcome) Lines() []string {
	lines := o.Report.Lines()
	switch {
	case o.SummaryErr != nil:
		lines = append(lines, fmt.Sprintf("Error generating summary: %v", o.SummaryErr))
	case o.Summary != nil:
		lines = append(lines, o.Summary.Line())
	}
	return lines
}

// Orchestrator runs batches.
type Orchestrator struct {
	processor  ArchiveProcessor
	summarizer Summarizer
	log        zerolog.Logger
}

// NewOrchestrator creates an orchestrator. A nil summarizer disables the
// summary stage.
func NewOrchestrator(processor ArchiveProcessor, summarizer Summarizer) *Orchestrator {
	return &Orchestrator{
		processor:  processor,
		summarizer: summarizer,
		log:        logger.WithComponent("batch"),
	}
}

// ProcessAll processes every archive directly inside inputDir, in directory
// listing order, each into outputDir/<archive base name>. One failing archive
// never stops the others. The returned error covers only setup failures: the
// output directory cannot be created or inputDir cannot be listed.
func (o *Orchestrator) ProcessAll(ctx context.Context, inputDir, outputDir string, keepSourcePDFs bool, summaryPrompt string) ([]Outcome, error) {
	const op = "ProcessAll"
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := logger.WithRun("batch", runID)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, docerr.New(docerr.KindFilesystem, op, outputDir, err)
	}

	archives, err := ListArchives(inputDir)
	if err != nil {
		return nil, docerr.New(docerr.KindFilesystem, op, inputDir, err)
	}

	log.Info().
		Str("input_dir", inputDir).
		Str("output_dir", outputDir).
		Int("archives", len(archives)).
		Msg("Starting batch")

	outcomes := make([]Outcome, 0, len(archives))
	for i, archivePath := range archives {
		log.Info().
			Str("archive", archivePath).
			Int("index", i+1).
			Int("total", len(archives)).
			Msg("Processing archive")

		outcome := o.ProcessOne(ctx, archivePath, ArchiveOutputDir(outputDir, archivePath), keepSourcePDFs, summaryPrompt)
		outcomes = append(outcomes, outcome)
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed++
		}
	}
	log.Info().
		Int("archives", len(outcomes)).
		Int("failed", failed).
		Dur("duration", time.Since(startTime)).
		Msg("Batch finished")

	return outcomes, nil
}

// ProcessOne processes a single archive into archiveOutputDir and summarizes
// the result. Summarization is skipped when the archive itself failed.
func (o *Orchestrator) ProcessOne(ctx context.Context, archivePath, archiveOutputDir string, keepSourcePDFs bool, summaryPrompt string) Outcome {
	log := logger.ForContext(ctx, o.log)
	outcome := Outcome{
		Archive:   archivePath,
		OutputDir: archiveOutputDir,
		Report:    o.processor.Process(ctx, archivePath, archiveOutputDir, keepSourcePDFs),
	}
	if outcome.Report.Failed() || o.summarizer == nil {
		return outcome
	}

	outcome.Summary, outcome.SummaryErr = o.summarizer.Summarize(ctx, archiveOutputDir, summaryPrompt)
	if outcome.SummaryErr != nil {
		log.Error().
			Err(outcome.SummaryErr).
			Str("archive", archivePath).
			Msg("Summary failed")
	}
	return outcome
}

// ListArchives returns the regular files directly inside dir whose names end
// in ".zip", in the order os.ReadDir returns them. Subdirectories are not
// searched.
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), zipExt) {
			continue
		}
		archives = append(archives, filepath.Join(dir, entry.Name()))
	}
	return archives, nil
}

// ArchiveOutputDir names the output subdirectory for archivePath after the
// archive's base name without extension.
func ArchiveOutputDir(outputDir, archivePath string) string {
	base := filepath.Base(archivePath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base)))
}
