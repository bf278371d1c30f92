// Package archive unpacks ZIP archives of PDFs and materializes one text
// artifact per document.
//
// Artifacts are written flat into the output directory as <base-name>.txt,
// whatever subfolder the PDF came from. Two documents sharing a base name
// therefore collide, and the one processed last (lexical walk order) wins.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/extract"
	"pdfdigest/internal/logger"
)

const (
	pdfExt      = ".pdf"
	artifactExt = ".txt"
)

// DocumentExtractor produces the text for one PDF.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) extract.Result
}

// Processor handles one archive at a time.
type Processor struct {
	extractor DocumentExtractor
	log       zerolog.Logger
}

// NewProcessor creates an archive processor.
func NewProcessor(extractor DocumentExtractor) *Processor {
	return &Processor{
		extractor: extractor,
		log:       logger.WithComponent("archive"),
	}
}

// Process extracts archivePath into outputDir, converts every PDF found there
// and returns the status report. It never returns an error: archive-level
// failures are carried by the report.
func (p *Processor) Process(ctx context.Context, archivePath, outputDir string, keepSourcePDFs bool) *Report {
	log := logger.ForContext(ctx, p.log)
	startTime := time.Now()
	report := &Report{archive: archivePath, outputDir: outputDir}

	log.Info().
		Str("archive", archivePath).
		Str("output_dir", outputDir).
		Bool("keep_source_pdfs", keepSourcePDFs).
		Msg("Processing archive")

	if err := ctx.Err(); err != nil {
		report.err = docerr.New(docerr.KindArchive, "Process", archivePath, err)
		logFailure(log, report)
		return report
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		report.err = docerr.New(docerr.KindFilesystem, "CreateOutputDir", outputDir, err)
		logFailure(log, report)
		return report
	}

	if err := unzip(archivePath, outputDir); err != nil {
		report.err = err
		logFailure(log, report)
		return report
	}

	documents, err := findPDFs(outputDir)
	if err != nil {
		report.err = docerr.New(docerr.KindFilesystem, "FindDocuments", outputDir, err)
		logFailure(log, report)
		return report
	}

	for _, doc := range documents {
		if err := ctx.Err(); err != nil {
			report.entries = append(report.entries, skippedEntry(doc, err))
			continue
		}
		report.entries = append(report.entries, p.processDocument(ctx, doc, outputDir, keepSourcePDFs))
	}

	log.Info().
		Str("archive", archivePath).
		Int("documents", len(report.entries)).
		Int("failed", report.FailedDocuments()).
		Dur("duration", time.Since(startTime)).
		Msg("Archive processed")

	return report
}

func (p *Processor) processDocument(ctx context.Context, docPath, outputDir string, keepSourcePDFs bool) Entry {
	log := logger.ForContext(ctx, p.log)
	result := p.extractor.Extract(ctx, docPath)

	// A failure caused by cancellation says nothing about the document. The
	// previous artifact and the source PDF are left as they were.
	if err := ctx.Err(); err != nil && !result.OK() {
		log.Warn().Err(err).Str("file", docPath).Msg("Run canceled, document skipped")
		return skippedEntry(docPath, err)
	}

	entry := Entry{
		Document: docPath,
		Strategy: result.Strategy,
		Err:      result.Err,
	}

	artifact := ArtifactPath(outputDir, docPath)
	if err := writeArtifact(artifact, result.Content()); err != nil {
		entry.Err = docerr.New(docerr.KindFilesystem, "WriteArtifact", artifact, err)
		log.Error().Err(entry.Err).Str("file", docPath).Msg("Failed to write artifact")
		return entry
	}
	entry.Artifact = artifact

	if !keepSourcePDFs {
		if err := os.Remove(docPath); err != nil {
			rmErr := docerr.New(docerr.KindFilesystem, "RemoveSource", docPath, err)
			log.Warn().Err(rmErr).Msg("Failed to delete source PDF")
			if entry.Err == nil {
				entry.Err = rmErr
			}
		}
	}

	return entry
}

func logFailure(log zerolog.Logger, report *Report) {
	log.Error().
		Err(report.err).
		Str("kind", report.Kind().String()).
		Str("archive", report.archive).
		Msg("Archive processing failed")
}

// skippedEntry records a document that was not processed because the run
// was canceled. It has no artifact, so it renders as a failure.
func skippedEntry(docPath string, err error) Entry {
	return Entry{
		Document: docPath,
		Strategy: extract.StrategyFailed,
		Err:      docerr.New(docerr.KindDocumentRead, "Process", docPath, err),
	}
}

// ArtifactPath returns where the text for docPath is written: directly under
// outputDir, named after the document with its extension swapped for .txt.
func ArtifactPath(outputDir, docPath string) string {
	base := filepath.Base(docPath)
	return filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+artifactExt)
}

// findPDFs walks root in lexical order for files ending in ".pdf". The match
// is case-sensitive.
func findPDFs(root string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), pdfExt) {
			docs = append(docs, path)
		}
		return nil
	})
	return docs, err
}

// writeArtifact replaces path with content through a temporary file, so a
// failed write never leaves a truncated artifact behind.
func writeArtifact(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// unzip extracts every entry of archivePath under dir. Entries escaping dir
// fail the whole archive before anything is written.
func unzip(archivePath, dir string) error {
	const op = "ExtractArchive"

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return docerr.New(docerr.KindArchive, op, archivePath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return docerr.New(docerr.KindFilesystem, op, dir, err)
	}

	targets := make([]string, len(r.File))
	for i, f := range r.File {
		target, err := entryTarget(root, f.Name)
		if err != nil {
			return docerr.New(docerr.KindArchive, op, archivePath, err)
		}
		targets[i] = target
	}

	for i, f := range r.File {
		if err := extractEntry(f, targets[i]); err != nil {
			kind := docerr.KindFilesystem
			if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) || errors.Is(err, io.ErrUnexpectedEOF) {
				kind = docerr.KindArchive
			}
			return docerr.New(kind, op, archivePath, fmt.Errorf("%s: %w", f.Name, err))
		}
	}
	return nil
}

func entryTarget(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return target, nil
}

func extractEntry(f *zip.File, target string) error {
	mode := f.Mode()
	switch {
	case mode.IsDir():
		return os.MkdirAll(target, 0o755)
	case mode&os.ModeSymlink != 0:
		// Symlinks are not followed or recreated.
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
