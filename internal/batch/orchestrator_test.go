package batch

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pdfdigest/internal/archive"
	"pdfdigest/internal/docerr"
	"pdfdigest/internal/extract"
	"pdfdigest/internal/logger"
	"pdfdigest/internal/summary"
)

// textExtractor returns the fixture file's bytes as native text.
type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, path string) extract.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{Path: path, Strategy: extract.StrategyFailed, Err: docerr.New(docerr.KindDocumentRead, "Open", path, err)}
	}
	return extract.Result{Path: path, Strategy: extract.StrategyNative, Text: string(data), Pages: 1}
}

type recordingSummarizer struct {
	dirs []string
	err  error
}

func (s *recordingSummarizer) Summarize(ctx context.Context, dir, instruction string) (*summary.Result, error) {
	s.dirs = append(s.dirs, dir)
	if s.err != nil {
		return nil, docerr.New(docerr.KindSummary, "Summarize", dir, s.err)
	}
	return &summary.Result{Path: filepath.Join(dir, summary.DefaultOutputName), Summary: instruction}, nil
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func newTestOrchestrator(summarizer Summarizer) *Orchestrator {
	return NewOrchestrator(archive.NewProcessor(textExtractor{}), summarizer)
}

func TestProcessAllIsolatesCorruptArchive(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	out := filepath.Join(tmp, "out")
	require.NoError(t, os.MkdirAll(in, 0o755))

	writeZip(t, filepath.Join(in, "one.zip"), map[string]string{"a.pdf": "first"})
	require.NoError(t, os.WriteFile(filepath.Join(in, "two.zip"), []byte("corrupt"), 0o644))
	writeZip(t, filepath.Join(in, "three.zip"), map[string]string{"b.pdf": "third"})

	summarizer := &recordingSummarizer{}
	outcomes, err := newTestOrchestrator(summarizer).ProcessAll(context.Background(), in, out, false, "Summarize:")

	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed++
			require.Equal(t, docerr.KindArchive, outcome.Report.Kind())
			require.Nil(t, outcome.Summary)
		}
	}
	require.Equal(t, 1, failed)

	require.FileExists(t, filepath.Join(out, "one", "a.txt"))
	require.FileExists(t, filepath.Join(out, "three", "b.txt"))
	require.DirExists(t, filepath.Join(out, "two"))
	require.ElementsMatch(t, []string{filepath.Join(out, "one"), filepath.Join(out, "three")}, summarizer.dirs)
}

func TestProcessAllSkipsNonArchivesAndSubdirectories(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	out := filepath.Join(tmp, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "nested"), 0o755))

	writeZip(t, filepath.Join(in, "docs.zip"), map[string]string{"a.pdf": "text"})
	writeZip(t, filepath.Join(in, "nested", "deep.zip"), map[string]string{"b.pdf": "text"})
	writeZip(t, filepath.Join(in, "upper.ZIP"), map[string]string{"c.pdf": "text"})
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), []byte("notes"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(in, "folder.zip"), 0o755))

	outcomes, err := newTestOrchestrator(nil).ProcessAll(context.Background(), in, out, true, "")

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, filepath.Join(in, "docs.zip"), outcomes[0].Archive)
	require.Equal(t, filepath.Join(out, "docs"), outcomes[0].OutputDir)
	require.Nil(t, outcomes[0].Summary)
	require.NoDirExists(t, filepath.Join(out, "deep"))
}

func TestProcessAllReportsSummaryFailure(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeZip(t, filepath.Join(in, "docs.zip"), map[string]string{"a.pdf": "text"})

	summarizer := &recordingSummarizer{err: errors.New("model unavailable")}
	outcomes, err := newTestOrchestrator(summarizer).ProcessAll(context.Background(), in, filepath.Join(tmp, "out"), true, "Summarize:")

	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.True(t, outcomes[0].Failed())
	require.False(t, outcomes[0].Report.Failed())
	require.ErrorIs(t, outcomes[0].SummaryErr, docerr.ErrSummary)

	lines := outcomes[0].Lines()
	require.Contains(t, lines[len(lines)-1], "Error generating summary")
}

func TestProcessAllMissingInputDir(t *testing.T) {
	tmp := t.TempDir()

	_, err := newTestOrchestrator(nil).ProcessAll(context.Background(), filepath.Join(tmp, "missing"), filepath.Join(tmp, "out"), true, "")

	require.ErrorIs(t, err, docerr.ErrFilesystem)
	require.DirExists(t, filepath.Join(tmp, "out"))
}

func TestOutcomeLinesIncludeSummary(t *testing.T) {
	tmp := t.TempDir()
	zipPath := filepath.Join(tmp, "docs.zip")
	writeZip(t, zipPath, map[string]string{"a.pdf": "text"})

	outcome := newTestOrchestrator(&recordingSummarizer{}).ProcessOne(context.Background(), zipPath, filepath.Join(tmp, "out"), true, "Summarize:")

	require.Equal(t, []string{
		"Files processed in: " + filepath.Join(tmp, "out"),
		"Processed: " + filepath.Join(tmp, "out", "a.txt"),
		"Summary written to: " + filepath.Join(tmp, "out", summary.DefaultOutputName),
	}, outcome.Lines())
}

func TestArchiveOutputDir(t *testing.T) {
	require.Equal(t, filepath.Join("out", "ordinances-2024"), ArchiveOutputDir("out", filepath.Join("in", "ordinances-2024.zip")))
	require.Equal(t, filepath.Join("out", "v1.2"), ArchiveOutputDir("out", "v1.2.zip"))
}

// runRecorder records the run ID each archive is processed under.
type runRecorder struct {
	runIDs []string
}

func (r *runRecorder) Process(ctx context.Context, archivePath, outputDir string, keepSourcePDFs bool) *archive.Report {
	r.runIDs = append(r.runIDs, logger.RunID(ctx))
	return archive.NewProcessor(textExtractor{}).Process(ctx, archivePath, outputDir, keepSourcePDFs)
}

func TestProcessAllPropagatesRunID(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	require.NoError(t, os.MkdirAll(in, 0o755))
	writeZip(t, filepath.Join(in, "one.zip"), map[string]string{"a.pdf": "first"})
	writeZip(t, filepath.Join(in, "two.zip"), map[string]string{"b.pdf": "second"})

	recorder := &runRecorder{}
	_, err := NewOrchestrator(recorder, nil).ProcessAll(context.Background(), in, filepath.Join(tmp, "out"), true, "")

	require.NoError(t, err)
	require.Len(t, recorder.runIDs, 2)
	require.NotEmpty(t, recorder.runIDs[0])
	require.Equal(t, recorder.runIDs[0], recorder.runIDs[1])
}
