package archive

import (
	"fmt"
	"strings"

	"pdfdigest/internal/docerr"
	"pdfdigest/internal/extract"
)

// Entry is the outcome for one document found in the archive.
type Entry struct {
	// Document is the extracted PDF path.
	Document string `json:"document"`

	// Artifact is the written .txt path. Empty when the write failed.
	Artifact string `json:"artifact,omitempty"`

	// Strategy is how the text was obtained.
	Strategy extract.Strategy `json:"strategy"`

	// Err is the document's extraction or filesystem failure, if any.
	Err error `json:"-"`
}

// Line renders the entry's status line.
func (e Entry) Line() string {
	switch {
	case e.Artifact == "":
		return fmt.Sprintf("Failed: %s: %v", e.Document, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("Processed with errors: %s (%v)", e.Artifact, e.Err)
	default:
		return fmt.Sprintf("Processed: %s", e.Artifact)
	}
}

// Report is the status report for one archive. It is built by Processor and
// not modified afterwards.
type Report struct {
	archive   string
	outputDir string
	entries   []Entry
	err       error
}

// Archive returns the archive path.
func (r *Report) Archive() string { return r.archive }

// OutputDir returns the directory the archive was extracted into.
func (r *Report) OutputDir() string { return r.outputDir }

// Err returns the archive-level failure, if any. Per-document failures are
// reported on their entries instead.
func (r *Report) Err() error { return r.err }

// Failed reports whether the archive as a whole could not be processed.
func (r *Report) Failed() bool { return r.err != nil }

// Entries returns a copy of the per-document entries in processing order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// FailedDocuments counts entries that carry an error.
func (r *Report) FailedDocuments() int {
	n := 0
	for _, e := range r.entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// Lines renders the report: a header line followed by one line per document.
// An archive-level failure is rendered as a single diagnostic line.
func (r *Report) Lines() []string {
	if r.err != nil {
		return []string{fmt.Sprintf("Error processing ZIP %s: %v", r.archive, r.err)}
	}

	lines := make([]string, 0, len(r.entries)+1)
	lines = append(lines, fmt.Sprintf("Files processed in: %s", r.outputDir))
	for _, e := range r.entries {
		lines = append(lines, e.Line())
	}
	return lines
}

// String implements fmt.Stringer.
func (r *Report) String() string {
	return strings.Join(r.Lines(), "\n")
}

// Kind returns the archive-level failure kind, or docerr.KindUnknown.
func (r *Report) Kind() docerr.Kind {
	return docerr.KindOf(r.err)
}
