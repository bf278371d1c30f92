package docerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedError(t *testing.T) {
	base := New(KindOCR, "Recognize", "/tmp/a.pdf", errors.New("engine crashed"))
	wrapped := fmt.Errorf("extract: %w", base)

	require.Equal(t, KindOCR, KindOf(wrapped))
	require.ErrorIs(t, wrapped, ErrOCR)
	require.NotErrorIs(t, wrapped, ErrDocumentRead)
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	require.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := New(KindArchive, "OpenArchive", "x.zip", errors.New("not a zip"))

	err := Wrap(KindFilesystem, "Process", "", fmt.Errorf("outer: %w", inner))
	require.Equal(t, KindArchive, KindOf(err))

	require.NoError(t, Wrap(KindFilesystem, "Process", "", nil))
}

func TestErrorMessage(t *testing.T) {
	err := New(KindDocumentRead, "Open", "docs/a.pdf", errors.New("malformed xref"))
	require.Equal(t, "document_read: Open docs/a.pdf: malformed xref", err.Error())

	err = New(KindSummary, "Summarize", "", errors.New("timeout"))
	require.Equal(t, "summary: Summarize: timeout", err.Error())
}
