package migrate

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	journaledProjectTestConstant     = "legacy/team/service"
	journaledDestinationTestConstant = "https://dest.example.com/imported/team/service.git"
	journaledFailureTestConstant     = "mirror push rejected"
)

func TestNewJournalRequiresWriters(testInstance *testing.T) {
	_, creationError := NewJournal(nil, nil)
	require.ErrorIs(testInstance, creationError, ErrJournalWritersMissing)

	_, creationError = NewJournal(&bytes.Buffer{}, nil)
	require.ErrorIs(testInstance, creationError, ErrJournalWritersMissing)
}

func TestJournalRecordsOutcomesWithRunIdentifier(testInstance *testing.T) {
	successBuffer := &bytes.Buffer{}
	failureBuffer := &bytes.Buffer{}

	journal, creationError := NewJournal(successBuffer, failureBuffer)
	require.NoError(testInstance, creationError)
	require.NotEmpty(testInstance, journal.RunIdentifier())

	require.NoError(testInstance, journal.RecordSuccess(journaledProjectTestConstant, journaledDestinationTestConstant))
	require.NoError(testInstance, journal.RecordFailure(journaledProjectTestConstant, errors.New(journaledFailureTestConstant)))

	successLine := successBuffer.String()
	require.Contains(testInstance, successLine, "run="+journal.RunIdentifier())
	require.Contains(testInstance, successLine, "project="+journaledProjectTestConstant)
	require.Contains(testInstance, successLine, "destination="+journaledDestinationTestConstant)
	require.True(testInstance, strings.HasSuffix(successLine, "\n"))

	failureLine := failureBuffer.String()
	require.Contains(testInstance, failureLine, "run="+journal.RunIdentifier())
	require.Contains(testInstance, failureLine, journaledFailureTestConstant)
}

func TestOpenFileJournalWritesJournalFiles(testInstance *testing.T) {
	journalDirectory := filepath.Join(testInstance.TempDir(), "journal")

	fileJournal, creationError := OpenFileJournal(journalDirectory)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, fileJournal.RecordSuccess(journaledProjectTestConstant, journaledDestinationTestConstant))
	require.NoError(testInstance, fileJournal.RecordFailure(journaledProjectTestConstant, errors.New(journaledFailureTestConstant)))
	require.NoError(testInstance, fileJournal.Close())

	successContents, successReadError := os.ReadFile(filepath.Join(journalDirectory, successJournalFileNameConstant))
	require.NoError(testInstance, successReadError)
	require.Contains(testInstance, string(successContents), journaledProjectTestConstant)

	failureContents, failureReadError := os.ReadFile(filepath.Join(journalDirectory, failureJournalFileNameConstant))
	require.NoError(testInstance, failureReadError)
	require.Contains(testInstance, string(failureContents), journaledFailureTestConstant)
}
