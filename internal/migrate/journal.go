package migrate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/glim/internal/utils"
)

const (
	successJournalFileNameConstant       = "migration-success.log"
	failureJournalFileNameConstant       = "migration-errors.log"
	journalFilePermissionsConstant       = 0o644
	journalDirectoryPermissionsConstant  = 0o755
	journalTimestampLayoutConstant       = time.RFC3339
	successJournalLineTemplateConstant   = "%s run=%s project=%s destination=%s\n"
	failureJournalLineTemplateConstant   = "%s run=%s project=%s error=%q\n"
	journalWritersMissingMessageConstant = "journal writers not configured"
)

// ErrJournalWritersMissing indicates a journal was constructed without writers.
var ErrJournalWritersMissing = errors.New(journalWritersMissingMessageConstant)

// Journal records per-project migration outcomes to success and failure logs.
//
// Every line carries the run identifier so interleaved runs against the same
// journal directory remain distinguishable.
type Journal struct {
	runIdentifier string
	successWriter io.Writer
	failureWriter io.Writer
	clock         func() time.Time
	mutex         sync.Mutex
}

// NewJournal constructs a Journal emitting to the supplied writers with a fresh run identifier.
func NewJournal(successWriter io.Writer, failureWriter io.Writer) (*Journal, error) {
	if successWriter == nil || failureWriter == nil {
		return nil, ErrJournalWritersMissing
	}

	return &Journal{
		runIdentifier: uuid.NewString(),
		successWriter: successWriter,
		failureWriter: failureWriter,
		clock:         time.Now,
	}, nil
}

// RunIdentifier exposes the identifier stamped on every journal line.
func (journal *Journal) RunIdentifier() string {
	return journal.runIdentifier
}

// RecordSuccess appends a success line for the migrated project.
func (journal *Journal) RecordSuccess(projectPath string, destinationURL string) error {
	journal.mutex.Lock()
	defer journal.mutex.Unlock()

	line := fmt.Sprintf(
		successJournalLineTemplateConstant,
		journal.clock().Format(journalTimestampLayoutConstant),
		journal.runIdentifier,
		projectPath,
		destinationURL,
	)
	_, writeError := io.WriteString(journal.successWriter, line)
	return writeError
}

// RecordFailure appends a failure line carrying the error text for the project.
func (journal *Journal) RecordFailure(projectPath string, failure error) error {
	journal.mutex.Lock()
	defer journal.mutex.Unlock()

	failureText := ""
	if failure != nil {
		failureText = failure.Error()
	}

	line := fmt.Sprintf(
		failureJournalLineTemplateConstant,
		journal.clock().Format(journalTimestampLayoutConstant),
		journal.runIdentifier,
		projectPath,
		failureText,
	)
	_, writeError := io.WriteString(journal.failureWriter, line)
	return writeError
}

// FileJournal couples a Journal with the files backing it.
type FileJournal struct {
	*Journal
	successFile *os.File
	failureFile *os.File
}

// OpenFileJournal creates (or appends to) the success and failure logs inside the directory.
func OpenFileJournal(journalDirectory string) (*FileJournal, error) {
	if mkdirError := os.MkdirAll(journalDirectory, journalDirectoryPermissionsConstant); mkdirError != nil {
		return nil, mkdirError
	}

	successFile, successOpenError := os.OpenFile(
		filepath.Join(journalDirectory, successJournalFileNameConstant),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		journalFilePermissionsConstant,
	)
	if successOpenError != nil {
		return nil, successOpenError
	}

	failureFile, failureOpenError := os.OpenFile(
		filepath.Join(journalDirectory, failureJournalFileNameConstant),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		journalFilePermissionsConstant,
	)
	if failureOpenError != nil {
		_ = successFile.Close()
		return nil, failureOpenError
	}

	journal, journalError := NewJournal(
		utils.NewFlushingWriter(bufio.NewWriter(successFile)),
		utils.NewFlushingWriter(bufio.NewWriter(failureFile)),
	)
	if journalError != nil {
		_ = successFile.Close()
		_ = failureFile.Close()
		return nil, journalError
	}

	return &FileJournal{
		Journal:     journal,
		successFile: successFile,
		failureFile: failureFile,
	}, nil
}

// Close releases the underlying journal files.
func (fileJournal *FileJournal) Close() error {
	return errors.Join(fileJournal.successFile.Close(), fileJournal.failureFile.Close())
}
