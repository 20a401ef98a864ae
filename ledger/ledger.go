// Package ledger keeps a local, append-only record of completed archive uploads, one CSV file per vault.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-glacier-upload/internal"
)

// Header is the first line of every ledger file.
const Header = "Archive ID,Checksum,Location,Original Filename,Upload Date & Time"

// TimeLayout formats the upload time column.
const TimeLayout = "2006-01-02 15:04:05"

const numColumns = 5

// Record describes one completed upload.
//
// Rows are written as: original filename, archive id, tree hash, location, upload time.
// This does not follow the order of Header. Ledgers written by earlier versions of the tool
// use the same row order, so it is kept for compatibility.
type Record struct {
	OriginalFilename string
	ArchiveID        string
	TreeHash         string
	Location         string
	UploadedAt       time.Time
}

func (r Record) fields() []string {
	return []string{
		r.OriginalFilename,
		r.ArchiveID,
		r.TreeHash,
		r.Location,
		r.UploadedAt.Format(TimeLayout),
	}
}

// FileName returns the ledger file name of a vault.
func FileName(vault string) string {
	return vault + ".csv"
}

// Writer appends records to vault ledgers in a directory.
// It does not lock the files; a single writer process is assumed.
type Writer struct {
	dir     string
	osProxy internal.OsProxy
}

// NewWriter creates a writer for ledgers in dir. An empty dir means the working directory.
func NewWriter(dir string, osProxy internal.OsProxy) *Writer {
	if osProxy == nil {
		osProxy = internal.RealOS{}
	}
	return &Writer{dir: dir, osProxy: osProxy}
}

// Path returns the ledger path of a vault.
func (w *Writer) Path(vault string) string {
	return filepath.Join(w.dir, FileName(vault))
}

// Append adds r to the vault's ledger, writing the header first if the ledger does not exist yet.
func (w *Writer) Append(vault string, r Record) error {
	if w.dir != "" {
		if err := w.osProxy.MkdirAll(w.dir, 0755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	path := w.Path(vault)
	_, err := w.osProxy.Stat(path)
	isNew := errors.Is(err, os.ErrNotExist)
	if err != nil && !isNew {
		return fmt.Errorf("check ledger: %w", err)
	}

	file, err := w.osProxy.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if isNew {
		if _, err := io.WriteString(file, Header+"\n"); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	csvWriter := csv.NewWriter(file)
	if err := csvWriter.Write(r.fields()); err != nil {
		return fmt.Errorf("write ledger record: %w", err)
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("write ledger record: %w", err)
	}

	return file.Close()
}

// Read parses the vault's ledger.
func (w *Writer) Read(vault string) ([]Record, error) {
	file, err := w.osProxy.Open(w.Path(vault))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close() //nolint:errcheck

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = numColumns

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse ledger: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var records []Record
	for i, row := range rows[1:] {
		uploadedAt, err := time.ParseInLocation(TimeLayout, row[4], time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse ledger line %d: %w", i+2, err)
		}
		records = append(records, Record{
			OriginalFilename: row[0],
			ArchiveID:        row[1],
			TreeHash:         row[2],
			Location:         row[3],
			UploadedAt:       uploadedAt,
		})
	}
	return records, nil
}
