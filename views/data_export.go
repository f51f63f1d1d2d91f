package views

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"

	"imu-fusion/models"
)

// Sink is an output destination for linear-acceleration records.
type Sink interface {
	Write(rec *models.LinearRecord) error
	Flush() error
	Close() error
	Rows() uint64
}

// ─── buffered file writers ──────────────────────────────────────────────

// fileWriter owns the file and buffer shared by the text and CSV sinks.
//
// The recording controller calls Flush periodically; Write never touches
// the OS so the hot path never blocks on I/O.
type fileWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	rows uint64
}

func openFileWriter(path string, bufSizeBytes int) (*fileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if bufSizeBytes <= 0 {
		bufSizeBytes = 256 * 1024 // 256 KB default
	}
	return &fileWriter{file: f, buf: bufio.NewWriterSize(f, bufSizeBytes)}, nil
}

func (w *fileWriter) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

func (w *fileWriter) closeFile(flush func() error) error {
	ferr := flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return err
	}
	return ferr
}

// TextWriter writes one record per line as
//
//	generation timestamp linear_x linear_y linear_z
//
// separated by single spaces.
type TextWriter struct {
	*fileWriter
	header []string
}

// NewTextWriter creates path. When writeHeader is set the column names
// are written first as a '#' comment line.
func NewTextWriter(path string, bufSizeBytes int, writeHeader bool) (*TextWriter, error) {
	fw, err := openFileWriter(path, bufSizeBytes)
	if err != nil {
		return nil, err
	}
	w := &TextWriter{fileWriter: fw}
	if writeHeader {
		if _, err := fmt.Fprintf(fw.buf, "# %s\n", strings.Join(SchemaColumns[SchemaText], " ")); err != nil {
			fw.file.Close()
			return nil, fmt.Errorf("text write header: %w", err)
		}
	}
	return w, nil
}

func (w *TextWriter) Write(rec *models.LinearRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.WriteString(rec.String()); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *TextWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

func (w *TextWriter) Close() error { return w.closeFile(w.Flush) }

// RowWriter writes the CSV rows of any model to one file.
type RowWriter struct {
	*fileWriter
	csv *csv.Writer
}

// NewRowWriter creates path and writes header first unless it is nil.
func NewRowWriter(path string, bufSizeBytes int, header []string) (*RowWriter, error) {
	fw, err := openFileWriter(path, bufSizeBytes)
	if err != nil {
		return nil, err
	}
	w := &RowWriter{fileWriter: fw, csv: csv.NewWriter(fw.buf)}
	if header != nil {
		if err := w.csv.Write(header); err != nil {
			fw.file.Close()
			return nil, fmt.Errorf("csv write header: %w", err)
		}
	}
	return w, nil
}

func (w *RowWriter) WriteRow(m models.CSVRowWriter) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(m.CSVRow()); err != nil {
		return err
	}
	w.rows++
	return nil
}

func (w *RowWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *RowWriter) Close() error { return w.closeFile(w.Flush) }

// CSVWriter writes records with the orientation columns appended.
type CSVWriter struct {
	*RowWriter
}

// NewCSVWriter creates path and, if asked, writes the CSV header row.
func NewCSVWriter(path string, bufSizeBytes int, writeHeader bool) (*CSVWriter, error) {
	var header []string
	if writeHeader {
		header = models.LinearRecord{}.CSVHeader()
	}
	rw, err := NewRowWriter(path, bufSizeBytes, header)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{RowWriter: rw}, nil
}

func (w *CSVWriter) Write(rec *models.LinearRecord) error { return w.WriteRow(rec) }
