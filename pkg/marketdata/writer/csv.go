package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

// CSVRow is the on-disk shape of a price record.
type CSVRow struct {
	Date  string `csv:"date"`
	Close string `csv:"close"`
}

// CSVWriter writes price records as a `date,close` CSV file.
// Rows are staged in a temporary file next to the target and renamed over it
// on Finalize, so an existing file is replaced only by a complete one.
type CSVWriter struct {
	outputPath string
	tempPath   string
	rows       []CSVRow
}

// NewCSVWriter creates a new CSVWriter targeting outputPath.
// The parent directory must exist by the time Initialize is called.
func NewCSVWriter(outputPath string) PriceWriter {
	return &CSVWriter{
		outputPath: outputPath,
	}
}

func (w *CSVWriter) Initialize() error {
	dir := filepath.Dir(w.outputPath)

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s is not accessible: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", dir)
	}

	w.tempPath = filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(w.outputPath), uuid.New().String()))
	w.rows = []CSVRow{}

	return nil
}

func (w *CSVWriter) Write(record types.PriceRecord) error {
	if w.rows == nil {
		return fmt.Errorf("writer not initialized")
	}

	w.rows = append(w.rows, CSVRow{
		Date:  record.DateString(),
		Close: record.Close.String(),
	})

	return nil
}

func (w *CSVWriter) Finalize() (outputPath string, err error) {
	if w.rows == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	file, err := os.Create(w.tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", w.tempPath, err)
	}

	if err := gocsv.MarshalFile(&w.rows, file); err != nil {
		file.Close()

		return "", fmt.Errorf("failed to encode csv: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", w.tempPath, err)
	}

	if err := os.Rename(w.tempPath, w.outputPath); err != nil {
		return "", fmt.Errorf("failed to move csv into place: %w", err)
	}

	w.rows = nil

	return w.outputPath, nil
}

// Close removes the staging file if Finalize did not publish it.
func (w *CSVWriter) Close() error {
	w.rows = nil

	if w.tempPath == "" {
		return nil
	}

	if err := os.Remove(w.tempPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove staging file: %w", err)
	}

	w.tempPath = ""

	return nil
}

func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}
