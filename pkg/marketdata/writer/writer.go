package writer

import (
	"github.com/rxtech-lab/krx-daily/internal/types"
)

// PriceWriter defines the interface for persisting price records.
type PriceWriter interface {
	// Initialize sets up the writer, potentially creating files.
	Initialize() error
	// Write buffers or persists a single price record.
	Write(record types.PriceRecord) error
	// Finalize completes the writing process and publishes the output.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
