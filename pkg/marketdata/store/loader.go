// Package store reads persisted daily closes back for charting and reporting.
package store

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/writer"
)

// CSVPath returns the file LoadDaily reads for symbol.
func CSVPath(dataPath string, symbol string) string {
	return filepath.Join(dataPath, fmt.Sprintf("%s.csv", symbol))
}

// LoadDaily reads <dataPath>/<symbol>.csv and returns the points whose trade
// date is not older than now minus years calendar years.
// A missing file yields an empty slice. Rows whose date or close cannot be
// parsed are skipped.
func LoadDaily(dataPath string, symbol string, years int, now time.Time) ([]types.PricePoint, error) {
	path := CSVPath(dataPath, symbol)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.PricePoint{}, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// short or long rows are filtered below instead of failing the whole file
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []*writer.CSVRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		if stderrors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []types.PricePoint{}, nil
		}

		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse %s", path)
	}

	cutoff := now.AddDate(-years, 0, 0)
	points := make([]types.PricePoint, 0, len(rows))

	for _, row := range rows {
		point, ok := parseRow(row)
		if !ok || point.Time < cutoff.UnixMilli() {
			continue
		}

		points = append(points, point)
	}

	return points, nil
}

func parseRow(row *writer.CSVRow) (types.PricePoint, bool) {
	if row == nil {
		return types.PricePoint{}, false
	}

	date, err := time.Parse(types.DateLayout, strings.TrimSpace(row.Date))
	if err != nil {
		return types.PricePoint{}, false
	}

	price, err := decimal.NewFromString(strings.TrimSpace(row.Close))
	if err != nil {
		return types.PricePoint{}, false
	}

	return types.PricePoint{Time: date.UnixMilli(), Price: price}, true
}
