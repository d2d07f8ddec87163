package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
)

// Summary describes one persisted daily close file.
type Summary struct {
	Path      string          `json:"path"`
	Rows      int64           `json:"rows"`
	FirstDate time.Time       `json:"firstDate"`
	LastDate  time.Time       `json:"lastDate"`
	MinClose  decimal.Decimal `json:"minClose"`
	MaxClose  decimal.Decimal `json:"maxClose"`
}

var sq = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Stats summarizes csvPath with an in-memory DuckDB. When since is non-zero
// only rows on or after it are counted.
func Stats(ctx context.Context, csvPath string, since time.Time) (Summary, error) {
	if _, err := os.Stat(csvPath); err != nil {
		return Summary{}, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no data file at %s", csvPath)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return Summary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	query, args, err := buildStatsQuery(csvPath, since)
	if err != nil {
		return Summary{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err)
	}

	var (
		count               int64
		firstDate, lastDate sql.NullTime
		minClose, maxClose  sql.NullString
	)

	if err := db.QueryRowContext(ctx, query, args...).Scan(&count, &firstDate, &lastDate, &minClose, &maxClose); err != nil {
		return Summary{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to summarize %s", csvPath)
	}

	summary := Summary{Path: csvPath, Rows: count}

	if firstDate.Valid {
		summary.FirstDate = firstDate.Time
	}

	if lastDate.Valid {
		summary.LastDate = lastDate.Time
	}

	if minClose.Valid {
		if summary.MinClose, err = decimal.NewFromString(minClose.String); err != nil {
			return Summary{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid min close", err)
		}
	}

	if maxClose.Valid {
		if summary.MaxClose, err = decimal.NewFromString(maxClose.String); err != nil {
			return Summary{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid max close", err)
		}
	}

	return summary, nil
}

func buildStatsQuery(csvPath string, since time.Time) (string, []any, error) {
	// read_csv is a table function, so the path cannot be bound as a parameter
	source := fmt.Sprintf(
		"read_csv('%s', header = true, columns = {'date': 'DATE', 'close': 'DECIMAL(38, 6)'})",
		strings.ReplaceAll(csvPath, "'", "''"),
	)

	builder := sq.
		Select(
			"COUNT(*)",
			"MIN(date)",
			"MAX(date)",
			"CAST(MIN(close) AS VARCHAR)",
			"CAST(MAX(close) AS VARCHAR)",
		).
		From(source)

	if !since.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{"date": since.Format(types.DateLayout)})
	}

	return builder.ToSql()
}
