package types

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the layout used for trade dates in persisted files.
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV bar as returned by a market data provider.
type Bar struct {
	Symbol string
	// Date is the trade date. Only the calendar date is meaningful.
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// PriceRecord is the persisted (date, close) pair.
type PriceRecord struct {
	Date  time.Time
	Close decimal.Decimal
}

// DateString formats the record's trade date as YYYY-MM-DD.
func (r PriceRecord) DateString() string {
	return r.Date.Format(DateLayout)
}

// ProjectClose keeps only the trade date and closing price of each bar.
// Order is preserved.
func ProjectClose(bars []Bar) []PriceRecord {
	records := make([]PriceRecord, 0, len(bars))
	for _, bar := range bars {
		records = append(records, PriceRecord{
			Date:  bar.Date,
			Close: bar.Close,
		})
	}

	return records
}

// PricePoint is a loaded record keyed by unix milliseconds, the shape the
// chart endpoints consume.
type PricePoint struct {
	Time  int64           `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// MarshalJSON writes the price as a JSON number.
func (p PricePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time  int64       `json:"time"`
		Price json.Number `json:"price"`
	}{
		Time:  p.Time,
		Price: json.Number(p.Price.String()),
	})
}
