package marketdata

import "time"

// DaysPerYear is the fixed year length used for lookback windows.
// Leap days are intentionally not accounted for.
const DaysPerYear = 365

// ProviderDateLayout is the YYYYMMDD layout providers are addressed with.
const ProviderDateLayout = "20060102"

// LookbackWindow returns [start, end] where end is the calendar date of now
// and start is exactly DaysPerYear*years days earlier.
func LookbackWindow(now time.Time, years int) (start time.Time, end time.Time) {
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start = end.AddDate(0, 0, -DaysPerYear*years)

	return start, end
}

// FormatProviderDate formats t as YYYYMMDD.
func FormatProviderDate(t time.Time) string {
	return t.Format(ProviderDateLayout)
}
