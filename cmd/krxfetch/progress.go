package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/rxtech-lab/krx-daily/pkg/marketdata/provider"
)

// newProgressReporter renders provider progress on w. The bar is created on
// the first callback since only the provider knows the total.
func newProgressReporter(w io.Writer) (provider.OnDownloadProgress, func()) {
	var bar *progressbar.ProgressBar

	onProgress := func(current float64, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions64(
				int64(total),
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(message),
				progressbar.OptionClearOnFinish(),
			)
		}

		bar.Describe(message)
		_ = bar.Set64(int64(current))
	}

	finish := func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}

	return onProgress, finish
}
