// Package progress carries directory-walk progress to observers.
package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/schollz/progressbar/v3"
)

const bytesPerMegabyte = 1024 * 1024

const (
	progressBarWidth       = 40
	progressBarThrottle    = 65 * 1000000
	progressBarSpinnerType = 14
)

// Update reports the running total after a file is stashed. Both
// values only grow during a walk.
type Update struct {
	TotalMegabytes     float64
	ProcessedMegabytes float64
	// File is the local path of the file that just completed.
	File string
}

// Done reports whether every byte has been accounted for.
func (u Update) Done() bool {
	return math.Abs(u.TotalMegabytes-u.ProcessedMegabytes) < 1e-9
}

// Percent returns processed/total in [0, 100]. An empty walk is 100%.
func (u Update) Percent() float64 {
	if u.TotalMegabytes <= 0 {
		return 100
	}
	return math.Min(100, u.ProcessedMegabytes/u.TotalMegabytes*100)
}

// Megabytes converts a byte count the way walk totals are computed.
func Megabytes(n int64) float64 {
	return float64(n) / bytesPerMegabyte
}

// Func observes progress updates.
type Func func(Update)

// Bar renders updates on a terminal progress bar sized in bytes.
type Bar struct {
	once sync.Once
	w    io.Writer
	desc string
	bar  *progressbar.ProgressBar
}

// NewBar returns a bar that writes to w. The bar is created on the
// first update, once the total is known.
func NewBar(w io.Writer, description string) *Bar {
	return &Bar{w: w, desc: description}
}

// Observe is a Func.
func (b *Bar) Observe(u Update) {
	b.once.Do(func() {
		b.bar = newProgressBar(b.w, b.desc, int64(u.TotalMegabytes*bytesPerMegabyte))
	})
	_ = b.bar.Set64(int64(u.ProcessedMegabytes * bytesPerMegabyte))
	if u.Done() {
		_ = b.bar.Finish()
	}
}

func newProgressBar(w io.Writer, description string, total int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionThrottle(progressBarThrottle),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSpinnerType(progressBarSpinnerType),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Logger returns a Func that logs every update at debug level.
func Logger(l *slog.Logger) Func {
	return func(u Update) {
		l.LogAttrs(context.Background(), slog.LevelDebug, "stash progress",
			slog.String("file", u.File),
			slog.Float64("processed_mb", u.ProcessedMegabytes),
			slog.Float64("total_mb", u.TotalMegabytes),
			slog.String("percent", fmt.Sprintf("%.1f", u.Percent())),
		)
	}
}
