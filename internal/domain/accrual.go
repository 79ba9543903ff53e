package domain

import (
	"fmt"
	"math"
	"time"
)

// Accrue folds closed-day totals with an open session into "time worked as
// of now" for a window ending at windowEnd. The open session contributes
// min(now, windowEnd) - start, never negative; it is attributed wholly to
// the window it is queried in (no splitting across midnight).
func Accrue(buckets []DayBucket, open *Session, now, windowEnd time.Time) time.Duration {
	var total time.Duration
	for _, b := range buckets {
		total += b.Total
	}
	if open.Open() && !open.StartAt.After(windowEnd) {
		end := now
		if windowEnd.Before(now) {
			end = windowEnd
		}
		if d := end.Sub(open.StartAt); d > 0 {
			total += d
		}
	}
	return total
}

// ValidRate reports whether v is a usable hourly rate: finite and positive.
func ValidRate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Pay converts worked time into money at an hourly rate. Pure; pay is always
// computed fresh, never stored.
func Pay(d time.Duration, rate float64) float64 {
	return d.Hours() * rate
}

// FormatDuration renders a duration as "8h 30m" (minute precision).
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// FormatClock renders a duration as "8:30" for the CSV "Total (h:m)" column.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}

// FormatMoney renders an amount with the configured currency symbol,
// e.g. "$21.25".
func FormatMoney(symbol string, amount float64) string {
	return fmt.Sprintf("%s%.2f", symbol, amount)
}
