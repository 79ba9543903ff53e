package domain

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// WeekCSV renders a week of day buckets as CSV: one row per day with
// recorded sessions, newline-terminated, fields quoted by encoding/csv
// when needed. The schema is fixed; exports must stay byte-stable.
func WeekCSV(buckets []DayBucket) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Date", "Sessions", "Total (h:m)", "Minutes"}); err != nil {
		return "", err
	}
	for _, b := range buckets {
		row := []string{
			b.Date,
			strconv.Itoa(b.Sessions),
			FormatClock(b.Total),
			strconv.Itoa(int(b.Total.Minutes())),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
