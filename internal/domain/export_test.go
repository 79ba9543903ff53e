package domain

import (
	"testing"
	"time"
)

func TestWeekCSV(t *testing.T) {
	buckets := []DayBucket{
		{Date: "2025-05-05", Sessions: 2, Total: 8*time.Hour + 30*time.Minute},
		{Date: "2025-05-06", Sessions: 1, Total: 45 * time.Minute},
	}
	got, err := WeekCSV(buckets)
	if err != nil {
		t.Fatalf("WeekCSV: %v", err)
	}
	want := "Date,Sessions,Total (h:m),Minutes\n" +
		"2025-05-05,2,8:30,510\n" +
		"2025-05-06,1,0:45,45\n"
	if got != want {
		t.Fatalf("WeekCSV =\n%q\nwant\n%q", got, want)
	}
}

func TestWeekCSV_Empty(t *testing.T) {
	got, err := WeekCSV(nil)
	if err != nil {
		t.Fatalf("WeekCSV: %v", err)
	}
	if got != "Date,Sessions,Total (h:m),Minutes\n" {
		t.Fatalf("WeekCSV(empty) = %q", got)
	}
}

func TestWeekCSV_QuotesCommas(t *testing.T) {
	// Day keys never contain commas, but the writer must stay safe if a
	// field ever does.
	buckets := []DayBucket{{Date: "2025,05,05", Sessions: 1, Total: time.Hour}}
	got, err := WeekCSV(buckets)
	if err != nil {
		t.Fatalf("WeekCSV: %v", err)
	}
	want := "Date,Sessions,Total (h:m),Minutes\n\"2025,05,05\",1,1:00,60\n"
	if got != want {
		t.Fatalf("WeekCSV = %q, want %q", got, want)
	}
}
