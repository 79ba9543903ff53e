package domain

import (
	"math"
	"testing"
	"time"
)

func TestAccrue_ClosedBucketsOnly(t *testing.T) {
	now := time.Date(2025, time.May, 5, 18, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)

	buckets := []DayBucket{{Date: "2025-05-05", Sessions: 1, Total: 8*time.Hour + 30*time.Minute}}
	got := Accrue(buckets, nil, now, dayEnd)
	if got != 8*time.Hour+30*time.Minute {
		t.Fatalf("Accrue = %v, want 8h30m", got)
	}
}

func TestAccrue_OpenSessionCountsToNow(t *testing.T) {
	start := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Minute)
	dayEnd := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)

	open := &Session{ID: "s", ChatID: 1, DayKey: "2025-05-05", StartAt: start}
	if got := Accrue(nil, open, now, dayEnd); got != 90*time.Minute {
		t.Fatalf("Accrue = %v, want 90m", got)
	}
}

func TestAccrue_OpenSessionClampedAtWindowEnd(t *testing.T) {
	// Session still running when the window closes: only credit up to the
	// boundary, the way a rollover anchors its computation.
	weekEnd := time.Date(2025, time.May, 12, 0, 0, 0, 0, time.UTC)
	start := weekEnd.Add(-1 * time.Hour)
	now := weekEnd.Add(3 * time.Hour)

	open := &Session{ID: "s", ChatID: 1, DayKey: "2025-05-11", StartAt: start}
	if got := Accrue(nil, open, now, weekEnd); got != time.Hour {
		t.Fatalf("Accrue = %v, want 1h", got)
	}
}

func TestAccrue_WholeAttributionAcrossMidnight(t *testing.T) {
	// Started yesterday 23:00, queried today 01:00: the whole 2h land in
	// the queried window, no splitting.
	start := time.Date(2025, time.May, 4, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.May, 5, 1, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)

	open := &Session{ID: "s", ChatID: 1, DayKey: "2025-05-04", StartAt: start}
	if got := Accrue(nil, open, now, dayEnd); got != 2*time.Hour {
		t.Fatalf("Accrue = %v, want 2h", got)
	}
}

func TestAccrue_NeverNegative(t *testing.T) {
	now := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)

	// Clock skew: session "starts" after now.
	open := &Session{ID: "s", ChatID: 1, DayKey: "2025-05-05", StartAt: now.Add(time.Hour)}
	if got := Accrue(nil, open, now, dayEnd); got != 0 {
		t.Fatalf("Accrue = %v, want 0", got)
	}
}

func TestSessionDuration_Clamped(t *testing.T) {
	now := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	s := &Session{StartAt: now.Add(time.Minute)}
	if got := s.Duration(now); got != 0 {
		t.Fatalf("Duration = %v, want 0", got)
	}
}

func TestPay(t *testing.T) {
	d := 8*time.Hour + 30*time.Minute
	if got := Pay(d, 2.50); got != 21.25 {
		t.Fatalf("Pay = %v, want 21.25", got)
	}
	if got := FormatMoney("$", Pay(d, 2.50)); got != "$21.25" {
		t.Fatalf("FormatMoney = %q, want $21.25", got)
	}
}

func TestValidRate(t *testing.T) {
	cases := []struct {
		v    float64
		want bool
	}{
		{2.5, true},
		{0.01, true},
		{0, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
	}
	for _, c := range cases {
		if got := ValidRate(c.v); got != c.want {
			t.Errorf("ValidRate(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{8*time.Hour + 30*time.Minute, "8h 30m"},
		{59 * time.Second, "0h 0m"},
		{25 * time.Hour, "25h 0m"},
		{-time.Hour, "0h 0m"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(8*time.Hour + 5*time.Minute); got != "8:05" {
		t.Fatalf("FormatClock = %q, want 8:05", got)
	}
}

func TestEffectiveRate(t *testing.T) {
	def := 2.5
	var u *User
	if got := u.EffectiveRate(def); got != def {
		t.Fatalf("nil user rate = %v, want %v", got, def)
	}

	u = &User{ChatID: 1}
	if got := u.EffectiveRate(def); got != def {
		t.Fatalf("no-override rate = %v, want %v", got, def)
	}

	override := 3.0
	u.Rate = &override
	if got := u.EffectiveRate(def); got != 3.0 {
		t.Fatalf("override rate = %v, want 3.0", got)
	}

	bad := -1.0
	u.Rate = &bad
	if got := u.EffectiveRate(def); got != def {
		t.Fatalf("invalid override rate = %v, want default %v", got, def)
	}
}
