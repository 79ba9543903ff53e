package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayKeyLayout is the canonical local-date format used for day and week keys.
const DayKeyLayout = "2006-01-02"

// Calendar derives day-keys and week boundaries from instants, under a fixed
// location and week-start convention. Pure: no hidden state.
type Calendar struct {
	loc       *time.Location
	weekStart time.Weekday
}

// ParseWeekStart maps a configuration string to a weekday.
// Only Monday and Sunday starts are supported.
func ParseWeekStart(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monday", "mon":
		return time.Monday, nil
	case "sunday", "sun":
		return time.Sunday, nil
	default:
		return time.Monday, fmt.Errorf("unsupported week start %q (want monday or sunday)", s)
	}
}

// NewCalendar builds a calendar for the given IANA timezone and week start.
func NewCalendar(tz string, weekStart time.Weekday) (Calendar, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Calendar{}, fmt.Errorf("load tz %q: %w", tz, err)
	}
	return Calendar{loc: loc, weekStart: weekStart}, nil
}

// ForTZ returns a calendar with the location replaced by tz. Invalid or nil
// tz keeps the current location (same fallback as the rest of the system:
// a broken user override must not break queries).
func (c Calendar) ForTZ(tz *string) Calendar {
	if tz == nil || *tz == "" {
		return c
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return c
	}
	return Calendar{loc: loc, weekStart: c.weekStart}
}

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location { return c.loc }

// DayKey returns the local calendar date of t.
func (c Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DayKeyLayout)
}

// WeekKey returns the day-key of the week-start day of the week containing t.
// Stable for every instant inside the same 7-day window, including across
// the year boundary (it is just a date, not a week number).
func (c Calendar) WeekKey(t time.Time) string {
	return c.weekStartOf(t).Format(DayKeyLayout)
}

// weekStartOf returns local midnight of the configured week-start day at or
// before t.
func (c Calendar) weekStartOf(t time.Time) time.Time {
	lt := t.In(c.loc)
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	back := (int(lt.Weekday()) - int(c.weekStart) + 7) % 7
	return midnight.AddDate(0, 0, -back)
}

// WeekWindow resolves a week-key to its absolute bounds [start, start+7d).
func (c Calendar) WeekWindow(weekKey string) (start, end time.Time, err error) {
	d, err := time.ParseInLocation(DayKeyLayout, weekKey, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse week key %q: %w", weekKey, err)
	}
	return d, d.AddDate(0, 0, 7), nil
}

// DayKeys lists the seven day-keys belonging to the week.
func (c Calendar) DayKeys(weekKey string) ([]string, error) {
	start, _, err := c.WeekWindow(weekKey)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		keys = append(keys, start.AddDate(0, 0, i).Format(DayKeyLayout))
	}
	return keys, nil
}

// PrevWeekKey returns the week-key of the most recently completed week
// relative to now.
func (c Calendar) PrevWeekKey(now time.Time) string {
	return c.weekStartOf(now).AddDate(0, 0, -7).Format(DayKeyLayout)
}

// DayWindow resolves a day-key to its absolute bounds [midnight, +24h).
func (c Calendar) DayWindow(dayKey string) (start, end time.Time, err error) {
	d, err := time.ParseInLocation(DayKeyLayout, dayKey, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse day key %q: %w", dayKey, err)
	}
	return d, d.AddDate(0, 0, 1), nil
}

// ValidateTZ checks that tz is a valid IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}
