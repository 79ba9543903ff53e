package domain

import "time"

// Session is one continuous clock-in-to-clock-out interval. EndAt is nil
// while the session is open; at most one open session may exist per user.
type Session struct {
	ID      string // uuid
	ChatID  int64
	DayKey  string // local calendar date the session was filed under
	StartAt time.Time
	EndAt   *time.Time // nil while open
}

// Open reports whether the session has no clock-out yet.
func (s *Session) Open() bool {
	return s != nil && s.EndAt == nil
}

// Duration returns the session length. For an open session it counts up to
// now. Clamped to zero against clock skew.
func (s *Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndAt != nil {
		end = *s.EndAt
	}
	d := end.Sub(s.StartAt)
	if d < 0 {
		return 0
	}
	return d
}

// DayBucket aggregates the closed sessions of one user on one local day.
type DayBucket struct {
	Date     string // day-key, "2006-01-02"
	Sessions int
	Total    time.Duration // closed sessions only
}
