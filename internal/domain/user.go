package domain

import "time"

// User represents a tracked worker. Created on first interaction with the
// bot and never deleted; rate and timezone overrides are optional.
type User struct {
	ChatID      int64
	DisplayName string
	TZ          *string   // IANA name, nil means service default
	Rate        *float64  // hourly rate override, nil means service default
	CreatedAt   time.Time // UTC
}

// EffectiveRate resolves the hourly rate for the user: the per-user override
// when present and valid, otherwise the given default.
func (u *User) EffectiveRate(def float64) float64 {
	if u != nil && u.Rate != nil && ValidRate(*u.Rate) {
		return *u.Rate
	}
	return def
}
