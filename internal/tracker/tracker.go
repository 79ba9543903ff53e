// Package tracker implements the time-accrual core: clocking in and out,
// day/week accrual queries, exports, resets and rate resolution. All state
// lives in the injected store; the tracker itself is stateless between calls.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
	"github.com/ariesizone2311/tgworkhoursbot/internal/store"
)

type Tracker struct {
	repo        store.Repo
	cal         domain.Calendar
	defaultRate float64
	log         *zap.Logger
}

// New creates a Tracker over the given store. cal carries the service
// timezone and week-start convention; defaultRate applies to users without
// an override.
func New(repo store.Repo, cal domain.Calendar, defaultRate float64, log *zap.Logger) *Tracker {
	return &Tracker{repo: repo, cal: cal, defaultRate: defaultRate, log: log}
}

// Calendar returns the service-wide calendar.
func (t *Tracker) Calendar() domain.Calendar { return t.cal }

// DefaultRate returns the configured default hourly rate.
func (t *Tracker) DefaultRate() float64 { return t.defaultRate }

// EnsureUser makes sure a user row exists, creating it with defaults on
// first interaction, and registers the chat as a delivery endpoint.
func (t *Tracker) EnsureUser(ctx context.Context, chatID int64, name string) (*domain.User, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		u = &domain.User{
			ChatID:      chatID,
			DisplayName: name,
			CreatedAt:   time.Now().UTC(),
		}
		if err := t.repo.UpsertUser(ctx, u); err != nil {
			return nil, err
		}
		t.log.Info("new user registered", zap.Int64("chatID", chatID))
	} else if err != nil {
		return nil, err
	} else if name != "" && name != u.DisplayName {
		u.DisplayName = name
		if err := t.repo.UpsertUser(ctx, u); err != nil {
			return nil, err
		}
	}

	if err := t.repo.RegisterChat(ctx, chatID, chatID); err != nil {
		return nil, err
	}
	return u, nil
}

// calFor returns the calendar adjusted for the user's timezone override.
func (t *Tracker) calFor(u *domain.User) domain.Calendar {
	if u == nil {
		return t.cal
	}
	return t.cal.ForTZ(u.TZ)
}

// ClockIn opens a new session at now, filed under the local day of now.
// Returns domain.ErrAlreadyOpen if one is already open; the existing
// session is left untouched.
func (t *Tracker) ClockIn(ctx context.Context, chatID int64, now time.Time) (*domain.Session, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	s := &domain.Session{
		ID:      uuid.NewString(),
		ChatID:  chatID,
		DayKey:  t.calFor(u).DayKey(now),
		StartAt: now.UTC(),
	}
	if err := t.repo.OpenSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ClockOut closes the open session at now and returns its duration,
// clamped to be non-negative. Returns domain.ErrNoOpenSession if nothing
// is open.
func (t *Tracker) ClockOut(ctx context.Context, chatID int64, now time.Time) (time.Duration, error) {
	s, err := t.repo.CloseSession(ctx, chatID, now)
	if err != nil {
		return 0, err
	}
	return s.Duration(now), nil
}

// OpenSession returns the user's open session, or nil.
func (t *Tracker) OpenSession(ctx context.Context, chatID int64) (*domain.Session, error) {
	return t.repo.GetOpenSession(ctx, chatID)
}

// HoursToday answers worked time for the local day containing now,
// including the open session. Degrades to zero when nothing is recorded.
func (t *Tracker) HoursToday(ctx context.Context, chatID int64, now time.Time) (time.Duration, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	cal := t.calFor(u)
	dayKey := cal.DayKey(now)
	_, dayEnd, err := cal.DayWindow(dayKey)
	if err != nil {
		return 0, err
	}

	buckets, err := t.repo.DayTotals(ctx, chatID, []string{dayKey})
	if err != nil {
		return 0, err
	}
	open, err := t.repo.GetOpenSession(ctx, chatID)
	if err != nil {
		return 0, err
	}
	return domain.Accrue(buckets, open, now, dayEnd), nil
}

// HoursThisWeek answers worked time for the week containing now, and the
// week-key identifying it.
func (t *Tracker) HoursThisWeek(ctx context.Context, chatID int64, now time.Time) (time.Duration, string, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, "", fmt.Errorf("get user: %w", err)
	}
	cal := t.calFor(u)
	weekKey := cal.WeekKey(now)
	_, total, err := t.weekSummary(ctx, u, weekKey, now)
	return total, weekKey, err
}

// WeekSummary computes the per-day buckets and the total for one week as of
// now. An open session contributes min(now, weekEnd) - start, folded into
// its day's bucket so exports and totals agree. Used by /export and by the
// rollover engine (which anchors now past the window end for full-boundary
// credit).
func (t *Tracker) WeekSummary(ctx context.Context, chatID int64, weekKey string, now time.Time) ([]domain.DayBucket, time.Duration, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return nil, 0, fmt.Errorf("get user: %w", err)
	}
	return t.weekSummary(ctx, u, weekKey, now)
}

func (t *Tracker) weekSummary(ctx context.Context, u *domain.User, weekKey string, now time.Time) ([]domain.DayBucket, time.Duration, error) {
	cal := t.calFor(u)
	dayKeys, err := cal.DayKeys(weekKey)
	if err != nil {
		return nil, 0, err
	}
	_, weekEnd, err := cal.WeekWindow(weekKey)
	if err != nil {
		return nil, 0, err
	}

	buckets, err := t.repo.DayTotals(ctx, u.ChatID, dayKeys)
	if err != nil {
		return nil, 0, err
	}
	open, err := t.repo.GetOpenSession(ctx, u.ChatID)
	if err != nil {
		return nil, 0, err
	}

	total := domain.Accrue(buckets, open, now, weekEnd)
	if part := total - sumBuckets(buckets); part > 0 && open != nil {
		buckets = foldOpen(buckets, open.DayKey, part)
	}
	return buckets, total, nil
}

func sumBuckets(buckets []domain.DayBucket) time.Duration {
	var s time.Duration
	for _, b := range buckets {
		s += b.Total
	}
	return s
}

// foldOpen adds the open session's partial credit into its day bucket,
// keeping date order.
func foldOpen(buckets []domain.DayBucket, dayKey string, part time.Duration) []domain.DayBucket {
	for i := range buckets {
		if buckets[i].Date == dayKey {
			buckets[i].Sessions++
			buckets[i].Total += part
			return buckets
		}
	}
	buckets = append(buckets, domain.DayBucket{Date: dayKey, Sessions: 1, Total: part})
	for i := len(buckets) - 1; i > 0 && buckets[i].Date < buckets[i-1].Date; i-- {
		buckets[i], buckets[i-1] = buckets[i-1], buckets[i]
	}
	return buckets
}

// ExportWeek renders the CSV export for the week containing now.
func (t *Tracker) ExportWeek(ctx context.Context, chatID int64, now time.Time) (string, string, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return "", "", fmt.Errorf("get user: %w", err)
	}
	weekKey := t.calFor(u).WeekKey(now)
	buckets, _, err := t.weekSummary(ctx, u, weekKey, now)
	if err != nil {
		return "", "", err
	}
	csvText, err := domain.WeekCSV(buckets)
	if err != nil {
		return "", "", err
	}
	return weekKey, csvText, nil
}

// ResetDay deletes every session filed under the local day of now and
// returns the count removed. An open session filed under that day goes
// with it.
func (t *Tracker) ResetDay(ctx context.Context, chatID int64, now time.Time) (int64, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return t.repo.DeleteSessions(ctx, chatID, []string{t.calFor(u).DayKey(now)})
}

// ResetWeek deletes every session of the week containing now.
func (t *Tracker) ResetWeek(ctx context.Context, chatID int64, now time.Time) (int64, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return t.ResetWeekKey(ctx, chatID, t.calFor(u).WeekKey(now))
}

// ResetWeekKey deletes every session of the identified week.
func (t *Tracker) ResetWeekKey(ctx context.Context, chatID int64, weekKey string) (int64, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	dayKeys, err := t.calFor(u).DayKeys(weekKey)
	if err != nil {
		return 0, err
	}
	return t.repo.DeleteSessions(ctx, chatID, dayKeys)
}

// SetRate persists a per-user hourly rate override. The change applies to
// every computation from now on; nothing already reported is recomputed.
func (t *Tracker) SetRate(ctx context.Context, chatID int64, rate float64) error {
	if !domain.ValidRate(rate) {
		return domain.ErrInvalidRate
	}
	return t.repo.SetRate(ctx, chatID, rate)
}

// SetTZ persists a per-user timezone override after validating it.
func (t *Tracker) SetTZ(ctx context.Context, chatID int64, tz string) (string, error) {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		return "", err
	}
	return canonical, t.repo.SetTZ(ctx, chatID, canonical)
}

// RateFor resolves the effective hourly rate for a user.
func (t *Tracker) RateFor(ctx context.Context, chatID int64) (float64, error) {
	u, err := t.repo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return u.EffectiveRate(t.defaultRate), nil
}
