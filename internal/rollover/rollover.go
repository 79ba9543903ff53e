// Package rollover implements the weekly close-out: summarize every user's
// completed week, deliver a summary and a CSV export to their registered
// chats, then clear the week's ledger. A lock keyed by the week makes
// duplicate triggers (scheduler, HTTP, bot command) safe no-ops.
package rollover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
	"github.com/ariesizone2311/tgworkhoursbot/internal/store"
	"github.com/ariesizone2311/tgworkhoursbot/internal/tracker"
)

// Notifier delivers text and named file payloads to an endpoint. The
// implementation owns its retry/backoff policy; the engine only isolates
// failures per user.
type Notifier interface {
	SendMessage(chatID int64, text string) error
	SendDocument(chatID int64, name string, data []byte) error
}

// Report summarizes one rollover run.
type Report struct {
	WeekKey   string `json:"week_key"`
	LockHeld  bool   `json:"lock_held,omitempty"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Deleted   int64  `json:"deleted"`
}

type Engine struct {
	repo     store.Repo
	trk      *tracker.Tracker
	notify   Notifier
	lockTTL  time.Duration
	currency string
	log      *zap.Logger
}

// New creates a rollover engine.
func New(repo store.Repo, trk *tracker.Tracker, notify Notifier, lockTTL time.Duration, currency string, log *zap.Logger) *Engine {
	return &Engine{
		repo:     repo,
		trk:      trk,
		notify:   notify,
		lockTTL:  lockTTL,
		currency: currency,
		log:      log,
	}
}

// Run rolls over the most recently completed week relative to now. Safe to
// call from any trigger at any frequency: a held lock makes it a no-op, and
// an already-reset week has nothing to summarize.
func (e *Engine) Run(ctx context.Context, now time.Time) (Report, error) {
	weekKey := e.trk.Calendar().PrevWeekKey(now)
	rep := Report{WeekKey: weekKey}

	if err := e.repo.AcquireRolloverLock(ctx, weekKey, now, e.lockTTL); err != nil {
		if errors.Is(err, store.ErrLockHeld) {
			e.log.Debug("rollover lock held, skipping", zap.String("week", weekKey))
			rep.LockHeld = true
			return rep, nil
		}
		return rep, fmt.Errorf("acquire lock: %w", err)
	}

	users, err := e.repo.ListUsers(ctx)
	if err != nil {
		return rep, fmt.Errorf("list users: %w", err)
	}

	for _, u := range users {
		// Each user is an isolated unit; a failure here must not
		// touch anyone else's data.
		switch deleted, err := e.runUser(ctx, &u, weekKey, now); {
		case err != nil:
			e.log.Error("rollover failed for user",
				zap.Int64("chatID", u.ChatID), zap.String("week", weekKey), zap.Error(err))
			rep.Failed++
		case deleted < 0:
			rep.Skipped++
		default:
			rep.Processed++
			rep.Deleted += deleted
		}
	}

	e.log.Info("rollover complete",
		zap.String("week", weekKey),
		zap.Int("processed", rep.Processed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
		zap.Int64("deleted", rep.Deleted),
	)
	return rep, nil
}

// runUser computes, delivers and resets one user's week. Returns -1 deleted
// when the user had nothing recorded. Reset happens only after at least one
// successful delivery, so a crash or total delivery failure leaves the data
// intact for a retry.
func (e *Engine) runUser(ctx context.Context, u *domain.User, weekKey string, now time.Time) (int64, error) {
	buckets, total, err := e.trk.WeekSummary(ctx, u.ChatID, weekKey, now)
	if err != nil {
		return 0, fmt.Errorf("week summary: %w", err)
	}
	if len(buckets) == 0 && total == 0 {
		return -1, nil
	}

	rate := u.EffectiveRate(e.trk.DefaultRate())
	summary := e.renderSummary(u, weekKey, buckets, total, rate)
	csvText, err := domain.WeekCSV(buckets)
	if err != nil {
		return 0, fmt.Errorf("render csv: %w", err)
	}
	fileName := "week_" + weekKey + ".csv"

	chats, err := e.repo.ListChats(ctx, u.ChatID)
	if err != nil {
		return 0, fmt.Errorf("list chats: %w", err)
	}

	delivered := 0
	for _, chatID := range chats {
		if err := e.notify.SendMessage(chatID, summary); err != nil {
			e.log.Warn("summary delivery failed",
				zap.Int64("chatID", chatID), zap.Error(err))
			continue
		}
		if err := e.notify.SendDocument(chatID, fileName, []byte(csvText)); err != nil {
			e.log.Warn("export delivery failed",
				zap.Int64("chatID", chatID), zap.Error(err))
			continue
		}
		delivered++
	}
	if delivered == 0 && len(chats) > 0 {
		return 0, fmt.Errorf("delivery failed for all %d endpoints", len(chats))
	}

	return e.trk.ResetWeekKey(ctx, u.ChatID, weekKey)
}

func (e *Engine) renderSummary(u *domain.User, weekKey string, buckets []domain.DayBucket, total time.Duration, rate float64) string {
	sessions := 0
	for _, b := range buckets {
		sessions += b.Sessions
	}
	return fmt.Sprintf(
		"📊 Week of %s\nWorked: %s across %d session(s)\nPay: %s (at %s/h)",
		weekKey,
		domain.FormatDuration(total),
		sessions,
		domain.FormatMoney(e.currency, domain.Pay(total, rate)),
		domain.FormatMoney(e.currency, rate),
	)
}
