package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
)

// localClock formats t as HH:MM in the user's effective timezone.
func (r *Router) localClock(u *domain.User, t time.Time) string {
	loc := r.trk.Calendar().ForTZ(u.TZ).Location()
	return t.In(loc).Format("15:04")
}

func (r *Router) money(v float64) string {
	return domain.FormatMoney(r.currency, v)
}

func (r *Router) handleStart(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (r *Router) handleClockIn(ctx context.Context, u *domain.User, now time.Time) {
	s, err := r.trk.ClockIn(ctx, u.ChatID, now)
	if errors.Is(err, domain.ErrAlreadyOpen) {
		since := ""
		if open, oerr := r.trk.OpenSession(ctx, u.ChatID); oerr == nil && open != nil {
			since = " (since " + r.localClock(u, open.StartAt) + ")"
		}
		r.sendText(u.ChatID, fmt.Sprintf(alreadyOpenFmt, since))
		return
	}
	if err != nil {
		r.log.Error("clock-in failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errClockInText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(clockedInFmt, r.localClock(u, s.StartAt)))
}

func (r *Router) handleClockOut(ctx context.Context, u *domain.User, now time.Time) {
	d, err := r.trk.ClockOut(ctx, u.ChatID, now)
	if errors.Is(err, domain.ErrNoOpenSession) {
		r.sendText(u.ChatID, noOpenText)
		return
	}
	if err != nil {
		r.log.Error("clock-out failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errClockOutText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(clockedOutFmt, domain.FormatDuration(d)))
}

func (r *Router) handleToday(ctx context.Context, u *domain.User, now time.Time) {
	d, err := r.trk.HoursToday(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("hours today failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(todayFmt, domain.FormatDuration(d)))
}

func (r *Router) handleWeek(ctx context.Context, u *domain.User, now time.Time) {
	d, weekKey, err := r.trk.HoursThisWeek(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("hours this week failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(weekFmt, weekKey, domain.FormatDuration(d)))
}

func (r *Router) handlePay(ctx context.Context, u *domain.User, now time.Time) {
	d, weekKey, err := r.trk.HoursThisWeek(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("hours this week failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	rate, err := r.trk.RateFor(ctx, u.ChatID)
	if err != nil {
		r.log.Error("rate lookup failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(payFmt,
		weekKey,
		domain.FormatDuration(d),
		r.money(domain.Pay(d, rate)),
		r.money(rate),
	))
}

func (r *Router) handleRate(ctx context.Context, u *domain.User, arg string) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		r.sendText(u.ChatID, invalidRateText)
		return
	}
	if err := r.trk.SetRate(ctx, u.ChatID, v); err != nil {
		if errors.Is(err, domain.ErrInvalidRate) {
			r.sendText(u.ChatID, invalidRateText)
			return
		}
		r.log.Error("set rate failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errSaveText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(rateSetFmt, r.money(v)))
}

func (r *Router) handleTZ(ctx context.Context, u *domain.User, arg string) {
	if arg == "" {
		r.sendText(u.ChatID, tzUsageText)
		return
	}
	tz, err := r.trk.SetTZ(ctx, u.ChatID, arg)
	if err != nil {
		r.sendText(u.ChatID, invalidTZText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(tzSetFmt, tz))
}

func (r *Router) handleExport(ctx context.Context, u *domain.User, now time.Time) {
	weekKey, csvText, err := r.trk.ExportWeek(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("export failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	doc := tgbotapi.NewDocument(u.ChatID, tgbotapi.FileBytes{
		Name:  "week_" + weekKey + ".csv",
		Bytes: []byte(csvText),
	})
	doc.Caption = fmt.Sprintf(exportCaptionFmt, weekKey)
	if _, err := r.bot.Send(doc); err != nil {
		r.log.Error("export delivery failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errDeliverText)
	}
}

func (r *Router) handleResetDay(ctx context.Context, u *domain.User, now time.Time) {
	n, err := r.trk.ResetDay(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("reset day failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errSaveText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(resetDayFmt, n))
}

func (r *Router) handleResetWeek(ctx context.Context, u *domain.User, now time.Time) {
	n, err := r.trk.ResetWeek(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("reset week failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errSaveText)
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(resetWeekFmt, n))
}

func (r *Router) handleStatus(ctx context.Context, u *domain.User, now time.Time) {
	open, err := r.trk.OpenSession(ctx, u.ChatID)
	if err != nil {
		r.log.Error("status failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	state := statusClosedText
	if open != nil {
		state = fmt.Sprintf(statusOpenFmt, r.localClock(u, open.StartAt), domain.FormatDuration(open.Duration(now)))
	}

	today, err := r.trk.HoursToday(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("status failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	week, weekKey, err := r.trk.HoursThisWeek(ctx, u.ChatID, now)
	if err != nil {
		r.log.Error("status failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}
	rate, err := r.trk.RateFor(ctx, u.ChatID)
	if err != nil {
		r.log.Error("status failed", zap.Int64("chatID", u.ChatID), zap.Error(err))
		r.sendText(u.ChatID, errQueryText)
		return
	}

	tz := r.trk.Calendar().ForTZ(u.TZ).Location().String()
	r.sendText(u.ChatID, fmt.Sprintf(statusFmt,
		state,
		domain.FormatDuration(today),
		weekKey, domain.FormatDuration(week),
		r.money(rate),
		tz,
	))
}

func (r *Router) handleRollover(ctx context.Context, u *domain.User, now time.Time) {
	if r.adminChatID == 0 || u.ChatID != r.adminChatID {
		r.sendText(u.ChatID, notAdminText)
		return
	}
	if r.eng == nil {
		r.sendText(u.ChatID, errQueryText)
		return
	}
	rep, err := r.eng.Run(ctx, now)
	if err != nil {
		r.log.Error("manual rollover failed", zap.Error(err))
		r.sendText(u.ChatID, errRolloverText)
		return
	}
	if rep.LockHeld {
		r.sendText(u.ChatID, fmt.Sprintf(rolloverHeldFmt, rep.WeekKey))
		return
	}
	r.sendText(u.ChatID, fmt.Sprintf(rolloverDoneFmt,
		rep.WeekKey, rep.Processed, rep.Skipped, rep.Failed, rep.Deleted))
}
