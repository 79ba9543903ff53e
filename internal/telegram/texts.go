package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// UI texts in English
const (
	startText = "👋 I track your work hours.\n\n" +
		"/in — clock in\n" +
		"/out — clock out\n" +
		"/today — hours worked today\n" +
		"/week — hours this week\n" +
		"/pay — this week's pay\n" +
		"/rate <value> — set your hourly rate\n" +
		"/tz <Region/City> — set your timezone\n" +
		"/export — CSV export of this week\n" +
		"/status — current state\n\n" +
		"Every week I send a summary and a CSV, then start a fresh week."

	clockedInFmt   = "🟢 Clocked in at %s."
	alreadyOpenFmt = "You are already clocked in%s. Use /out first."
	clockedOutFmt  = "🔴 Clocked out. Session: %s."
	noOpenText     = "You are not clocked in. Use /in to start."

	todayFmt = "⏱ Today: %s"
	weekFmt  = "📅 Week of %s: %s"
	payFmt   = "💰 Week of %s: %s → %s (at %s/h)"

	invalidRateText = "Rate must be a positive number, e.g. /rate 2.50"
	rateSetFmt      = "Rate set to %s/h. Applies to every computation from now on."
	tzUsageText     = "Usage: /tz Region/City (e.g. /tz Europe/Moscow)"
	invalidTZText   = "Invalid timezone. Example: Europe/Moscow"
	tzSetFmt        = "Timezone set to %s."

	exportCaptionFmt = "CSV export for week of %s"
	resetDayFmt      = "🗑 Removed %d session(s) for today."
	resetWeekFmt     = "🗑 Removed %d session(s) for this week."

	statusOpenFmt    = "🟢 Clocked in since %s (%s so far)"
	statusClosedText = "⚪ Not clocked in"
	statusFmt        = "🧾 Status:\n%s\n• Today: %s\n• Week of %s: %s\n• Rate: %s/h\n• TZ: %s"

	notAdminText    = "This command is for the admin."
	rolloverDoneFmt = "Rollover for week of %s: %d processed, %d skipped, %d failed, %d session(s) cleared."
	rolloverHeldFmt = "Rollover for week of %s is already running or done."
	errRolloverText = "Rollover failed, check the logs."

	unknownText     = "Unknown command. Try /start for the list."
	errProfileText  = "Profile initialization error. Please try again later."
	errClockInText  = "Could not clock you in. Please try again."
	errClockOutText = "Could not clock you out. Please try again."
	errQueryText    = "Error reading your data. Please try again."
	errSaveText     = "Could not save that. Please try again."
	errDeliverText  = "Could not deliver the export. Please try again."
)

// mainMenuKeyboard builds the persistent reply keyboard with the everyday
// commands.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/in"),
			tgbotapi.NewKeyboardButton("/out"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/today"),
			tgbotapi.NewKeyboardButton("/week"),
			tgbotapi.NewKeyboardButton("/pay"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/status"),
			tgbotapi.NewKeyboardButton("/export"),
		),
	)
}
