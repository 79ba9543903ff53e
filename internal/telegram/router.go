package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/rollover"
	"github.com/ariesizone2311/tgworkhoursbot/internal/tracker"
)

// Router wires Telegram updates to handlers. Every command gets a reply,
// success or explanatory failure.
type Router struct {
	bot         *tgbotapi.BotAPI
	log         *zap.Logger
	trk         *tracker.Tracker
	eng         *rollover.Engine
	adminChatID int64
	currency    string
}

// NewRouter creates a new Telegram router. The rollover engine is attached
// later (AttachRollover) because the engine delivers through the router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, trk *tracker.Tracker, adminChatID int64, currency string) *Router {
	return &Router{
		bot:         bot,
		log:         log,
		trk:         trk,
		adminChatID: adminChatID,
		currency:    currency,
	}
}

// AttachRollover registers the engine behind the /rollover admin command.
func (r *Router) AttachRollover(eng *rollover.Engine) { r.eng = eng }

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	chatID := msg.Chat.ID

	u, err := r.trk.EnsureUser(ctx, chatID, displayName(msg))
	if err != nil {
		r.log.Error("ensure user failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, errProfileText)
		return
	}

	cmd, arg := ParseCommand(msg.Text)
	now := time.Now().UTC()

	switch cmd {
	case CmdStart:
		r.handleStart(chatID)
	case CmdIn:
		r.handleClockIn(ctx, u, now)
	case CmdOut:
		r.handleClockOut(ctx, u, now)
	case CmdToday:
		r.handleToday(ctx, u, now)
	case CmdWeek:
		r.handleWeek(ctx, u, now)
	case CmdPay:
		r.handlePay(ctx, u, now)
	case CmdRate:
		r.handleRate(ctx, u, arg)
	case CmdTZ:
		r.handleTZ(ctx, u, arg)
	case CmdExport:
		r.handleExport(ctx, u, now)
	case CmdResetDay:
		r.handleResetDay(ctx, u, now)
	case CmdResetWeek:
		r.handleResetWeek(ctx, u, now)
	case CmdStatus:
		r.handleStatus(ctx, u, now)
	case CmdRollover:
		r.handleRollover(ctx, u, now)
	default:
		r.sendText(chatID, unknownText)
	}
}

func displayName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}
	return msg.From.FirstName
}

// SendMessage sends a plain text message to the given chat.
// Together with SendDocument this makes Router satisfy rollover.Notifier.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendDocument sends a named file payload to the given chat.
func (r *Router) SendDocument(chatID int64, name string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	_, err := r.bot.Send(doc)
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
