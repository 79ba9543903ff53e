package telegram

import "strings"

// Command is the closed set of bot commands. Raw text is decided once here
// at the boundary; everything past the router works with typed calls.
type Command int

const (
	CmdUnknown Command = iota
	CmdStart
	CmdIn
	CmdOut
	CmdToday
	CmdWeek
	CmdPay
	CmdRate
	CmdTZ
	CmdExport
	CmdResetDay
	CmdResetWeek
	CmdStatus
	CmdRollover
)

var commands = map[string]Command{
	"/start":     CmdStart,
	"/in":        CmdIn,
	"/out":       CmdOut,
	"/today":     CmdToday,
	"/week":      CmdWeek,
	"/pay":       CmdPay,
	"/rate":      CmdRate,
	"/tz":        CmdTZ,
	"/export":    CmdExport,
	"/resetday":  CmdResetDay,
	"/resetweek": CmdResetWeek,
	"/status":    CmdStatus,
	"/rollover":  CmdRollover,
}

// ParseCommand maps message text to a command and its argument. The
// "@botname" suffix Telegram appends in group chats is stripped.
func ParseCommand(text string) (Command, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return CmdUnknown, ""
	}
	word, arg, _ := strings.Cut(text, " ")
	if at := strings.Index(word, "@"); at > 0 {
		word = word[:at]
	}
	cmd, ok := commands[strings.ToLower(word)]
	if !ok {
		return CmdUnknown, ""
	}
	return cmd, strings.TrimSpace(arg)
}
