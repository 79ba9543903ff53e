package telegram

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in      string
		wantCmd Command
		wantArg string
	}{
		{"/start", CmdStart, ""},
		{"/in", CmdIn, ""},
		{"/out", CmdOut, ""},
		{"/today", CmdToday, ""},
		{"/week", CmdWeek, ""},
		{"/pay", CmdPay, ""},
		{"/rate 2.50", CmdRate, "2.50"},
		{"/rate   3", CmdRate, "3"},
		{"/tz Europe/Moscow", CmdTZ, "Europe/Moscow"},
		{"/export", CmdExport, ""},
		{"/resetday", CmdResetDay, ""},
		{"/resetweek", CmdResetWeek, ""},
		{"/status", CmdStatus, ""},
		{"/rollover", CmdRollover, ""},
		{"/in@workhoursbot", CmdIn, ""},
		{"/rate@workhoursbot 2.50", CmdRate, "2.50"},
		{"  /week  ", CmdWeek, ""},
		{"/IN", CmdIn, ""},
		{"hello", CmdUnknown, ""},
		{"/unknown", CmdUnknown, ""},
		{"", CmdUnknown, ""},
	}
	for _, c := range cases {
		cmd, arg := ParseCommand(c.in)
		if cmd != c.wantCmd || arg != c.wantArg {
			t.Errorf("ParseCommand(%q) = (%v, %q), want (%v, %q)",
				c.in, cmd, arg, c.wantCmd, c.wantArg)
		}
	}
}
