package rollover

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
	"github.com/ariesizone2311/tgworkhoursbot/internal/store"
	"github.com/ariesizone2311/tgworkhoursbot/internal/tracker"
)

type fakeNotifier struct {
	mu      sync.Mutex
	msgs    map[int64][]string
	docs    map[int64][]string
	failFor map[int64]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		msgs:    make(map[int64][]string),
		docs:    make(map[int64][]string),
		failFor: make(map[int64]bool),
	}
}

func (f *fakeNotifier) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("send failed")
	}
	f.msgs[chatID] = append(f.msgs[chatID], text)
	return nil
}

func (f *fakeNotifier) SendDocument(chatID int64, name string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[chatID] {
		return errors.New("send failed")
	}
	f.docs[chatID] = append(f.docs[chatID], name)
	return nil
}

func (f *fakeNotifier) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		n += len(m)
	}
	return n
}

type fixture struct {
	repo   *store.MemoryRepo
	trk    *tracker.Tracker
	notify *fakeNotifier
	eng    *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cal, err := domain.NewCalendar("UTC", time.Monday)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}
	repo := store.NewMemoryRepo()
	trk := tracker.New(repo, cal, 2.50, zap.NewNop())
	notify := newFakeNotifier()
	eng := New(repo, trk, notify, time.Hour, "$", zap.NewNop())
	return &fixture{repo: repo, trk: trk, notify: notify, eng: eng}
}

func (f *fixture) addUser(t *testing.T, chatID int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.trk.EnsureUser(ctx, chatID, "worker"); err != nil {
		t.Fatalf("ensure user %d: %v", chatID, err)
	}
}

func (f *fixture) addClosedSession(t *testing.T, chatID int64, start time.Time, d time.Duration) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.trk.ClockIn(ctx, chatID, start); err != nil {
		t.Fatalf("clock-in %d: %v", chatID, err)
	}
	if _, err := f.trk.ClockOut(ctx, chatID, start.Add(d)); err != nil {
		t.Fatalf("clock-out %d: %v", chatID, err)
	}
}

// Monday of the week under test; runs happen in the following week.
var (
	prevMonday = time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC)
	runAt      = time.Date(2025, time.May, 5, 1, 0, 0, 0, time.UTC)
)

func TestRun_DeliversAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	f.addUser(t, 2) // no data, must be skipped
	f.addClosedSession(t, 1, prevMonday.Add(9*time.Hour), 8*time.Hour+30*time.Minute)

	rep, err := f.eng.Run(ctx, runAt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.WeekKey != "2025-04-28" {
		t.Fatalf("week key = %s, want 2025-04-28", rep.WeekKey)
	}
	if rep.Processed != 1 || rep.Skipped != 1 || rep.Failed != 0 || rep.Deleted != 1 {
		t.Fatalf("report = %+v", rep)
	}

	if got := len(f.notify.msgs[1]); got != 1 {
		t.Fatalf("user 1 got %d messages, want 1", got)
	}
	summary := f.notify.msgs[1][0]
	for _, want := range []string{"2025-04-28", "8h 30m", "$21.25", "$2.50"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary %q missing %q", summary, want)
		}
	}
	if got := f.notify.docs[1]; len(got) != 1 || got[0] != "week_2025-04-28.csv" {
		t.Fatalf("user 1 docs = %v", got)
	}
	if got := len(f.notify.msgs[2]); got != 0 {
		t.Fatalf("empty user got %d messages, want 0", got)
	}

	// Data for the rolled-over week is gone.
	ss, err := f.repo.ListSessions(ctx, 1, weekKeys(t, f, "2025-04-28"))
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(ss) != 0 {
		t.Fatalf("rolled-over week kept %d sessions, want 0", len(ss))
	}
}

func TestRun_TwiceIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	f.addClosedSession(t, 1, prevMonday.Add(9*time.Hour), 2*time.Hour)

	if _, err := f.eng.Run(ctx, runAt); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := f.notify.messageCount()

	rep, err := f.eng.Run(ctx, runAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !rep.LockHeld {
		t.Fatalf("second run did not observe the lock: %+v", rep)
	}
	if rep.Processed != 0 || rep.Deleted != 0 {
		t.Fatalf("second run did work: %+v", rep)
	}
	if f.notify.messageCount() != before {
		t.Fatalf("second run sent messages")
	}
}

func TestRun_AfterLockExpiry_NothingLeftToDo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	f.addClosedSession(t, 1, prevMonday.Add(9*time.Hour), 2*time.Hour)

	if _, err := f.eng.Run(ctx, runAt); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := f.notify.messageCount()

	// Lock TTL is 1h; two hours later the lock is gone but so is the data.
	rep, err := f.eng.Run(ctx, runAt.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("late run: %v", err)
	}
	if rep.LockHeld {
		t.Fatalf("expired lock still held")
	}
	if rep.Processed != 0 || rep.Deleted != 0 || f.notify.messageCount() != before {
		t.Fatalf("late run re-processed a reset week: %+v", rep)
	}
}

func TestRun_DeliveryFailureIsolatedAndDataKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	f.addUser(t, 2)
	f.addClosedSession(t, 1, prevMonday.Add(9*time.Hour), 2*time.Hour)
	f.addClosedSession(t, 2, prevMonday.Add(10*time.Hour), 3*time.Hour)
	f.notify.failFor[1] = true

	rep, err := f.eng.Run(ctx, runAt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Processed != 1 || rep.Failed != 1 {
		t.Fatalf("report = %+v", rep)
	}

	// User 1's week survived for a retry; user 2's was cleared.
	keys := weekKeys(t, f, "2025-04-28")
	ss1, _ := f.repo.ListSessions(ctx, 1, keys)
	ss2, _ := f.repo.ListSessions(ctx, 2, keys)
	if len(ss1) != 1 {
		t.Fatalf("failed user's sessions = %d, want 1 (kept)", len(ss1))
	}
	if len(ss2) != 0 {
		t.Fatalf("delivered user's sessions = %d, want 0 (reset)", len(ss2))
	}
}

func TestRun_StorageFailureIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	f.addUser(t, 2)
	f.addClosedSession(t, 2, prevMonday.Add(10*time.Hour), 3*time.Hour)
	f.repo.FailFor = map[int64]error{1: errors.New("storage down")}

	rep, err := f.eng.Run(ctx, runAt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Failed != 1 || rep.Processed != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if len(f.notify.msgs[2]) != 1 {
		t.Fatalf("healthy user was not processed")
	}
}

func TestRun_OpenSessionClampedAtBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addUser(t, 1)
	// Clocked in Sunday 23:00 of the closing week, still running at rollover.
	sun2300 := prevMonday.AddDate(0, 0, 6).Add(23 * time.Hour)
	if _, err := f.trk.ClockIn(ctx, 1, sun2300); err != nil {
		t.Fatalf("clock-in: %v", err)
	}

	rep, err := f.eng.Run(ctx, runAt)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Processed != 1 || rep.Deleted != 1 {
		t.Fatalf("report = %+v", rep)
	}

	// Credit stops at the week boundary: exactly 1h, not the 2h elapsed.
	summary := f.notify.msgs[1][0]
	if !strings.Contains(summary, "1h 0m") {
		t.Fatalf("summary %q, want 1h 0m of boundary-clamped credit", summary)
	}

	// The open-session marker was cleared by the reset.
	open, err := f.repo.GetOpenSession(ctx, 1)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if open != nil {
		t.Fatalf("open session survived rollover reset")
	}
}

func weekKeys(t *testing.T, f *fixture, weekKey string) []string {
	t.Helper()
	keys, err := f.trk.Calendar().DayKeys(weekKey)
	if err != nil {
		t.Fatalf("day keys: %v", err)
	}
	return keys
}
