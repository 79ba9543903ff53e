package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
)

// MemoryRepo is an in-memory Repo used by tests. It mirrors the semantics of
// the SQLite implementation, including the open-session compare-and-set and
// the lock expiry.
type MemoryRepo struct {
	mu       sync.Mutex
	users    map[int64]*domain.User
	chats    map[int64][]int64
	sessions []*domain.Session
	locks    map[string]time.Time // weekKey -> expiry

	// FailFor makes ledger reads fail for specific users, to exercise
	// per-user error isolation in the rollover engine.
	FailFor map[int64]error
}

// NewMemoryRepo returns an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users: make(map[int64]*domain.User),
		chats: make(map[int64][]int64),
		locks: make(map[string]time.Time),
	}
}

func (m *MemoryRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	if old, ok := m.users[u.ChatID]; ok {
		if cp.TZ == nil {
			cp.TZ = old.TZ
		}
		if cp.Rate == nil {
			cp.Rate = old.Rate
		}
		cp.CreatedAt = old.CreatedAt
	}
	m.users[u.ChatID] = &cp
	return nil
}

func (m *MemoryRepo) GetUser(_ context.Context, chatID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[chatID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepo) ListUsers(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ChatID < res[j].ChatID })
	return res, nil
}

func (m *MemoryRepo) SetRate(_ context.Context, chatID int64, rate float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[chatID]; ok {
		u.Rate = &rate
	}
	return nil
}

func (m *MemoryRepo) SetTZ(_ context.Context, chatID int64, tz string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[chatID]; ok {
		u.TZ = &tz
	}
	return nil
}

func (m *MemoryRepo) RegisterChat(_ context.Context, userChatID, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.chats[userChatID] {
		if id == chatID {
			return nil
		}
	}
	m.chats[userChatID] = append(m.chats[userChatID], chatID)
	return nil
}

func (m *MemoryRepo) ListChats(_ context.Context, userChatID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.chats[userChatID]...), nil
}

func (m *MemoryRepo) OpenSession(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.sessions {
		if ex.ChatID == s.ChatID && ex.EndAt == nil {
			return domain.ErrAlreadyOpen
		}
	}
	cp := *s
	m.sessions = append(m.sessions, &cp)
	return nil
}

func (m *MemoryRepo) CloseSession(_ context.Context, chatID int64, now time.Time) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ChatID == chatID && s.EndAt == nil {
			end := now.UTC()
			s.EndAt = &end
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNoOpenSession
}

func (m *MemoryRepo) GetOpenSession(_ context.Context, chatID int64) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailFor[chatID]; err != nil {
		return nil, err
	}
	for _, s := range m.sessions {
		if s.ChatID == chatID && s.EndAt == nil {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepo) ListSessions(_ context.Context, chatID int64, dayKeys []string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailFor[chatID]; err != nil {
		return nil, err
	}
	var res []domain.Session
	for _, s := range m.sessions {
		if s.ChatID == chatID && containsKey(dayKeys, s.DayKey) {
			res = append(res, *s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].DayKey != res[j].DayKey {
			return res[i].DayKey < res[j].DayKey
		}
		return res[i].StartAt.Before(res[j].StartAt)
	})
	return res, nil
}

func (m *MemoryRepo) DayTotals(_ context.Context, chatID int64, dayKeys []string) ([]domain.DayBucket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailFor[chatID]; err != nil {
		return nil, err
	}
	byDay := make(map[string]*domain.DayBucket)
	for _, s := range m.sessions {
		if s.ChatID != chatID || s.EndAt == nil || !containsKey(dayKeys, s.DayKey) {
			continue
		}
		b, ok := byDay[s.DayKey]
		if !ok {
			b = &domain.DayBucket{Date: s.DayKey}
			byDay[s.DayKey] = b
		}
		b.Sessions++
		if d := s.EndAt.Sub(s.StartAt); d > 0 {
			b.Total += d
		}
	}
	res := make([]domain.DayBucket, 0, len(byDay))
	for _, b := range byDay {
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (m *MemoryRepo) DeleteSessions(_ context.Context, chatID int64, dayKeys []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.Session
	var removed int64
	for _, s := range m.sessions {
		if s.ChatID == chatID && containsKey(dayKeys, s.DayKey) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return removed, nil
}

func (m *MemoryRepo) AcquireRolloverLock(_ context.Context, weekKey string, now time.Time, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.locks[weekKey]; ok && exp.After(now) {
		return ErrLockHeld
	}
	m.locks[weekKey] = now.Add(ttl)
	return nil
}

func (m *MemoryRepo) Close() error { return nil }

func containsKey(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
