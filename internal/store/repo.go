package store

import (
	"context"
	"errors"
	"time"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
)

// ErrLockHeld is returned by AcquireRolloverLock when another run already
// holds the lock for that week. Callers treat it as a silent no-op.
var ErrLockHeld = errors.New("rollover lock held")

// Repo defines storage operations for users, the session ledger and the
// rollover lock. Implementations must make OpenSession and CloseSession
// atomic with respect to the open-session marker.
type Repo interface {
	// Users.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SetRate(ctx context.Context, chatID int64, rate float64) error
	SetTZ(ctx context.Context, chatID int64, tz string) error

	// Delivery endpoints. RegisterChat is idempotent; the set only grows.
	RegisterChat(ctx context.Context, userChatID, chatID int64) error
	ListChats(ctx context.Context, userChatID int64) ([]int64, error)

	// Session ledger. OpenSession fails with domain.ErrAlreadyOpen if an
	// open session exists; CloseSession fails with domain.ErrNoOpenSession
	// and returns the closed session otherwise. GetOpenSession returns
	// (nil, nil) when there is none.
	OpenSession(ctx context.Context, s *domain.Session) error
	CloseSession(ctx context.Context, chatID int64, now time.Time) (*domain.Session, error)
	GetOpenSession(ctx context.Context, chatID int64) (*domain.Session, error)
	ListSessions(ctx context.Context, chatID int64, dayKeys []string) ([]domain.Session, error)
	DayTotals(ctx context.Context, chatID int64, dayKeys []string) ([]domain.DayBucket, error)
	DeleteSessions(ctx context.Context, chatID int64, dayKeys []string) (int64, error)

	// Rollover lock: compare-and-set-if-absent with bounded expiry.
	AcquireRolloverLock(ctx context.Context, weekKey string, now time.Time, ttl time.Duration) error

	Close() error
}
