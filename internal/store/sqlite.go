package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; one connection also serializes the
	// read-modify-write pairs in CloseSession.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// UpsertUser inserts or updates a user's profile. Overrides (tz, rate) are
// written as given; nil clears nothing here because existing rows keep their
// values via COALESCE on conflict.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (chat_id, display_name, tz, rate, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			display_name = excluded.display_name,
			tz           = COALESCE(excluded.tz, users.tz),
			rate         = COALESCE(excluded.rate, users.rate)`,
		u.ChatID, u.DisplayName, toNullString(u.TZ), toNullFloat64(u.Rate), created,
	)
	return err
}

// GetUser returns a user by chatID or sql.ErrNoRows if not found.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT chat_id, display_name, tz, rate, created_at
		FROM users
		WHERE chat_id = ?`,
		chatID,
	)
	return scanUser(row)
}

// ListUsers returns every known user, oldest first.
func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, display_name, tz, rate, created_at
		FROM users
		ORDER BY created_at ASC, chat_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		chatID    int64
		name      string
		tz        sql.NullString
		rate      sql.NullFloat64
		createdAt int64
	)
	if err := row.Scan(&chatID, &name, &tz, &rate, &createdAt); err != nil {
		return nil, err
	}
	return &domain.User{
		ChatID:      chatID,
		DisplayName: name,
		TZ:          fromNullString(tz),
		Rate:        fromNullFloat64(rate),
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
	}, nil
}

// SetRate persists the per-user hourly rate override.
func (r *SQLiteRepo) SetRate(ctx context.Context, chatID int64, rate float64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET rate = ? WHERE chat_id = ?`, rate, chatID)
	return err
}

// SetTZ persists the per-user timezone override.
func (r *SQLiteRepo) SetTZ(ctx context.Context, chatID int64, tz string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET tz = ? WHERE chat_id = ?`, tz, chatID)
	return err
}

// --- Delivery endpoints ---

// RegisterChat records a delivery endpoint for a user. Idempotent.
func (r *SQLiteRepo) RegisterChat(ctx context.Context, userChatID, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chats (user_chat_id, chat_id, created_at)
		VALUES (?, ?, ?)`,
		userChatID, chatID, time.Now().UTC().Unix(),
	)
	return err
}

// ListChats returns every registered endpoint for a user, oldest first.
func (r *SQLiteRepo) ListChats(ctx context.Context, userChatID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id FROM chats
		WHERE user_chat_id = ?
		ORDER BY created_at ASC, chat_id ASC`,
		userChatID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// --- Session ledger ---

// OpenSession creates a new open session unless one already exists for the
// user. The guard and the insert are a single statement, so two concurrent
// clock-ins cannot both succeed.
func (r *SQLiteRepo) OpenSession(ctx context.Context, s *domain.Session) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, chat_id, day_key, start_at)
		SELECT ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM sessions WHERE chat_id = ? AND end_at IS NULL
		)`,
		s.ID, s.ChatID, s.DayKey, s.StartAt.UTC().Unix(), s.ChatID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyOpen
	}
	return nil
}

// CloseSession closes the user's open session at now and returns it.
// Runs in a transaction so the read and the update cannot interleave with
// another clock-out.
func (r *SQLiteRepo) CloseSession(ctx context.Context, chatID int64, now time.Time) (*domain.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, day_key, start_at FROM sessions
		WHERE chat_id = ? AND end_at IS NULL`,
		chatID,
	)
	var (
		id      string
		dayKey  string
		startAt int64
	)
	if err := row.Scan(&id, &dayKey, &startAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoOpenSession
		}
		return nil, err
	}

	end := now.UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET end_at = ? WHERE id = ?`, end.Unix(), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	endCopy := end
	return &domain.Session{
		ID:      id,
		ChatID:  chatID,
		DayKey:  dayKey,
		StartAt: time.Unix(startAt, 0).UTC(),
		EndAt:   &endCopy,
	}, nil
}

// GetOpenSession returns the user's open session, or (nil, nil) if none.
func (r *SQLiteRepo) GetOpenSession(ctx context.Context, chatID int64) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, day_key, start_at, end_at FROM sessions
		WHERE chat_id = ? AND end_at IS NULL`,
		chatID,
	)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListSessions returns the sessions filed under the given day-keys, ordered
// by day then start time. Includes an open session whose day falls in the
// range.
func (r *SQLiteRepo) ListSessions(ctx context.Context, chatID int64, dayKeys []string) ([]domain.Session, error) {
	if len(dayKeys) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`
		SELECT id, chat_id, day_key, start_at, end_at FROM sessions
		WHERE chat_id = ? AND day_key IN (%s)
		ORDER BY day_key ASC, start_at ASC`, placeholders(len(dayKeys)))

	rows, err := r.db.QueryContext(ctx, q, keyArgs(chatID, dayKeys)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		id      string
		chatID  int64
		dayKey  string
		startAt int64
		endAt   sql.NullInt64
	)
	if err := row.Scan(&id, &chatID, &dayKey, &startAt, &endAt); err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:      id,
		ChatID:  chatID,
		DayKey:  dayKey,
		StartAt: time.Unix(startAt, 0).UTC(),
		EndAt:   fromNullTime(endAt),
	}, nil
}

// DayTotals aggregates closed sessions per day-key within the given keys.
// Days without closed sessions are absent from the result.
func (r *SQLiteRepo) DayTotals(ctx context.Context, chatID int64, dayKeys []string) ([]domain.DayBucket, error) {
	if len(dayKeys) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`
		SELECT day_key, COUNT(*), SUM(end_at - start_at) FROM sessions
		WHERE chat_id = ? AND end_at IS NOT NULL AND day_key IN (%s)
		GROUP BY day_key
		ORDER BY day_key ASC`, placeholders(len(dayKeys)))

	rows, err := r.db.QueryContext(ctx, q, keyArgs(chatID, dayKeys)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.DayBucket
	for rows.Next() {
		var (
			day     string
			count   int
			seconds int64
		)
		if err := rows.Scan(&day, &count, &seconds); err != nil {
			return nil, err
		}
		if seconds < 0 {
			seconds = 0
		}
		res = append(res, domain.DayBucket{
			Date:     day,
			Sessions: count,
			Total:    time.Duration(seconds) * time.Second,
		})
	}
	return res, rows.Err()
}

// DeleteSessions removes every session filed under the given day-keys,
// open ones included, and returns the number of rows removed.
func (r *SQLiteRepo) DeleteSessions(ctx context.Context, chatID int64, dayKeys []string) (int64, error) {
	if len(dayKeys) == 0 {
		return 0, nil
	}
	q := fmt.Sprintf(`
		DELETE FROM sessions
		WHERE chat_id = ? AND day_key IN (%s)`, placeholders(len(dayKeys)))

	res, err := r.db.ExecContext(ctx, q, keyArgs(chatID, dayKeys)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Rollover lock ---

// AcquireRolloverLock sweeps expired locks, then claims the week via
// INSERT OR IGNORE. A zero rows-affected result means another run holds it.
func (r *SQLiteRepo) AcquireRolloverLock(ctx context.Context, weekKey string, now time.Time, ttl time.Duration) error {
	nowUnix := now.UTC().Unix()
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM rollover_locks WHERE expires_at <= ?`, nowUnix); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO rollover_locks (week_key, acquired_at, expires_at)
		VALUES (?, ?, ?)`,
		weekKey, nowUnix, now.UTC().Add(ttl).Unix(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockHeld
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func keyArgs(chatID int64, dayKeys []string) []any {
	args := make([]any, 0, len(dayKeys)+1)
	args = append(args, chatID)
	for _, k := range dayKeys {
		args = append(args, k)
	}
	return args
}
