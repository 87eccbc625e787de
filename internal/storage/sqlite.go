package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aeronjay/MediRemind/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite stores reminders and delivery chats in a single SQLite file. The
// driver is either "sqlite3" (mattn, CGo) or "sqlite" (modernc, pure Go).
type SQLite struct {
	db *sql.DB
}

func NewSQLite(driver, dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	var dsn string
	switch driver {
	case "sqlite3":
		dsn = dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	case "sqlite":
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	default:
		return nil, fmt.Errorf("unsupported sqlite driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'owner',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			time TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1,
			label TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_active ON reminders(active)`,
		// Recurrence
		`ALTER TABLE reminders ADD COLUMN frequency TEXT NOT NULL DEFAULT 'daily'`,
		`ALTER TABLE reminders ADD COLUMN custom_days TEXT`,
		`ALTER TABLE reminders ADD COLUMN until TEXT`,
		// Urgency
		`ALTER TABLE reminders ADD COLUMN alarm_type TEXT NOT NULL DEFAULT 'notification'`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Reminders ===

const reminderColumns = `id, time, active, label, frequency, COALESCE(custom_days, ''), COALESCE(until, ''), alarm_type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	r := &domain.Reminder{}
	var freq, days, until, alarm string
	if err := row.Scan(&r.ID, &r.Time, &r.Active, &r.Label, &freq, &days, &until, &alarm, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := fillDerived(r, freq, days, until, alarm); err != nil {
		return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *SQLite) queryReminders(ctx context.Context, query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// GetAll returns every reminder ordered by time of day.
func (s *SQLite) GetAll(ctx context.Context) ([]*domain.Reminder, error) {
	return s.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY time, created_at`)
}

func (s *SQLite) Get(ctx context.Context, id string) (*domain.Reminder, error) {
	r, err := scanReminder(s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *SQLite) Insert(ctx context.Context, r *domain.Reminder) error {
	days, err := encodeDays(r.CustomDays)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, time, active, label, frequency, custom_days, until, alarm_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Time, r.Active, r.Label, string(r.Frequency), days, encodeUntil(r.Until), string(r.AlarmType), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *SQLite) UpdateActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLite) UpdateFields(ctx context.Context, id string, p domain.Patch) error {
	cols, args, err := patchColumns(p)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	set := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		set = append(set, c+" = ?")
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	return err
}

// ListExpired returns active reminders whose end date is before the day of now.
func (s *SQLite) ListExpired(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	return s.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE active = 1 AND until IS NOT NULL AND until <> '' AND until < ?
		 ORDER BY time`,
		now.Format(domain.UntilLayout),
	)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// === Users ===

func (s *SQLite) CreateUser(ctx context.Context, u *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (telegram_id, name, role) VALUES (?, ?, ?)`,
		u.TelegramID, u.Name, u.Role,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	u.ID = id
	u.CreatedAt = time.Now()
	return nil
}

func (s *SQLite) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, telegram_id, name, role, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	).Scan(&u.ID, &u.TelegramID, &u.Name, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *SQLite) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, telegram_id, name, role, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Name, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeliveryTargets returns the chat ids of every registered user.
func (s *SQLite) DeliveryTargets(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// === Settings ===

// GetSetting returns the stored value and whether the key exists.
func (s *SQLite) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLite) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
