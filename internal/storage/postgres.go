package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aeronjay/MediRemind/internal/domain"
)

// Pool is the subset of *pgxpool.Pool the Postgres store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is the PostgreSQL counterpart of SQLite.
type Postgres struct {
	pool Pool
}

func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	p := NewPostgresWithPool(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var pgMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		telegram_id BIGINT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'owner',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reminders (
		id TEXT PRIMARY KEY,
		time TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		label TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_active ON reminders(active)`,
	`ALTER TABLE reminders ADD COLUMN IF NOT EXISTS frequency TEXT NOT NULL DEFAULT 'daily'`,
	`ALTER TABLE reminders ADD COLUMN IF NOT EXISTS custom_days TEXT`,
	`ALTER TABLE reminders ADD COLUMN IF NOT EXISTS until TEXT`,
	`ALTER TABLE reminders ADD COLUMN IF NOT EXISTS alarm_type TEXT NOT NULL DEFAULT 'notification'`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

func (p *Postgres) Migrate(ctx context.Context) error {
	for _, m := range pgMigrations {
		if _, err := p.pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// === Reminders ===

func (p *Postgres) queryReminders(ctx context.Context, query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := p.pool.Query(ctx, query, args...)
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

func (p *Postgres) GetAll(ctx context.Context) ([]*domain.Reminder, error) {
	return p.queryReminders(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY time, created_at`)
}

func (p *Postgres) Get(ctx context.Context, id string) (*domain.Reminder, error) {
	r, err := scanReminder(p.pool.QueryRow(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (p *Postgres) Insert(ctx context.Context, r *domain.Reminder) error {
	days, err := encodeDays(r.CustomDays)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err = p.pool.Exec(ctx,
		`INSERT INTO reminders (id, time, active, label, frequency, custom_days, until, alarm_type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.Time, r.Active, r.Label, string(r.Frequency), days, encodeUntil(r.Until), string(r.AlarmType), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (p *Postgres) UpdateActive(ctx context.Context, id string, active bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE reminders SET active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateFields(ctx context.Context, id string, patch domain.Patch) error {
	cols, args, err := patchColumns(patch)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}
	set := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", c, i+1))
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", len(cols)+1))
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf(`UPDATE reminders SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args))
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	return err
}

func (p *Postgres) ListExpired(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	return p.queryReminders(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE active AND until IS NOT NULL AND until <> '' AND until < $1
		 ORDER BY time`,
		now.Format(domain.UntilLayout),
	)
}

// === Users ===

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (telegram_id, name, role) VALUES ($1, $2, $3) RETURNING id, created_at`,
		u.TelegramID, u.Name, string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
	return err
}

func (p *Postgres) GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := p.pool.QueryRow(ctx,
		`SELECT id, telegram_id, name, role, created_at FROM users WHERE telegram_id = $1`,
		telegramID,
	).Scan(&u.ID, &u.TelegramID, &u.Name, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return u, nil
}

func (p *Postgres) DeliveryTargets(ctx context.Context) ([]int64, error) {
	rows, err := p.pool.Query(ctx, `SELECT telegram_id FROM users ORDER BY id`)
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

func (p *Postgres) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (p *Postgres) SetSetting(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}
