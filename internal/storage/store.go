package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aeronjay/MediRemind/internal/domain"
)

// SettingNotifyEnabled persists the notification permission across restarts.
const SettingNotifyEnabled = "notify.enabled"

// Store is implemented by every backend.
type Store interface {
	GetAll(ctx context.Context) ([]*domain.Reminder, error)
	Get(ctx context.Context, id string) (*domain.Reminder, error)
	Insert(ctx context.Context, r *domain.Reminder) error
	UpdateActive(ctx context.Context, id string, active bool) error
	UpdateFields(ctx context.Context, id string, p domain.Patch) error
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Reminder, error)

	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	DeliveryTargets(ctx context.Context) ([]int64, error)

	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Open picks the backend by driver name: "sqlite3", "sqlite" or "postgres".
func Open(ctx context.Context, driver, path, url string) (Store, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return NewSQLite(driver, path)
	case "postgres":
		return NewPostgres(ctx, url)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

// NotifyEnabled reads the persisted permission, falling back to def.
func NotifyEnabled(ctx context.Context, s Store, def bool) (bool, error) {
	v, ok, err := s.GetSetting(ctx, SettingNotifyEnabled)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v == "true", nil
}

func SetNotifyEnabled(ctx context.Context, s Store, on bool) error {
	v := "false"
	if on {
		v = "true"
	}
	return s.SetSetting(ctx, SettingNotifyEnabled, v)
}
