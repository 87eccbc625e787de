package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeronjay/MediRemind/internal/domain"
)

var reminderCols = []string{"id", "time", "active", "label", "frequency", "custom_days", "until", "alarm_type", "created_at", "updated_at"}

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	p, mock := newMockPostgres(t)
	for range pgMigrations {
		mock.ExpectExec(".+").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, p.Migrate(context.Background()))
}

func TestPostgresMigrateFails(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))
	assert.Error(t, p.Migrate(context.Background()))
}

func TestPostgresGet(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM reminders WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows(reminderCols).
			AddRow("r1", "09:30", true, "Lisinopril", "custom", `["Monday","Friday"]`, "2026-06-30", "alarm", created, created))

	r, err := p.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "09:30", r.Time)
	assert.Equal(t, domain.FrequencyCustom, r.Frequency)
	assert.Equal(t, []string{"Monday", "Friday"}, r.CustomDays)
	require.NotNil(t, r.Until)
	assert.Equal(t, "2026-06-30", r.Until.Format(domain.UntilLayout))
	assert.Equal(t, domain.AlarmTypeAlarm, r.AlarmType)
	assert.Equal(t, created, r.CreatedAt)
}

func TestPostgresGetMissing(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`FROM reminders WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	r, err := p.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestPostgresGetAll(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM reminders ORDER BY time`).
		WillReturnRows(pgxmock.NewRows(reminderCols).
			AddRow("a", "07:00", true, "A", "daily", "", "", "notification", now, now).
			AddRow("b", "20:00", false, "B", "weekdays", "", "", "notification", now, now))

	all, err := p.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.FrequencyWeekdays, all[1].Frequency)
	assert.False(t, all[1].Active)
	assert.Nil(t, all[0].Until)
}

func TestPostgresInsert(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec(`INSERT INTO reminders`).
		WithArgs("n1", "08:00", true, "Insulin", "daily", pgxmock.AnyArg(), pgxmock.AnyArg(), "alarm", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	r := &domain.Reminder{ID: "n1", Time: "08:00", Label: "Insulin", Active: true,
		Frequency: domain.FrequencyDaily, AlarmType: domain.AlarmTypeAlarm}
	require.NoError(t, p.Insert(context.Background(), r))
	assert.False(t, r.CreatedAt.IsZero())
}

func TestPostgresUpdateActive(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec(`UPDATE reminders SET active = \$1`).
		WithArgs(false, pgxmock.AnyArg(), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE reminders SET active = \$1`).
		WithArgs(true, pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, p.UpdateActive(context.Background(), "r1", false))
	assert.ErrorIs(t, p.UpdateActive(context.Background(), "ghost", true), domain.ErrNotFound)
}

func TestPostgresUpdateFields(t *testing.T) {
	p, mock := newMockPostgres(t)
	label := "Metformin 850mg"
	alarm := domain.AlarmTypeAlarm
	mock.ExpectExec(`UPDATE reminders SET label = \$1, alarm_type = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs(label, "alarm", pgxmock.AnyArg(), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, p.UpdateFields(context.Background(), "r1", domain.Patch{Label: &label, AlarmType: &alarm}))
	require.NoError(t, p.UpdateFields(context.Background(), "r1", domain.Patch{}))
}

func TestPostgresListExpired(t *testing.T) {
	p, mock := newMockPostgres(t)
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`until < \$1`).
		WithArgs("2026-05-04").
		WillReturnRows(pgxmock.NewRows(reminderCols).
			AddRow("old", "09:00", true, "Antibiotic", "daily", "", "2026-05-03", "notification", now, now))

	expired, err := p.ListExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)
}

func TestPostgresDeliveryTargets(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT telegram_id FROM users`).
		WillReturnRows(pgxmock.NewRows([]string{"telegram_id"}).AddRow(int64(1001)).AddRow(int64(2002)))

	ids, err := p.DeliveryTargets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, 2002}, ids)
}

func TestPostgresCreateUser(t *testing.T) {
	p, mock := newMockPostgres(t)
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(int64(1001), "Ana", "owner").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	u := &domain.User{TelegramID: 1001, Name: "Ana", Role: domain.RoleOwner}
	require.NoError(t, p.CreateUser(context.Background(), u))
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, created, u.CreatedAt)
}

func TestPostgresSettings(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("notify.enabled").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs("notify.enabled", "false").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, ok, err := p.GetSetting(context.Background(), "notify.enabled")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, p.SetSetting(context.Background(), "notify.enabled", "false"))
}
