package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeronjay/MediRemind/internal/domain"
)

type staticTargets []int64

func (s staticTargets) DeliveryTargets(context.Context) ([]int64, error) {
	return s, nil
}

type recordingSender struct {
	mu        sync.Mutex
	delivered map[int64][]domain.Content
}

func (r *recordingSender) Deliver(_ context.Context, chatID int64, c domain.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delivered == nil {
		r.delivered = map[int64][]domain.Content{}
	}
	r.delivered[chatID] = append(r.delivered[chatID], c)
	return nil
}

func newTestLocal(t *testing.T, targets Targets, enabled bool) (*Local, clock.FakeClock, *recordingSender) {
	t.Helper()
	clk := clock.NewFake()
	clk.Set(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC))
	l := NewLocal(time.UTC, clk, targets, enabled, zerolog.Nop())
	s := &recordingSender{}
	l.SetSender(s)
	return l, clk, s
}

func TestPermissionStates(t *testing.T) {
	ctx := context.Background()

	l, _, _ := newTestLocal(t, staticTargets{42}, true)
	st, err := l.PermissionStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, st)
	ok, err := l.RequestPermission(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	l.SetEnabled(false)
	st, _ = l.PermissionStatus(ctx)
	assert.Equal(t, domain.PermissionDenied, st)
	ok, _ = l.RequestPermission(ctx)
	assert.False(t, ok)

	empty, _, _ := newTestLocal(t, staticTargets{}, true)
	st, _ = empty.PermissionStatus(ctx)
	assert.Equal(t, domain.PermissionUndetermined, st)
	ok, _ = empty.RequestPermission(ctx)
	assert.False(t, ok)
}

func TestSubmitAndCancelTrigger(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLocal(t, staticTargets{1}, true)

	id, err := l.SubmitTrigger(ctx, domain.Trigger{Weekday: domain.WeekdayMonday, Hour: 9, Minute: 30}, domain.Content{Title: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, l.Pending())
	assert.Len(t, l.cron.Entries(), 1)

	require.NoError(t, l.CancelTrigger(ctx, id))
	assert.Equal(t, 0, l.Pending())
	assert.Empty(t, l.cron.Entries())

	err = l.CancelTrigger(ctx, id)
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestCancelAllTriggers(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLocal(t, staticTargets{1}, true)
	for h := 6; h < 10; h++ {
		_, err := l.SubmitTrigger(ctx, domain.Trigger{Hour: h}, domain.Content{})
		require.NoError(t, err)
	}
	_, err := l.SubmitOnce(ctx, time.Minute, domain.Content{})
	require.NoError(t, err)
	assert.Equal(t, 5, l.Pending())

	require.NoError(t, l.CancelAllTriggers(ctx))
	assert.Equal(t, 0, l.Pending())
	assert.Empty(t, l.cron.Entries())
}

func TestFireDeliversToEveryTarget(t *testing.T) {
	l, _, s := newTestLocal(t, staticTargets{10, 20}, true)
	c := domain.Content{ReminderID: "r1", Title: "💊 Medication Reminder", Body: "Lisinopril"}

	l.fire("t1", c, false)
	assert.Len(t, s.delivered[10], 1)
	assert.Len(t, s.delivered[20], 1)
	assert.Equal(t, "Lisinopril", s.delivered[10][0].Body)
}

func TestFireDropsAfterUntil(t *testing.T) {
	l, clk, s := newTestLocal(t, staticTargets{10}, true)
	until := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	c := domain.Content{ReminderID: "r1", Until: &until}

	l.fire("t1", c, false)
	assert.Len(t, s.delivered[10], 1, "the end date itself still fires")

	clk.Add(24 * time.Hour)
	l.fire("t1", c, false)
	assert.Len(t, s.delivered[10], 1)
}

func TestOnceEntryRemovedAfterFire(t *testing.T) {
	ctx := context.Background()
	l, _, s := newTestLocal(t, staticTargets{10}, true)

	id, err := l.SubmitOnce(ctx, 5*time.Minute, domain.Content{Body: "snoozed"})
	require.NoError(t, err)
	assert.Equal(t, 1, l.Pending())

	l.fire(id, domain.Content{Body: "snoozed"}, true)
	assert.Equal(t, 0, l.Pending())
	assert.Empty(t, l.cron.Entries())
	assert.Len(t, s.delivered[10], 1)
}

func TestOnceScheduleFiresOnce(t *testing.T) {
	at := time.Date(2026, 5, 4, 8, 5, 0, 0, time.UTC)
	s := onceSchedule{at: at}
	assert.Equal(t, at, s.Next(at.Add(-time.Minute)))
	assert.True(t, s.Next(at).IsZero())
	assert.True(t, s.Next(at.Add(time.Second)).IsZero())
}

func TestAddMaintenanceRejectsBadSpec(t *testing.T) {
	l, _, _ := newTestLocal(t, staticTargets{}, true)
	assert.Error(t, l.AddMaintenance("not a spec", func() {}))
	assert.NoError(t, l.AddMaintenance("0 3 * * *", func() {}))
}
