package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeronjay/MediRemind/internal/domain"
)

type submission struct {
	id      string
	trigger domain.Trigger
	content domain.Content
}

type fakeNotifier struct {
	mu         sync.Mutex
	granted    bool
	permErr    error
	next       int
	submitted  []submission
	once       []domain.Content
	onceDelays []time.Duration
	cancelled  []string
	cancelAll  int
	failSubmit func(domain.Trigger) bool
	failCancel map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{granted: true, failCancel: map[string]bool{}}
}

func (f *fakeNotifier) RequestPermission(context.Context) (bool, error) {
	return f.granted, f.permErr
}

func (f *fakeNotifier) PermissionStatus(context.Context) (domain.PermissionStatus, error) {
	if f.granted {
		return domain.PermissionGranted, nil
	}
	return domain.PermissionDenied, nil
}

func (f *fakeNotifier) SubmitTrigger(_ context.Context, t domain.Trigger, c domain.Content) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubmit != nil && f.failSubmit(t) {
		return "", errors.New("rejected")
	}
	f.next++
	id := fmt.Sprintf("trg-%d", f.next)
	f.submitted = append(f.submitted, submission{id: id, trigger: t, content: c})
	return id, nil
}

func (f *fakeNotifier) SubmitOnce(_ context.Context, d time.Duration, c domain.Content) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.once = append(f.once, c)
	f.onceDelays = append(f.onceDelays, d)
	return fmt.Sprintf("once-%d", f.next), nil
}

func (f *fakeNotifier) CancelTrigger(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	if f.failCancel[id] {
		return errors.New("cancel rejected")
	}
	return nil
}

func (f *fakeNotifier) CancelAllTriggers(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAll++
	return nil
}

func newTestScheduler(n Notifier) *Scheduler {
	return New(n, zerolog.Nop())
}

func TestScheduleDailyNotification(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := &domain.Reminder{ID: "a", Time: "08:00", Label: "Morning pills", Frequency: domain.FrequencyDaily, AlarmType: domain.AlarmTypeNotification}

	require.NoError(t, s.Schedule(context.Background(), r))
	assert.Equal(t, 1, s.ScheduledCount("a"))
	require.Len(t, n.submitted, 1)

	c := n.submitted[0].content
	assert.Equal(t, domain.PriorityHigh, c.Priority)
	assert.Equal(t, domain.ChannelReminders, c.Channel)
	assert.Equal(t, TitleReminder, c.Title)
	assert.Equal(t, "Morning pills", c.Body)
	assert.False(t, c.Sticky)
	assert.True(t, n.submitted[0].trigger.Daily())
}

func TestScheduleWeekdaysAlarm(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := &domain.Reminder{ID: "b", Time: "09:30", Label: "Insulin", Frequency: domain.FrequencyWeekdays, AlarmType: domain.AlarmTypeAlarm}

	require.NoError(t, s.Schedule(context.Background(), r))
	assert.Equal(t, 5, s.ScheduledCount("b"))
	require.Len(t, n.submitted, 5)
	for _, sub := range n.submitted {
		assert.Equal(t, domain.PriorityMax, sub.content.Priority)
		assert.Equal(t, domain.ChannelAlarms, sub.content.Channel)
		assert.Equal(t, domain.CategoryAlarm, sub.content.Category)
		assert.Equal(t, TitleAlarm, sub.content.Title)
		assert.True(t, sub.content.Sticky)
		assert.Equal(t, []int{0, 500, 200, 500, 200, 500}, sub.content.Vibration)
	}
}

func TestScheduleIsIdempotent(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := &domain.Reminder{ID: "c", Time: "10:00", Frequency: domain.FrequencyWeekdays}

	require.NoError(t, s.Schedule(context.Background(), r))
	first := s.TriggerIDs("c")
	require.NoError(t, s.Schedule(context.Background(), r))
	second := s.TriggerIDs("c")

	assert.Len(t, second, 5)
	assert.ElementsMatch(t, first, n.cancelled)
	for _, id := range first {
		assert.NotContains(t, second, id)
	}
	assert.Equal(t, 5, s.TotalScheduled())
}

func TestScheduleThenCancelRoundTrip(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := &domain.Reminder{ID: "d", Time: "12:00", Frequency: domain.FrequencyCustom, CustomDays: []string{"Monday", "Thursday"}}

	require.NoError(t, s.Schedule(context.Background(), r))
	ids := s.TriggerIDs("d")
	require.Len(t, ids, 2)

	s.Cancel(context.Background(), "d")
	assert.Equal(t, 0, s.ScheduledCount("d"))
	assert.NotContains(t, s.ActiveReminderIDs(), "d")
	assert.ElementsMatch(t, ids, n.cancelled)

	// second cancel is a no-op
	s.Cancel(context.Background(), "d")
	assert.Len(t, n.cancelled, 2)
}

func TestEditDailyToCustomSaturday(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := &domain.Reminder{ID: "e", Time: "08:00", Frequency: domain.FrequencyDaily}
	require.NoError(t, s.Schedule(context.Background(), r))
	old := s.TriggerIDs("e")

	r.Frequency = domain.FrequencyCustom
	r.CustomDays = []string{"Saturday"}
	require.NoError(t, s.Schedule(context.Background(), r))

	ids := s.TriggerIDs("e")
	require.Len(t, ids, 1)
	assert.NotEqual(t, old, ids)
	last := n.submitted[len(n.submitted)-1]
	assert.Equal(t, domain.WeekdaySaturday, last.trigger.Weekday)
	assert.Equal(t, old, n.cancelled)
}

func TestScheduleInvalidTime(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	existing := &domain.Reminder{ID: "f", Time: "07:00", Frequency: domain.FrequencyDaily}
	require.NoError(t, s.Schedule(context.Background(), existing))
	submitted := len(n.submitted)

	bad := &domain.Reminder{ID: "f", Time: "25:61", Frequency: domain.FrequencyDaily}
	err := s.Schedule(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidTime)
	assert.True(t, IsValidationError(err))
	assert.Len(t, n.submitted, submitted)
	assert.Empty(t, n.cancelled)
	assert.Equal(t, 1, s.ScheduledCount("f"))
}

func TestSchedulePermissionDenied(t *testing.T) {
	n := newFakeNotifier()
	n.granted = false
	s := newTestScheduler(n)

	err := s.Schedule(context.Background(), &domain.Reminder{ID: "g", Time: "08:00", Frequency: domain.FrequencyDaily})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, n.submitted)
	assert.Equal(t, 0, s.TotalScheduled())

	n.granted = true
	n.permErr = errors.New("boom")
	err = s.Schedule(context.Background(), &domain.Reminder{ID: "g", Time: "08:00", Frequency: domain.FrequencyDaily})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSchedulePartialSubmission(t *testing.T) {
	n := newFakeNotifier()
	n.failSubmit = func(tr domain.Trigger) bool { return tr.Weekday == domain.WeekdayWednesday }
	s := newTestScheduler(n)

	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "h", Time: "08:00", Frequency: domain.FrequencyWeekdays}))
	assert.Equal(t, 4, s.ScheduledCount("h"))
}

func TestScheduleAllSubmissionsFail(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "i", Time: "08:00", Frequency: domain.FrequencyDaily}))

	n.failSubmit = func(domain.Trigger) bool { return true }
	err := s.Schedule(context.Background(), &domain.Reminder{ID: "i", Time: "08:00", Frequency: domain.FrequencyDaily})
	assert.ErrorIs(t, err, ErrNoTriggers)
	assert.Equal(t, 0, s.ScheduledCount("i"))
	assert.NotContains(t, s.ActiveReminderIDs(), "i")
}

func TestScheduleUnknownCustomDaysOnly(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	err := s.Schedule(context.Background(), &domain.Reminder{ID: "j", Time: "08:00", Frequency: domain.FrequencyCustom, CustomDays: []string{"Funday"}})
	assert.ErrorIs(t, err, ErrNoTriggers)
	assert.Empty(t, n.submitted)

	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "j", Time: "08:00", Frequency: domain.FrequencyCustom, CustomDays: []string{"Funday", "Tuesday"}}))
	assert.Equal(t, 1, s.ScheduledCount("j"))
}

func TestCancelContinuesPastFailures(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "k", Time: "08:00", Frequency: domain.FrequencyWeekdays}))
	ids := s.TriggerIDs("k")
	n.failCancel[ids[1]] = true

	s.Cancel(context.Background(), "k")
	assert.ElementsMatch(t, ids, n.cancelled)
	assert.Equal(t, 0, s.ScheduledCount("k"))
}

func TestCancelAllClearsRegistry(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "l", Time: "08:00", Frequency: domain.FrequencyDaily}))
	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "m", Time: "09:00", Frequency: domain.FrequencyWeekdays}))
	assert.Equal(t, 6, s.TotalScheduled())
	assert.Equal(t, []string{"l", "m"}, s.ActiveReminderIDs())

	require.NoError(t, s.CancelAll(context.Background()))
	assert.Equal(t, 1, n.cancelAll)
	assert.Equal(t, 0, s.TotalScheduled())
	assert.Empty(t, s.ActiveReminderIDs())
}

func TestStatus(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	require.NoError(t, s.Schedule(context.Background(), &domain.Reminder{ID: "n", Time: "08:00", Frequency: domain.FrequencyWeekdays}))

	st, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.HasPermission)
	assert.Equal(t, 5, st.TotalScheduled)
	assert.Equal(t, 1, st.ActiveReminders)
}

func TestSnoozeAndTest(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)

	_, err := s.Snooze(context.Background(), "Medication Reminder", "Vitamin D", 0, false)
	require.NoError(t, err)
	require.Len(t, n.once, 1)
	assert.Equal(t, "⏰ Medication Reminder", n.once[0].Title)
	assert.Equal(t, "Vitamin D (Snoozed for 5 minutes)", n.once[0].Body)
	assert.Equal(t, 5*time.Minute, n.onceDelays[0])

	require.NoError(t, s.SendTest(context.Background(), domain.AlarmTypeAlarm))
	require.Len(t, n.once, 2)
	assert.Equal(t, domain.ChannelAlarms, n.once[1].Channel)

	n.granted = false
	_, err = s.Snooze(context.Background(), "x", "y", 10, true)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestConcurrentScheduleSameID(t *testing.T) {
	n := newFakeNotifier()
	s := newTestScheduler(n)
	r := domain.Reminder{ID: "p", Time: "08:00", Frequency: domain.FrequencyWeekdays}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := r
			_ = s.Schedule(context.Background(), &rr)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, s.ScheduledCount("p"))
	assert.Equal(t, len(n.submitted)-5, len(n.cancelled))
}
