package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
	"github.com/aeronjay/MediRemind/internal/service"
)

func TestParseAddArgs(t *testing.T) {
	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		args string
		want service.NewReminder
	}{
		{
			name: "frequency defaults to daily",
			args: "8:00 Vitamin D",
			want: service.NewReminder{Time: "08:00", Label: "Vitamin D", Frequency: domain.FrequencyDaily, AlarmType: domain.AlarmTypeNotification},
		},
		{
			name: "weekdays",
			args: "09:30 weekdays Metformin 500mg",
			want: service.NewReminder{Time: "09:30", Label: "Metformin 500mg", Frequency: domain.FrequencyWeekdays, AlarmType: domain.AlarmTypeNotification},
		},
		{
			name: "custom days normalised",
			args: "21:00 CUSTOM mon,Friday,wed,fri Iron",
			want: service.NewReminder{
				Time: "21:00", Label: "Iron", Frequency: domain.FrequencyCustom,
				CustomDays: []string{"Monday", "Friday", "Wednesday"},
				AlarmType:  domain.AlarmTypeNotification,
			},
		},
		{
			name: "alarm flag and end date anywhere in the label",
			args: "07:15 weekly !alarm Warfarin until:2026-12-31 5mg",
			want: service.NewReminder{
				Time: "07:15", Label: "Warfarin 5mg", Frequency: domain.FrequencyWeekly,
				AlarmType: domain.AlarmTypeAlarm, Until: &until,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddArgs(tt.args, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAddArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args string
		is   error
	}{
		{name: "missing label", args: "08:00"},
		{name: "bad time", args: "25:00 daily Aspirin", is: recurrence.ErrInvalidTime},
		{name: "frequency without label", args: "08:00 daily", is: service.ErrEmptyLabel},
		{name: "custom without days", args: "08:00 custom"},
		{name: "unknown day", args: "08:00 custom Mon,Funday Aspirin"},
		{name: "bad end date", args: "08:00 daily Aspirin until:31-12-2026"},
		{name: "only flags", args: "08:00 !alarm", is: service.ErrEmptyLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAddArgs(tt.args, time.UTC)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestParseDays(t *testing.T) {
	days, err := parseDays("sun, Sat ,,tue")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sunday", "Saturday", "Tuesday"}, days)

	_, err = parseDays(" , ")
	assert.ErrorIs(t, err, service.ErrNoCustomDays)
}

func TestMatchID(t *testing.T) {
	reminders := []*domain.Reminder{
		{ID: "3f2a9c10-aaaa"},
		{ID: "3f2a9c77-bbbb"},
		{ID: "91be0000-cccc"},
	}

	id, err := matchID(reminders, "91be")
	require.NoError(t, err)
	assert.Equal(t, "91be0000-cccc", id)

	id, err = matchID(reminders, "3F2A9C10")
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c10-aaaa", id)

	_, err = matchID(reminders, "3f2a")
	assert.ErrorIs(t, err, errAmbiguousID)

	_, err = matchID(reminders, "3f")
	assert.ErrorIs(t, err, errShortID)

	_, err = matchID(reminders, "ffff")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSplitDelivery(t *testing.T) {
	title, body := splitDelivery("🚨 MEDICATION ALARM\n\nWarfarin 5mg")
	assert.Equal(t, "🚨 MEDICATION ALARM", title)
	assert.Equal(t, "Warfarin 5mg", body)

	title, body = splitDelivery("⏰ 🚨 MEDICATION ALARM\n\nWarfarin 5mg (Snoozed for 5 minutes)")
	assert.Equal(t, "🚨 MEDICATION ALARM", title)
	assert.Equal(t, "Warfarin 5mg", body)
}

func TestDeliveryTextEscapesHTML(t *testing.T) {
	text := deliveryText(domain.Content{Title: "💊 Medication Reminder", Body: "Take <2> pills & water"})
	assert.Equal(t, "<b>💊 Medication Reminder</b>\n\nTake &lt;2&gt; pills &amp; water", text)
}

func TestFormatReminder(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC) // Monday
	until := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	r := &domain.Reminder{
		ID:        "3f2a9c10-1111-2222-3333-444455556666",
		Time:      "09:30",
		Label:     "Metformin",
		Active:    true,
		Frequency: domain.FrequencyWeekdays,
		AlarmType: domain.AlarmTypeAlarm,
		Until:     &until,
	}

	text := formatReminder(r, now)
	assert.Contains(t, text, "🔔 <b>Metformin</b> <code>3f2a9c10</code>")
	assert.Contains(t, text, "09:30 · weekdays · 🚨 alarm · until 2026-06-30")
	assert.Contains(t, text, "next 1 hour from now")

	r.Active = false
	text = formatReminder(r, now)
	assert.True(t, strings.HasPrefix(text, "🔕"))
	assert.NotContains(t, text, "next")
}

func TestFormatReminderFinished(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	until := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := &domain.Reminder{ID: "a", Time: "09:30", Label: "Antibiotic", Active: true, Frequency: domain.FrequencyDaily, Until: &until}
	assert.Contains(t, formatReminder(r, now), "finished")
}

func TestFormatReminderListEmpty(t *testing.T) {
	assert.Contains(t, formatReminderList(nil, time.Now()), "No reminders yet")
}

func TestUserError(t *testing.T) {
	assert.Equal(t, "❌ Reminder not found", userError(service.ErrNotFound))
	se := &service.ScheduleError{Reminder: &domain.Reminder{ID: "x"}, Err: assert.AnError}
	assert.Contains(t, userError(se), "Saved, but could not schedule")
}

func TestReminderListKeyboard(t *testing.T) {
	assert.Nil(t, reminderListKeyboard(nil))

	kb := reminderListKeyboard([]*domain.Reminder{
		{ID: "r1", Label: "Aspirin", Active: true},
		{ID: "r2", Label: "Iron", Active: false},
	})
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "tog:r1", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "🔕 Off Aspirin", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "🔔 On Iron", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "del:r2", *kb.InlineKeyboard[1][1].CallbackData)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Lisinopr…", truncate("Lisinopril 10mg", 9))
}
