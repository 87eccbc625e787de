package caldav

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventToICSRoundTrip(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	in := &Event{
		UID:         "mediremind-abc",
		Summary:     "🚨 MEDICATION ALARM: Warfarin",
		Description: "Weekdays at 09:30",
		StartTime:   start,
		EndTime:     start.Add(15 * time.Minute),
		RRule:       "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;BYHOUR=9;BYMINUTE=30;BYSECOND=0",
		Alarm:       true,
	}

	cal := eventToICS(in, start)
	out, err := parseCalendar(cal)
	require.NoError(t, err)

	assert.Equal(t, in.UID, out.UID)
	assert.Equal(t, in.Summary, out.Summary)
	assert.Equal(t, in.Description, out.Description)
	assert.True(t, out.StartTime.Equal(start))
	assert.True(t, out.EndTime.Equal(in.EndTime))
	assert.Equal(t, in.RRule, out.RRule)
	assert.True(t, out.Alarm)

	ics := SerializeCalendar(cal)
	assert.Contains(t, ics, "RRULE:FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR")
	assert.Contains(t, ics, "BEGIN:VALARM")
	assert.Contains(t, ics, productID)
}

func TestEventWithoutAlarm(t *testing.T) {
	start := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	cal := eventToICS(&Event{UID: "u", Summary: "Vitamin D", StartTime: start}, start)
	out, err := parseCalendar(cal)
	require.NoError(t, err)
	assert.False(t, out.Alarm)
	assert.NotContains(t, SerializeCalendar(cal), "VALARM")
}

func TestParseCalendarWithoutEvent(t *testing.T) {
	_, err := parseCalendar(nil)
	assert.Error(t, err)
}

func TestEventPath(t *testing.T) {
	c := NewClient("", "user", "pass")
	assert.True(t, c.IsConfigured())
	c.SetCalendarID("/123/calendars/meds")
	assert.Equal(t, "/123/calendars/meds/x.ics", c.eventPath("x"))
	c.SetCalendarID("/123/calendars/meds/")
	assert.Equal(t, "/123/calendars/meds/x.ics", c.eventPath("x"))
	assert.False(t, NewClient("", "", "").IsConfigured())
}
