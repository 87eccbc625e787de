package scheduler

import (
	"fmt"

	"github.com/aeronjay/MediRemind/internal/domain"
)

const (
	TitleReminder = "💊 Medication Reminder"
	TitleAlarm    = "🚨 MEDICATION ALARM"

	testTitleReminder = "💊 Test Notification"
	testTitleAlarm    = "🚨 TEST ALARM"
	testBody          = "This is a test notification to check if everything is working!"
)

var (
	vibrationReminder = []int{0, 250, 250, 250}
	vibrationAlarm    = []int{0, 500, 200, 500, 200, 500}
)

// profile fills the urgency fields shared by every delivery of one alarm type.
func profile(alarm bool, title, body string) domain.Content {
	c := domain.Content{
		Title:     title,
		Body:      body,
		Sound:     "default",
		Priority:  domain.PriorityHigh,
		Vibration: append([]int(nil), vibrationReminder...),
		Channel:   domain.ChannelReminders,
		Category:  domain.CategoryReminder,
	}
	if alarm {
		c.Priority = domain.PriorityMax
		c.Vibration = append([]int(nil), vibrationAlarm...)
		c.Channel = domain.ChannelAlarms
		c.Category = domain.CategoryAlarm
		c.Sticky = true
	}
	return c
}

// ContentFor builds the delivery content for r. Every trigger of r shares it.
func ContentFor(r *domain.Reminder) domain.Content {
	alarm := r.AlarmType.IsAlarm()
	title := TitleReminder
	if alarm {
		title = TitleAlarm
	}
	c := profile(alarm, title, r.Label)
	c.ReminderID = r.ID
	c.Until = r.Until
	return c
}

func testContent(alarmType domain.AlarmType) domain.Content {
	if alarmType.IsAlarm() {
		return profile(true, testTitleAlarm, testBody)
	}
	return profile(false, testTitleReminder, testBody)
}

func snoozeContent(title, body string, minutes int, alarm bool) domain.Content {
	return profile(alarm,
		"⏰ "+title,
		fmt.Sprintf("%s (Snoozed for %d minutes)", body, minutes),
	)
}
