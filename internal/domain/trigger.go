package domain

import "time"

// Weekday is a 1-based, Sunday-first day ordinal (Sunday=1 ... Saturday=7).
// WeekdayNone marks a trigger that fires every day.
type Weekday int

const (
	WeekdayNone      Weekday = 0
	WeekdaySunday    Weekday = 1
	WeekdayMonday    Weekday = 2
	WeekdayTuesday   Weekday = 3
	WeekdayWednesday Weekday = 4
	WeekdayThursday  Weekday = 5
	WeekdayFriday    Weekday = 6
	WeekdaySaturday  Weekday = 7
)

var weekdayNames = [...]string{"", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (w Weekday) String() string {
	if w < WeekdaySunday || w > WeekdaySaturday {
		return "Every day"
	}
	return weekdayNames[w]
}

// Short returns the three-letter abbreviation.
func (w Weekday) Short() string {
	if w < WeekdaySunday || w > WeekdaySaturday {
		return "Daily"
	}
	return weekdayNames[w][:3]
}

// TimeWeekday converts to the standard library's 0-based numbering.
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday(int(w) - 1)
}

// Trigger is one concrete firing pattern derived from a reminder's recurrence.
type Trigger struct {
	Weekday Weekday
	Hour    int
	Minute  int
}

func (t Trigger) Daily() bool {
	return t.Weekday == WeekdayNone
}

type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityMax  Priority = "max"
)

const (
	ChannelReminders = "medication-reminders"
	ChannelAlarms    = "medication-alarms"

	CategoryReminder = "medication-reminder"
	CategoryAlarm    = "medication-alarm"
)

// Content is the payload handed to the notification primitive.
type Content struct {
	ReminderID string
	Title      string
	Body       string
	Sound      string
	Priority   Priority
	Vibration  []int
	Channel    string
	Category   string
	Sticky     bool
	Until      *time.Time
}

func (c Content) IsAlarm() bool {
	return c.Priority == PriorityMax
}

type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)
