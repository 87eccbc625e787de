package domain

import (
	"fmt"
	"time"
)

// Frequency is the recurrence rule of a reminder.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyCustom   Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyWeekdays, FrequencyCustom:
		return true
	}
	return false
}

// ParseFrequency maps a stored or user-entered value to a Frequency.
// Empty input defaults to daily, as rows written before the column existed do.
func ParseFrequency(s string) (Frequency, error) {
	if s == "" {
		return FrequencyDaily, nil
	}
	f := Frequency(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency: %q", s)
	}
	return f, nil
}

func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "every day"
	case FrequencyWeekly:
		return "every week"
	case FrequencyWeekdays:
		return "weekdays"
	case FrequencyCustom:
		return "custom days"
	}
	return string(f)
}

// AlarmType selects the urgency profile of delivered alerts.
type AlarmType string

const (
	AlarmTypeNotification AlarmType = "notification"
	AlarmTypeAlarm        AlarmType = "alarm"
)

func (a AlarmType) Valid() bool {
	switch a {
	case AlarmTypeNotification, AlarmTypeAlarm:
		return true
	}
	return false
}

func ParseAlarmType(s string) (AlarmType, error) {
	if s == "" {
		return AlarmTypeNotification, nil
	}
	a := AlarmType(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown alarm type: %q", s)
	}
	return a, nil
}

func (a AlarmType) IsAlarm() bool {
	return a == AlarmTypeAlarm
}

// UntilLayout is the storage and input format of the end date.
const UntilLayout = "2006-01-02"

type Reminder struct {
	ID         string
	Time       string // "HH:MM", 24h
	Label      string
	Active     bool
	Frequency  Frequency
	CustomDays []string // weekday names, only used with FrequencyCustom
	Until      *time.Time
	AlarmType  AlarmType
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the end date lies strictly before the day of now.
func (r *Reminder) Expired(now time.Time) bool {
	if r.Until == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	uy, um, ud := r.Until.Date()
	until := time.Date(uy, um, ud, 0, 0, 0, 0, now.Location())
	return until.Before(today)
}

func (r *Reminder) StatusEmoji() string {
	if r.Active {
		return "🔔"
	}
	return "🔕"
}

// Patch carries the editable fields of a reminder; nil means unchanged.
type Patch struct {
	Time       *string
	Label      *string
	Frequency  *Frequency
	CustomDays *[]string
	Until      **time.Time
	AlarmType  *AlarmType
}

func (p Patch) Empty() bool {
	return p.Time == nil && p.Label == nil && p.Frequency == nil &&
		p.CustomDays == nil && p.Until == nil && p.AlarmType == nil
}

// Apply writes the set fields of p onto r.
func (p Patch) Apply(r *Reminder) {
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.Label != nil {
		r.Label = *p.Label
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.CustomDays != nil {
		r.CustomDays = *p.CustomDays
	}
	if p.Until != nil {
		r.Until = *p.Until
	}
	if p.AlarmType != nil {
		r.AlarmType = *p.AlarmType
	}
}
