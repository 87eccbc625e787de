// Package recurrence turns a reminder's recurrence rule into concrete
// weekday/time triggers. Everything here is pure and deterministic.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aeronjay/MediRemind/internal/domain"
)

var (
	ErrInvalidTime      = errors.New("invalid time")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

var dayByName = map[string]domain.Weekday{
	"Sunday":    domain.WeekdaySunday,
	"Monday":    domain.WeekdayMonday,
	"Tuesday":   domain.WeekdayTuesday,
	"Wednesday": domain.WeekdayWednesday,
	"Thursday":  domain.WeekdayThursday,
	"Friday":    domain.WeekdayFriday,
	"Saturday":  domain.WeekdaySaturday,
}

var workweek = []domain.Weekday{
	domain.WeekdayMonday,
	domain.WeekdayTuesday,
	domain.WeekdayWednesday,
	domain.WeekdayThursday,
	domain.WeekdayFriday,
}

// WeeklyAnchor is the single day a weekly reminder fires on.
const WeeklyAnchor = domain.WeekdaySunday

// ParseWeekday maps one of the seven canonical English day names to its ordinal.
func ParseWeekday(name string) (domain.Weekday, bool) {
	d, ok := dayByName[name]
	return d, ok
}

// UnknownDays returns the entries of names that ParseWeekday rejects.
func UnknownDays(names []string) []string {
	var out []string
	for _, n := range names {
		if _, ok := dayByName[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// ParseClock parses a 24-hour "HH:MM" time of day. A single-digit hour is accepted.
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || !isDigits(hh) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || !isDigits(mm) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if err := checkClock(hour, minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// FormatClock renders hour and minute as zero-padded "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func checkClock(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("%w: %02d:%02d out of range", ErrInvalidTime, hour, minute)
	}
	return nil
}

// Expand returns the minimal set of triggers whose firings realise freq at hour:minute.
//
// Custom days keep their input order; unknown names and repeats are dropped,
// so a custom rule with no valid day yields an empty result and no error.
func Expand(freq domain.Frequency, customDays []string, hour, minute int) ([]domain.Trigger, error) {
	if err := checkClock(hour, minute); err != nil {
		return nil, err
	}

	at := func(d domain.Weekday) domain.Trigger {
		return domain.Trigger{Weekday: d, Hour: hour, Minute: minute}
	}

	switch freq {
	case domain.FrequencyDaily:
		return []domain.Trigger{at(domain.WeekdayNone)}, nil

	case domain.FrequencyWeekly:
		return []domain.Trigger{at(WeeklyAnchor)}, nil

	case domain.FrequencyWeekdays:
		out := make([]domain.Trigger, 0, len(workweek))
		for _, d := range workweek {
			out = append(out, at(d))
		}
		return out, nil

	case domain.FrequencyCustom:
		out := make([]domain.Trigger, 0, len(customDays))
		seen := make(map[domain.Weekday]bool, len(customDays))
		for _, name := range customDays {
			d, ok := ParseWeekday(name)
			if !ok || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, at(d))
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(freq))
}

// ExpandReminder parses r.Time and expands r's recurrence.
func ExpandReminder(r *domain.Reminder) ([]domain.Trigger, error) {
	hour, minute, err := ParseClock(r.Time)
	if err != nil {
		return nil, err
	}
	return Expand(r.Frequency, r.CustomDays, hour, minute)
}

// CronSpec renders a trigger as a standard five-field cron expression.
func CronSpec(t domain.Trigger) string {
	dow := "*"
	if !t.Daily() {
		dow = strconv.Itoa(int(t.Weekday) - 1)
	}
	return fmt.Sprintf("%d %d * * %s", t.Minute, t.Hour, dow)
}
