package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/aeronjay/MediRemind/internal/domain"
)

var rruleDays = map[domain.Weekday]rrule.Weekday{
	domain.WeekdaySunday:    rrule.SU,
	domain.WeekdayMonday:    rrule.MO,
	domain.WeekdayTuesday:   rrule.TU,
	domain.WeekdayWednesday: rrule.WE,
	domain.WeekdayThursday:  rrule.TH,
	domain.WeekdayFriday:    rrule.FR,
	domain.WeekdaySaturday:  rrule.SA,
}

// BuildRRule converts triggers produced by Expand into a single RFC 5545 rule.
// All triggers must share one time of day. until, when set, is inclusive of
// the whole day in dtstart's location.
func BuildRRule(triggers []domain.Trigger, dtstart time.Time, until *time.Time) (*rrule.RRule, error) {
	if len(triggers) == 0 {
		return nil, errors.New("no triggers")
	}

	hour, minute := triggers[0].Hour, triggers[0].Minute
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Dtstart:  dtstart,
		Byhour:   []int{hour},
		Byminute: []int{minute},
		Bysecond: []int{0},
	}

	if !(len(triggers) == 1 && triggers[0].Daily()) {
		opt.Freq = rrule.WEEKLY
		for _, t := range triggers {
			if t.Hour != hour || t.Minute != minute {
				return nil, fmt.Errorf("mixed trigger times %02d:%02d and %02d:%02d", hour, minute, t.Hour, t.Minute)
			}
			d, ok := rruleDays[t.Weekday]
			if !ok {
				return nil, fmt.Errorf("daily trigger mixed with weekly triggers")
			}
			opt.Byweekday = append(opt.Byweekday, d)
		}
	}

	if until != nil {
		loc := dtstart.Location()
		y, m, d := until.Date()
		opt.Until = time.Date(y, m, d, 23, 59, 59, 0, loc)
	}

	return rrule.NewRRule(opt)
}

// RRuleString returns the RRULE value (without DTSTART) for r.
func RRuleString(r *domain.Reminder, loc *time.Location) (string, error) {
	rule, err := reminderRule(r, time.Now().In(loc))
	if err != nil {
		return "", err
	}
	return rule.OrigOptions.RRuleString(), nil
}

// NextFire returns the first firing of r strictly after after, honouring Until.
// ok is false when the reminder has no future occurrence.
func NextFire(r *domain.Reminder, after time.Time) (next time.Time, ok bool, err error) {
	y, m, d := after.Date()
	dtstart := time.Date(y, m, d, 0, 0, 0, 0, after.Location())
	rule, err := reminderRule(r, dtstart)
	if err != nil {
		return time.Time{}, false, err
	}
	next = rule.After(after, false)
	return next, !next.IsZero(), nil
}

func reminderRule(r *domain.Reminder, dtstart time.Time) (*rrule.RRule, error) {
	triggers, err := ExpandReminder(r)
	if err != nil {
		return nil, err
	}
	return BuildRRule(triggers, dtstart, r.Until)
}
