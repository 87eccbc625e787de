package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aeronjay/MediRemind/internal/domain"
)

// encodeDays stores custom days as a JSON array; no days is stored as NULL.
func encodeDays(days []string) (*string, error) {
	if len(days) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("encode custom days: %w", err)
	}
	s := string(b)
	return &s, nil
}

func decodeDays(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []string
	if err := json.Unmarshal([]byte(s), &days); err != nil {
		return nil, fmt.Errorf("decode custom days %q: %w", s, err)
	}
	return days, nil
}

func encodeUntil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.UntilLayout)
	return &s
}

func decodeUntil(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.UntilLayout, s)
	if err != nil {
		return nil, fmt.Errorf("decode until %q: %w", s, err)
	}
	return &t, nil
}

// fillDerived decodes the text columns of a scanned reminder row.
func fillDerived(r *domain.Reminder, freq, days, until, alarm string) error {
	f, err := domain.ParseFrequency(freq)
	if err != nil {
		return err
	}
	a, err := domain.ParseAlarmType(alarm)
	if err != nil {
		return err
	}
	d, err := decodeDays(days)
	if err != nil {
		return err
	}
	u, err := decodeUntil(until)
	if err != nil {
		return err
	}
	r.Frequency = f
	r.AlarmType = a
	r.CustomDays = d
	r.Until = u
	return nil
}

// patchColumns lists the columns and values a Patch writes, in a fixed order.
func patchColumns(p domain.Patch) ([]string, []any, error) {
	var cols []string
	var args []any
	if p.Time != nil {
		cols = append(cols, "time")
		args = append(args, *p.Time)
	}
	if p.Label != nil {
		cols = append(cols, "label")
		args = append(args, *p.Label)
	}
	if p.Frequency != nil {
		cols = append(cols, "frequency")
		args = append(args, string(*p.Frequency))
	}
	if p.CustomDays != nil {
		days, err := encodeDays(*p.CustomDays)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, "custom_days")
		args = append(args, days)
	}
	if p.Until != nil {
		cols = append(cols, "until")
		args = append(args, encodeUntil(*p.Until))
	}
	if p.AlarmType != nil {
		cols = append(cols, "alarm_type")
		args = append(args, string(*p.AlarmType))
	}
	return cols, args, nil
}
