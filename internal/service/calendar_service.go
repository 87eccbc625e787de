package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/internal/clients/caldav"
	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
	"github.com/aeronjay/MediRemind/internal/scheduler"
)

const (
	eventUIDPrefix = "mediremind-"
	eventDuration  = 15 * time.Minute
)

// CalendarClient is the CalDAV surface the mirror needs.
type CalendarClient interface {
	PutEvent(ctx context.Context, event *caldav.Event) error
	DeleteEvent(ctx context.Context, uid string) error
	ListEvents(ctx context.Context) ([]caldav.Event, error)
}

// CalendarService mirrors active reminders into a CalDAV calendar as
// recurring events, so they also show up on the user's phone calendar.
type CalendarService struct {
	client   CalendarClient
	timezone *time.Location
	clock    clock.Clock
	log      zerolog.Logger
}

// NewCalendarService creates a new calendar mirror
func NewCalendarService(client CalendarClient, tz *time.Location, clk clock.Clock, log zerolog.Logger) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	if clk == nil {
		clk = clock.New()
	}
	return &CalendarService{
		client:   client,
		timezone: tz,
		clock:    clk,
		log:      log.With().Str("component", "calendar").Logger(),
	}
}

func EventUID(reminderID string) string {
	return eventUIDPrefix + reminderID
}

// EventFor builds the recurring event for r. ok is false when r has no
// future occurrence.
func (s *CalendarService) EventFor(r *domain.Reminder) (*caldav.Event, bool, error) {
	now := s.clock.Now().In(s.timezone)
	next, ok, err := recurrence.NextFire(r, now)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	rule, err := recurrence.RRuleString(r, s.timezone)
	if err != nil {
		return nil, false, err
	}

	desc := fmt.Sprintf("%s at %s", DescribeDays(r), r.Time)
	if r.Until != nil {
		desc += ", until " + r.Until.Format(domain.UntilLayout)
	}

	return &caldav.Event{
		UID:         EventUID(r.ID),
		Summary:     scheduler.ContentFor(r).Title + ": " + r.Label,
		Description: desc,
		StartTime:   next,
		EndTime:     next.Add(eventDuration),
		RRule:       rule,
		Alarm:       r.AlarmType.IsAlarm(),
	}, true, nil
}

// Upsert writes the event for r, or removes it when r is inactive or finished.
func (s *CalendarService) Upsert(ctx context.Context, r *domain.Reminder) error {
	if !r.Active {
		return s.Remove(ctx, r.ID)
	}
	event, ok, err := s.EventFor(r)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}
	if !ok {
		return s.Remove(ctx, r.ID)
	}
	if err := s.client.PutEvent(ctx, event); err != nil {
		return err
	}
	s.log.Debug().Str("reminder", r.ID).Str("rrule", event.RRule).Msg("calendar event written")
	return nil
}

func (s *CalendarService) Remove(ctx context.Context, reminderID string) error {
	return s.client.DeleteEvent(ctx, EventUID(reminderID))
}

// SyncResult contains sync operation results
type SyncResult struct {
	Upserted int      `json:"upserted"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// Sync writes every active reminder and deletes mirrored events whose
// reminder is gone or inactive. Events not created by the mirror are left alone.
func (s *CalendarService) Sync(ctx context.Context, reminders []*domain.Reminder) (*SyncResult, error) {
	existing, err := s.client.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	result := &SyncResult{}
	keep := make(map[string]bool)
	for _, r := range reminders {
		if !r.Active {
			continue
		}
		event, ok, err := s.EventFor(r)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("build %s: %v", r.ID, err))
			continue
		}
		if !ok {
			continue
		}
		if err := s.client.PutEvent(ctx, event); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("put %s: %v", r.ID, err))
			continue
		}
		keep[event.UID] = true
		result.Upserted++
	}

	for _, e := range existing {
		if !strings.HasPrefix(e.UID, eventUIDPrefix) || keep[e.UID] {
			continue
		}
		if err := s.client.DeleteEvent(ctx, e.UID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", e.UID, err))
			continue
		}
		result.Deleted++
	}

	s.log.Info().
		Int("upserted", result.Upserted).
		Int("deleted", result.Deleted).
		Int("errors", len(result.Errors)).
		Msg("calendar synced")
	return result, nil
}

// DescribeDays renders the recurrence for people, e.g. "weekdays" or "Monday, Friday".
func DescribeDays(r *domain.Reminder) string {
	switch r.Frequency {
	case domain.FrequencyCustom:
		return strings.Join(r.CustomDays, ", ")
	case domain.FrequencyWeekly:
		return "Every " + recurrence.WeeklyAnchor.String()
	}
	return r.Frequency.Label()
}
