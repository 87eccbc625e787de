// Package scheduler materialises reminders into triggers on a notification
// primitive and keeps the id bookkeeping needed to cancel them later.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
)

// Notifier is the notification primitive triggers are registered with.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	PermissionStatus(ctx context.Context) (domain.PermissionStatus, error)
	SubmitTrigger(ctx context.Context, t domain.Trigger, c domain.Content) (string, error)
	SubmitOnce(ctx context.Context, delay time.Duration, c domain.Content) (string, error)
	CancelTrigger(ctx context.Context, triggerID string) error
	CancelAllTriggers(ctx context.Context) error
}

const (
	DefaultSnoozeMinutes = 5
	testDelay            = 2 * time.Second
)

// Scheduler owns the trigger registry. Construct one per process and share it.
//
// Calls for the same reminder id are serialized; calls for different ids may
// run concurrently.
type Scheduler struct {
	notifier Notifier
	registry *Registry
	log      zerolog.Logger

	locksMu sync.Mutex
	locks   map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func New(n Notifier, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		notifier: n,
		registry: NewRegistry(),
		log:      log.With().Str("component", "scheduler").Logger(),
		locks:    make(map[string]*idLock),
	}
}

func (s *Scheduler) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &idLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// Schedule replaces every outstanding trigger of r with triggers derived from
// its current recurrence. A nil error means at least one trigger is outstanding.
//
// Permission and time validation happen before anything is cancelled. A
// descriptor the notifier rejects is skipped; the accepted rest still counts
// as success.
func (s *Scheduler) Schedule(ctx context.Context, r *domain.Reminder) error {
	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if !granted {
		return ErrPermissionDenied
	}

	hour, minute, err := recurrence.ParseClock(r.Time)
	if err != nil {
		s.log.Error().Str("reminder", r.ID).Str("time", r.Time).Msg("invalid time format")
		return err
	}

	triggers, err := recurrence.Expand(r.Frequency, r.CustomDays, hour, minute)
	if err != nil {
		return err
	}
	if r.Frequency == domain.FrequencyCustom {
		if unknown := recurrence.UnknownDays(r.CustomDays); len(unknown) > 0 {
			s.log.Debug().Str("reminder", r.ID).Strs("days", unknown).Msg("skipping unknown custom days")
		}
	}

	unlock := s.lock(r.ID)
	defer unlock()

	s.cancelLocked(ctx, r.ID)

	content := ContentFor(r)
	ids := make([]string, 0, len(triggers))
	for _, t := range triggers {
		id, err := s.notifier.SubmitTrigger(ctx, t, content)
		if err != nil {
			s.log.Error().Err(err).
				Str("reminder", r.ID).
				Str("weekday", t.Weekday.String()).
				Msg("submit trigger failed")
			continue
		}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return fmt.Errorf("%w for reminder %s", ErrNoTriggers, r.ID)
	}
	if len(ids) < len(triggers) {
		s.log.Warn().Str("reminder", r.ID).
			Int("accepted", len(ids)).
			Int("expected", len(triggers)).
			Msg("partial trigger submission")
	}

	s.registry.Set(r.ID, ids)
	s.log.Info().Str("reminder", r.ID).
		Str("label", r.Label).
		Int("triggers", len(ids)).
		Msg("scheduled reminder")
	return nil
}

// Cancel removes every outstanding trigger of reminderID. Cancellation is
// best effort; the registry entry is dropped whatever the notifier answers.
func (s *Scheduler) Cancel(ctx context.Context, reminderID string) {
	unlock := s.lock(reminderID)
	defer unlock()
	s.cancelLocked(ctx, reminderID)
}

func (s *Scheduler) cancelLocked(ctx context.Context, reminderID string) {
	ids, ok := s.registry.Take(reminderID)
	if !ok {
		return
	}
	for _, id := range ids {
		if err := s.notifier.CancelTrigger(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("reminder", reminderID).Str("trigger", id).Msg("cancel trigger failed")
		}
	}
	s.log.Debug().Str("reminder", reminderID).Int("triggers", len(ids)).Msg("cancelled reminder")
}

// CancelAll drops every trigger of every reminder. Used for full resets only.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	err := s.notifier.CancelAllTriggers(ctx)
	s.registry.Clear()
	if err != nil {
		return fmt.Errorf("cancel all triggers: %w", err)
	}
	return nil
}

func (s *Scheduler) ScheduledCount(reminderID string) int {
	return s.registry.Count(reminderID)
}

func (s *Scheduler) ActiveReminderIDs() []string {
	return s.registry.IDs()
}

func (s *Scheduler) TotalScheduled() int {
	return s.registry.Total()
}

func (s *Scheduler) TriggerIDs(reminderID string) []string {
	return s.registry.Get(reminderID)
}

func (s *Scheduler) PermissionStatus(ctx context.Context) (domain.PermissionStatus, error) {
	return s.notifier.PermissionStatus(ctx)
}

func (s *Scheduler) RequestPermission(ctx context.Context) (bool, error) {
	return s.notifier.RequestPermission(ctx)
}

type Status struct {
	Permission      domain.PermissionStatus `json:"permission"`
	HasPermission   bool                    `json:"has_permission"`
	TotalScheduled  int                     `json:"total_scheduled"`
	ActiveReminders int                     `json:"active_reminders"`
}

func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	perm, err := s.notifier.PermissionStatus(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("permission status: %w", err)
	}
	return Status{
		Permission:      perm,
		HasPermission:   perm == domain.PermissionGranted,
		TotalScheduled:  s.registry.Total(),
		ActiveReminders: len(s.registry.IDs()),
	}, nil
}

// SendTest delivers a test notification of the given type after a short delay.
func (s *Scheduler) SendTest(ctx context.Context, alarmType domain.AlarmType) error {
	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil || !granted {
		return ErrPermissionDenied
	}
	if _, err := s.notifier.SubmitOnce(ctx, testDelay, testContent(alarmType)); err != nil {
		return fmt.Errorf("send test notification: %w", err)
	}
	return nil
}

// Snooze re-delivers an alert after minutes (DefaultSnoozeMinutes when <= 0).
// Unlike Schedule it does not prompt for permission.
func (s *Scheduler) Snooze(ctx context.Context, title, body string, minutes int, alarm bool) (string, error) {
	if minutes <= 0 {
		minutes = DefaultSnoozeMinutes
	}
	perm, err := s.notifier.PermissionStatus(ctx)
	if err != nil {
		return "", fmt.Errorf("permission status: %w", err)
	}
	if perm != domain.PermissionGranted {
		return "", ErrPermissionDenied
	}
	id, err := s.notifier.SubmitOnce(ctx, time.Duration(minutes)*time.Minute, snoozeContent(title, body, minutes, alarm))
	if err != nil {
		return "", fmt.Errorf("schedule snooze: %w", err)
	}
	return id, nil
}

// IsValidationError reports whether err came from input validation rather
// than from the notifier.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidTime) || errors.Is(err, recurrence.ErrUnknownFrequency)
}
