package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrEmptyLabel   = errors.New("reminder label cannot be empty")
	ErrNoCustomDays = errors.New("custom frequency needs at least one day")
)

// ReminderStore persists reminders.
type ReminderStore interface {
	GetAll(ctx context.Context) ([]*domain.Reminder, error)
	Get(ctx context.Context, id string) (*domain.Reminder, error)
	Insert(ctx context.Context, r *domain.Reminder) error
	UpdateActive(ctx context.Context, id string, active bool) error
	UpdateFields(ctx context.Context, id string, p domain.Patch) error
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, now time.Time) ([]*domain.Reminder, error)
}

// TriggerScheduler materialises reminders into outstanding triggers.
type TriggerScheduler interface {
	Schedule(ctx context.Context, r *domain.Reminder) error
	Cancel(ctx context.Context, reminderID string)
	ScheduledCount(reminderID string) int
}

// Mirror receives best-effort copies of the active schedule, e.g. a calendar.
type Mirror interface {
	Upsert(ctx context.Context, r *domain.Reminder) error
	Remove(ctx context.Context, reminderID string) error
}

// Syncer reconciles a whole mirror against the stored reminders.
type Syncer interface {
	Sync(ctx context.Context, reminders []*domain.Reminder) (*SyncResult, error)
}

// Mirrors fans every call out to each mirror and joins their errors.
type Mirrors []Mirror

func (ms Mirrors) Upsert(ctx context.Context, r *domain.Reminder) error {
	var errs []error
	for _, m := range ms {
		if err := m.Upsert(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ms Mirrors) Remove(ctx context.Context, reminderID string) error {
	var errs []error
	for _, m := range ms {
		if err := m.Remove(ctx, reminderID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ScheduleError reports a reminder that was persisted but could not be
// scheduled. The stored record is left as is.
type ScheduleError struct {
	Reminder *domain.Reminder
	Err      error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule reminder %s: %v", e.Reminder.ID, e.Err)
}

func (e *ScheduleError) Unwrap() error {
	return e.Err
}

type NewReminder struct {
	Time       string
	Label      string
	Frequency  domain.Frequency
	CustomDays []string
	Until      *time.Time
	AlarmType  domain.AlarmType
	Inactive   bool
}

type ReminderService struct {
	store     ReminderStore
	scheduler TriggerScheduler
	mirror    Mirror
	log       zerolog.Logger
}

func NewReminderService(store ReminderStore, sched TriggerScheduler, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		store:     store,
		scheduler: sched,
		log:       log.With().Str("component", "reminders").Logger(),
	}
}

// SetMirror attaches a mirror; nil detaches it.
func (s *ReminderService) SetMirror(m Mirror) {
	s.mirror = m
}

func validateRecurrence(timeStr string, freq domain.Frequency, days []string) error {
	if _, _, err := recurrence.ParseClock(timeStr); err != nil {
		return err
	}
	if !freq.Valid() {
		return fmt.Errorf("%w: %q", recurrence.ErrUnknownFrequency, freq)
	}
	if freq == domain.FrequencyCustom && len(days) == 0 {
		return ErrNoCustomDays
	}
	return nil
}

func (s *ReminderService) Create(ctx context.Context, in NewReminder) (*domain.Reminder, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return nil, ErrEmptyLabel
	}
	if in.Frequency == "" {
		in.Frequency = domain.FrequencyDaily
	}
	if in.AlarmType == "" {
		in.AlarmType = domain.AlarmTypeNotification
	}
	if !in.AlarmType.Valid() {
		return nil, fmt.Errorf("unknown alarm type: %q", in.AlarmType)
	}
	if err := validateRecurrence(in.Time, in.Frequency, in.CustomDays); err != nil {
		return nil, err
	}

	r := &domain.Reminder{
		ID:        uuid.NewString(),
		Time:      in.Time,
		Label:     label,
		Active:    !in.Inactive,
		Frequency: in.Frequency,
		Until:     in.Until,
		AlarmType: in.AlarmType,
	}
	if in.Frequency == domain.FrequencyCustom {
		r.CustomDays = append([]string(nil), in.CustomDays...)
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	s.log.Info().Str("reminder", r.ID).Str("label", r.Label).Msg("reminder created")

	if !r.Active {
		return r, nil
	}
	if err := s.scheduler.Schedule(ctx, r); err != nil {
		return r, &ScheduleError{Reminder: r, Err: err}
	}
	s.mirrorUpsert(ctx, r)
	return r, nil
}

func (s *ReminderService) Get(ctx context.Context, id string) (*domain.Reminder, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: reminder %s", ErrNotFound, id)
	}
	return r, nil
}

func (s *ReminderService) List(ctx context.Context) ([]*domain.Reminder, error) {
	reminders, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// SetActive toggles a reminder. Activation persists first and then schedules;
// deactivation cancels first and then persists, so a failed cancel still
// leaves the reminder marked inactive.
func (s *ReminderService) SetActive(ctx context.Context, id string, active bool) (*domain.Reminder, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !active {
		s.scheduler.Cancel(ctx, id)
		if err := s.store.UpdateActive(ctx, id, false); err != nil {
			return nil, fmt.Errorf("deactivate reminder: %w", err)
		}
		r.Active = false
		s.mirrorRemove(ctx, id)
		s.log.Info().Str("reminder", id).Msg("reminder deactivated")
		return r, nil
	}

	if err := s.store.UpdateActive(ctx, id, true); err != nil {
		return nil, fmt.Errorf("activate reminder: %w", err)
	}
	r.Active = true
	if err := s.scheduler.Schedule(ctx, r); err != nil {
		return r, &ScheduleError{Reminder: r, Err: err}
	}
	s.mirrorUpsert(ctx, r)
	s.log.Info().Str("reminder", id).Msg("reminder activated")
	return r, nil
}

// Toggle flips the active flag.
func (s *ReminderService) Toggle(ctx context.Context, id string) (*domain.Reminder, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetActive(ctx, id, !r.Active)
}

// Edit persists p, cancels every outstanding trigger and reschedules when the
// reminder is active.
func (s *ReminderService) Edit(ctx context.Context, id string, p domain.Patch) (*domain.Reminder, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Label != nil {
		trimmed := strings.TrimSpace(*p.Label)
		if trimmed == "" {
			return nil, ErrEmptyLabel
		}
		p.Label = &trimmed
	}
	if p.AlarmType != nil && !p.AlarmType.Valid() {
		return nil, fmt.Errorf("unknown alarm type: %q", *p.AlarmType)
	}

	updated := *r
	p.Apply(&updated)
	if err := validateRecurrence(updated.Time, updated.Frequency, updated.CustomDays); err != nil {
		return nil, err
	}

	if !p.Empty() {
		if err := s.store.UpdateFields(ctx, id, p); err != nil {
			return nil, fmt.Errorf("update reminder: %w", err)
		}
	}

	s.scheduler.Cancel(ctx, id)
	if !updated.Active {
		s.mirrorRemove(ctx, id)
		return &updated, nil
	}
	if err := s.scheduler.Schedule(ctx, &updated); err != nil {
		return &updated, &ScheduleError{Reminder: &updated, Err: err}
	}
	s.mirrorUpsert(ctx, &updated)
	s.log.Info().Str("reminder", id).Msg("reminder rescheduled")
	return &updated, nil
}

// Delete cancels the reminder's triggers and then removes the record.
func (s *ReminderService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	s.scheduler.Cancel(ctx, id)
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	s.mirrorRemove(ctx, id)
	s.log.Info().Str("reminder", id).Msg("reminder deleted")
	return nil
}

type ResyncResult struct {
	Scheduled int
	Failed    int
	Skipped   int
}

// Resync schedules every active reminder again. Scheduling is idempotent, so
// this is safe at startup and after a permission change.
func (s *ReminderService) Resync(ctx context.Context) (ResyncResult, error) {
	var res ResyncResult
	reminders, err := s.List(ctx)
	if err != nil {
		return res, err
	}
	for _, r := range reminders {
		if !r.Active {
			res.Skipped++
			continue
		}
		if err := s.scheduler.Schedule(ctx, r); err != nil {
			res.Failed++
			s.log.Error().Err(err).Str("reminder", r.ID).Msg("resync failed")
			continue
		}
		res.Scheduled++
	}
	s.log.Info().
		Int("scheduled", res.Scheduled).
		Int("failed", res.Failed).
		Int("inactive", res.Skipped).
		Msg("reminders resynced")
	return res, nil
}

// ExpireFinished deactivates active reminders whose end date is before the
// day of now and returns how many were deactivated.
func (s *ReminderService) ExpireFinished(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired reminders: %w", err)
	}
	n := 0
	for _, r := range expired {
		if _, err := s.SetActive(ctx, r.ID, false); err != nil {
			s.log.Error().Err(err).Str("reminder", r.ID).Msg("expire reminder")
			continue
		}
		n++
	}
	if n > 0 {
		s.log.Info().Int("reminders", n).Msg("finished reminders deactivated")
	}
	return n, nil
}

// ScheduledCount is the number of outstanding triggers for id.
func (s *ReminderService) ScheduledCount(id string) int {
	return s.scheduler.ScheduledCount(id)
}

func (s *ReminderService) mirrorUpsert(ctx context.Context, r *domain.Reminder) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Upsert(ctx, r); err != nil {
		s.log.Warn().Err(err).Str("reminder", r.ID).Msg("mirror upsert failed")
	}
}

func (s *ReminderService) mirrorRemove(ctx context.Context, id string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Remove(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("reminder", id).Msg("mirror remove failed")
	}
}

// IsInputError reports whether err came from validating caller input.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyLabel) ||
		errors.Is(err, ErrNoCustomDays) ||
		errors.Is(err, recurrence.ErrInvalidTime) ||
		errors.Is(err, recurrence.ErrUnknownFrequency)
}
