// Package notify is the in-process notification primitive: triggers become
// cron entries and fire through a Sender to every registered chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
)

var ErrUnknownTrigger = errors.New("unknown trigger")

// Sender delivers one fired notification to one chat.
type Sender interface {
	Deliver(ctx context.Context, chatID int64, c domain.Content) error
}

// Targets lists the chats that receive deliveries.
type Targets interface {
	DeliveryTargets(ctx context.Context) ([]int64, error)
}

type Local struct {
	cron    *cron.Cron
	clock   clock.Clock
	targets Targets
	log     zerolog.Logger

	senderMu sync.RWMutex
	sender   Sender

	enabled atomic.Bool

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewLocal(loc *time.Location, clk clock.Clock, targets Targets, enabled bool, log zerolog.Logger) *Local {
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.New()
	}
	l := &Local{
		cron:    cron.New(cron.WithLocation(loc)),
		clock:   clk,
		targets: targets,
		log:     log.With().Str("component", "notify").Logger(),
		entries: make(map[string]cron.EntryID),
	}
	l.enabled.Store(enabled)
	return l
}

func (l *Local) SetSender(s Sender) {
	l.senderMu.Lock()
	l.sender = s
	l.senderMu.Unlock()
}

// SetEnabled grants or revokes the notification permission.
func (l *Local) SetEnabled(on bool) {
	l.enabled.Store(on)
	l.log.Info().Bool("enabled", on).Msg("notification permission changed")
}

func (l *Local) Start() {
	l.cron.Start()
	l.log.Info().Msg("notification engine started")
}

func (l *Local) Stop() {
	ctx := l.cron.Stop()
	<-ctx.Done()
	l.log.Info().Msg("notification engine stopped")
}

// AddMaintenance registers a housekeeping job on the engine's cron.
func (l *Local) AddMaintenance(spec string, fn func()) error {
	if _, err := l.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("add maintenance job %q: %w", spec, err)
	}
	return nil
}

func (l *Local) PermissionStatus(ctx context.Context) (domain.PermissionStatus, error) {
	if !l.enabled.Load() {
		return domain.PermissionDenied, nil
	}
	chats, err := l.targets.DeliveryTargets(ctx)
	if err != nil {
		return "", fmt.Errorf("list delivery targets: %w", err)
	}
	if len(chats) == 0 {
		return domain.PermissionUndetermined, nil
	}
	return domain.PermissionGranted, nil
}

func (l *Local) RequestPermission(ctx context.Context) (bool, error) {
	status, err := l.PermissionStatus(ctx)
	if err != nil {
		return false, err
	}
	switch status {
	case domain.PermissionGranted:
		return true, nil
	case domain.PermissionUndetermined:
		l.log.Warn().Msg("no chat registered for deliveries, send /start to the bot")
	default:
		l.log.Warn().Msg("notifications are disabled")
	}
	return false, nil
}

func (l *Local) SubmitTrigger(_ context.Context, t domain.Trigger, c domain.Content) (string, error) {
	id := uuid.NewString()
	entryID, err := l.cron.AddFunc(recurrence.CronSpec(t), func() { l.fire(id, c, false) })
	if err != nil {
		return "", fmt.Errorf("register trigger: %w", err)
	}

	l.mu.Lock()
	l.entries[id] = entryID
	l.mu.Unlock()
	return id, nil
}

// onceSchedule fires at a single instant and never again.
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

func (l *Local) SubmitOnce(_ context.Context, delay time.Duration, c domain.Content) (string, error) {
	id := uuid.NewString()
	at := l.clock.Now().Add(delay)
	entryID := l.cron.Schedule(onceSchedule{at: at}, cron.FuncJob(func() { l.fire(id, c, true) }))

	l.mu.Lock()
	l.entries[id] = entryID
	l.mu.Unlock()
	return id, nil
}

func (l *Local) CancelTrigger(_ context.Context, triggerID string) error {
	l.mu.Lock()
	entryID, ok := l.entries[triggerID]
	delete(l.entries, triggerID)
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerID)
	}
	l.cron.Remove(entryID)
	return nil
}

func (l *Local) CancelAllTriggers(_ context.Context) error {
	l.mu.Lock()
	entries := l.entries
	l.entries = make(map[string]cron.EntryID)
	l.mu.Unlock()

	for _, entryID := range entries {
		l.cron.Remove(entryID)
	}
	l.log.Info().Int("triggers", len(entries)).Msg("cancelled all triggers")
	return nil
}

// Pending returns the number of registered triggers.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) fire(triggerID string, c domain.Content, once bool) {
	if once {
		l.mu.Lock()
		entryID, ok := l.entries[triggerID]
		delete(l.entries, triggerID)
		l.mu.Unlock()
		if ok {
			l.cron.Remove(entryID)
		}
	}

	now := l.clock.Now()
	if c.Until != nil {
		r := domain.Reminder{Until: c.Until}
		if r.Expired(now) {
			l.log.Info().Str("reminder", c.ReminderID).Time("until", *c.Until).Msg("reminder ended, delivery dropped")
			return
		}
	}

	l.senderMu.RLock()
	sender := l.sender
	l.senderMu.RUnlock()
	if sender == nil {
		l.log.Warn().Str("trigger", triggerID).Msg("no sender configured")
		return
	}

	ctx := context.Background()
	chats, err := l.targets.DeliveryTargets(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("list delivery targets")
		return
	}
	for _, chatID := range chats {
		if err := sender.Deliver(ctx, chatID, c); err != nil {
			l.log.Error().Err(err).Int64("chat", chatID).Str("reminder", c.ReminderID).Msg("deliver notification")
			continue
		}
	}
	l.log.Debug().Str("trigger", triggerID).Str("reminder", c.ReminderID).Int("chats", len(chats)).Msg("notification fired")
}
