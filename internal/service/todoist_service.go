package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmhodges/clock"
	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/internal/clients/todoist"
	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
)

const (
	taskMarkerPrefix = "mediremind:"
	taskLabel        = "medication"
)

// TodoistClient is the Todoist surface the mirror needs.
type TodoistClient interface {
	ListTasks(ctx context.Context) ([]todoist.Task, error)
	CreateTask(ctx context.Context, req *todoist.CreateTaskRequest) (*todoist.Task, error)
	UpdateTask(ctx context.Context, id string, req *todoist.UpdateTaskRequest) error
	DeleteTask(ctx context.Context, id string) error
}

// TodoistService keeps every active reminder as a recurring Todoist task.
// Tasks are matched to reminders by a marker line in their description.
type TodoistService struct {
	client TodoistClient
	clock  clock.Clock
	log    zerolog.Logger
}

// NewTodoistService creates a new Todoist mirror
func NewTodoistService(client TodoistClient, clk clock.Clock, log zerolog.Logger) *TodoistService {
	if clk == nil {
		clk = clock.New()
	}
	return &TodoistService{
		client: client,
		clock:  clk,
		log:    log.With().Str("component", "todoist").Logger(),
	}
}

func TaskMarker(reminderID string) string {
	return taskMarkerPrefix + reminderID
}

// DueString renders r in Todoist's natural-language recurrence syntax,
// e.g. "every weekday at 09:30" or "every mon, fri at 08:00 until 2026-06-30".
func DueString(r *domain.Reminder) (string, error) {
	triggers, err := recurrence.ExpandReminder(r)
	if err != nil {
		return "", err
	}
	if len(triggers) == 0 {
		return "", ErrNoCustomDays
	}

	var every string
	switch r.Frequency {
	case domain.FrequencyDaily:
		every = "every day"
	case domain.FrequencyWeekdays:
		every = "every weekday"
	default:
		days := make([]string, 0, len(triggers))
		for _, t := range triggers {
			days = append(days, strings.ToLower(t.Weekday.Short()))
		}
		every = "every " + strings.Join(days, ", ")
	}

	s := fmt.Sprintf("%s at %s", every, recurrence.FormatClock(triggers[0].Hour, triggers[0].Minute))
	if r.Until != nil {
		s += " until " + r.Until.Format(domain.UntilLayout)
	}
	return s, nil
}

func taskContent(r *domain.Reminder) string {
	return "💊 " + r.Label
}

func taskDescription(r *domain.Reminder) string {
	return TaskMarker(r.ID) + "\n" + DescribeDays(r) + " at " + r.Time
}

func taskPriority(r *domain.Reminder) int {
	if r.AlarmType.IsAlarm() {
		return 4
	}
	return 1
}

// reminderIDOf extracts the reminder ID from a mirrored task.
func reminderIDOf(t *todoist.Task) (string, bool) {
	first, _, _ := strings.Cut(t.Description, "\n")
	id, ok := strings.CutPrefix(strings.TrimSpace(first), taskMarkerPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (s *TodoistService) findTask(ctx context.Context, reminderID string) (*todoist.Task, error) {
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		if id, ok := reminderIDOf(&tasks[i]); ok && id == reminderID {
			return &tasks[i], nil
		}
	}
	return nil, nil
}

func (s *TodoistService) write(ctx context.Context, r *domain.Reminder, existing *todoist.Task) error {
	due, err := DueString(r)
	if err != nil {
		return fmt.Errorf("build due string: %w", err)
	}
	content := taskContent(r)
	desc := taskDescription(r)
	priority := taskPriority(r)

	if existing != nil {
		return s.client.UpdateTask(ctx, existing.ID, &todoist.UpdateTaskRequest{
			Content:     &content,
			Description: &desc,
			Priority:    &priority,
			DueString:   &due,
			Labels:      []string{taskLabel},
		})
	}
	_, err = s.client.CreateTask(ctx, &todoist.CreateTaskRequest{
		Content:     content,
		Description: desc,
		Priority:    priority,
		DueString:   due,
		DueLang:     "en",
		Labels:      []string{taskLabel},
	})
	return err
}

func (s *TodoistService) live(r *domain.Reminder) bool {
	return r.Active && !r.Expired(s.clock.Now())
}

// Upsert writes the task for r, or removes it when r is inactive or finished.
func (s *TodoistService) Upsert(ctx context.Context, r *domain.Reminder) error {
	if !s.live(r) {
		return s.Remove(ctx, r.ID)
	}
	existing, err := s.findTask(ctx, r.ID)
	if err != nil {
		return err
	}
	if err := s.write(ctx, r, existing); err != nil {
		return err
	}
	s.log.Debug().Str("reminder", r.ID).Bool("update", existing != nil).Msg("todoist task written")
	return nil
}

func (s *TodoistService) Remove(ctx context.Context, reminderID string) error {
	existing, err := s.findTask(ctx, reminderID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if err := s.client.DeleteTask(ctx, existing.ID); err != nil && !errors.Is(err, todoist.ErrNotFound) {
		return err
	}
	return nil
}

// Sync writes every active reminder and deletes mirrored tasks whose
// reminder is gone or inactive. Tasks without the marker are left alone.
func (s *TodoistService) Sync(ctx context.Context, reminders []*domain.Reminder) (*SyncResult, error) {
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	byReminder := make(map[string]*todoist.Task)
	for i := range tasks {
		if id, ok := reminderIDOf(&tasks[i]); ok {
			byReminder[id] = &tasks[i]
		}
	}

	result := &SyncResult{}
	keep := make(map[string]bool)
	for _, r := range reminders {
		if !s.live(r) {
			continue
		}
		keep[r.ID] = true
		if err := s.write(ctx, r, byReminder[r.ID]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("write %s: %v", r.ID, err))
			continue
		}
		result.Upserted++
	}

	for id, t := range byReminder {
		if keep[id] {
			continue
		}
		if err := s.client.DeleteTask(ctx, t.ID); err != nil && !errors.Is(err, todoist.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("delete %s: %v", t.ID, err))
			continue
		}
		result.Deleted++
	}

	s.log.Info().
		Int("upserted", result.Upserted).
		Int("deleted", result.Deleted).
		Int("errors", len(result.Errors)).
		Msg("todoist synced")
	return result, nil
}
