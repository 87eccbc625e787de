package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
	"github.com/aeronjay/MediRemind/internal/scheduler"
	"github.com/aeronjay/MediRemind/internal/service"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ReminderResponse struct {
	ID         string   `json:"id"`
	Time       string   `json:"time"`
	Label      string   `json:"label"`
	Active     bool     `json:"active"`
	Frequency  string   `json:"frequency"`
	CustomDays []string `json:"custom_days,omitempty"`
	Until      *string  `json:"until,omitempty"`
	AlarmType  string   `json:"alarm_type"`
	Scheduled  int      `json:"scheduled"`
	NextFire   *string  `json:"next_fire,omitempty"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

type reminderRequest struct {
	Time       *string   `json:"time"`
	Label      *string   `json:"label"`
	Frequency  *string   `json:"frequency"`
	CustomDays *[]string `json:"custom_days"`
	Until      *string   `json:"until"` // "" clears the end date on PATCH
	AlarmType  *string   `json:"alarm_type"`
	Active     *bool     `json:"active"`
}

type StatusResponse struct {
	scheduler.Status
	NotificationsEnabled bool `json:"notifications_enabled"`
	Calendar             bool `json:"calendar"`
	Todoist              bool `json:"todoist"`
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

// routes builds the HTTP handler: health check plus the JSON API when
// credentials are configured.
func (b *Bot) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	b.SetupAPI(mux)
	return mux
}

// SetupAPI registers API routes with Basic Auth
func (b *Bot) SetupAPI(mux *http.ServeMux) {
	if !b.cfg.API.Enabled() {
		b.log.Info().Msg("json api disabled, no credentials configured")
		return
	}

	mux.HandleFunc("/api/reminders", b.basicAuth(b.apiReminders))
	mux.HandleFunc("/api/reminder/", b.basicAuth(b.apiReminder))
	mux.HandleFunc("/api/status", b.basicAuth(b.apiStatus))
	mux.HandleFunc("/api/test", b.basicAuth(b.apiTest))
	mux.HandleFunc("/api/notify", b.basicAuth(b.apiNotify))
	mux.HandleFunc("/api/calendar/sync", b.basicAuth(b.apiMirrorSync("Calendar", b.calendar)))
	mux.HandleFunc("/api/todoist/sync", b.basicAuth(b.apiMirrorSync("Todoist", b.todoist)))
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.API.Username || password != b.cfg.API.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="MediRemind API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	b.jsonStatus(w, http.StatusOK, data)
}

func (b *Bot) jsonStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// apiFail maps a service error to a status code.
func (b *Bot) apiFail(w http.ResponseWriter, err error) {
	var se *service.ScheduleError
	switch {
	case errors.Is(err, errBadRequest), service.IsInputError(err):
		b.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrNotFound):
		b.jsonError(w, "Reminder not found", http.StatusNotFound)
	case errors.As(err, &se), errors.Is(err, scheduler.ErrPermissionDenied):
		b.jsonError(w, err.Error(), http.StatusConflict)
	default:
		b.log.Error().Err(err).Msg("api request failed")
		b.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (b *Bot) reminderToResponse(r *domain.Reminder) ReminderResponse {
	resp := ReminderResponse{
		ID:         r.ID,
		Time:       r.Time,
		Label:      r.Label,
		Active:     r.Active,
		Frequency:  string(r.Frequency),
		CustomDays: r.CustomDays,
		AlarmType:  string(r.AlarmType),
		Scheduled:  b.reminders.ScheduledCount(r.ID),
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
	if r.Until != nil {
		s := r.Until.Format(domain.UntilLayout)
		resp.Until = &s
	}
	if r.Active {
		now := b.clock.Now().In(b.cfg.Location)
		if next, ok, err := recurrence.NextFire(r, now); err == nil && ok {
			s := next.Format(time.RFC3339)
			resp.NextFire = &s
		}
	}
	return resp
}

func (b *Bot) parseUntil(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(domain.UntilLayout, s, b.cfg.Location)
	if err != nil {
		return nil, badRequest("until must be YYYY-MM-DD")
	}
	return &d, nil
}

func (b *Bot) newReminderFromRequest(req reminderRequest) (service.NewReminder, error) {
	var in service.NewReminder
	if req.Time == nil || req.Label == nil {
		return in, badRequest("time and label are required")
	}
	in.Time = *req.Time
	in.Label = *req.Label
	if req.Frequency != nil {
		f, err := domain.ParseFrequency(*req.Frequency)
		if err != nil {
			return in, badRequest(err.Error())
		}
		in.Frequency = f
	}
	if req.CustomDays != nil {
		in.CustomDays = *req.CustomDays
	}
	if req.AlarmType != nil {
		a, err := domain.ParseAlarmType(*req.AlarmType)
		if err != nil {
			return in, badRequest(err.Error())
		}
		in.AlarmType = a
	}
	if req.Until != nil {
		until, err := b.parseUntil(*req.Until)
		if err != nil {
			return in, err
		}
		in.Until = until
	}
	if req.Active != nil {
		in.Inactive = !*req.Active
	}
	return in, nil
}

func (b *Bot) patchFromRequest(req reminderRequest) (domain.Patch, error) {
	var p domain.Patch
	p.Time = req.Time
	p.Label = req.Label
	p.CustomDays = req.CustomDays
	if req.Frequency != nil {
		f, err := domain.ParseFrequency(*req.Frequency)
		if err != nil {
			return p, badRequest(err.Error())
		}
		p.Frequency = &f
	}
	if req.AlarmType != nil {
		a, err := domain.ParseAlarmType(*req.AlarmType)
		if err != nil {
			return p, badRequest(err.Error())
		}
		p.AlarmType = &a
	}
	if req.Until != nil {
		until, err := b.parseUntil(*req.Until)
		if err != nil {
			return p, err
		}
		p.Until = &until
	}
	return p, nil
}

// GET /api/reminders - list reminders
// POST /api/reminders - create reminder
func (b *Bot) apiReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		reminders, err := b.reminders.List(ctx)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		resp := make([]ReminderResponse, 0, len(reminders))
		for _, rem := range reminders {
			resp = append(resp, b.reminderToResponse(rem))
		}
		b.jsonResponse(w, resp)

	case http.MethodPost:
		var req reminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			b.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		in, err := b.newReminderFromRequest(req)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		rem, err := b.reminders.Create(ctx, in)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		b.jsonStatus(w, http.StatusCreated, b.reminderToResponse(rem))

	default:
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET/PATCH/DELETE /api/reminder/{id}
// POST /api/reminder/{id}/toggle
func (b *Bot) apiReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/reminder/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		b.jsonError(w, "Reminder ID required", http.StatusBadRequest)
		return
	}

	if action == "toggle" {
		if r.Method != http.MethodPost {
			b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rem, err := b.reminders.Toggle(ctx, id)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		b.jsonResponse(w, b.reminderToResponse(rem))
		return
	}
	if action != "" {
		b.jsonError(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rem, err := b.reminders.Get(ctx, id)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		b.jsonResponse(w, b.reminderToResponse(rem))

	case http.MethodPatch, http.MethodPut:
		var req reminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			b.jsonError(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		p, err := b.patchFromRequest(req)
		if err != nil {
			b.apiFail(w, err)
			return
		}

		rem, err := b.reminders.Edit(ctx, id, p)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		if req.Active != nil && *req.Active != rem.Active {
			if rem, err = b.reminders.SetActive(ctx, id, *req.Active); err != nil {
				b.apiFail(w, err)
				return
			}
		}
		b.jsonResponse(w, b.reminderToResponse(rem))

	case http.MethodDelete:
		if err := b.reminders.Delete(ctx, id); err != nil {
			b.apiFail(w, err)
			return
		}
		b.jsonResponse(w, map[string]string{"message": "Reminder deleted"})

	default:
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/status
func (b *Bot) apiStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := b.scheduler.Status(r.Context())
	if err != nil {
		b.apiFail(w, err)
		return
	}
	b.jsonResponse(w, StatusResponse{
		Status:               st,
		NotificationsEnabled: st.Permission != domain.PermissionDenied,
		Calendar:             b.calendar != nil,
		Todoist:              b.todoist != nil,
	})
}

// POST /api/test?type=alarm|notification
func (b *Bot) apiTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	alarmType, err := domain.ParseAlarmType(r.URL.Query().Get("type"))
	if err != nil {
		b.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := b.scheduler.SendTest(r.Context(), alarmType); err != nil {
		b.apiFail(w, err)
		return
	}
	b.jsonResponse(w, map[string]string{"message": "Test notification scheduled", "type": string(alarmType)})
}

// POST /api/notify {"enabled": bool}
func (b *Bot) apiNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		b.jsonError(w, "enabled is required", http.StatusBadRequest)
		return
	}
	if err := b.setNotifications(r.Context(), *req.Enabled); err != nil {
		b.apiFail(w, err)
		return
	}
	b.jsonResponse(w, map[string]bool{"enabled": *req.Enabled})
}

// POST /api/calendar/sync, POST /api/todoist/sync
func (b *Bot) apiMirrorSync(name string, m service.Syncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if m == nil {
			b.jsonError(w, name+" not configured", http.StatusServiceUnavailable)
			return
		}
		ctx := r.Context()
		reminders, err := b.reminders.List(ctx)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		res, err := m.Sync(ctx, reminders)
		if err != nil {
			b.apiFail(w, err)
			return
		}
		b.jsonResponse(w, res)
	}
}
