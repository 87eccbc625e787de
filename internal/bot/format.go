package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
	"github.com/aeronjay/MediRemind/internal/service"
)

// shortIDLen is how much of a reminder id the list shows and commands accept.
const shortIDLen = 8

var (
	errAmbiguousID = errors.New("id prefix matches more than one reminder")
	errShortID     = errors.New("id prefix is too short")
)

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

// matchID resolves a full id or a unique prefix of at least four characters.
func matchID(reminders []*domain.Reminder, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 {
		return "", errShortID
	}
	var found string
	for _, r := range reminders {
		if r.ID == prefix {
			return r.ID, nil
		}
		if strings.HasPrefix(r.ID, prefix) {
			if found != "" {
				return "", errAmbiguousID
			}
			found = r.ID
		}
	}
	if found == "" {
		return "", fmt.Errorf("%w: reminder %s", service.ErrNotFound, prefix)
	}
	return found, nil
}

// deliveryText renders fired content as an HTML message: the title line, a
// blank line, then the body.
func deliveryText(c domain.Content) string {
	return "<b>" + html.EscapeString(c.Title) + "</b>\n\n" + html.EscapeString(c.Body)
}

// splitDelivery recovers title and body from a delivered message's plain
// text and strips an earlier snooze marker so snoozing again does not stack.
func splitDelivery(text string) (title, body string) {
	title, body, _ = strings.Cut(text, "\n\n")
	title = strings.TrimPrefix(title, "⏰ ")
	if i := strings.LastIndex(body, " (Snoozed for "); i >= 0 {
		body = body[:i]
	}
	return title, body
}

func formatReminder(r *domain.Reminder, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s</b> <code>%s</code>\n", r.StatusEmoji(), html.EscapeString(r.Label), shortID(r.ID))
	fmt.Fprintf(&sb, "    %s · %s", r.Time, service.DescribeDays(r))
	if r.AlarmType.IsAlarm() {
		sb.WriteString(" · 🚨 alarm")
	}
	if r.Until != nil {
		sb.WriteString(" · until " + r.Until.Format(domain.UntilLayout))
	}
	if r.Active {
		next, ok, err := recurrence.NextFire(r, now)
		if err == nil && ok {
			sb.WriteString("\n    next " + humanize.RelTime(next, now, "ago", "from now"))
		} else if err == nil && r.Expired(now) {
			sb.WriteString("\n    finished")
		}
	}
	return sb.String()
}

func formatReminderList(reminders []*domain.Reminder, now time.Time) string {
	if len(reminders) == 0 {
		return "💊 No reminders yet.\n\n/add 08:00 daily Vitamin D"
	}
	active := 0
	for _, r := range reminders {
		if r.Active {
			active++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>💊 Reminders</b> (%d active of %d)\n\n", active, len(reminders))
	for _, r := range reminders {
		sb.WriteString(formatReminder(r, now))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// userError turns a service or scheduler error into a short message.
func userError(err error) string {
	var se *service.ScheduleError
	switch {
	case errors.As(err, &se):
		return "⚠️ Saved, but could not schedule notifications: " + html.EscapeString(se.Err.Error())
	case errors.Is(err, service.ErrNotFound):
		return "❌ Reminder not found"
	}
	return "❌ " + html.EscapeString(err.Error())
}
