package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/recurrence"
	"github.com/aeronjay/MediRemind/internal/scheduler"
	"github.com/aeronjay/MediRemind/internal/service"
	"github.com/aeronjay/MediRemind/internal/storage"
)

const addUsage = "Usage: /add HH:MM [daily|weekly|weekdays|custom Mon,Wed] label [!alarm] [until:YYYY-MM-DD]\n\nExample: /add 08:30 weekdays Metformin 500mg"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(ctx, msg, user)
	case "help":
		b.cmdHelp(chatID)
	case "reminders", "list":
		b.cmdReminders(ctx, chatID)
	case "add":
		b.cmdAdd(ctx, chatID, args)
	case "on":
		b.cmdSetActive(ctx, chatID, args, true)
	case "off":
		b.cmdSetActive(ctx, chatID, args, false)
	case "del":
		b.cmdDelete(ctx, chatID, args)
	case "status":
		b.cmdStatus(ctx, chatID)
	case "notify":
		b.cmdNotify(ctx, chatID, args)
	case "test":
		b.cmdTest(ctx, chatID, domain.AlarmTypeNotification)
	case "testalarm":
		b.cmdTest(ctx, chatID, domain.AlarmTypeAlarm)
	default:
		b.reply(chatID, "Unknown command. /help lists the commands")
	}
}

func (b *Bot) cmdStart(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	chatID := msg.Chat.ID
	if user == nil {
		user = b.registerUser(ctx, msg.From)
		if user == nil {
			b.reply(chatID, "❌ Registration failed")
			return
		}
		b.reply(chatID, fmt.Sprintf("👋 Hi, %s!\n\nI will remind you to take your medication.\n\n/help lists the commands", user.Name))
		return
	}
	b.reply(chatID, fmt.Sprintf("👋 Welcome back, %s!", user.Name))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

<b>Reminders</b>
/reminders — list reminders
/add HH:MM freq label — add a reminder
/on ID — turn a reminder on
/off ID — turn a reminder off
/del ID — delete a reminder

<b>Frequencies</b>
daily, weekly (Sundays), weekdays, custom Mon,Wed,Fri
Add <code>!alarm</code> for an alarm and <code>until:2026-12-31</code> for an end date.

<b>Notifications</b>
/status — notification status
/notify on|off — enable or disable deliveries
/test — send a test notification
/testalarm — send a test alarm

/help — this help`

	b.reply(chatID, text)
}

func (b *Bot) cmdReminders(ctx context.Context, chatID int64) {
	reminders, err := b.reminders.List(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("list reminders")
		b.reply(chatID, userError(err))
		return
	}

	text := formatReminderList(reminders, b.clock.Now().In(b.cfg.Location))
	if kb := reminderListKeyboard(reminders); kb != nil {
		if err := b.SendMessageWithKeyboard(chatID, text, *kb); err != nil {
			b.log.Error().Err(err).Msg("send reminder list")
		}
		return
	}
	b.reply(chatID, text)
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, addUsage)
		return
	}

	in, err := parseAddArgs(args, b.cfg.Location)
	if err != nil {
		b.reply(chatID, "❌ "+err.Error()+"\n\n"+addUsage)
		return
	}

	r, err := b.reminders.Create(ctx, in)
	if err != nil && r == nil {
		b.reply(chatID, userError(err))
		return
	}

	text := "✅ Reminder added\n\n" + formatReminder(r, b.clock.Now().In(b.cfg.Location))
	if err != nil {
		text += "\n\n" + userError(err)
	}
	b.reply(chatID, text)
}

func (b *Bot) cmdSetActive(ctx context.Context, chatID int64, args string, active bool) {
	id, err := b.resolveID(ctx, args)
	if err != nil {
		b.reply(chatID, userError(err))
		return
	}

	r, err := b.reminders.SetActive(ctx, id, active)
	if err != nil && r == nil {
		b.reply(chatID, userError(err))
		return
	}

	text := formatReminder(r, b.clock.Now().In(b.cfg.Location))
	if err != nil {
		text += "\n\n" + userError(err)
	}
	b.reply(chatID, text)
}

func (b *Bot) cmdDelete(ctx context.Context, chatID int64, args string) {
	id, err := b.resolveID(ctx, args)
	if err != nil {
		b.reply(chatID, userError(err))
		return
	}
	r, err := b.reminders.Get(ctx, id)
	if err != nil {
		b.reply(chatID, userError(err))
		return
	}
	b.SendMessageWithKeyboard(chatID, "Delete <b>"+html.EscapeString(r.Label)+"</b>?", confirmDeleteKeyboard(id))
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64) {
	st, err := b.scheduler.Status(ctx)
	if err != nil {
		b.reply(chatID, userError(err))
		return
	}

	icon := "✅"
	switch st.Permission {
	case domain.PermissionDenied:
		icon = "🔕"
	case domain.PermissionUndetermined:
		icon = "❔"
	}
	text := fmt.Sprintf("<b>📊 Status</b>\n\n%s Notifications: %s\n⏰ Scheduled triggers: %d\n💊 Reminders scheduled: %d",
		icon, st.Permission, st.TotalScheduled, st.ActiveReminders)
	b.reply(chatID, text)
}

func (b *Bot) cmdNotify(ctx context.Context, chatID int64, args string) {
	var on bool
	switch strings.ToLower(args) {
	case "on":
		on = true
	case "off":
		on = false
	default:
		b.reply(chatID, "Usage: /notify on|off")
		return
	}

	if err := b.setNotifications(ctx, on); err != nil {
		b.reply(chatID, userError(err))
		return
	}
	if on {
		b.reply(chatID, "🔔 Notifications enabled")
		return
	}
	b.reply(chatID, "🔕 Notifications disabled")
}

// setNotifications persists the permission and reconciles outstanding triggers
// with it.
func (b *Bot) setNotifications(ctx context.Context, on bool) error {
	if err := storage.SetNotifyEnabled(ctx, b.store, on); err != nil {
		return fmt.Errorf("save notification setting: %w", err)
	}
	b.notifier.SetEnabled(on)

	if !on {
		return b.scheduler.CancelAll(ctx)
	}
	if _, err := b.reminders.Resync(ctx); err != nil {
		return fmt.Errorf("resync reminders: %w", err)
	}
	return nil
}

func (b *Bot) cmdTest(ctx context.Context, chatID int64, alarmType domain.AlarmType) {
	if err := b.scheduler.SendTest(ctx, alarmType); err != nil {
		if errors.Is(err, scheduler.ErrPermissionDenied) {
			b.reply(chatID, "🔕 Notifications are off. Turn them on with /notify on")
			return
		}
		b.reply(chatID, userError(err))
		return
	}
	b.reply(chatID, "🧪 Test sent, it arrives in a couple of seconds")
}

func (b *Bot) resolveID(ctx context.Context, arg string) (string, error) {
	if arg == "" {
		return "", errors.New("reminder ID required")
	}
	reminders, err := b.reminders.List(ctx)
	if err != nil {
		return "", err
	}
	return matchID(reminders, arg)
}

// parseAddArgs parses "HH:MM [freq [days]] label [!alarm] [until:YYYY-MM-DD]".
// The frequency defaults to daily when the second word is not one.
func parseAddArgs(args string, loc *time.Location) (service.NewReminder, error) {
	var in service.NewReminder
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return in, errors.New("time and label are required")
	}

	h, m, err := recurrence.ParseClock(fields[0])
	if err != nil {
		return in, err
	}
	in.Time = recurrence.FormatClock(h, m)
	rest := fields[1:]

	in.Frequency = domain.FrequencyDaily
	if f := domain.Frequency(strings.ToLower(rest[0])); f.Valid() {
		in.Frequency = f
		rest = rest[1:]
	}
	if in.Frequency == domain.FrequencyCustom {
		if len(rest) == 0 {
			return in, errors.New("custom needs a list of days, e.g. Mon,Wed,Fri")
		}
		days, err := parseDays(rest[0])
		if err != nil {
			return in, err
		}
		in.CustomDays = days
		rest = rest[1:]
	}

	in.AlarmType = domain.AlarmTypeNotification
	var label []string
	for _, w := range rest {
		switch {
		case strings.EqualFold(w, "!alarm"):
			in.AlarmType = domain.AlarmTypeAlarm
		case strings.HasPrefix(strings.ToLower(w), "until:"):
			d, err := time.ParseInLocation(domain.UntilLayout, w[len("until:"):], loc)
			if err != nil {
				return in, fmt.Errorf("invalid end date %q, use YYYY-MM-DD", w[len("until:"):])
			}
			in.Until = &d
		default:
			label = append(label, w)
		}
	}
	in.Label = strings.Join(label, " ")
	if in.Label == "" {
		return in, service.ErrEmptyLabel
	}
	return in, nil
}

// parseDays accepts a comma list of full or three-letter day names in any case
// and returns the canonical names in the order given, without duplicates.
func parseDays(list string) ([]string, error) {
	var days []string
	seen := make(map[domain.Weekday]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, ok := canonicalDay(part)
		if !ok {
			return nil, fmt.Errorf("unknown day %q", part)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d.String())
	}
	if len(days) == 0 {
		return nil, service.ErrNoCustomDays
	}
	return days, nil
}

func canonicalDay(s string) (domain.Weekday, bool) {
	for d := domain.WeekdaySunday; d <= domain.WeekdaySaturday; d++ {
		if strings.EqualFold(s, d.String()) || strings.EqualFold(s, d.Short()) {
			return d, true
		}
	}
	return domain.WeekdayNone, false
}
