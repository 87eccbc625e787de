package bot

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/scheduler"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(userID) {
		b.log.Warn().Int64("user", userID).Msg("rejected message from unknown user")
		b.reply(chatID, "⛔ Access denied")
		return
	}

	user, err := b.store.GetUserByTelegramID(ctx, userID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("get user")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	if strings.TrimSpace(msg.Text) != "" {
		b.reply(chatID, "Send /add to create a reminder or /help for the commands")
	}
}

// registerUser stores an allowed Telegram account as a delivery target.
func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User) *domain.User {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}

	role := domain.RoleOwner
	if from.ID == b.cfg.Telegram.PartnerID {
		role = domain.RolePartner
	}

	u := &domain.User{
		TelegramID: from.ID,
		Name:       name,
		Role:       role,
	}
	if err := b.store.CreateUser(ctx, u); err != nil {
		b.log.Error().Err(err).Int64("user", from.ID).Msg("register user")
		return nil
	}

	b.log.Info().Str("name", name).Int64("user", from.ID).Msg("registered user")

	// The first registered chat turns the permission from undetermined to
	// granted, so outstanding reminders can be scheduled now.
	if _, err := b.reminders.Resync(ctx); err != nil {
		b.log.Error().Err(err).Msg("resync after registration")
	}
	return u
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedUser(userID) {
		b.answer(callback.ID, "⛔ Access denied")
		return
	}

	action, arg, _ := strings.Cut(callback.Data, ":")

	switch action {
	case "tog":
		r, err := b.reminders.Toggle(ctx, arg)
		if err != nil && r == nil {
			b.answer(callback.ID, userError(err))
			return
		}
		if err != nil {
			b.answer(callback.ID, "⚠️ Saved, not scheduled")
		} else if r.Active {
			b.answer(callback.ID, "🔔 On")
		} else {
			b.answer(callback.ID, "🔕 Off")
		}
		b.refreshList(ctx, chatID, msgID)

	case "del":
		r, err := b.reminders.Get(ctx, arg)
		if err != nil {
			b.answer(callback.ID, userError(err))
			return
		}
		b.answer(callback.ID, "")
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, "Delete <b>"+html.EscapeString(r.Label)+"</b>?", confirmDeleteKeyboard(r.ID))
		edit.ParseMode = tgbotapi.ModeHTML
		b.api.Request(edit)

	case "cdel":
		if err := b.reminders.Delete(ctx, arg); err != nil {
			b.answer(callback.ID, userError(err))
			return
		}
		b.answer(callback.ID, "🗑 Deleted")
		b.refreshList(ctx, chatID, msgID)

	case "refresh":
		b.answer(callback.ID, "")
		b.refreshList(ctx, chatID, msgID)

	case "ack":
		b.answer(callback.ID, "✅ Marked as taken")
		b.api.Request(tgbotapi.NewEditMessageText(chatID, msgID, callback.Message.Text+"\n\n✅ Taken"))

	case "snz":
		minutes, err := strconv.Atoi(arg)
		if err != nil {
			minutes = scheduler.DefaultSnoozeMinutes
		}
		title, body := splitDelivery(callback.Message.Text)
		if _, err := b.scheduler.Snooze(ctx, title, body, minutes, true); err != nil {
			if errors.Is(err, scheduler.ErrPermissionDenied) {
				b.answer(callback.ID, "🔕 Notifications are off")
				return
			}
			b.log.Error().Err(err).Msg("snooze")
			b.answer(callback.ID, "❌ Snooze failed")
			return
		}
		b.answer(callback.ID, "⏰ Snoozed for "+strconv.Itoa(minutes)+" min")
		b.api.Request(tgbotapi.NewEditMessageText(chatID, msgID, callback.Message.Text+"\n\n⏰ Snoozed"))

	default:
		b.answer(callback.ID, "")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn().Err(err).Msg("answer callback")
	}
}

func (b *Bot) refreshList(ctx context.Context, chatID int64, msgID int) {
	reminders, err := b.reminders.List(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("list reminders")
		return
	}

	text := formatReminderList(reminders, b.clock.Now().In(b.cfg.Location))
	var edit tgbotapi.EditMessageTextConfig
	if kb := reminderListKeyboard(reminders); kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, msgID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Request(edit); err != nil {
		b.log.Warn().Err(err).Msg("refresh reminder list")
	}
}
