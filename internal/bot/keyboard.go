package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aeronjay/MediRemind/internal/domain"
)

// Alarm delivery keyboard
func alarmKeyboard(snoozeMinutes int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Taken", "ack"),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏰ Snooze %d min", snoozeMinutes), fmt.Sprintf("snz:%d", snoozeMinutes)),
		),
	)
}

// Reminder list keyboard: one row per reminder with toggle and delete
func reminderListKeyboard(reminders []*domain.Reminder) *tgbotapi.InlineKeyboardMarkup {
	if len(reminders) == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range reminders {
		toggle := "🔕 Off"
		if !r.Active {
			toggle = "🔔 On"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s %s", toggle, truncate(r.Label, 20)),
				"tog:"+r.ID,
			),
			tgbotapi.NewInlineKeyboardButtonData("🗑", "del:"+r.ID),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", "refresh"),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}

// Confirm delete keyboard
func confirmDeleteKeyboard(reminderID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Yes, delete", "cdel:"+reminderID),
			tgbotapi.NewInlineKeyboardButtonData("◀️ Cancel", "refresh"),
		),
	)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
