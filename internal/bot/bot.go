package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aeronjay/MediRemind/config"
	"github.com/aeronjay/MediRemind/internal/domain"
	"github.com/aeronjay/MediRemind/internal/notify"
	"github.com/aeronjay/MediRemind/internal/scheduler"
	"github.com/aeronjay/MediRemind/internal/service"
	"github.com/aeronjay/MediRemind/internal/storage"
)

// Deps are the collaborators the bot drives. Calendar and Todoist may be nil.
type Deps struct {
	Store     storage.Store
	Reminders *service.ReminderService
	Scheduler *scheduler.Scheduler
	Notifier  *notify.Local
	Calendar  *service.CalendarService
	Todoist   *service.TodoistService
	Clock     clock.Clock
}

type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	store     storage.Store
	reminders *service.ReminderService
	scheduler *scheduler.Scheduler
	notifier  *notify.Local
	calendar  service.Syncer
	todoist   service.Syncer
	clock     clock.Clock
	limiter   *rate.Limiter
	log       zerolog.Logger
	server    *http.Server
}

func New(cfg *config.Config, deps Deps, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, cfg, deps, log)
	b.log.Info().Str("username", api.Self.UserName).Msg("authorized")

	b.setCommands()
	return b, nil
}

func newBot(api *tgbotapi.BotAPI, cfg *config.Config, deps Deps, log zerolog.Logger) *Bot {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	b := &Bot{
		api:       api,
		cfg:       cfg,
		store:     deps.Store,
		reminders: deps.Reminders,
		scheduler: deps.Scheduler,
		notifier:  deps.Notifier,
		clock:     clk,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Notify.RatePerSec), 1),
		log:       log.With().Str("component", "bot").Logger(),
	}
	if deps.Calendar != nil {
		b.calendar = deps.Calendar
	}
	if deps.Todoist != nil {
		b.todoist = deps.Todoist
	}
	return b
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "reminders", Description: "💊 Medication reminders"},
		{Command: "add", Description: "➕ Add a reminder"},
		{Command: "status", Description: "📊 Notification status"},
		{Command: "notify", Description: "🔔 Turn notifications on or off"},
		{Command: "test", Description: "🧪 Send a test notification"},
		{Command: "help", Description: "❓ Command reference"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		b.log.Warn().Err(err).Msg("failed to set commands")
	}
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.Server.WebhookURL + "/bot"

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	if _, err := b.api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		b.log.Warn().Str("error", info.LastErrorMessage).Msg("webhook reported an error")
	}

	b.log.Info().Str("url", webhookURL).Msg("webhook set")
	return nil
}

// Start serves the HTTP endpoints and consumes updates until ctx is done.
// Updates come from the webhook when one is configured, otherwise from long
// polling.
func (b *Bot) Start(ctx context.Context) error {
	mux := b.routes()

	var updates tgbotapi.UpdatesChannel
	if b.cfg.Server.WebhookURL != "" {
		ch := make(chan tgbotapi.Update, b.api.Buffer)
		mux.HandleFunc("/bot", func(w http.ResponseWriter, r *http.Request) {
			update, err := b.api.HandleUpdate(r)
			if err != nil {
				b.log.Warn().Err(err).Msg("bad webhook update")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			ch <- *update
		})
		updates = ch
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			b.log.Warn().Err(err).Msg("delete webhook")
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
	}

	b.server = &http.Server{
		Addr:              ":" + b.cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		b.log.Info().Str("port", b.cfg.Server.Port).Msg("starting http server")
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.log.Error().Err(err).Msg("http server")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) Stop(ctx context.Context) error {
	if b.server != nil {
		return b.server.Shutdown(ctx)
	}
	return nil
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("send message")
	}
}

// Deliver sends one fired notification. Sends are rate limited across all
// chats; alarm content carries the acknowledge and snooze buttons.
func (b *Bot) Deliver(ctx context.Context, chatID int64, c domain.Content) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, deliveryText(c))
	msg.ParseMode = tgbotapi.ModeHTML
	if c.IsAlarm() {
		msg.ReplyMarkup = alarmKeyboard(scheduler.DefaultSnoozeMinutes)
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}
