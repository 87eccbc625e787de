package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/jmhodges/clock"
	"github.com/rs/zerolog"

	"github.com/aeronjay/MediRemind/config"
	"github.com/aeronjay/MediRemind/internal/bot"
	"github.com/aeronjay/MediRemind/internal/clients/caldav"
	"github.com/aeronjay/MediRemind/internal/clients/todoist"
	"github.com/aeronjay/MediRemind/internal/logging"
	"github.com/aeronjay/MediRemind/internal/notify"
	"github.com/aeronjay/MediRemind/internal/scheduler"
	"github.com/aeronjay/MediRemind/internal/service"
	"github.com/aeronjay/MediRemind/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("mediremind failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("storage ready")

	enabled, err := storage.NotifyEnabled(ctx, store, cfg.Notify.Enabled)
	if err != nil {
		log.Warn().Err(err).Msg("read notification setting, using config default")
	}

	clk := clock.New()
	local := notify.NewLocal(cfg.Location, clk, store, enabled, log)
	sched := scheduler.New(local, log)
	reminders := service.NewReminderService(store, sched, log)

	var mirrors service.Mirrors
	calendar := setupCalendar(ctx, cfg, clk, log)
	if calendar != nil {
		mirrors = append(mirrors, calendar)
	}
	todo := setupTodoist(ctx, cfg, clk, log)
	if todo != nil {
		mirrors = append(mirrors, todo)
	}
	if len(mirrors) > 0 {
		reminders.SetMirror(mirrors)
	}

	tgBot, err := bot.New(cfg, bot.Deps{
		Store:     store,
		Reminders: reminders,
		Scheduler: sched,
		Notifier:  local,
		Calendar:  calendar,
		Todoist:   todo,
		Clock:     clk,
	}, log)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}
	local.SetSender(tgBot)

	if cfg.Server.WebhookURL != "" {
		if err := tgBot.SetupWebhook(); err != nil {
			return fmt.Errorf("setup webhook: %w", err)
		}
	}

	// The trigger registry is not persisted, so every start rebuilds it.
	if _, err := reminders.Resync(ctx); err != nil {
		log.Error().Err(err).Msg("initial resync failed")
	}
	if calendar != nil {
		go syncMirror(ctx, "calendar", reminders, calendar, log)
	}
	if todo != nil {
		go syncMirror(ctx, "todoist", reminders, todo, log)
	}

	err = local.AddMaintenance(cfg.Expiry.Cron, func() {
		if _, err := reminders.ExpireFinished(ctx, clk.Now().In(cfg.Location)); err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
		}
	})
	if err != nil {
		return err
	}
	local.Start()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Error().Err(err).Msg("bot stopped with error")
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("sd_notify ready")
	} else if ok {
		log.Debug().Msg("notified systemd")
	}
	log.Info().Str("timezone", cfg.Location.String()).Msg("mediremind started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info().Str("signal", sig.String()).Msg("shutting down")
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	cancel()
	local.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stop bot")
	}

	log.Info().Msg("mediremind stopped")
	return nil
}

// setupCalendar returns the CalDAV mirror, or nil when it is not configured
// or the calendar cannot be resolved.
func setupCalendar(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) *service.CalendarService {
	if !cfg.CalDAV.Enabled() {
		return nil
	}

	client := caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password)

	lookupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	calendars, err := client.DiscoverCalendars(lookupCtx)
	if err != nil {
		log.Error().Err(err).Msg("caldav discovery failed, calendar mirror disabled")
		return nil
	}
	cal, ok := pickCalendar(calendars, cfg.CalDAV.Calendar)
	if !ok {
		log.Error().Str("calendar", cfg.CalDAV.Calendar).Int("found", len(calendars)).Msg("caldav calendar not found, calendar mirror disabled")
		return nil
	}
	client.SetCalendarID(cal.ID)
	log.Info().Str("calendar", cal.DisplayName).Msg("caldav mirror enabled")

	return service.NewCalendarService(client, cfg.Location, clk, log)
}

// pickCalendar matches name against display names and paths; an empty name
// picks the first calendar.
func pickCalendar(calendars []caldav.Calendar, name string) (caldav.Calendar, bool) {
	if len(calendars) == 0 {
		return caldav.Calendar{}, false
	}
	if name == "" {
		return calendars[0], true
	}
	for _, c := range calendars {
		if strings.EqualFold(c.DisplayName, name) || c.ID == name {
			return c, true
		}
	}
	return caldav.Calendar{}, false
}

// setupTodoist returns the Todoist mirror, or nil when it is not configured
// or the project cannot be resolved.
func setupTodoist(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) *service.TodoistService {
	if !cfg.Todoist.Enabled() {
		return nil
	}

	client := todoist.NewClient(cfg.Todoist.Token)
	if cfg.Todoist.Project != "" {
		lookupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		project, err := client.FindProject(lookupCtx, cfg.Todoist.Project)
		if err != nil {
			log.Error().Err(err).Str("project", cfg.Todoist.Project).Msg("todoist project lookup failed, task mirror disabled")
			return nil
		}
		client.SetProjectID(project.ID)
	}
	log.Info().Str("project", cfg.Todoist.Project).Msg("todoist mirror enabled")

	return service.NewTodoistService(client, clk, log)
}

func syncMirror(ctx context.Context, name string, reminders *service.ReminderService, mirror service.Syncer, log zerolog.Logger) {
	log = log.With().Str("mirror", name).Logger()
	list, err := reminders.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("mirror sync: list reminders")
		return
	}
	if _, err := mirror.Sync(ctx, list); err != nil {
		log.Error().Err(err).Msg("mirror sync failed")
	}
}
