package main

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dukerupert/billfold/internal/amqp"
	"github.com/dukerupert/billfold/internal/auth"
	"github.com/dukerupert/billfold/internal/backup"
	"github.com/dukerupert/billfold/internal/config"
	"github.com/dukerupert/billfold/internal/database"
	"github.com/dukerupert/billfold/internal/email"
	"github.com/dukerupert/billfold/internal/logging"
	"github.com/dukerupert/billfold/internal/notify"
	"github.com/dukerupert/billfold/internal/push"
	"github.com/dukerupert/billfold/internal/reminder"
	"github.com/dukerupert/billfold/internal/store"
)

// app holds what every subcommand needs after startup.
type app struct {
	cfg    *config.Config
	db     *database.DB
	logger *slog.Logger
	today  reminder.Clock
}

func openApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{
		cfg:    cfg,
		db:     db,
		logger: logger,
		today:  reminder.ClockIn(cfg.Location()),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) tokens() *auth.Issuer {
	return auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
}

func (a *app) mailer() *email.Client {
	return email.NewClient(a.cfg.Email.PostmarkToken, a.cfg.Email.From, a.cfg.Server.FrontendURL)
}

func (a *app) pushService() *push.Service {
	p := a.cfg.Push
	return push.NewService(p.VAPIDPublicKey, p.VAPIDPrivateKey, p.Subscriber)
}

func (a *app) backups() *backup.Manager {
	b := a.cfg.Backup
	return backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Prefix: b.Prefix,
	}, a.db, store.NewBackupStore(a.db), a.logger)
}

func (a *app) dialAMQP() (*amqp.Client, error) {
	return amqp.Dial(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.Queue, a.logger)
}

// channels builds the direct delivery channels named in the config. The
// amqp channel is not direct; callers add a notify.Queue themselves.
func (a *app) channels() ([]notify.Channel, error) {
	var out []notify.Channel
	for _, name := range a.cfg.NotifyChannels() {
		switch name {
		case notify.ChannelEmail:
			out = append(out, notify.NewEmail(a.mailer()))
		case notify.ChannelPush:
			out = append(out, notify.NewPush(a.pushService(), store.NewPushStore(a.db), a.logger.With("component", "push")))
		case notify.ChannelTelegram:
			bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
			if err != nil {
				return nil, fmt.Errorf("connect telegram bot: %w", err)
			}
			out = append(out, notify.NewTelegram(bot))
		}
	}
	return out, nil
}

func (a *app) queued() bool {
	for _, name := range a.cfg.NotifyChannels() {
		if name == notify.ChannelAMQP {
			return true
		}
	}
	return false
}

// scanner wires the due-bill scan to every configured channel. The returned
// closer releases the broker connection, if one was opened.
func (a *app) scanner() (*reminder.Scanner, func(), error) {
	channels, err := a.channels()
	if err != nil {
		return nil, nil, err
	}
	closer := func() {}
	if a.queued() {
		client, err := a.dialAMQP()
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, notify.NewQueue(client))
		closer = func() { client.Close() }
	}

	multi := notify.NewMulti(a.logger, channels...)
	a.logger.Info("notification channels", "channels", multi.Names())

	scanner := reminder.NewScanner(store.NewReminderStore(a.db), multi, a.today,
		a.cfg.Reminders.Concurrency, a.logger.With("component", "scan"))
	return scanner, closer, nil
}

// scheduler wraps scanner in the daily loop at the configured scan time.
func (a *app) scheduler() (*reminder.Scheduler, func(), error) {
	at, err := reminder.ParseTimeOfDay(a.cfg.Reminders.ScanTime)
	if err != nil {
		return nil, nil, fmt.Errorf("reminders scan_time: %w", err)
	}
	scanner, closer, err := a.scanner()
	if err != nil {
		return nil, nil, err
	}
	return reminder.NewScheduler(scanner, at, a.cfg.Location(), a.logger.With("component", "scheduler")), closer, nil
}
