package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JulianoPassing/scc-ticket-hp/bot"
	"github.com/JulianoPassing/scc-ticket-hp/config"
	"github.com/JulianoPassing/scc-ticket-hp/events"
	"github.com/JulianoPassing/scc-ticket-hp/handlers"
	"github.com/JulianoPassing/scc-ticket-hp/lang"
	"github.com/JulianoPassing/scc-ticket-hp/logging"
	"github.com/JulianoPassing/scc-ticket-hp/storage"
	"github.com/JulianoPassing/scc-ticket-hp/ticket"
)

func main() {
	configPath := flag.StringP("config", "c", "config.json", "Path to config file")
	initConfig := flag.Bool("init-config", false, "Write a config file with default values and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *initConfig {
		if err := config.SaveConfig(cfg, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *configPath)
		return
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if code := exitCode(log, run(cfg, log)); code != 0 {
		os.Exit(code)
	}
}

// exitCode logs a fatal run error and flushes the logger, since os.Exit
// skips deferred calls.
func exitCode(log *zap.Logger, err error) int {
	if err == nil {
		return 0
	}
	log.Error("bot stopped", zap.Error(err))
	_ = log.Sync()
	return 1
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	msgs, err := lang.Load(cfg.Lang.Path, cfg.Lang.Language)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var db storage.Database
	db, err = storage.Open(ctx, &cfg.Database)
	if err != nil {
		log.Warn("database init failed, pending deletions will not survive a restart",
			zap.String("driver", cfg.Database.Driver), zap.Error(err))
		db = storage.NewMemoryDB()
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := db.Close(closeCtx); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}()

	dispatcher := events.NewDispatcher()
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		log.Debug("ticket event",
			zap.String("type", string(e.Type)),
			zap.String("event_id", e.ID),
			zap.String("channel_id", e.ChannelID))
		return nil
	})
	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Warn("amqp publisher disabled", zap.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			dispatcher.SubscribeAll(pub.Handle)
			log.Info("publishing ticket events", zap.String("exchange", cfg.Events.Exchange))
		}
	}

	var lock ticket.OpenLock = ticket.NoLock{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, open lock will fall back to the channel scan", zap.Error(err))
		}
		lock = ticket.NewRedisLock(client, cfg.Redis.LockTTL())
	}

	b, err := bot.New(cfg, log)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	platform := handlers.NewPlatform(b.Session)

	scheduler := ticket.NewScheduler(platform, db, log.Named("scheduler"), msgs.T("archive.title"))
	mgr := ticket.NewManager(ticket.Options{
		Platform:  platform,
		Scheduler: scheduler,
		History:   db,
		Events:    dispatcher,
		Lock:      lock,
		Messages:  msgs,
		Log:       log.Named("tickets"),
		Settings: ticket.Settings{
			SupportRoleID:    cfg.Tickets.SupportRoleID,
			CategoryID:       cfg.Tickets.CategoryID,
			ArchiveChannelID: cfg.Tickets.TranscriptChannelID,
			ChannelPrefix:    cfg.Tickets.ChannelPrefix,
			DeleteDelay:      cfg.Tickets.DeleteDelay(),
			TranscriptLimit:  cfg.Tickets.TranscriptLimit,
			TempDir:          cfg.Tickets.TempDir,
			Location:         cfg.Tickets.Location(),
		},
	})
	handlers.New(mgr, log.Named("handlers"), cfg.Discord.Prefix).Register(b.Session)

	if err := b.Start(); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}
	defer b.Stop()

	if err := b.WaitReady(ctx); err != nil {
		return fmt.Errorf("wait for ready: %w", err)
	}
	resumed, err := scheduler.Resume(ctx)
	if err != nil {
		log.Warn("resume pending deletions", zap.Error(err))
	} else if resumed > 0 {
		log.Info("resumed pending deletions", zap.Int("count", resumed))
	}
	defer scheduler.Stop()

	log.Info("bot is running, press Ctrl+C to exit", zap.String("language", msgs.Language()))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	return nil
}
