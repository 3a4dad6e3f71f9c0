package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/commandhub/internal/config"
	"github.com/keshon/commandhub/internal/core"
	"github.com/keshon/commandhub/internal/discord"
	"github.com/keshon/commandhub/internal/dispatch"
	"github.com/keshon/commandhub/internal/logging"
	"github.com/keshon/commandhub/internal/middleware"
	"github.com/keshon/commandhub/internal/publish"
	"github.com/keshon/commandhub/internal/storage"
	"github.com/keshon/commandhub/internal/watch"
	"github.com/keshon/commandhub/pkg/cmd"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, dotenv, err := config.Load()
	if err != nil {
		return err
	}

	log, closer := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	defer closer.Close()
	if !dotenv {
		log.Info().Msg("no .env file found, falling back to system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := storage.New(cfg.StoragePath, storage.WithLogger(logging.Component(log, "storage")))
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	bot, err := discord.New(store, discord.Options{
		Token:          cfg.DiscordToken,
		AppID:          cfg.AppID,
		Prefix:         cfg.Prefix,
		PublishOnStart: cfg.PublishOnStart,
		Color:          cfg.Colors.Blue,
		Log:            logging.Component(log, "discord"),
	})
	if err != nil {
		return err
	}

	pub := publish.New(bot.Session(), store, publish.Options{
		GuildID: cfg.PublishGuild,
		Timeout: cfg.PublishTimeout,
		Log:     logging.Component(log, "publish"),
	})

	c, err := core.New(core.Options{
		Units:     os.DirFS(cfg.UnitsDir),
		Catalog:   bot.Catalog(),
		Bus:       bot.Bus(),
		Publisher: pub,
		Workers:   cfg.LoadWorkers,
		Owners:    cfg.Owners,
		Style: dispatch.Style{
			Red:    cfg.Colors.Red,
			Blue:   cfg.Colors.Blue,
			Green:  cfg.Colors.Green,
			Yellow: cfg.Colors.Yellow,
		},
		Middleware: []cmd.Middleware{
			middleware.WithCommandLogger(store, logging.Component(log, "storage")),
		},
		SweepSpec: cfg.CooldownSweep,
		Log:       log,
	})
	if err != nil {
		return err
	}
	bot.Attach(c)

	if _, err := c.Load(ctx); err != nil {
		log.Error().Err(err).Msg("some unit trees failed to load, continuing with what loaded")
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Stop()

	reload := func(ctx context.Context) {
		if _, err := c.Reload(ctx); err != nil {
			log.Error().Err(err).Msg("reload finished with errors")
		}
		if appID := bot.AppID(); appID != "" {
			c.PublishAsync(ctx, appID)
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				log.Info().Msg("SIGHUP received")
				reload(ctx)
			}
		}
	}()

	if cfg.WatchUnits {
		w := watch.New(cfg.UnitsDir, reload, 0, logging.Component(log, "watch"))
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("unit watcher stopped")
			}
		}()
	}

	log.Info().Str("units", cfg.UnitsDir).Msg("starting discord bot")
	if err := bot.Run(ctx); err != nil {
		log.Error().Err(err).Msg("discord bot error")
		return err
	}
	log.Info().Msg("discord bot exited cleanly")
	return nil
}
