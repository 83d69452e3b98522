package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/ningen/v3"
	"golang.org/x/sync/errgroup"

	"libdb.so/zakrfa/internal/bot"
	"libdb.so/zakrfa/internal/bulk"
	"libdb.so/zakrfa/internal/httpserver"
	"libdb.so/zakrfa/internal/logging"
	"libdb.so/zakrfa/internal/snapshot"
	"libdb.so/zakrfa/internal/store"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Environment Variables:\n")
		fmt.Fprintf(os.Stderr, "  $DISCORD_TOKEN       the bot token\n")
		fmt.Fprintf(os.Stderr, "  $CLIENT_ID           the application id (optional)\n")
		fmt.Fprintf(os.Stderr, "  $OWNER_ID            the user allowed to whitelist servers\n")
		fmt.Fprintf(os.Stderr, "  $STATE_DIRECTORY     the directory to store the bot state\n")
		fmt.Fprintf(os.Stderr, "  $METRICS_ADDR        address to serve /metrics and health probes on\n")
		fmt.Fprintf(os.Stderr, "  $CREATE_CONCURRENCY  create calls in flight per bulk creation (default 1)\n")
		fmt.Fprintf(os.Stderr, "  $DEFAULT_EMOJI       emoji used when /create is given none\n")
		fmt.Fprintf(os.Stderr, "  $LOG_LEVEL           debug, info, warn or error\n")
		fmt.Fprintf(os.Stderr, "  $LOG_FORMAT          text or json\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "A .env file in the working directory is read if present.\n")
	}
}

func main() {
	flag.Parse()

	settings, err := loadSettings()
	if err != nil {
		slog.Error("Bot could not load its settings.", "err", err)
		os.Exit(1)
	}

	logging.Init(settings.LogLevel, settings.LogFormat)

	slog.Info(
		"This bot will be using a state directory.",
		"state_directory", settings.StateDirectory)

	if !settings.OwnerID.IsValid() {
		slog.Warn("$OWNER_ID is not set. Nobody will be able to whitelist servers.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, settings))
}

func run(ctx context.Context, settings botSettings) int {
	errg, ctx := errgroup.WithContext(ctx)

	file := snapshot.Open(filepath.Join(settings.StateDirectory, snapshot.FileName), slog.Default())
	state := store.New(file.Load(), file, slog.Default())

	gatewayID := gateway.DefaultIdentifier("Bot " + settings.Token)
	gatewayID.Properties = gateway.IdentifyProperties{
		OS:      runtime.GOOS,
		Browser: "Arikawa",
		Device:  "zakrfa",
	}

	session := ningen.
		NewWithIdentifier(gatewayID).
		WithContext(ctx)
	session.AddIntents(gateway.IntentGuilds)

	var ready atomic.Bool
	session.AddHandler(func(ev *gateway.ReadyEvent) {
		ready.Store(true)
		slog.Info(
			"This bot is online. It is ready to serve.",
			"bot_id", ev.User.ID,
			"bot_name", ev.User.Tag(),
			"guilds", len(ev.Guilds))
	})

	b := bot.New(bot.Options{
		Store: state,
		Creator: bulk.New(session, bulk.Options{
			Concurrency: settings.CreateConcurrency,
			Logger:      slog.Default(),
		}),
		OwnerID:      settings.OwnerID,
		DefaultEmoji: settings.DefaultEmoji,
		Logger:       slog.Default(),
	})
	session.OnInteractionError = b.InteractionError
	session.AddInteractionHandler(b.Router(session.Client))

	if err := registerCommands(session, settings); err != nil {
		// Commands registered by a previous run keep working.
		slog.Error(
			"Bot has failed to register its commands.",
			"err", err)
	}

	errg.Go(func() error {
		return state.Run(ctx)
	})

	if settings.MetricsAddr != "" {
		srv := httpserver.New(settings.MetricsAddr, []httpserver.HealthCheck{{
			Name: "gateway",
			Check: func(context.Context) error {
				if !ready.Load() {
					return errors.New("gateway is not ready")
				}
				return nil
			},
		}})
		errg.Go(func() error {
			return srv.Run(ctx)
		})
	}

	errg.Go(func() error {
		slog.Debug("Bot is now connecting to Discord.")
		return session.Connect(ctx)
	})

	err := errg.Wait()

	// Commands handled while the gateway was closing may have changed the
	// store after its writer stopped.
	if ferr := state.Flush(); ferr != nil {
		slog.Error(
			"Bot has failed to save its state on shutdown.",
			"err", ferr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		// Try to extract the cause of the cancellation, if any.
		if cause := context.Cause(ctx); cause != nil && cause != ctx.Err() {
			err = cause
		}

		slog.Error(
			"Bot has been stopped.",
			"err", err)
		return 1
	}

	slog.Info("Bot has shut down.")
	return 0
}

func registerCommands(session *ningen.State, settings botSettings) error {
	appID := settings.ApplicationID
	if !appID.IsValid() {
		app, err := session.CurrentApplication()
		if err != nil {
			return fmt.Errorf("cannot look up the application: %w", err)
		}
		appID = app.ID
	}

	if _, err := session.BulkOverwriteCommands(appID, bot.Commands); err != nil {
		return fmt.Errorf("cannot overwrite commands: %w", err)
	}

	slog.Info(
		"Bot has registered its commands.",
		"application_id", appID,
		"commands", len(bot.Commands))
	return nil
}
