package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/automoto/carball-mp/bot"
	"github.com/automoto/carball-mp/config"
	"github.com/automoto/carball-mp/logging"
	"github.com/automoto/carball-mp/server/core"
	"github.com/automoto/carball-mp/server/game"
	"github.com/automoto/carball-mp/server/matchmaking"
	"github.com/automoto/carball-mp/server/session"
	"github.com/automoto/carball-mp/server/simclock"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/storage"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configDir := flag.String("config", ".", "Directory holding carball.json")
	port := flag.Uint("port", 0, "Websocket port (overrides config)")
	httpPort := flag.Int("http", 0, "Admin HTTP port (overrides config)")
	name := flag.String("name", "", "Server display name (overrides config)")
	difficulty := flag.String("bot-difficulty", "normal", "Difficulty of bots added to private rooms")
	flag.Parse()

	settings, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		settings.Server.Port = *port
	}
	if *httpPort != 0 {
		settings.Server.HTTPPort = *httpPort
	}
	if *name != "" {
		settings.Server.Name = *name
	}

	logger, closer, err := logging.Setup(logging.Options{
		Level: settings.Log.Level,
		Dir:   settings.Log.Dir,
		Name:  "server",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(settings, *difficulty, logger); err != nil {
		logger.Error().Err(err).Msg("Server stopped")
		closer.Close()
		os.Exit(1)
	}
}

func run(settings config.Settings, difficulty string, logger zerolog.Logger) error {
	config.Net.TickRate = settings.Server.TickRate

	level, err := bot.ParseDifficulty(difficulty)
	if err != nil {
		return err
	}
	field, err := arena.LoadDefault()
	if err != nil {
		return fmt.Errorf("load arena: %w", err)
	}
	store, err := storage.Open(settings, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	loop := simclock.NewLoop(1024)
	transport := core.NewTransport(loop, logger)
	registry, err := session.NewRegistry(session.RegistryOptions{
		Arena:        field,
		Channel:      transport,
		Scheduler:    loop,
		PollInterval: settings.Server.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	queue, err := matchmaking.NewQueue(matchmaking.Options{Logger: logger})
	if err != nil {
		return err
	}
	hub := game.NewHub(game.Options{
		Registry:      registry,
		Queue:         queue,
		Store:         store,
		Channel:       transport,
		ServerName:    settings.Server.Name,
		BotDifficulty: level,
		OnRebind:      transport.Rebind,
		Logger:        logger,
	})
	transport.Bind(hub)

	go loop.Run()

	errs := make(chan error, 2)
	go func() {
		errs <- fmt.Errorf("websocket: %w", transport.Start(settings.Server.Port))
	}()

	admin := &http.Server{
		Addr:              ":" + strconv.Itoa(settings.Server.HTTPPort),
		Handler:           core.NewAdmin(loop, hub, transport, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Int("port", settings.Server.HTTPPort).Msg("Admin HTTP listening")
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("admin http: %w", err)
		}
	}()

	logger.Info().
		Str("name", settings.Server.Name).
		Uint("port", settings.Server.Port).
		Int("tickRate", settings.Server.TickRate).
		Str("storage", settings.Storage.Driver).
		Msg("Carball server started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("Shutting down server")
	case runErr = <-errs:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Ending every session sends final results, which the outboxes then flush.
	if err := loop.Do(ctx, registry.Close); err != nil {
		logger.Warn().Err(err).Msg("Closing sessions")
	}
	transport.Drain(ctx)
	if err := admin.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("Admin shutdown")
	}
	loop.Stop()
	return runErr
}
