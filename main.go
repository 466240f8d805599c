// Command carball-mp is a headless client that plays carball with the
// built-in bot driver. It queues for a public match, creates a private room
// or joins one by code.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/automoto/carball-mp/bot"
	"github.com/automoto/carball-mp/logging"
	"github.com/automoto/carball-mp/network"
	"github.com/automoto/carball-mp/shared/arena"
	"github.com/automoto/carball-mp/shared/messages"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/rs/zerolog"
)

const (
	appName        = "carball"
	version        = "1"
	welcomeTimeout = 10 * time.Second
)

var errLost = errors.New("connection lost")

type options struct {
	addr       string
	name       string
	mode       string
	code       string
	create     bool
	bots       int
	difficulty string
	matches    int
}

func main() {
	var opts options
	flag.StringVar(&opts.addr, "addr", "localhost:7373", "Server address")
	flag.StringVar(&opts.name, "name", "", "Player name (remembered)")
	flag.StringVar(&opts.mode, "mode", "", "Queue mode: 1v1, 2v2 or 3v3 (remembered)")
	flag.StringVar(&opts.code, "code", "", "Join a private room by code instead of queueing")
	flag.BoolVar(&opts.create, "create", false, "Create a private room and start it")
	flag.IntVar(&opts.bots, "bots", 1, "Server-side bots to add to a created room")
	flag.StringVar(&opts.difficulty, "difficulty", "", "Driver difficulty: easy, normal or hard (remembered)")
	flag.IntVar(&opts.matches, "matches", 1, "Matches to play before exiting, 0 plays forever")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn or error")
	logDir := flag.String("log-dir", "", "Also write logs to this directory")
	flag.Parse()

	logger, closer, err := logging.Setup(logging.Options{Level: *logLevel, Dir: *logDir, Name: "client"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(opts, logger); err != nil {
		logger.Error().Err(err).Msg("Client stopped")
		closer.Close()
		os.Exit(1)
	}
}

func run(opts options, logger zerolog.Logger) error {
	profiles, err := network.OpenProfileStore(appName)
	if err != nil {
		logger.Warn().Err(err).Msg("Profile disabled")
	}
	var profile network.Profile
	if profiles != nil {
		if profile, err = profiles.Load(); err != nil {
			logger.Warn().Err(err).Msg("Could not load profile")
		}
	}
	merge(&profile, opts)

	difficulty, err := bot.ParseDifficulty(profile.Difficulty)
	if err != nil {
		return err
	}
	field, err := arena.LoadDefault()
	if err != nil {
		return fmt.Errorf("load arena: %w", err)
	}

	client := network.NewClient(logger)
	client.Connect(opts.addr, messages.Hello{Version: version, Name: profile.Name, PlayerID: profile.PlayerID})
	defer client.Disconnect()

	if err := awaitWelcome(client); err != nil {
		return err
	}
	profile.PlayerID = client.PlayerID()
	if profiles != nil {
		if err := profiles.Save(profile); err != nil {
			logger.Warn().Err(err).Msg("Could not save profile")
		}
	}

	if err := enter(client, opts, profile.Mode); err != nil {
		return err
	}

	p := &player{
		client: client,
		driver: bot.NewDriver(difficulty),
		arena:  field,
		opts:   opts,
		mode:   profile.Mode,
		log:    logger,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	return p.play(sig)
}

// merge lets flags override the remembered profile.
func merge(p *network.Profile, opts options) {
	if opts.name != "" {
		p.Name = opts.name
	}
	if opts.mode != "" {
		p.Mode = opts.mode
	}
	if p.Mode == "" {
		p.Mode = "1v1"
	}
	if opts.difficulty != "" {
		p.Difficulty = opts.difficulty
	}
}

func awaitWelcome(c *network.Client) error {
	deadline := time.Now().Add(welcomeTimeout)
	for time.Now().Before(deadline) {
		switch c.State() {
		case network.StateWelcomed, network.StateInSession:
			return nil
		case network.StateError:
			return c.LastError()
		}
		time.Sleep(50 * time.Millisecond)
	}
	return errors.New("no welcome from server")
}

// enter puts the player into a game the way opts asks.
func enter(c *network.Client, opts options, mode string) error {
	switch {
	case opts.code != "":
		return c.SendMessage(messages.JoinGameCommand{Code: strings.ToUpper(opts.code)})
	case opts.create:
		if err := c.SendMessage(messages.CreateGameCommand{Mode: mode}); err != nil {
			return err
		}
		for i := 0; i < opts.bots; i++ {
			if err := c.SendMessage(messages.AddBotCommand{}); err != nil {
				return err
			}
		}
		return c.SendMessage(messages.StartCommand{})
	}
	return c.SendMessage(messages.QueueCommand{Mode: mode})
}

type player struct {
	client *network.Client
	driver *bot.Driver
	arena  *arena.Arena
	opts   options
	mode   string
	log    zerolog.Logger

	tick   uint64
	played int
}

func (p *player) play(sig <-chan os.Signal) error {
	rate := p.client.TickRate()
	if rate <= 0 {
		rate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case s := <-sig:
			p.log.Info().Str("signal", s.String()).Msg("Leaving")
			_ = p.client.SendMessage(messages.LeaveGameCommand{})
			return nil
		case <-ticker.C:
		}

		switch p.client.State() {
		case network.StateDisconnected:
			return errLost
		case network.StateError:
			return p.client.LastError()
		}

		if done, err := p.handleEvents(); done || err != nil {
			return err
		}
		p.drive()
	}
}

// handleEvents logs match progress. It reports done once enough matches
// were played.
func (p *player) handleEvents() (bool, error) {
	for _, ack := range p.client.DrainAcks() {
		if ack.Code != "" {
			p.log.Info().Str("code", ack.Code).Msg("Room created")
		}
	}
	for _, evt := range p.client.DrainEvents() {
		switch e := evt.(type) {
		case messages.CountdownEvent:
			p.log.Debug().Int("value", e.Value).Msg("Countdown")
		case messages.ScoreEvent:
			if e.Team != netconfig.TeamNone {
				p.log.Info().Int("blue", e.Blue).Int("red", e.Red).Str("scorer", e.ScorerID).Bool("ownGoal", e.OwnGoal).Msg("Goal")
			}
		case messages.MatchEnded:
			p.played++
			p.log.Info().
				Int("blue", e.Blue).
				Int("red", e.Red).
				Str("winner", e.Winner.String()).
				Str("reason", e.Reason).
				Msg("Match ended")
			if p.opts.matches > 0 && p.played >= p.opts.matches {
				_ = p.client.SendMessage(messages.LeaveGameCommand{})
				return true, nil
			}
			if err := p.again(); err != nil {
				return true, err
			}
		case messages.SessionLeft:
			p.log.Info().Str("reason", e.Reason).Msg("Session left")
		}
	}
	return false, nil
}

// again starts the next match: a rematch in a room we own, or back to the
// queue.
func (p *player) again() error {
	if p.opts.create {
		return p.client.SendMessage(messages.StartCommand{})
	}
	if p.opts.code != "" {
		return nil
	}
	return p.client.SendMessage(messages.QueueCommand{Mode: p.mode})
}

func (p *player) drive() {
	p.tick++
	sess := p.client.Session()
	if sess.SessionID == "" {
		return
	}
	frame := p.client.Buffer().Sample(time.Now())
	v, ok := viewFor(frame, p.client.PlayerID(), netconfig.Team(sess.Team), p.arena, p.tick, p.client.MatchState().InMatch())
	if !ok {
		return
	}
	if err := p.driver.Drive(v, p.client); err != nil {
		p.log.Warn().Err(err).Msg("Drive failed")
	}
}
