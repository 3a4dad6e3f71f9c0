// Package discord is the gateway transport: it owns the discordgo session,
// exposes gateway events as a Bus for event units and adapts interactions
// and prefixed messages into dispatcher invocations.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/core"
	"github.com/keshon/commandhub/internal/storage"
	"github.com/keshon/commandhub/internal/unit"
)

// Options configures a Bot.
type Options struct {
	Token          string
	AppID          string
	Prefix         string
	PublishOnStart bool
	Color          int
	Log            zerolog.Logger
}

// Bot ties the session to a Core. Create it, build the Core with Bus and
// Catalog, then Attach the Core before Run.
type Bot struct {
	dg    *discordgo.Session
	store *storage.Storage
	opts  Options
	log   zerolog.Logger

	mu   sync.RWMutex
	core *core.Core
}

func New(store *storage.Storage, opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return &Bot{dg: dg, store: store, opts: opts, log: opts.Log}, nil
}

// Session is the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Bus exposes gateway events to the event registry.
func (b *Bot) Bus() *Bus { return NewBus(b.dg) }

// Attach sets the core whose dispatchers handle invocations.
func (b *Bot) Attach(c *core.Core) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.core = c
}

func (b *Bot) currentCore() *core.Core {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.core
}

// Catalog returns the built-in handler table.
func (b *Bot) Catalog() *unit.Catalog {
	c := unit.NewCatalog()
	c.Command("ping", b.ping)
	c.Event("ready", b.onReady)
	c.Event("interactionCreate", b.onInteractionCreate)
	c.Event("messageCreate", b.onMessageCreate)
	c.Event("guildCreate", b.onGuildCreate)
	return c
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.currentCore() == nil {
		return errors.New("discord: no core attached")
	}
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing session")
	return nil
}

// AppID resolves the application identity used for publishing.
func (b *Bot) AppID() string {
	if b.opts.AppID != "" {
		return b.opts.AppID
	}
	if b.dg.State != nil && b.dg.State.User != nil {
		return b.dg.State.User.ID
	}
	return ""
}
