// Package core owns the registries, the cooldown tracker and the publisher,
// and runs the three loaders. Nothing here is global: the transport gets a
// *Core and hands inbound invocations to its dispatchers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/cooldown"
	"github.com/keshon/commandhub/internal/dispatch"
	"github.com/keshon/commandhub/internal/loader"
	"github.com/keshon/commandhub/internal/publish"
	"github.com/keshon/commandhub/internal/registry"
	"github.com/keshon/commandhub/internal/unit"
	"github.com/keshon/commandhub/pkg/cmd"
	"github.com/keshon/commandhub/pkg/jobmgr"
)

// Unit tree layout under the units root.
const (
	CommandsDir = "commands"
	EventsDir   = "events"
	SlashDir    = "slash"
)

// Publisher is satisfied by *publish.Publisher.
type Publisher interface {
	Publish(ctx context.Context, appID string, cmds []*discordgo.ApplicationCommand) (publish.Result, error)
}

// Options wires a Core.
type Options struct {
	Units   fs.FS
	Catalog *unit.Catalog
	Bus     registry.Bus
	// Publisher may be nil when slash commands are never published
	// (e.g. offline validation).
	Publisher Publisher

	Workers    int
	Owners     []string
	Style      dispatch.Style
	Middleware []cmd.Middleware
	// SweepSpec is the cron spec for the cooldown backstop sweep; empty
	// disables it.
	SweepSpec string
	Log       zerolog.Logger
}

// Summary is the outcome of one Load.
type Summary struct {
	Commands   loader.Report
	Events     loader.Report
	Slash      loader.Report
	Registered int
	Bound      int
}

// Failed is the number of unit files that did not load.
func (s Summary) Failed() int {
	return s.Commands.Failed + s.Events.Failed + s.Slash.Failed
}

type Core struct {
	opts Options
	log  zerolog.Logger

	prefix    *registry.Table
	slash     *registry.Table
	events    *registry.Events
	cooldowns *cooldown.Tracker

	prefixDispatcher *dispatch.Dispatcher
	slashDispatcher  *dispatch.Dispatcher

	loadMu sync.Mutex
	defsMu sync.RWMutex
	defs   []*discordgo.ApplicationCommand

	cron *cron.Cron
	jobs *jobmgr.Manager
}

// New builds an empty core. Call Load to populate it.
func New(opts Options) (*Core, error) {
	if opts.Units == nil {
		return nil, errors.New("core: units filesystem is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("core: handler catalog is required")
	}
	c := &Core{
		opts:   opts,
		log:    opts.Log,
		prefix: registry.NewTable(),
		slash:  registry.NewTable(),
		jobs:   jobmgr.NewManager(opts.Log.With().Str("comp", "jobs").Logger()),
		cooldowns: cooldown.New(
			cooldown.WithLogger(opts.Log.With().Str("comp", "cooldown").Logger()),
		),
	}
	if opts.Bus != nil {
		c.events = registry.NewEvents(opts.Bus, opts.Log.With().Str("comp", "events").Logger())
	}

	dlog := opts.Log.With().Str("comp", "dispatch").Logger()
	c.prefixDispatcher = dispatch.New(c.prefix, c.cooldowns, dispatch.Options{
		Owners: opts.Owners, Style: opts.Style, Log: dlog, Middleware: opts.Middleware,
	})
	c.slashDispatcher = dispatch.New(c.slash, c.cooldowns, dispatch.Options{
		Owners: opts.Owners, Style: opts.Style, Log: dlog, Middleware: opts.Middleware,
	})
	return c, nil
}

// PrefixDispatcher runs message-prefixed invocations.
func (c *Core) PrefixDispatcher() *dispatch.Dispatcher { return c.prefixDispatcher }

// SlashDispatcher runs application command invocations.
func (c *Core) SlashDispatcher() *dispatch.Dispatcher { return c.slashDispatcher }

// Commands returns the live prefix command registry.
func (c *Core) Commands() *registry.Commands { return c.prefix.Current() }

// SlashCommands returns the live slash command registry.
func (c *Core) SlashCommands() *registry.Commands { return c.slash.Current() }

// Cooldowns exposes the shared tracker.
func (c *Core) Cooldowns() *cooldown.Tracker { return c.cooldowns }

// Definitions returns the slash definitions from the last load.
func (c *Core) Definitions() []*discordgo.ApplicationCommand {
	c.defsMu.RLock()
	defer c.defsMu.RUnlock()
	return append([]*discordgo.ApplicationCommand(nil), c.defs...)
}

// Load runs the three loaders and swaps in fresh registries. A loader whose
// base directory cannot be read keeps the previous registry for its kind;
// its error is returned joined with the others, but the rest still load.
// Event handlers receive ctx.
func (c *Core) Load(ctx context.Context) (Summary, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	var sum Summary
	var errs []error

	if rep, err := c.loadCommands(ctx); err != nil {
		errs = append(errs, err)
	} else {
		sum.Commands = rep
	}
	if rep, n, err := c.loadSlash(ctx); err != nil {
		errs = append(errs, err)
	} else {
		sum.Slash, sum.Registered = rep, n
	}
	if rep, n, err := c.loadEvents(ctx); err != nil {
		errs = append(errs, err)
	} else {
		sum.Events, sum.Bound = rep, n
	}
	return sum, errors.Join(errs...)
}

// Reload is Load under another name, for operator triggers.
func (c *Core) Reload(ctx context.Context) (Summary, error) {
	c.log.Info().Msg("reloading units")
	return c.Load(ctx)
}

func (c *Core) loaderOptions() loader.Options {
	return loader.Options{Workers: c.opts.Workers, Log: c.log.With().Str("comp", "loader").Logger()}
}

func (c *Core) sub(dir string) (fs.FS, error) {
	fsys, err := fs.Sub(c.opts.Units, dir)
	if err != nil {
		return nil, fmt.Errorf("units %s: %w", dir, err)
	}
	return fsys, nil
}

func (c *Core) loadCommands(ctx context.Context) (loader.Report, error) {
	fsys, err := c.sub(CommandsDir)
	if err != nil {
		return loader.Report{}, err
	}
	res, err := loader.Load(ctx, fsys, loader.Commands(c.opts.Catalog), c.loaderOptions())
	if err != nil {
		c.log.Error().Err(err).Msg("command loader failed, keeping previous commands")
		return res.Report, err
	}

	reg := registry.NewCommands(c.log.With().Str("comp", "registry").Logger())
	for _, u := range res.Units {
		reg.Register(u)
	}
	c.prefix.Swap(reg)
	c.logReport(res.Report, nil)
	return res.Report, nil
}

func (c *Core) loadSlash(ctx context.Context) (loader.Report, int, error) {
	fsys, err := c.sub(SlashDir)
	if err != nil {
		return loader.Report{}, 0, err
	}
	res, err := loader.Load(ctx, fsys, loader.Slash(c.opts.Catalog), c.loaderOptions())
	if err != nil {
		c.log.Error().Err(err).Msg("slash loader failed, keeping previous slash commands")
		return res.Report, 0, err
	}

	reg := registry.NewCommands(c.log.With().Str("comp", "registry").Logger())
	// Register warns on duplicate names; defs follow the same last-wins rule
	// since a bulk overwrite rejects repeated names.
	defs := make([]*discordgo.ApplicationCommand, 0, len(res.Units))
	index := make(map[string]int, len(res.Units))
	for _, u := range res.Units {
		reg.Register(u.Command)
		if i, dup := index[u.Definition.Name]; dup {
			defs[i] = u.Definition
			continue
		}
		index[u.Definition.Name] = len(defs)
		defs = append(defs, u.Definition)
	}
	c.slash.Swap(reg)

	c.defsMu.Lock()
	c.defs = defs
	c.defsMu.Unlock()

	c.logReport(res.Report, func(e *zerolog.Event) { e.Int("registered", len(defs)) })
	return res.Report, len(defs), nil
}

func (c *Core) loadEvents(ctx context.Context) (loader.Report, int, error) {
	fsys, err := c.sub(EventsDir)
	if err != nil {
		return loader.Report{}, 0, err
	}
	res, err := loader.Load(ctx, fsys, loader.Events(c.opts.Catalog), c.loaderOptions())
	if err != nil {
		c.log.Error().Err(err).Msg("event loader failed, keeping previous subscriptions")
		return res.Report, 0, err
	}
	c.logReport(res.Report, nil)

	if c.events == nil {
		return res.Report, 0, nil
	}
	bound, err := c.events.Replace(ctx, res.Units)
	if err != nil {
		c.log.Error().Err(err).Msg("some events could not be bound")
	}
	return res.Report, bound, nil
}

func (c *Core) logReport(r loader.Report, extra func(*zerolog.Event)) {
	c.log.Info().Msg("\n" + r.Table())
	ev := c.log.Info().Str("kind", r.Kind).Int("loaded", r.Loaded).Int("failed", r.Failed)
	if extra != nil {
		extra(ev)
	}
	ev.Msg(r.Summary())
}

// Publish submits the current slash definitions.
func (c *Core) Publish(ctx context.Context, appID string) (publish.Result, error) {
	if c.opts.Publisher == nil {
		return publish.Result{}, errors.New("core: no publisher configured")
	}
	return c.opts.Publisher.Publish(ctx, appID, c.Definitions())
}

const publishJob = "publish"

// PublishAsync submits the current slash definitions in the background.
// A publish still in flight is canceled; the latest definitions win.
func (c *Core) PublishAsync(ctx context.Context, appID string) {
	if c.opts.Publisher == nil {
		return
	}
	defs := c.Definitions()
	c.jobs.Replace(ctx, publishJob, func(ctx context.Context) error {
		_, err := c.opts.Publisher.Publish(ctx, appID, defs)
		return err
	})
}

// WaitPublish blocks until a background publish, if any, returns.
func (c *Core) WaitPublish() { c.jobs.Wait(publishJob) }

// Start schedules the cooldown sweep.
func (c *Core) Start() error {
	if c.opts.SweepSpec == "" {
		return nil
	}
	cr := cron.New(cron.WithLogger(cronLogger{log: c.log.With().Str("comp", "cron").Logger()}))
	if _, err := cr.AddFunc(c.opts.SweepSpec, c.sweep); err != nil {
		return fmt.Errorf("schedule cooldown sweep %q: %w", c.opts.SweepSpec, err)
	}
	cr.Start()
	c.cron = cr
	return nil
}

func (c *Core) sweep() {
	if n := c.cooldowns.Sweep(); n > 0 {
		c.log.Debug().Int("removed", n).Msg("swept expired cooldowns")
	}
}

// Stop unbinds events and stops background work.
func (c *Core) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	c.jobs.StopAll()
	if c.events != nil {
		c.events.Close()
	}
	c.cooldowns.Stop()
}
