// Package dispatch runs one inbound command invocation through the fixed
// gate pipeline: resolve, owner, disabled, beta, user permission, bot
// permission, cooldown, execute. Every invocation that resolves to a command
// produces exactly one user-visible outcome.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/cooldown"
	"github.com/keshon/commandhub/internal/unit"
	"github.com/keshon/commandhub/pkg/cmd"
)

// Resolver looks commands up by name or alias.
type Resolver interface {
	Resolve(nameOrAlias string) (*unit.Command, bool)
}

// Options configures a Dispatcher.
type Options struct {
	Owners []string
	Style  Style
	Log    zerolog.Logger
	// Middleware wraps command execution, outermost first. Panic recovery
	// is always installed innermost.
	Middleware []cmd.Middleware
	Now        func() time.Time
}

type Dispatcher struct {
	commands  Resolver
	cooldowns *cooldown.Tracker
	owners    map[string]struct{}
	style     Style
	log       zerolog.Logger
	mws       []cmd.Middleware
	now       func() time.Time
}

// New builds a dispatcher over the given registry and cooldown tracker.
func New(commands Resolver, cooldowns *cooldown.Tracker, opts Options) *Dispatcher {
	d := &Dispatcher{
		commands:  commands,
		cooldowns: cooldowns,
		owners:    make(map[string]struct{}, len(opts.Owners)),
		style:     opts.Style,
		log:       opts.Log,
		now:       opts.Now,
	}
	for _, id := range opts.Owners {
		if id != "" {
			d.owners[id] = struct{}{}
		}
	}
	if d.style == (Style{}) {
		d.style = DefaultStyle
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.mws = append(append([]cmd.Middleware(nil), opts.Middleware...), cmd.Recover())
	return d
}

// IsOwner reports whether userID is in the configured owner set.
func (d *Dispatcher) IsOwner(userID string) bool {
	_, ok := d.owners[userID]
	return ok
}

// Dispatch runs inv through the pipeline. It never panics and never returns
// more than one response to the invoker.
func (d *Dispatcher) Dispatch(ctx context.Context, inv unit.Invocation) Outcome {
	name := inv.CommandName()
	c, ok := d.commands.Resolve(name)
	if !ok {
		return Outcome{Kind: Ignored, Command: name}
	}

	log := d.log.With().Str("command", c.Name).Str("user", inv.UserID()).Logger()
	owner := d.IsOwner(inv.UserID())

	for _, g := range gates {
		if err := g(c, inv, owner); err != nil {
			var de *DeniedError
			errors.As(err, &de)
			log.Debug().Str("reason", string(de.Reason)).Str("requirement", de.Requirement).Msg("command denied")
			d.respond(ctx, log, inv, d.deniedResponse(de))
			return Outcome{Kind: Denied, Command: c.Name, Err: de}
		}
	}

	if res := d.cooldowns.CheckAndStamp(c.Name, inv.UserID(), c.Cooldown); !res.Allowed {
		re := &RateLimitedError{Command: c.Name, Remaining: res.Remaining}
		log.Debug().Dur("remaining", res.Remaining).Msg("command rate limited")
		d.respond(ctx, log, inv, d.rateLimitedResponse(re))
		return Outcome{Kind: RateLimited, Command: c.Name, Err: re}
	}

	start := d.now()
	err := d.execute(ctx, c, inv)
	elapsed := d.now().Sub(start)
	if err != nil {
		ee := &ExecutionError{Command: c.Name, Err: err}
		ev := log.Error().Err(err).Dur("elapsed", elapsed)
		var pe *cmd.PanicError
		if errors.As(err, &pe) {
			ev = ev.Bytes("stack", pe.Stack)
		}
		ev.Msg("command execution failed")
		d.respond(ctx, log, inv, d.errorResponse(ee))
		return Outcome{Kind: Failed, Command: c.Name, Err: ee, Elapsed: elapsed}
	}

	log.Debug().Dur("elapsed", elapsed).Msg("command executed")
	return Outcome{Kind: Succeeded, Command: c.Name, Elapsed: elapsed}
}

func (d *Dispatcher) execute(ctx context.Context, c *unit.Command, inv unit.Invocation) error {
	if c.Execute == nil {
		return errors.New("command has no body")
	}
	h := cmd.Chain(func(ctx context.Context, _ *cmd.Invocation) error {
		return c.Execute(ctx, inv)
	}, d.mws...)
	return h(ctx, &cmd.Invocation{
		Command: c.Name,
		UserID:  inv.UserID(),
		Args:    inv.Args(),
		Data:    inv,
	})
}

func (d *Dispatcher) respond(ctx context.Context, log zerolog.Logger, inv unit.Invocation, r *unit.Response) {
	if err := inv.Respond(ctx, r); err != nil {
		log.Warn().Err(err).Msg("failed to deliver response")
	}
}
