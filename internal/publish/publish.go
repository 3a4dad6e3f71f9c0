// Package publish submits the slash command set to Discord as one bulk
// overwrite. Publishing is best effort: failures are logged and returned,
// never fatal to the caller.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/pkg/retrylimit"
)

// Registrar is the subset of *discordgo.Session used for publishing.
type Registrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// HashStore remembers the hash of the last successful publish per scope.
type HashStore interface {
	CommandHash(scope string) (string, bool, error)
	SetCommandHash(scope, hash string) error
}

// Error is a failed publish.
type Error struct {
	AppID string
	Count int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish %d commands for app %s: %v", e.Count, e.AppID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Publisher.
type Options struct {
	// GuildID publishes to a single guild instead of globally.
	GuildID string
	// Force skips the hash comparison.
	Force   bool
	Timeout time.Duration
	Retry   retrylimit.RetryConfig
	Log     zerolog.Logger
}

// Result describes a publish call.
type Result struct {
	Submitted int
	Skipped   bool
	Hash      string
}

type Publisher struct {
	reg     Registrar
	hashes  HashStore
	limiter *retrylimit.AdaptiveLimiter
	opts    Options
}

// New returns a publisher. hashes may be nil, in which case every call
// reaches the registrar.
func New(reg Registrar, hashes HashStore, opts Options) *Publisher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retrylimit.DefaultRetryConfig()
	}
	opts.Retry.Log = opts.Log
	return &Publisher{
		reg:     reg,
		hashes:  hashes,
		limiter: retrylimit.NewAdaptiveLimiter(1, 1, 5, 1, 0.5),
		opts:    opts,
	}
}

func (p *Publisher) scope(appID string) string {
	if p.opts.GuildID == "" {
		return appID
	}
	return appID + ":" + p.opts.GuildID
}

// Publish replaces the application's command set with cmds. An unchanged
// set (by hash) is not resubmitted unless Force is set.
func (p *Publisher) Publish(ctx context.Context, appID string, cmds []*discordgo.ApplicationCommand) (Result, error) {
	log := p.opts.Log.With().Str("app", appID).Int("commands", len(cmds)).Logger()
	res := Result{Hash: HashCommands(cmds)}

	if appID == "" {
		err := &Error{Count: len(cmds), Err: errors.New("missing application id")}
		log.Error().Err(err).Msg("publish failed")
		return res, err
	}

	scope := p.scope(appID)
	if !p.opts.Force && p.hashes != nil {
		prev, ok, err := p.hashes.CommandHash(scope)
		switch {
		case err != nil:
			log.Debug().Err(err).Msg("command hash unavailable")
		case ok && prev == res.Hash:
			res.Skipped = true
			log.Info().Str("hash", res.Hash).Msg("slash commands unchanged, skipping publish")
			return res, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := retrylimit.WithRetry(ctx, func() error {
		_, err := p.reg.ApplicationCommandBulkOverwrite(appID, p.opts.GuildID, cmds, discordgo.WithContext(ctx))
		return err
	}, p.limiter, p.opts.Retry)
	if err != nil {
		perr := &Error{AppID: appID, Count: len(cmds), Err: err}
		log.Error().Err(err).Msg("publish failed, remote commands left unchanged")
		return res, perr
	}

	res.Submitted = len(cmds)
	log.Info().Dur("elapsed", time.Since(start)).Msg("slash commands published")

	if p.hashes != nil {
		if err := p.hashes.SetCommandHash(scope, res.Hash); err != nil {
			log.Warn().Err(err).Msg("failed to store command hash")
		}
	}
	return res, nil
}
