package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/commandhub/internal/dispatch"
	"github.com/keshon/commandhub/internal/unit"
)

// eventArgs unpacks the (session, event) pair delivered by the Bus.
func eventArgs[T any](args []any) (*discordgo.Session, T, error) {
	var zero T
	if len(args) != 2 {
		return nil, zero, fmt.Errorf("expected (session, event), got %d args", len(args))
	}
	s, ok := args[0].(*discordgo.Session)
	if !ok {
		return nil, zero, fmt.Errorf("unexpected session type %T", args[0])
	}
	e, ok := args[1].(T)
	if !ok {
		return nil, zero, fmt.Errorf("unexpected event type %T", args[1])
	}
	return s, e, nil
}

func (b *Bot) ping(ctx context.Context, inv unit.Invocation) error {
	latency := b.dg.HeartbeatLatency().Round(time.Millisecond)
	return inv.Respond(ctx, &unit.Response{
		Embed: &discordgo.MessageEmbed{
			Title: "🏓 Pong!",
			Color: b.opts.Color,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Gateway latency", Value: latency.String(), Inline: true},
			},
		},
	})
}

func (b *Bot) onReady(ctx context.Context, args ...any) error {
	s, r, err := eventArgs[*discordgo.Ready](args)
	if err != nil {
		return err
	}

	if b.store != nil {
		if err := b.store.Connect(ctx); err != nil {
			b.log.Error().Err(err).Msg("failed to connect storage")
		}
	}

	if err := s.UpdateGameStatus(0, b.opts.Prefix+"ping"); err != nil {
		b.log.Warn().Err(err).Msg("failed to set presence")
	}

	if c := b.currentCore(); c != nil && b.opts.PublishOnStart {
		appID := b.opts.AppID
		if appID == "" && r.Application != nil {
			appID = r.Application.ID
		}
		if appID == "" && r.User != nil {
			appID = r.User.ID
		}
		c.PublishAsync(ctx, appID)
	}

	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	b.log.Info().Str("user", name).Int("guilds", len(r.Guilds)).Msg("discord bot is running")
	return nil
}

func (b *Bot) onGuildCreate(_ context.Context, args ...any) error {
	_, g, err := eventArgs[*discordgo.GuildCreate](args)
	if err != nil {
		return err
	}
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("guild available")
	return nil
}

func (b *Bot) onInteractionCreate(ctx context.Context, args ...any) error {
	s, i, err := eventArgs[*discordgo.InteractionCreate](args)
	if err != nil {
		return err
	}
	if i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	c := b.currentCore()
	if c == nil {
		return nil
	}
	inv := newInteractionInvocation(s, i)
	b.logOutcome(c.SlashDispatcher().Dispatch(ctx, inv), "/")
	return nil
}

func (b *Bot) onMessageCreate(ctx context.Context, args ...any) error {
	s, m, err := eventArgs[*discordgo.MessageCreate](args)
	if err != nil {
		return err
	}
	if m.Author == nil || m.Author.Bot {
		return nil
	}
	name, rest, ok := parsePrefixed(m.Content, b.opts.Prefix)
	if !ok {
		return nil
	}
	c := b.currentCore()
	if c == nil {
		return nil
	}
	botID := ""
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}
	inv := &messageInvocation{s: s, m: m, botID: botID, name: name, args: rest}
	b.logOutcome(c.PrefixDispatcher().Dispatch(ctx, inv), b.opts.Prefix)
	return nil
}

func (b *Bot) logOutcome(out dispatch.Outcome, prefix string) {
	if out.Kind == dispatch.Ignored {
		b.log.Debug().Str("command", prefix+out.Command).Msg("no such command")
		return
	}
	b.log.Info().
		Str("command", prefix+out.Command).
		Stringer("outcome", out.Kind).
		Dur("elapsed", out.Elapsed).
		Msg("command handled")
}
