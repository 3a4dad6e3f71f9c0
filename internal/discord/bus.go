package discord

import (
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// handlerAdder is the subscription half of *discordgo.Session.
type handlerAdder interface {
	AddHandler(handler interface{}) func()
}

// Bus exposes discordgo's typed handlers under event unit names. Handlers
// receive (session, event).
type Bus struct {
	s handlerAdder
}

func NewBus(s handlerAdder) *Bus { return &Bus{s: s} }

var busEvents = map[string]func(fn func(args ...any)) interface{}{
	"ready": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.Ready) { fn(s, e) }
	},
	"resumed": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.Resumed) { fn(s, e) }
	},
	"disconnect": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.Disconnect) { fn(s, e) }
	},
	"interactionCreate": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.InteractionCreate) { fn(s, e) }
	},
	"messageCreate": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.MessageCreate) { fn(s, e) }
	},
	"messageReactionAdd": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.MessageReactionAdd) { fn(s, e) }
	},
	"guildCreate": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.GuildCreate) { fn(s, e) }
	},
	"guildDelete": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.GuildDelete) { fn(s, e) }
	},
	"guildMemberAdd": func(fn func(args ...any)) interface{} {
		return func(s *discordgo.Session, e *discordgo.GuildMemberAdd) { fn(s, e) }
	},
}

// Events lists the event names the bus understands.
func Events() []string {
	out := make([]string, 0, len(busEvents))
	for name := range busEvents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subscribe binds fn to the named gateway event.
func (b *Bus) Subscribe(event string, fn func(args ...any)) (func(), error) {
	wrap, ok := busEvents[event]
	if !ok {
		return nil, fmt.Errorf("unknown gateway event %q", event)
	}
	return b.s.AddHandler(wrap(fn)), nil
}
