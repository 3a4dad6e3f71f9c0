package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/commandhub/internal/unit"
)

type interactionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// interactionInvocation adapts an application command interaction. The
// first response is the interaction reply; later ones are follow-ups.
type interactionInvocation struct {
	s interactionSession
	i *discordgo.InteractionCreate

	mu      sync.Mutex
	replied bool
}

func newInteractionInvocation(s interactionSession, i *discordgo.InteractionCreate) *interactionInvocation {
	return &interactionInvocation{s: s, i: i}
}

func (v *interactionInvocation) user() *discordgo.User {
	if v.i.Member != nil && v.i.Member.User != nil {
		return v.i.Member.User
	}
	if v.i.User != nil {
		return v.i.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

func (v *interactionInvocation) UserID() string      { return v.user().ID }
func (v *interactionInvocation) Username() string    { return v.user().Username }
func (v *interactionInvocation) GuildID() string     { return v.i.GuildID }
func (v *interactionInvocation) ChannelID() string   { return v.i.ChannelID }
func (v *interactionInvocation) CommandName() string { return v.i.ApplicationCommandData().Name }

// Args flattens options into name=value pairs, subcommands as their name.
func (v *interactionInvocation) Args() []string {
	return flattenOptions(v.i.ApplicationCommandData().Options)
}

func flattenOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) []string {
	var out []string
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			out = append(out, o.Name)
			out = append(out, flattenOptions(o.Options)...)
		default:
			out = append(out, fmt.Sprintf("%s=%v", o.Name, o.Value))
		}
	}
	return out
}

func (v *interactionInvocation) UserPermissions() (int64, bool) {
	if v.i.Member == nil {
		return 0, false
	}
	return v.i.Member.Permissions, true
}

func (v *interactionInvocation) BotPermissions() (int64, bool) {
	if v.i.GuildID == "" {
		return 0, false
	}
	return v.i.AppPermissions, true
}

func (v *interactionInvocation) Respond(_ context.Context, r *unit.Response) error {
	var flags discordgo.MessageFlags
	if r.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	var embeds []*discordgo.MessageEmbed
	if r.Embed != nil {
		embeds = []*discordgo.MessageEmbed{r.Embed}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.replied {
		err := v.s.InteractionRespond(v.i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: r.Content, Embeds: embeds, Flags: flags},
		})
		if err != nil {
			return fmt.Errorf("interaction respond: %w", err)
		}
		v.replied = true
		return nil
	}
	_, err := v.s.FollowupMessageCreate(v.i.Interaction, true, &discordgo.WebhookParams{
		Content: r.Content,
		Embeds:  embeds,
		Flags:   flags,
	})
	if err != nil {
		return fmt.Errorf("interaction follow-up: %w", err)
	}
	return nil
}

type messageSession interface {
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// messageInvocation adapts a prefixed chat message. Replies reference the
// invoking message; ephemeral is not available for plain messages.
type messageInvocation struct {
	s     messageSession
	m     *discordgo.MessageCreate
	botID string
	name  string
	args  []string
}

func (v *messageInvocation) UserID() string      { return v.m.Author.ID }
func (v *messageInvocation) Username() string    { return v.m.Author.Username }
func (v *messageInvocation) GuildID() string     { return v.m.GuildID }
func (v *messageInvocation) ChannelID() string   { return v.m.ChannelID }
func (v *messageInvocation) CommandName() string { return v.name }
func (v *messageInvocation) Args() []string      { return v.args }

func (v *messageInvocation) UserPermissions() (int64, bool) {
	return v.permissions(v.m.Author.ID)
}

func (v *messageInvocation) BotPermissions() (int64, bool) {
	return v.permissions(v.botID)
}

func (v *messageInvocation) permissions(userID string) (int64, bool) {
	if v.m.GuildID == "" || userID == "" {
		return 0, false
	}
	p, err := v.s.UserChannelPermissions(userID, v.m.ChannelID)
	if err != nil {
		return 0, false
	}
	return p, true
}

func (v *messageInvocation) Respond(_ context.Context, r *unit.Response) error {
	send := &discordgo.MessageSend{Content: r.Content, Reference: v.m.Reference()}
	if r.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{r.Embed}
	}
	if _, err := v.s.ChannelMessageSendComplex(v.m.ChannelID, send); err != nil {
		return fmt.Errorf("message reply: %w", err)
	}
	return nil
}

// parsePrefixed splits "<prefix>name arg arg" into a lower-cased name and
// its arguments.
func parsePrefixed(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
