package unit

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Response is one user-visible message produced for an invocation.
type Response struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Invocation is what the transport hands the dispatcher for a single
// inbound command. Implementations decide how Respond is delivered
// (first reply or follow-up).
type Invocation interface {
	UserID() string
	CommandName() string
	Args() []string

	// UserPermissions reports the invoker's effective permissions in the
	// current location; ok is false when they are unknown (e.g. DMs).
	UserPermissions() (perms int64, ok bool)
	// BotPermissions reports the agent's own permissions in the same location.
	BotPermissions() (perms int64, ok bool)

	Respond(ctx context.Context, r *Response) error
}
