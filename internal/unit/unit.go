// Package unit holds the records the loader produces and the dispatcher consumes:
// prefix commands, remote (slash) commands and event subscriptions.
package unit

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CommandFunc is the execution body of a command.
type CommandFunc func(ctx context.Context, inv Invocation) error

// EventFunc is the execution body of an event unit. Args are whatever the
// transport delivers for that event name.
type EventFunc func(ctx context.Context, args ...any) error

// Settings are the recognized availability flags of a command.
type Settings struct {
	OwnerOnly bool
	Beta      bool
	Disabled  bool
}

// Command is a loaded command unit. It is never mutated after the loader
// hands it to a registry; a reload builds new values.
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Settings    Settings
	Cooldown    time.Duration

	// Zero means the command does not require anything.
	UserPerms int64
	BotPerms  int64

	Handler  string
	Category string
	Path     string
	ModTime  time.Time

	Execute CommandFunc
}

// Slash is a remote command: a Command plus the wire definition published
// to the platform.
type Slash struct {
	*Command
	Definition *discordgo.ApplicationCommand
}

// Event binds an execution body to a transport event name.
type Event struct {
	Name     string
	Once     bool
	Handler  string
	Category string
	Path     string
	ModTime  time.Time

	Execute EventFunc
}
