package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/storage"
	"github.com/keshon/commandhub/pkg/cmd"
)

// HistoryStore records executed commands.
type HistoryStore interface {
	AppendCommandHistory(rec storage.CommandHistory) error
}

// origin is implemented by transport invocations that know where they came
// from.
type origin interface {
	GuildID() string
	ChannelID() string
	Username() string
}

// WithCommandLogger records every executed command, failed or not, after
// it ran. Recording problems are logged and never change the result.
func WithCommandLogger(store HistoryStore, log zerolog.Logger) cmd.Middleware {
	return func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, inv *cmd.Invocation) error {
			err := next(ctx, inv)

			rec := storage.CommandHistory{
				UserID:   inv.UserID,
				Command:  inv.Command,
				Args:     strings.Join(inv.Args, " "),
				Failed:   err != nil,
				Datetime: time.Now(),
			}
			if o, ok := inv.Data.(origin); ok {
				rec.GuildID = o.GuildID()
				rec.ChannelID = o.ChannelID()
				rec.Username = o.Username()
			}
			if e := store.AppendCommandHistory(rec); e != nil {
				ev := log.Warn()
				if errors.Is(e, storage.ErrNotConnected) {
					ev = log.Debug()
				}
				ev.Err(e).Str("command", inv.Command).Msg("failed to log command")
			}
			return err
		}
	}
}
