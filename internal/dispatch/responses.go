package dispatch

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/keshon/commandhub/internal/unit"
)

// Style holds the embed colors used for dispatcher responses.
type Style struct {
	Red    int
	Blue   int
	Green  int
	Yellow int
}

// DefaultStyle matches Discord's own palette.
var DefaultStyle = Style{
	Red:    0xED4245,
	Blue:   0x5865F2,
	Green:  0x57F287,
	Yellow: 0xFEE75C,
}

const maxDetail = 256

func (d *Dispatcher) deniedResponse(err *DeniedError) *unit.Response {
	e := &discordgo.MessageEmbed{Color: d.style.Red}
	switch err.Reason {
	case ReasonOwnerOnly:
		e.Title = "🚫 Unauthorized Access"
		e.Description = "This command is only available to bot owners."
	case ReasonDisabled:
		e.Title = "🔒 Command Temporarily Disabled"
		e.Description = "This command is currently unavailable for maintenance or update. Please try again later."
	case ReasonBeta:
		e.Title = "🔒 Beta Feature"
		e.Description = "This command is only available to beta users!"
	case ReasonUserPermission:
		e.Title = "🔐 Insufficient User Permission"
		e.Description = fmt.Sprintf("You need `%s` authorization to use this command.", err.Requirement)
	case ReasonBotPermission:
		e.Title = "⚠️ Bot Permission Error"
		e.Description = fmt.Sprintf("I need `%s` authorization to run this command.", err.Requirement)
	}
	return &unit.Response{Embed: e, Ephemeral: true}
}

func (d *Dispatcher) rateLimitedResponse(err *RateLimitedError) *unit.Response {
	return &unit.Response{
		Embed: &discordgo.MessageEmbed{
			Title:       "⏳ Command Cooldown Active",
			Description: fmt.Sprintf("Please wait %s before using this command again.", humanWait(err.Remaining)),
			Color:       d.style.Yellow,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Cooldowns help prevent spam."},
		},
		Ephemeral: true,
	}
}

func (d *Dispatcher) errorResponse(err *ExecutionError) *unit.Response {
	return &unit.Response{
		Embed: &discordgo.MessageEmbed{
			Title:       "❌ Command Error",
			Description: "There was an error while executing this command!",
			Color:       d.style.Red,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Error Details", Value: "```" + errorDetail(err) + "```"},
				{Name: "Suggestion", Value: "Please try again later or contact the bot administrator if the problem persists."},
			},
			Timestamp: d.now().Format(time.RFC3339),
		},
		Ephemeral: true,
	}
}

// errorDetail is the short, user-facing part of an execution failure.
func errorDetail(err *ExecutionError) string {
	if err.Panicked() {
		return "unexpected internal error"
	}
	msg := "unknown error"
	if inner := errors.Unwrap(err); inner != nil {
		msg = strings.TrimSpace(inner.Error())
	}
	if r := []rune(msg); len(r) > maxDetail {
		msg = string(r[:maxDetail-1]) + "…"
	}
	return strings.ReplaceAll(msg, "```", "'''")
}

// humanWait renders a remaining wait rounded up to whole seconds,
// e.g. "5 seconds".
func humanWait(d time.Duration) string {
	secs := math.Ceil(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	base := time.Unix(0, 0)
	out := humanize.CustomRelTime(base, base.Add(time.Duration(secs)*time.Second), "", "", waitMagnitudes)
	return strings.TrimSpace(out)
}

var waitMagnitudes = []humanize.RelTimeMagnitude{
	{D: 2 * time.Second, Format: "1 second %s", DivBy: 1},
	{D: time.Minute, Format: "%d seconds %s", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute %s", DivBy: 1},
	{D: time.Hour, Format: "%d minutes %s", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour %s", DivBy: 1},
	{D: humanize.Day, Format: "%d hours %s", DivBy: time.Hour},
	{D: 2 * humanize.Day, Format: "1 day %s", DivBy: 1},
	{D: math.MaxInt64, Format: "%d days %s", DivBy: humanize.Day},
}
