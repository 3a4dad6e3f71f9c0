package publish

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/pkg/retrylimit"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	calls int
	guild string
	got   []*discordgo.ApplicationCommand
	errs  []error
}

func (f *fakeRegistrar) ApplicationCommandBulkOverwrite(appID, guildID string, cmds []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.guild = guildID
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.got = cmds
	return cmds, nil
}

type memHashes map[string]string

func (m memHashes) CommandHash(scope string) (string, bool, error) {
	h, ok := m[scope]
	return h, ok, nil
}

func (m memHashes) SetCommandHash(scope, hash string) error {
	m[scope] = hash
	return nil
}

func defs() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "ping", Description: "latency", Type: discordgo.ChatApplicationCommand},
		{Name: "help", Description: "help", Type: discordgo.ChatApplicationCommand, Options: []*discordgo.ApplicationCommandOption{
			{Name: "command", Description: "which", Type: discordgo.ApplicationCommandOptionString},
		}},
	}
}

func fastRetry() retrylimit.RetryConfig {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = 3
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RateLimitDelay = time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestPublishSubmitsOnceThenSkipsUnchanged(t *testing.T) {
	reg := &fakeRegistrar{}
	hashes := memHashes{}
	p := New(reg, hashes, Options{Log: zerolog.Nop(), Retry: fastRetry()})

	res, err := p.Publish(context.Background(), "app", defs())
	if err != nil || res.Submitted != 2 || res.Skipped {
		t.Fatalf("first publish: %+v %v", res, err)
	}
	if hashes["app"] != res.Hash {
		t.Fatalf("hash not stored")
	}

	res, err = p.Publish(context.Background(), "app", defs())
	if err != nil || !res.Skipped || reg.calls != 1 {
		t.Fatalf("second publish: %+v err=%v calls=%d", res, err, reg.calls)
	}
}

func TestForceBypassesHash(t *testing.T) {
	reg := &fakeRegistrar{}
	hashes := memHashes{"app:g1": HashCommands(defs())}
	p := New(reg, hashes, Options{GuildID: "g1", Force: true, Log: zerolog.Nop(), Retry: fastRetry()})

	if _, err := p.Publish(context.Background(), "app", defs()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if reg.calls != 1 || reg.guild != "g1" {
		t.Fatalf("calls=%d guild=%q", reg.calls, reg.guild)
	}
}

func TestPublishFailureIsTyped(t *testing.T) {
	bad := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadRequest}}
	reg := &fakeRegistrar{errs: []error{bad}}
	hashes := memHashes{}
	p := New(reg, hashes, Options{Log: zerolog.Nop(), Retry: fastRetry()})

	_, err := p.Publish(context.Background(), "app", defs())
	var perr *Error
	if !errors.As(err, &perr) || perr.Count != 2 || perr.AppID != "app" {
		t.Fatalf("expected *publish.Error, got %v", err)
	}
	if _, ok := hashes["app"]; ok {
		t.Fatalf("hash stored for a failed publish")
	}
}

func TestPublishRetriesServerErrors(t *testing.T) {
	flaky := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}
	reg := &fakeRegistrar{errs: []error{flaky}}
	p := New(reg, nil, Options{Log: zerolog.Nop(), Retry: fastRetry()})

	res, err := p.Publish(context.Background(), "app", defs())
	if err != nil || res.Submitted != 2 || reg.calls != 2 {
		t.Fatalf("res=%+v err=%v calls=%d", res, err, reg.calls)
	}
}

func TestMissingAppID(t *testing.T) {
	p := New(&fakeRegistrar{}, nil, Options{Log: zerolog.Nop()})
	var perr *Error
	if _, err := p.Publish(context.Background(), "", defs()); !errors.As(err, &perr) {
		t.Fatalf("expected *publish.Error, got %v", err)
	}
}

func TestHashIgnoresOrderAndIDs(t *testing.T) {
	a := defs()
	b := []*discordgo.ApplicationCommand{defs()[1], defs()[0]}
	b[0].ID = "123"
	b[0].Version = "9"
	if HashCommands(a) != HashCommands(b) {
		t.Fatalf("hash depends on order or runtime fields")
	}
	b[1].Description = "changed"
	if HashCommands(a) == HashCommands(b) {
		t.Fatalf("hash ignores description")
	}
}
