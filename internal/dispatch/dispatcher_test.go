package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/cooldown"
	"github.com/keshon/commandhub/internal/loader"
	"github.com/keshon/commandhub/internal/registry"
	"github.com/keshon/commandhub/internal/unit"
	"github.com/keshon/commandhub/pkg/cmd"
)

type fakeInvocation struct {
	user     string
	command  string
	args     []string
	userPerm int64
	botPerm  int64
	permsOK  bool

	mu        sync.Mutex
	responses []*unit.Response
}

func newInvocation(user, command string) *fakeInvocation {
	return &fakeInvocation{
		user:     user,
		command:  command,
		userPerm: discordgo.PermissionSendMessages,
		botPerm:  discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks,
		permsOK:  true,
	}
}

func (f *fakeInvocation) UserID() string                 { return f.user }
func (f *fakeInvocation) CommandName() string            { return f.command }
func (f *fakeInvocation) Args() []string                 { return f.args }
func (f *fakeInvocation) UserPermissions() (int64, bool) { return f.userPerm, f.permsOK }
func (f *fakeInvocation) BotPermissions() (int64, bool)  { return f.botPerm, f.permsOK }

func (f *fakeInvocation) Respond(_ context.Context, r *unit.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, r)
	return nil
}

func (f *fakeInvocation) sent() []*unit.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*unit.Response(nil), f.responses...)
}

func newDispatcher(t *testing.T, cmds ...*unit.Command) (*Dispatcher, *cooldown.Tracker) {
	t.Helper()
	reg := registry.NewCommands(zerolog.Nop())
	for _, c := range cmds {
		reg.Register(c)
	}
	tr := cooldown.New()
	t.Cleanup(tr.Stop)
	return New(reg, tr, Options{Owners: []string{"owner"}, Log: zerolog.Nop()}), tr
}

func okBody(context.Context, unit.Invocation) error { return nil }

func TestUnknownCommandIsIgnoredSilently(t *testing.T) {
	d, _ := newDispatcher(t)
	inv := newInvocation("u1", "nope")

	out := d.Dispatch(context.Background(), inv)
	if out.Kind != Ignored {
		t.Fatalf("kind = %s, want ignored", out.Kind)
	}
	if n := len(inv.sent()); n != 0 {
		t.Fatalf("sent %d responses for unknown command", n)
	}
}

func TestGateOrderDisabledBeforePermission(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name:      "purge",
		Settings:  unit.Settings{Disabled: true},
		UserPerms: discordgo.PermissionManageMessages,
		Execute:   okBody,
	})
	inv := newInvocation("u1", "purge")

	out := d.Dispatch(context.Background(), inv)
	if out.Kind != Denied || out.Reason() != ReasonDisabled {
		t.Fatalf("got %s/%s, want denied/disabled", out.Kind, out.Reason())
	}
	sent := inv.sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Embed.Title, "Disabled") {
		t.Fatalf("unexpected responses: %+v", sent)
	}
	if !sent[0].Ephemeral {
		t.Fatalf("denial should be ephemeral")
	}
}

func TestGateOrder(t *testing.T) {
	cases := []struct {
		name     string
		settings unit.Settings
		userPerm int64
		botPerm  int64
		want     Reason
	}{
		{"owner first", unit.Settings{OwnerOnly: true, Disabled: true, Beta: true}, discordgo.PermissionBanMembers, 0, ReasonOwnerOnly},
		{"disabled before beta", unit.Settings{Disabled: true, Beta: true}, 0, 0, ReasonDisabled},
		{"beta before perms", unit.Settings{Beta: true}, discordgo.PermissionBanMembers, 0, ReasonBeta},
		{"user before bot", unit.Settings{}, discordgo.PermissionBanMembers, discordgo.PermissionKickMembers, ReasonUserPermission},
		{"bot last", unit.Settings{}, 0, discordgo.PermissionKickMembers, ReasonBotPermission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDispatcher(t, &unit.Command{
				Name:      "x",
				Settings:  tc.settings,
				UserPerms: tc.userPerm,
				BotPerms:  tc.botPerm,
				Execute:   okBody,
			})
			out := d.Dispatch(context.Background(), newInvocation("u1", "x"))
			if out.Kind != Denied || out.Reason() != tc.want {
				t.Fatalf("got %s/%s, want denied/%s", out.Kind, out.Reason(), tc.want)
			}
		})
	}
}

func TestOwnerBypassesFlagsButNotPermissions(t *testing.T) {
	ran := 0
	d, _ := newDispatcher(t, &unit.Command{
		Name:     "secret",
		Settings: unit.Settings{OwnerOnly: true, Disabled: true, Beta: true},
		Execute: func(context.Context, unit.Invocation) error {
			ran++
			return nil
		},
	}, &unit.Command{
		Name:      "ban",
		Settings:  unit.Settings{OwnerOnly: true},
		UserPerms: discordgo.PermissionBanMembers,
		Execute:   okBody,
	})

	out := d.Dispatch(context.Background(), newInvocation("owner", "secret"))
	if out.Kind != Succeeded || ran != 1 {
		t.Fatalf("owner should reach execution, got %s (ran=%d)", out.Kind, ran)
	}

	out = d.Dispatch(context.Background(), newInvocation("owner", "ban"))
	if out.Kind != Denied || out.Reason() != ReasonUserPermission {
		t.Fatalf("permission gate still applies to owners, got %s/%s", out.Kind, out.Reason())
	}
}

func TestPermissionDeniedNamesRequirement(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name:      "kick",
		UserPerms: discordgo.PermissionKickMembers | discordgo.PermissionSendMessages,
		Execute:   okBody,
	})
	inv := newInvocation("u1", "kick")

	out := d.Dispatch(context.Background(), inv)
	var de *DeniedError
	if !errors.As(out.Err, &de) {
		t.Fatalf("expected *DeniedError, got %T", out.Err)
	}
	if de.Requirement != "Kick Members" {
		t.Fatalf("requirement = %q, want only the missing permission", de.Requirement)
	}
	if desc := inv.sent()[0].Embed.Description; !strings.Contains(desc, "Kick Members") {
		t.Fatalf("response does not name the requirement: %q", desc)
	}
}

func TestUnknownPermissionsDenyWhenRequired(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name:     "embed",
		BotPerms: discordgo.PermissionEmbedLinks,
		Execute:  okBody,
	}, &unit.Command{Name: "free", Execute: okBody})

	inv := newInvocation("u1", "embed")
	inv.permsOK = false
	if out := d.Dispatch(context.Background(), inv); out.Reason() != ReasonBotPermission {
		t.Fatalf("got %s/%s, want bot permission denial", out.Kind, out.Reason())
	}

	inv = newInvocation("u1", "free")
	inv.permsOK = false
	if out := d.Dispatch(context.Background(), inv); out.Kind != Succeeded {
		t.Fatalf("command without requirements should run, got %s", out.Kind)
	}
}

func TestAdministratorSatisfiesAnyPermission(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name:      "ban",
		UserPerms: discordgo.PermissionBanMembers,
		Execute:   okBody,
	})
	inv := newInvocation("u1", "ban")
	inv.userPerm = discordgo.PermissionAdministrator
	if out := d.Dispatch(context.Background(), inv); out.Kind != Succeeded {
		t.Fatalf("got %s, want succeeded", out.Kind)
	}
}

func TestExecutionFailureRespondsOnce(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name: "boom",
		Execute: func(context.Context, unit.Invocation) error {
			return errors.New("upstream timed out")
		},
	})
	inv := newInvocation("u1", "boom")

	out := d.Dispatch(context.Background(), inv)
	var ee *ExecutionError
	if out.Kind != Failed || !errors.As(out.Err, &ee) {
		t.Fatalf("got %s/%v, want failed ExecutionError", out.Kind, out.Err)
	}
	sent := inv.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d responses, want exactly 1", len(sent))
	}
	e := sent[0].Embed
	if len(e.Fields) != 2 || e.Fields[0].Name != "Error Details" || e.Fields[1].Name != "Suggestion" {
		t.Fatalf("unexpected error embed: %+v", e)
	}
	if !strings.Contains(e.Fields[0].Value, "upstream timed out") {
		t.Fatalf("details missing failure message: %q", e.Fields[0].Value)
	}
}

func TestPanicIsRecoveredAsExecutionFailure(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{
		Name:    "panic",
		Execute: func(context.Context, unit.Invocation) error { panic("nil map write") },
	})
	inv := newInvocation("u1", "panic")

	out := d.Dispatch(context.Background(), inv)
	var ee *ExecutionError
	if !errors.As(out.Err, &ee) || !ee.Panicked() {
		t.Fatalf("expected recovered panic, got %v", out.Err)
	}
	sent := inv.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d responses, want 1", len(sent))
	}
	if strings.Contains(sent[0].Embed.Fields[0].Value, "nil map") {
		t.Fatalf("panic value leaked to the user: %q", sent[0].Embed.Fields[0].Value)
	}
}

func TestMiddlewareSeesInvocation(t *testing.T) {
	var seen []string
	logMW := func(next cmd.Handler) cmd.Handler {
		return func(ctx context.Context, inv *cmd.Invocation) error {
			err := next(ctx, inv)
			seen = append(seen, inv.Command+":"+inv.UserID)
			return err
		}
	}
	reg := registry.NewCommands(zerolog.Nop())
	reg.Register(&unit.Command{Name: "ping", Aliases: []string{"p"}, Execute: okBody})
	d := New(reg, cooldown.New(), Options{Middleware: []cmd.Middleware{logMW}})

	d.Dispatch(context.Background(), newInvocation("u9", "p"))
	if len(seen) != 1 || seen[0] != "ping:u9" {
		t.Fatalf("middleware saw %v", seen)
	}
}

func TestCooldownDeniesWithHumanWait(t *testing.T) {
	d, _ := newDispatcher(t, &unit.Command{Name: "slow", Cooldown: 5 * time.Second, Execute: okBody})

	if out := d.Dispatch(context.Background(), newInvocation("u1", "slow")); out.Kind != Succeeded {
		t.Fatalf("first call: %s", out.Kind)
	}
	inv := newInvocation("u1", "slow")
	out := d.Dispatch(context.Background(), inv)
	if out.Kind != RateLimited || out.Remaining() <= 0 {
		t.Fatalf("second call: %s remaining=%s", out.Kind, out.Remaining())
	}
	if desc := inv.sent()[0].Embed.Description; !strings.Contains(desc, "5 seconds") {
		t.Fatalf("unexpected wait text: %q", desc)
	}

	// denial does not restamp; other users are unaffected
	if out := d.Dispatch(context.Background(), newInvocation("u2", "slow")); out.Kind != Succeeded {
		t.Fatalf("other user: %s", out.Kind)
	}
}

func TestDeniedCallDoesNotStampCooldown(t *testing.T) {
	d, tr := newDispatcher(t, &unit.Command{
		Name:     "beta",
		Settings: unit.Settings{Beta: true},
		Cooldown: time.Minute,
		Execute:  okBody,
	})
	d.Dispatch(context.Background(), newInvocation("u1", "beta"))
	if n := tr.Len(); n != 0 {
		t.Fatalf("tracker has %d entries after a denial", n)
	}
}

func TestLoadedPingScenario(t *testing.T) {
	catalog := unit.NewCatalog()
	catalog.Command("ping", func(ctx context.Context, inv unit.Invocation) error {
		return inv.Respond(ctx, &unit.Response{Content: "pong"})
	})
	fsys := fstest.MapFS{
		"General/ping.yaml":   {Data: []byte("name: ping\ndescription: latency\ncooldown: 3\n")},
		"General/broken.yaml": {Data: []byte("description: missing name\n")},
	}
	res, err := loader.Load(context.Background(), fsys, loader.Commands(catalog), loader.Options{Workers: 2, Log: zerolog.Nop()})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Report.Loaded != 1 || res.Report.Failed != 1 {
		t.Fatalf("loaded=%d failed=%d, want 1/1", res.Report.Loaded, res.Report.Failed)
	}

	reg := registry.NewCommands(zerolog.Nop())
	for _, c := range res.Units {
		reg.Register(c)
	}
	table := registry.NewTable()
	table.Swap(reg)
	if _, ok := table.Resolve("ping"); !ok {
		t.Fatalf("ping not registered")
	}

	tr := cooldown.New()
	defer tr.Stop()
	d := New(table, tr, Options{Log: zerolog.Nop()})

	first := newInvocation("u1", "ping")
	if out := d.Dispatch(context.Background(), first); out.Kind != Succeeded {
		t.Fatalf("first dispatch: %s (%v)", out.Kind, out.Err)
	}
	if sent := first.sent(); len(sent) != 1 || sent[0].Content != "pong" {
		t.Fatalf("unexpected reply: %+v", sent)
	}

	second := newInvocation("u1", "ping")
	out := d.Dispatch(context.Background(), second)
	if out.Kind != RateLimited || out.Remaining() <= 0 {
		t.Fatalf("second dispatch: %s remaining=%s", out.Kind, out.Remaining())
	}
	if n := len(second.sent()); n != 1 {
		t.Fatalf("rate limited call sent %d responses", n)
	}
}

func TestHumanWait(t *testing.T) {
	cases := map[time.Duration]string{
		300 * time.Millisecond:  "1 second",
		4200 * time.Millisecond: "5 seconds",
		90 * time.Second:        "1 minute",
		10 * time.Minute:        "10 minutes",
		3 * time.Hour:           "3 hours",
	}
	for in, want := range cases {
		if got := humanWait(in); got != want {
			t.Errorf("humanWait(%s) = %q, want %q", in, got, want)
		}
	}
}
