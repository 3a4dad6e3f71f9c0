// Package cooldown tracks per-command, per-user rate limiting windows.
//
// An entry exists only while its user is inside the window. Every entry is
// removed either by its own expiry timer or lazily by the next check for the
// same key, and an emptied per-command map is dropped with it.
package cooldown

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Result of a CheckAndStamp call.
type Result struct {
	Allowed   bool
	Remaining time.Duration
}

// Timer is the handle of a scheduled expiry.
type Timer interface {
	Stop() bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(after func(d time.Duration, f func()) Timer) Option {
	return func(t *Tracker) { t.after = after }
}

// WithLogger sets the tracker's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

type entry struct {
	expires time.Time
	timer   Timer
}

// Tracker is safe for concurrent use. A single mutex serializes every
// mutation; the expected cardinality does not warrant per-key locks.
type Tracker struct {
	mu    sync.Mutex
	slots map[string]map[string]*entry

	now   func() time.Time
	after func(d time.Duration, f func()) Timer
	log   zerolog.Logger
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		slots: make(map[string]map[string]*entry),
		now:   time.Now,
		after: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) },
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// CheckAndStamp denies with the remaining wait when userID is inside the
// window for command; otherwise it stamps now and allows. A zero or negative
// window always allows and touches nothing.
func (t *Tracker) CheckAndStamp(command, userID string, window time.Duration) Result {
	if window <= 0 {
		return Result{Allowed: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	users := t.slots[command]
	if e, ok := users[userID]; ok {
		if now.Before(e.expires) {
			return Result{Allowed: false, Remaining: e.expires.Sub(now)}
		}
		t.removeLocked(command, userID, e)
		users = t.slots[command]
	}

	if users == nil {
		users = make(map[string]*entry)
		t.slots[command] = users
	}
	e := &entry{expires: now.Add(window)}
	users[userID] = e
	e.timer = t.after(window, func() { t.expire(command, userID, e) })
	return Result{Allowed: true}
}

// expire runs from the entry's timer. It only removes the exact entry it was
// scheduled for; a slot re-stamped in the meantime is left alone.
func (t *Tracker) expire(command, userID string, scheduled *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.slots[command][userID]; !ok || cur != scheduled {
		return
	}
	t.removeLocked(command, userID, scheduled)
}

func (t *Tracker) removeLocked(command, userID string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	users := t.slots[command]
	delete(users, userID)
	if len(users) == 0 {
		delete(t.slots, command)
	}
}

// Sweep drops every expired entry and returns how many it removed. Timers
// normally get there first; this is the backstop for stopped or late ones.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	removed := 0
	for command, users := range t.slots {
		for userID, e := range users {
			if !now.Before(e.expires) {
				t.removeLocked(command, userID, e)
				removed++
			}
		}
	}
	if removed > 0 {
		t.log.Debug().Int("removed", removed).Msg("swept expired cooldowns")
	}
	return removed
}

// Remaining reports the wait left for userID on command without stamping.
func (t *Tracker) Remaining(command, userID string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.slots[command][userID]
	if !ok {
		return 0, false
	}
	left := e.expires.Sub(t.now())
	if left <= 0 {
		return 0, false
	}
	return left, true
}

// Len is the number of live entries across all commands.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, users := range t.slots {
		n += len(users)
	}
	return n
}

// Commands is the number of per-command containers currently held.
func (t *Tracker) Commands() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// Stop cancels every pending timer and forgets all entries.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for command, users := range t.slots {
		for userID, e := range users {
			t.removeLocked(command, userID, e)
		}
	}
}
