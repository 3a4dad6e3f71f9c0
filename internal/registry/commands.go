// Package registry holds the lookup structures built by the loader: the
// command table (names plus aliases) and the set of event subscriptions.
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/keshon/commandhub/internal/unit"

	"github.com/rs/zerolog"
)

// Commands maps canonical names to command units, with a secondary alias
// table. Register is safe for concurrent use while a snapshot is being
// built; once published through a Table the snapshot is read-only.
type Commands struct {
	mu       sync.RWMutex
	commands map[string]*unit.Command
	aliases  map[string]string
	log      zerolog.Logger
}

// NewCommands returns an empty command registry.
func NewCommands(log zerolog.Logger) *Commands {
	return &Commands{
		commands: make(map[string]*unit.Command),
		aliases:  make(map[string]string),
		log:      log,
	}
}

// Register inserts or overwrites cmd by name and points each of its aliases
// at it. Alias collisions resolve last-write-wins with a warning.
func (r *Commands) Register(cmd *unit.Command) {
	if cmd == nil || cmd.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.commands[cmd.Name]; ok && prev.Path != cmd.Path {
		r.log.Warn().
			Str("command", cmd.Name).
			Str("previous", prev.Path).
			Str("path", cmd.Path).
			Msg("duplicate command name, last registration wins")
	}
	r.commands[cmd.Name] = cmd

	for _, a := range cmd.Aliases {
		if prev, ok := r.aliases[a]; ok && prev != cmd.Name {
			r.log.Warn().
				Str("alias", a).
				Str("previous", prev).
				Str("command", cmd.Name).
				Msg("alias collision, last registration wins")
		}
		r.aliases[a] = cmd.Name
	}
}

// Resolve finds a command by exact name first, then by alias.
func (r *Commands) Resolve(nameOrAlias string) (*unit.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[nameOrAlias]; ok {
		return cmd, true
	}
	if name, ok := r.aliases[nameOrAlias]; ok {
		cmd, ok := r.commands[name]
		return cmd, ok
	}
	return nil, false
}

// All returns every command sorted by name.
func (r *Commands) All() []*unit.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*unit.Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Aliases returns a copy of the alias table.
func (r *Commands) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Len is the number of canonical commands.
func (r *Commands) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Table publishes the current Commands snapshot. A reload builds a fresh
// Commands and swaps it in whole; readers never see a half-built registry.
type Table struct {
	cur atomic.Pointer[Commands]
}

// NewTable returns a table holding an empty registry.
func NewTable() *Table {
	t := &Table{}
	t.cur.Store(NewCommands(zerolog.Nop()))
	return t
}

// Swap publishes next and returns the snapshot it replaced.
func (t *Table) Swap(next *Commands) *Commands {
	return t.cur.Swap(next)
}

// Current returns the published snapshot.
func (t *Table) Current() *Commands {
	return t.cur.Load()
}

// Resolve looks nameOrAlias up in the published snapshot.
func (t *Table) Resolve(nameOrAlias string) (*unit.Command, bool) {
	return t.Current().Resolve(nameOrAlias)
}
