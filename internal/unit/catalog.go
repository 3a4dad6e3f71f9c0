package unit

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog maps handler names used in unit files to compiled execution bodies.
// Unit files stay declarative; the catalog is the only place code is bound.
type Catalog struct {
	mu       sync.RWMutex
	commands map[string]CommandFunc
	events   map[string]EventFunc
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		commands: make(map[string]CommandFunc),
		events:   make(map[string]EventFunc),
	}
}

// Command registers a command body under name. Registering twice is a
// programming error.
func (c *Catalog) Command(name string, fn CommandFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.commands[name]; dup {
		panic(fmt.Sprintf("unit: command handler %q registered twice", name))
	}
	c.commands[name] = fn
}

// Event registers an event body under name.
func (c *Catalog) Event(name string, fn EventFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.events[name]; dup {
		panic(fmt.Sprintf("unit: event handler %q registered twice", name))
	}
	c.events[name] = fn
}

// LookupCommand returns the command body registered under name.
func (c *Catalog) LookupCommand(name string) (CommandFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.commands[name]
	return fn, ok && fn != nil
}

// LookupEvent returns the event body registered under name.
func (c *Catalog) LookupEvent(name string) (EventFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.events[name]
	return fn, ok && fn != nil
}

// CommandNames lists registered command handlers, sorted.
func (c *Catalog) CommandNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.commands))
	for k := range c.commands {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
