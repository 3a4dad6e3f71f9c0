// Package cmd provides a transport-agnostic execution core: a handler runs one
// command invocation, and middleware wraps handlers (logging, panic recovery,
// history). How commands are resolved and gated is up to the caller.
package cmd

import "context"

// Invocation carries the minimal input any runner can pass: who invoked what,
// with which arguments, and an opaque payload. Adapters set Data to their own
// invocation value.
type Invocation struct {
	Command string
	UserID  string
	Args    []string
	Data    any
}

// Handler executes one invocation.
type Handler func(ctx context.Context, inv *Invocation) error
