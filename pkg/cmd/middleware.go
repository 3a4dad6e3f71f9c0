package cmd

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Middleware wraps a handler (e.g. logging, panic recovery, history).
type Middleware func(Handler) Handler

// Chain applies middlewares to h; the first in the list is the outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// PanicError is returned by Recover when the wrapped handler panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }

// Recover converts a panic in the wrapped handler into a *PanicError.
func Recover() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, inv)
		}
	}
}
