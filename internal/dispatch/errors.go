package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/keshon/commandhub/pkg/cmd"
)

// Reason names the gate that denied an invocation.
type Reason string

const (
	ReasonOwnerOnly      Reason = "owner_only"
	ReasonDisabled       Reason = "disabled"
	ReasonBeta           Reason = "beta"
	ReasonUserPermission Reason = "user_permission"
	ReasonBotPermission  Reason = "bot_permission"
)

// DeniedError is returned when an authorization gate rejects an invocation.
// Requirement lists the missing permissions for the permission gates.
type DeniedError struct {
	Command     string
	Reason      Reason
	Requirement string
}

func (e *DeniedError) Error() string {
	if e.Requirement != "" {
		return fmt.Sprintf("command %q denied (%s): requires %s", e.Command, e.Reason, e.Requirement)
	}
	return fmt.Sprintf("command %q denied (%s)", e.Command, e.Reason)
}

// RateLimitedError is returned when the invoker is inside the command's
// cooldown window.
type RateLimitedError struct {
	Command   string
	Remaining time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("command %q rate limited for %s", e.Command, e.Remaining)
}

// ExecutionError wraps a failure raised by a command body, panics included.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Panicked reports whether the body panicked rather than returning an error.
func (e *ExecutionError) Panicked() bool {
	var pe *cmd.PanicError
	return errors.As(e.Err, &pe)
}
