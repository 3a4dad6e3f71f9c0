package dispatch

import (
	"errors"
	"time"
)

// Kind classifies the terminal state of one dispatch.
type Kind int

const (
	// Ignored: no command matched; nothing was sent.
	Ignored Kind = iota
	Succeeded
	Denied
	RateLimited
	Failed
)

func (k Kind) String() string {
	switch k {
	case Ignored:
		return "ignored"
	case Succeeded:
		return "succeeded"
	case Denied:
		return "denied"
	case RateLimited:
		return "rate_limited"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the single result of Dispatch. Err is one of *DeniedError,
// *RateLimitedError or *ExecutionError for the non-success kinds.
type Outcome struct {
	Kind    Kind
	Command string
	Err     error
	Elapsed time.Duration
}

// Reason returns the denial reason, or "" for other kinds.
func (o Outcome) Reason() Reason {
	var de *DeniedError
	if errors.As(o.Err, &de) {
		return de.Reason
	}
	return ""
}

// Remaining returns the cooldown wait for a RateLimited outcome.
func (o Outcome) Remaining() time.Duration {
	var re *RateLimitedError
	if errors.As(o.Err, &re) {
		return re.Remaining
	}
	return 0
}
