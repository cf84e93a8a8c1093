// Package backend provides the text generators that draft docstrings and
// the middleware chain wrapped around them.
package backend

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Generator turns a prompt into raw response text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Kind classifies backend failures.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindTimeout      Kind = "timeout"
	KindRequest      Kind = "request"
	KindServer       Kind = "server"
	KindUnconfigured Kind = "unconfigured"
)

// Error is a classified backend failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status when the backend reported one
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("backend %s (%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("backend %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed if sent again.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindRateLimit, KindTimeout, KindServer:
		return true
	}
	return false
}

// IsRetryable reports whether err is worth retrying. Per-call deadlines
// count as timeouts; cancellation of the caller's context does not.
func IsRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsUnconfigured reports whether err means the backend cannot run at all.
func IsUnconfigured(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == KindUnconfigured
}

// Unconfigured returns a generator that fails every call with
// KindUnconfigured. It stands in for a backend missing credentials.
func Unconfigured(name, reason string) Generator {
	return unconfigured{name: name, reason: reason}
}

type unconfigured struct {
	name   string
	reason string
}

func (u unconfigured) Name() string { return u.name }

func (u unconfigured) Generate(context.Context, string) (string, error) {
	return "", &Error{Kind: KindUnconfigured, Message: u.reason}
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
