package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	stepProbe    = "probe"
	stepTransfer = "transfer"
	stepActivate = "activate"
	stepCleanup  = "cleanup"
)

// failureCause enumerates why a step failed. It is logged and written to the
// delivery report; the outcome itself only depends on which step failed.
type failureCause string

const (
	causeLocalFile   failureCause = "local_file"
	causeUnreachable failureCause = "unreachable"
	causeDial        failureCause = "dial"
	causeAuth        failureCause = "auth"
	causeHostKey     failureCause = "host_key"
	causeSession     failureCause = "session"
	causeCopy        failureCause = "copy"
	causeTimeout     failureCause = "timeout"
	causeCanceled    failureCause = "canceled"
	causeRemoteExit  failureCause = "remote_exit"
	causeDelete      failureCause = "delete"
)

// stepError is the only error type that leaves a delivery step.
type stepError struct {
	Step  string
	Cause failureCause
	Err   error
}

func newStepError(step string, cause failureCause, err error) *stepError {
	return &stepError{Step: step, Cause: cause, Err: err}
}

func (e *stepError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Step, e.Cause, e.Err)
}

func (e *stepError) Unwrap() error { return e.Err }

// causeOf returns the recorded cause, or "" when err is not a stepError.
func causeOf(err error) failureCause {
	var se *stepError
	if errors.As(err, &se) {
		return se.Cause
	}
	return ""
}

// classifyConnError maps dial and handshake failures onto a cause.
func classifyConnError(err error) failureCause {
	var keyErr *knownhosts.KeyError
	var revokedErr *knownhosts.RevokedError
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return causeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return causeTimeout
	case errors.Is(err, errKnownHostsMissing), errors.As(err, &keyErr), errors.As(err, &revokedErr):
		return causeHostKey
	case errors.As(err, &netErr) && netErr.Timeout():
		return causeTimeout
	case strings.Contains(err.Error(), "unable to authenticate"), errors.Is(err, errNoAuthMethod):
		return causeAuth
	default:
		return causeDial
	}
}

// classifyCtxError returns the cause for a failure that happened while ctx
// was ending, or fallback otherwise.
func classifyCtxError(ctx context.Context, err error, fallback failureCause) failureCause {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return causeTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return causeCanceled
	default:
		return fallback
	}
}
