package cmd

import "fmt"

// outcome is the terminal state of one invocation. Exactly one is produced
// per delivery and it alone decides the process exit code.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeNoConnectivity
	outcomeTransferredNotActivated
	outcomeNotTransferred
	outcomeNotDeleted
)

// exitUsage is returned for bad arguments or configuration.
const exitUsage = 1

var outcomeExitCodes = map[outcome]int{
	outcomeSuccess:                 0,
	outcomeNoConnectivity:          3,
	outcomeTransferredNotActivated: 4,
	outcomeNotTransferred:          5,
	outcomeNotDeleted:              6,
}

var outcomeNames = map[outcome]string{
	outcomeSuccess:                 "success",
	outcomeNoConnectivity:          "no_connectivity",
	outcomeTransferredNotActivated: "transferred_not_activated",
	outcomeNotTransferred:          "not_transferred",
	outcomeNotDeleted:              "not_deleted",
}

func (o outcome) exitCode() int {
	if code, ok := outcomeExitCodes[o]; ok {
		return code
	}
	return exitUsage
}

func (o outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// outcomeError carries a non-success outcome out of a cobra RunE so that
// Execute can map it to the right exit code.
type outcomeError struct {
	outcome outcome
	err     error
}

func (e *outcomeError) Error() string {
	if e.err == nil {
		return e.outcome.String()
	}
	return fmt.Sprintf("%s: %v", e.outcome, e.err)
}

func (e *outcomeError) Unwrap() error { return e.err }
