package cmd

import (
	"errors"
	"fmt"
	"os"
)

// Execute runs the root command and exits with the code of the resolved
// outcome, or exitUsage for anything that stopped before a delivery ran.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return
	}
	var oe *outcomeError
	if errors.As(err, &oe) {
		exitFunc(oe.outcome.exitCode())
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	exitFunc(exitUsage)
}
