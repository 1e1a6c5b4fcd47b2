package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run only the connectivity probe (exit 0 when reachable, 3 otherwise)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optionsFromFlags()
		if err := opts.validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := newConnectivityProber(opts.ProbeURL, opts.ProbeAttempts, opts.ProbeInterval, opts.ProbeTimeout, logger.Named(stepProbe))
		attempts, err := p.Probe(ctx)
		if err != nil {
			return &outcomeError{outcome: outcomeNoConnectivity, err: newStepError(stepProbe, causeUnreachable, err)}
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reachable after %d attempt(s)\n", attempts)
		return nil
	},
}
