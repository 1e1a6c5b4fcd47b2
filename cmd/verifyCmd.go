package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the delivery configuration without connecting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := buildTarget()
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if t.KeyPath != "" {
			if _, err := loadSigner(t.KeyPath, t.Passphrase); err != nil {
				return fmt.Errorf("invalid configuration: %w: key %s: %v", errUsage, t.KeyPath, err)
			}
		}
		if t.TransferHostKey == hostKeyStrict || t.ActivationHostKey == hostKeyStrict {
			if _, err := os.Stat(t.KnownHosts); err != nil {
				return fmt.Errorf("invalid configuration: %w: %v at %q and a strict host key policy is set",
					errUsage, errKnownHostsMissing, t.KnownHosts)
			}
		}
		if err := optionsFromFlags().validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "target:     %s (%s)\n", t, t.Protocol)
		_, _ = fmt.Fprintf(out, "host keys:  transfer=%s activation=%s known_hosts=%s\n",
			t.TransferHostKey, t.ActivationHostKey, t.KnownHosts)
		_, _ = fmt.Fprintf(out, "timeouts:   connect=%s transfer=%s activation=%s\n",
			durationOrZero(t.ConnTimeout), durationOrZero(cfgTransferTimeout), durationOrZero(cfgActivationTimeout))
		_, _ = fmt.Fprintln(out, "Configuration OK")
		return nil
	},
}

func durationOrZero(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}
