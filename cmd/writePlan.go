package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// writePlan prints what a delivery would do without touching the network or
// the local file.
func writePlan(w io.Writer, ref fileReference, t transferTarget, opts deliveryOptions) error {
	p := newConnectivityProber(opts.ProbeURL, opts.ProbeAttempts, opts.ProbeInterval, opts.ProbeTimeout, logger)
	a := newRemoteActivator(t, opts.ActivationWait, opts.ActivationTimeout, logger)

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, "Plan for %s (noop)\n", ref.Path)
	_, _ = fmt.Fprintln(bw, strings.Repeat("=", 80))
	_, _ = fmt.Fprintf(bw, "probe:      GET %s, up to %d attempt(s), %s apart, %s timeout\n",
		p.url, p.maxAttempts, p.interval, p.timeout)
	_, _ = fmt.Fprintf(bw, "transfer:   %s %s@%s -> %s (host key: %s)\n",
		t.Protocol, t.User, t.addr(), t.remotePath(ref.Base), t.TransferHostKey)
	mode := "wait for exit status"
	if !opts.ActivationWait {
		mode = "dispatch only"
	}
	_, _ = fmt.Fprintf(bw, "activation: %s (host key: %s, %s)\n", a.command(ref.Base), t.ActivationHostKey, mode)
	_, _ = fmt.Fprintf(bw, "cleanup:    delete %s on success\n", ref.Path)
	return bw.Flush()
}
