package cmd

import (
	"context"
	"fmt"
)

// dispatchRemoteCommand starts cmd and returns as soon as the remote side has
// accepted the exec request, without reading output or exit status.
func dispatchRemoteCommand(ctx context.Context, client sessionClient, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sess, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = sess.Close() }()
	if err := sess.Start(cmd); err != nil {
		return fmt.Errorf("start %q: %w", cmd, err)
	}
	return nil
}
