package cmd

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// runRemoteCommand executes cmd in a new session and waits for it. The exit
// code is -1 when the remote side never reported one.
func runRemoteCommand(ctx context.Context, client sessionClient, cmd string) ([]byte, int, error) {
	type result struct {
		out      []byte
		exitCode int
		err      error
	}

	sess, err := client.NewSession()
	if err != nil {
		return nil, -1, fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	ch := make(chan result, 1)
	go func() {
		b, err := sess.CombinedOutput(cmd)
		if err == nil {
			ch <- result{b, 0, nil}
			return
		}
		exit := -1
		var ee *ssh.ExitError
		if errors.As(err, &ee) {
			exit = ee.ExitStatus()
		}
		ch <- result{b, exit, err}
	}()

	select {
	case r := <-ch:
		return r.out, r.exitCode, r.err
	case <-ctx.Done():
		// Closing the session unblocks CombinedOutput
		_ = sess.Close()
		return nil, -1, ctx.Err()
	}
}
