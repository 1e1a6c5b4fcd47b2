package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// dialSSH connects to t.addr() and authenticates with every method the
// target configures, verifying the host key under policy.
func dialSSH(ctx context.Context, t transferTarget, policy hostKeyPolicy, log *zap.Logger) (*ssh.Client, error) {
	var auths []ssh.AuthMethod

	if t.KeyPath != "" {
		signer, err := loadSigner(t.KeyPath, t.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("load key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if t.Password != "" {
		auths = append(auths, ssh.Password(t.Password))
		// Some servers only offer keyboard-interactive for passwords
		auths = append(auths, ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = t.Password
			}
			return answers, nil
		}))
	}

	// Try SSH agent if available
	var agentConn net.Conn
	if a := os.Getenv("SSH_AUTH_SOCK"); a != "" {
		if conn, err := net.Dial("unix", a); err == nil {
			agentConn = conn
			ag := agent.NewClient(conn)
			auths = append(auths, ssh.PublicKeysCallback(ag.Signers))
		}
	}
	if agentConn != nil {
		defer func() { _ = agentConn.Close() }()
	}

	if len(auths) == 0 {
		return nil, errNoAuthMethod
	}

	hostKeyCB, err := policy.callback(t.KnownHosts, log)
	if err != nil {
		return nil, err
	}
	addr := t.addr()

	timeout := t.ConnTimeout
	if timeout <= 0 {
		timeout = defaultConnTimeout
	}
	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         timeout,
	}
	if policy != hostKeyInsecure {
		cfg.HostKeyAlgorithms = knownHostKeyAlgorithms(t.KnownHosts, addr)
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Bound the handshake by the same timeout and by ctx
	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	stopped := stop()
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ssh handshake: %w", ctx.Err())
		}
		return nil, err
	}
	if !stopped {
		_ = c.Close()
		return nil, fmt.Errorf("ssh handshake: %w", ctx.Err())
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}
