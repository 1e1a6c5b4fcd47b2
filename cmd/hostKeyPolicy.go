package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyPolicy selects how a session verifies the server's host key.
type hostKeyPolicy string

const (
	// hostKeyStrict only accepts keys already present in known_hosts.
	hostKeyStrict hostKeyPolicy = "strict"
	// hostKeyAutoTrust accepts and records keys for hosts not yet in
	// known_hosts. A host whose recorded key differs is still rejected.
	hostKeyAutoTrust hostKeyPolicy = "auto-trust"
	// hostKeyInsecure accepts any key without recording it.
	hostKeyInsecure hostKeyPolicy = "insecure"
)

var errKnownHostsMissing = errors.New("known_hosts file not found")

func parseHostKeyPolicy(s string) (hostKeyPolicy, error) {
	switch p := hostKeyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case hostKeyStrict, hostKeyAutoTrust, hostKeyInsecure:
		return p, nil
	case "":
		return hostKeyStrict, nil
	default:
		return "", fmt.Errorf("%w: unknown host key policy %q (want strict, auto-trust or insecure)", errUsage, s)
	}
}

// callback builds the ssh.HostKeyCallback for this policy. log receives the
// fingerprints of hosts learned under auto-trust.
func (p hostKeyPolicy) callback(knownHostsPath string, log *zap.Logger) (ssh.HostKeyCallback, error) {
	switch p {
	case hostKeyInsecure:
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicitly requested by configuration
	case hostKeyAutoTrust:
		return autoTrustCallback(knownHostsPath, log)
	default:
		// Fail closed when the file is absent
		if _, err := os.Stat(knownHostsPath); err != nil {
			return nil, fmt.Errorf("%w at %q and host key policy is strict", errKnownHostsMissing, knownHostsPath)
		}
		cb, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		return cb, nil
	}
}

// autoTrustCallback verifies against known_hosts and appends the key of any
// host the file does not mention yet.
func autoTrustCallback(knownHostsPath string, log *zap.Logger) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		return nil, fmt.Errorf("%w: auto-trust host key policy needs a known_hosts path", errUsage)
	}
	if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0o700); err != nil {
		return nil, fmt.Errorf("known_hosts dir: %w", err)
	}
	f, err := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	_ = f.Close()

	known, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := known(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			log.Info("trusting new host key",
				zap.String("host", hostname),
				zap.String("fingerprint", ssh.FingerprintSHA256(key)))
			return appendKnownHost(knownHostsPath, hostname, key)
		}
		return err
	}, nil
}

func appendKnownHost(knownHostsPath, hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("record host key: %w", err)
	}
	defer func() { _ = f.Close() }()
	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("record host key: %w", err)
	}
	return nil
}
