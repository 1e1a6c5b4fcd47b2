package cmd

import (
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                  = 22
	defaultRemoteDir             = "/home/server/RFIMS-CART/downloads/"
	defaultActivationScript      = "/home/server/RFIMS-CART/Server2.py"
	defaultActivationInterpreter = "python3"
	defaultConnTimeout           = 15 * time.Second
)

// transferTarget is the remote endpoint every step talks to. It is built once
// by buildTarget and passed by value, so no step can alter another's view.
type transferTarget struct {
	Host       string
	Port       int
	User       string
	Password   string
	KeyPath    string
	Passphrase string
	KnownHosts string

	RemoteDir             string
	ActivationScript      string
	ActivationInterpreter string

	TransferHostKey   hostKeyPolicy
	ActivationHostKey hostKeyPolicy
	Protocol          transferProtocol

	ConnTimeout time.Duration
}

func (t transferTarget) addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// remotePath is where a file with the given base name lands on the server.
// Remote paths are always slash separated regardless of the local OS.
func (t transferTarget) remotePath(base string) string {
	return path.Join(t.RemoteDir, base)
}

// validate reports the first missing or malformed setting.
func (t transferTarget) validate() error {
	var problems []string
	if strings.TrimSpace(t.Host) == "" {
		problems = append(problems, "--host is required")
	}
	if t.Port <= 0 || t.Port > 65535 {
		problems = append(problems, fmt.Sprintf("--port %d is out of range", t.Port))
	}
	if strings.TrimSpace(t.User) == "" {
		problems = append(problems, "--user is required")
	}
	if t.Password == "" && t.KeyPath == "" {
		problems = append(problems, "one of --password or --key is required")
	}
	if strings.TrimSpace(t.RemoteDir) == "" {
		problems = append(problems, "--remote-dir is required")
	} else if unsafeRemotePath(t.RemoteDir) {
		problems = append(problems, fmt.Sprintf("--remote-dir %q contains $, a backtick or a control character", t.RemoteDir))
	}
	if strings.TrimSpace(t.ActivationScript) == "" {
		problems = append(problems, "--activation-script is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errUsage, strings.Join(problems, "; "))
}

// String renders the target without secrets.
func (t transferTarget) String() string {
	return fmt.Sprintf("%s@%s:%s", t.User, t.addr(), t.RemoteDir)
}

var (
	errNoAuthMethod     = errors.New("no ssh authentication method available")
	errUnsafeRemotePath = errors.New("remote path would be expanded by the remote shell")
)

// unsafeRemotePath reports characters a remote shell still expands inside
// the double quotes the scp command line puts around the path.
func unsafeRemotePath(p string) bool {
	return strings.ContainsFunc(p, func(r rune) bool {
		return r == '$' || r == '`' || r < 0x20 || r == 0x7f
	})
}
