package cmd

import (
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
)

// Version is the CLI version string injected at build time via -ldflags.
var Version = "0.1.0"

// errUsage marks invocation and configuration problems. They exit with
// exitUsage and never touch the local file.
var errUsage = errors.New("usage error")

var (
	// Global configuration populated by flags, environment variables, an
	// optional .env file and an optional YAML target file. buildTarget turns
	// these into an immutable transferTarget before any step runs.
	cfgHost                  string
	cfgPort                  int
	cfgUser                  string
	cfgPassword              string
	cfgKeyPath               string
	cfgPassphrase            string
	cfgKnownHosts            string
	cfgRemoteDir             string
	cfgActivationScript      string
	cfgActivationInterpreter string
	cfgTransferHostKey       string
	cfgActivationHostKey     string
	cfgTransferProtocol      string
	cfgConnTimeout           time.Duration
	cfgTransferTimeout       time.Duration
	cfgActivationTimeout     time.Duration
	cfgActivationWait        bool

	cfgProbeURL      string
	cfgProbeAttempts int
	cfgProbeInterval time.Duration
	cfgProbeTimeout  time.Duration

	cfgReportPath  string
	cfgMetricsPath string
	cfgNoop        bool

	cfgLogLevel  string
	cfgLogFormat string
	cfgLogFile   string

	cfgEnvFile    string
	cfgTargetFile string
)

// Allow tests to stub dialing, command execution and local deletion
var (
	dialSSHFunc               = dialSSH
	runRemoteCommandFunc      = runRemoteCommand
	dispatchRemoteCommandFunc = dispatchRemoteCommand
	removeFileFunc            = os.Remove
)

// logger is replaced in PersistentPreRunE once the log flags are known.
var logger = zap.NewNop()
