package cmd

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RFIMS_UPLOAD"

// initErr holds a configuration failure detected in cobra.OnInitialize, which
// cannot return errors itself. PersistentPreRunE reports it.
var initErr error

// init registers the persistent flags shared by every subcommand, binds them
// to RFIMS_UPLOAD_* environment variables and wires the subcommands.
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgHost, "host", "H", "", "Remote server host name or IP")
	pf.IntVarP(&cfgPort, "port", "p", 0, "Remote SSH port (default 22)")
	pf.StringVarP(&cfgUser, "user", "u", "", "SSH username")
	pf.StringVar(&cfgPassword, "password", "", "SSH password (or set RFIMS_UPLOAD_PASSWORD)")
	pf.StringVarP(&cfgKeyPath, "key", "i", "", "Path to SSH private key (PEM, OpenSSH)")
	pf.StringVar(&cfgPassphrase, "passphrase", "", "Private key passphrase (or set RFIMS_UPLOAD_PASSPHRASE)")
	pf.StringVar(&cfgKnownHosts, "known-hosts", "", "Path to known_hosts file (default $HOME/.ssh/known_hosts)")
	pf.StringVar(&cfgRemoteDir, "remote-dir", "", "Remote directory receiving the file (default "+defaultRemoteDir+")")
	pf.StringVar(&cfgActivationScript, "activation-script", "", "Remote script run after the copy (default "+defaultActivationScript+")")
	pf.StringVar(&cfgActivationInterpreter, "activation-interpreter", "", "Interpreter for the activation script (default "+defaultActivationInterpreter+")")
	pf.StringVar(&cfgTransferHostKey, "transfer-host-key-policy", string(hostKeyStrict), "Host key policy for the copy: strict, auto-trust or insecure")
	pf.StringVar(&cfgActivationHostKey, "activation-host-key-policy", string(hostKeyAutoTrust), "Host key policy for activation: strict, auto-trust or insecure")
	pf.StringVar(&cfgTransferProtocol, "transfer-protocol", "", "Copy protocol: scp or sftp (default scp)")
	pf.DurationVar(&cfgConnTimeout, "conn-timeout", defaultConnTimeout, "SSH connect and handshake timeout")
	pf.DurationVar(&cfgTransferTimeout, "transfer-timeout", 0, "Bound on the whole copy step (e.g., 10m). 0 disables")
	pf.DurationVar(&cfgActivationTimeout, "activation-timeout", defaultActivationTimeout, "Bound on the activation step. 0 disables")
	pf.BoolVar(&cfgActivationWait, "activation-wait", true, "Wait for the activation command and require exit status 0")
	pf.StringVar(&cfgProbeURL, "probe-url", defaultProbeURL, "Endpoint fetched to detect Internet connectivity")
	pf.IntVar(&cfgProbeAttempts, "probe-attempts", defaultProbeAttempts, "Connectivity probe attempts before giving up")
	pf.DurationVar(&cfgProbeInterval, "probe-interval", defaultProbeInterval, "Wait between failed probe attempts")
	pf.DurationVar(&cfgProbeTimeout, "probe-timeout", defaultProbeTimeout, "Timeout of a single probe request")
	pf.StringVar(&cfgReportPath, "report", "", "Write a YAML delivery report to this path")
	pf.StringVar(&cfgMetricsPath, "metrics-textfile", "", "Write Prometheus metrics in textfile format to this path")
	pf.BoolVar(&cfgNoop, "noop", false, "Print the planned delivery without connecting or deleting anything")
	pf.StringVar(&cfgLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&cfgLogFormat, "log-format", "json", "Log format: json or console")
	pf.StringVar(&cfgLogFile, "log-file", "", "Also log to this file, rotated by size")
	pf.StringVar(&cfgEnvFile, "env-file", "", "Load environment variables from this .env file")
	pf.StringVar(&cfgTargetFile, "target-file", "", "YAML file with target defaults")

	configureViper()

	// Pull in .env and environment overrides before any command runs
	cobra.OnInitialize(func() {
		initErr = applyEnvironment(rootCmd.PersistentFlags())
	})

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(probeCmd)
}

// configureViper binds the persistent flags to RFIMS_UPLOAD_<FLAG> variables,
// with dashes in flag names written as underscores.
func configureViper() {
	_ = viper.BindPFlags(rootCmd.PersistentFlags())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// applyEnvironment loads the optional .env file and then copies environment
// values into every flag the command line left untouched.
func applyEnvironment(fs *pflag.FlagSet) error {
	envFile := cfgEnvFile
	if envFile == "" {
		envFile = viper.GetString("env-file")
	}
	if envFile != "" {
		// Existing process variables win over the file
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("%w: env file: %v", errUsage, err)
		}
	}

	var errs []string
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !viper.IsSet(f.Name) {
			return
		}
		v := viper.GetString(f.Name)
		if v == "" {
			return
		}
		if err := f.Value.Set(v); err != nil {
			name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			errs = append(errs, fmt.Sprintf("%s=%q: %v", name, v, err))
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", errUsage, strings.Join(errs, "; "))
	}
	return nil
}
