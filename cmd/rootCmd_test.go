package cmd

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"rfims-upload/tools/sshserv"
)

// writeTemp creates a temp file with content and returns its path.
func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// resetConfig clears global configuration so tests don't leak state
func resetConfig() {
	viper.Reset()
	configureViper()
	// Reset flags to defaults and clear Changed status
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	initErr = nil
	logger = zap.NewNop()
}

// stubSeams restores every package-level seam when the test ends.
func stubSeams(t *testing.T) {
	t.Helper()
	origDial := dialSSHFunc
	origRun := runRemoteCommandFunc
	origDispatch := dispatchRemoteCommandFunc
	origRemove := removeFileFunc
	origExit := exitFunc
	t.Cleanup(func() {
		dialSSHFunc = origDial
		runRemoteCommandFunc = origRun
		dispatchRemoteCommandFunc = origDispatch
		removeFileFunc = origRemove
		exitFunc = origExit
	})
}

// startTestServer runs an sshserv instance and returns a target pointing at
// it, with the server's key already in a fresh known_hosts file.
func startTestServer(t *testing.T, opts sshserv.Options) (*sshserv.Server, transferTarget) {
	t.Helper()
	t.Setenv("SSH_AUTH_SOCK", "")
	if opts.User == "" {
		opts.User = "rfims"
	}
	if opts.Password == "" {
		opts.Password = "secret"
	}
	srv, err := sshserv.Start("127.0.0.1:0", opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dir := t.TempDir()
	remote := filepath.Join(dir, "downloads")
	require.NoError(t, os.MkdirAll(remote, 0o755))
	kh := writeTemp(t, dir, "known_hosts", knownHostsLine(srv.Addr(), srv.HostKey())+"\n")

	return srv, transferTarget{
		Host:                  host,
		Port:                  port,
		User:                  opts.User,
		Password:              opts.Password,
		KnownHosts:            kh,
		RemoteDir:             remote,
		ActivationScript:      "/home/server/RFIMS-CART/Server2.py",
		ActivationInterpreter: "python3",
		TransferHostKey:       hostKeyStrict,
		ActivationHostKey:     hostKeyAutoTrust,
		Protocol:              protocolSCP,
		ConnTimeout:           5 * time.Second,
	}
}

func knownHostsLine(addr string, key ssh.PublicKey) string {
	return knownhosts.Line([]string{knownhosts.Normalize(addr)}, key)
}

// targetArgs renders t as command-line flags.
func targetArgs(t transferTarget) []string {
	return []string{
		"--host", t.Host,
		"--port", strconv.Itoa(t.Port),
		"--user", t.User,
		"--password", t.Password,
		"--known-hosts", t.KnownHosts,
		"--remote-dir", t.RemoteDir,
		"--activation-script", t.ActivationScript,
	}
}

type fakeSession struct {
	out      []byte
	err      error
	startErr error
	delay    time.Duration
	closed   bool
	ran      []string
}

func (f *fakeSession) CombinedOutput(cmd string) ([]byte, error) {
	f.ran = append(f.ran, cmd)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.out, f.err
}

func (f *fakeSession) Start(cmd string) error {
	f.ran = append(f.ran, cmd)
	return f.startErr
}

func (f *fakeSession) Close() error { f.closed = true; return nil }

type fakeClient struct {
	sess   *fakeSession
	newErr error
}

func (c *fakeClient) NewSession() (session, error) {
	if c.newErr != nil {
		return nil, c.newErr
	}
	return c.sess, nil
}

func TestRootExecute_Noop_PrintsPlanWithoutConnecting(t *testing.T) {
	resetConfig()
	stubSeams(t)
	dialSSHFunc = func(context.Context, transferTarget, hostKeyPolicy, *zap.Logger) (*ssh.Client, error) {
		t.Fatal("noop must not dial")
		return nil, nil
	}

	tmp := t.TempDir()
	file := writeTemp(t, tmp, "data/archive.tar.gz", "payload")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--host", "server.example", "--user", "rfims", "--password", "pw", "--noop", file})
	require.NoError(t, rootCmd.Execute())

	plan := out.String()
	require.Contains(t, plan, "GET https://www.google.co.in, up to 6 attempt(s), 10m0s apart")
	require.Contains(t, plan, "scp rfims@server.example:22 -> /home/server/RFIMS-CART/downloads/archive.tar.gz (host key: strict)")
	require.Contains(t, plan, "python3 /home/server/RFIMS-CART/Server2.py archive.tar.gz (host key: auto-trust, wait for exit status)")
	_, err := os.Stat(file)
	require.NoError(t, err)
}

func TestRootExecute_RequiresExactlyOneFile(t *testing.T) {
	resetConfig()
	rootCmd.SetArgs([]string{"--host", "h", "--user", "u", "--password", "p"})
	err := rootCmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRootExecute_MissingHost_IsUsageError(t *testing.T) {
	resetConfig()
	tmp := t.TempDir()
	file := writeTemp(t, tmp, "a.tgz", "x")
	rootCmd.SetArgs([]string{"--user", "u", "--password", "p", file})
	err := rootCmd.Execute()
	require.ErrorIs(t, err, errUsage)
	require.Contains(t, err.Error(), "--host is required")
	_, statErr := os.Stat(file)
	require.NoError(t, statErr)
}

func TestRootExecute_DirectoryArgument_IsUsageError(t *testing.T) {
	resetConfig()
	rootCmd.SetArgs([]string{"--host", "h", "--user", "u", "--password", "p", t.TempDir() + string(os.PathSeparator)})
	err := rootCmd.Execute()
	require.ErrorIs(t, err, errUsage)
}

func TestRootExecute_FullDelivery_EndToEnd(t *testing.T) {
	resetConfig()
	srv, target := startTestServer(t, sshserv.Options{})
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer probe.Close()

	tmp := t.TempDir()
	file := writeTemp(t, tmp, "queue/archive.tar.gz", "spectrum data")
	reportPath := filepath.Join(tmp, "out", "report.yaml")
	metricsPath := filepath.Join(tmp, "out", "rfims.prom")

	args := append(targetArgs(target),
		"--probe-url", probe.URL,
		"--probe-attempts", "1",
		"--report", reportPath,
		"--metrics-textfile", metricsPath,
		file)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())

	_, err := os.Stat(file)
	require.True(t, os.IsNotExist(err), "local file should be deleted on success")
	got, err := os.ReadFile(filepath.Join(target.RemoteDir, "archive.tar.gz"))
	require.NoError(t, err)
	require.Equal(t, "spectrum data", string(got))
	require.Equal(t, []string{"python3 /home/server/RFIMS-CART/Server2.py archive.tar.gz"}, srv.Commands())

	rep, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.Contains(t, string(rep), "outcome: success")
	require.Contains(t, string(rep), "deleted: true")
	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	require.Contains(t, string(prom), "rfims_upload_last_exit_code 0")
	require.Contains(t, string(prom), "rfims_upload_bytes_sent 13")
}

func TestRootExecute_ActivationFailure_KeepsFile(t *testing.T) {
	resetConfig()
	_, target := startTestServer(t, sshserv.Options{
		ExitStatus: func(cmd string) uint32 { return 2 },
	})
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer probe.Close()

	tmp := t.TempDir()
	file := writeTemp(t, tmp, "archive.tar.gz", "data")
	rootCmd.SetArgs(append(targetArgs(target), "--probe-url", probe.URL, "--probe-attempts", "1", file))
	err := rootCmd.Execute()

	var oe *outcomeError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, outcomeTransferredNotActivated, oe.outcome)
	require.Equal(t, causeRemoteExit, causeOf(err))
	_, statErr := os.Stat(file)
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(target.RemoteDir, "archive.tar.gz"))
	require.NoError(t, statErr)
}

func TestRootExecute_DeleteFailure_IsNotDeleted(t *testing.T) {
	resetConfig()
	stubSeams(t)
	removeFileFunc = func(string) error { return errors.New("read-only filesystem") }
	_, target := startTestServer(t, sshserv.Options{})
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer probe.Close()

	tmp := t.TempDir()
	file := writeTemp(t, tmp, "archive.tar.gz", "data")
	rootCmd.SetArgs(append(targetArgs(target), "--probe-url", probe.URL, "--probe-attempts", "1", file))
	err := rootCmd.Execute()

	var oe *outcomeError
	require.True(t, errors.As(err, &oe))
	require.Equal(t, outcomeNotDeleted, oe.outcome)
	require.Equal(t, 6, oe.outcome.exitCode())
	require.True(t, strings.Contains(err.Error(), "read-only filesystem"))
}
