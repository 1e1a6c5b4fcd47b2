package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildTarget_Defaults(t *testing.T) {
	resetConfig()
	t.Setenv("HOME", "/home/field")
	cfgHost = " server.example "
	cfgUser = "rfims"
	cfgPassword = "pw"

	tg, err := buildTarget()
	require.NoError(t, err)
	require.Equal(t, "server.example", tg.Host)
	require.Equal(t, 22, tg.Port)
	require.Equal(t, "/home/server/RFIMS-CART/downloads/", tg.RemoteDir)
	require.Equal(t, "/home/server/RFIMS-CART/Server2.py", tg.ActivationScript)
	require.Equal(t, "python3", tg.ActivationInterpreter)
	require.Equal(t, filepath.Join("/home/field", ".ssh", "known_hosts"), tg.KnownHosts)
	require.Equal(t, hostKeyStrict, tg.TransferHostKey)
	require.Equal(t, hostKeyAutoTrust, tg.ActivationHostKey)
	require.Equal(t, protocolSCP, tg.Protocol)
	require.Equal(t, 15*time.Second, tg.ConnTimeout)
	require.Equal(t, "/home/server/RFIMS-CART/downloads/scan.tgz", tg.remotePath("scan.tgz"))
	require.Equal(t, "rfims@server.example:22:/home/server/RFIMS-CART/downloads/", tg.String())
}

func TestBuildTarget_TargetFileFillsGaps(t *testing.T) {
	resetConfig()
	tf := writeTemp(t, t.TempDir(), "target.yaml", `
host: file.example
port: 2222
username: fileuser
remote_folder: /srv/incoming
server_script: /srv/process.py
known_hosts: /etc/rfims/known_hosts
transfer_protocol: sftp
`)
	cfgTargetFile = tf
	cfgHost = "flag.example"
	cfgPassword = "pw"

	tg, err := buildTarget()
	require.NoError(t, err)
	require.Equal(t, "flag.example", tg.Host)
	require.Equal(t, 2222, tg.Port)
	require.Equal(t, "fileuser", tg.User)
	require.Equal(t, "/srv/incoming", tg.RemoteDir)
	require.Equal(t, "/srv/process.py", tg.ActivationScript)
	require.Equal(t, "/etc/rfims/known_hosts", tg.KnownHosts)
	require.Equal(t, protocolSFTP, tg.Protocol)
}

func TestBuildTarget_Errors(t *testing.T) {
	cases := []struct {
		name string
		set  func()
		want string
	}{
		{"no auth", func() { cfgHost, cfgUser = "h", "u" }, "one of --password or --key is required"},
		{"no user", func() { cfgHost, cfgPassword = "h", "p" }, "--user is required"},
		{"bad port", func() { cfgHost, cfgUser, cfgPassword, cfgPort = "h", "u", "p", 70000 }, "--port 70000 is out of range"},
		{"bad protocol", func() { cfgHost, cfgUser, cfgPassword, cfgTransferProtocol = "h", "u", "p", "ftp" }, "unknown transfer protocol"},
		{"bad policy", func() { cfgHost, cfgUser, cfgPassword, cfgTransferHostKey = "h", "u", "p", "trusting" }, "unknown host key policy"},
		{"expanding remote dir", func() {
			cfgHost, cfgUser, cfgPassword, cfgRemoteDir = "h", "u", "p", "/srv/$(whoami)/in"
		}, "--remote-dir"},
		{"backtick remote dir", func() { cfgHost, cfgUser, cfgPassword, cfgRemoteDir = "h", "u", "p", "/srv/`id`" }, "--remote-dir"},
		{"missing target file", func() {
			cfgHost, cfgUser, cfgPassword, cfgTargetFile = "h", "u", "p", "/nonexistent/target.yaml"
		}, "target file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetConfig()
			tc.set()
			_, err := buildTarget()
			require.ErrorIs(t, err, errUsage)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
