package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteYAMLReport_OmitsStepsThatNeverRan(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newDeliveryReport("/data/scan.tgz", "rfims@server:22:/downloads", at)
	r.Probe = &yamlProbe{
		yamlStepStatus: stepStatus(3*time.Second, newStepError(stepProbe, causeUnreachable, errUnreachable)),
		URL:            "https://www.google.co.in",
		Attempts:       6,
	}
	r.finish(outcomeNoConnectivity, at.Add(time.Hour))

	var buf bytes.Buffer
	require.NoError(t, writeYAMLReport(&buf, r))
	out := buf.String()
	require.Contains(t, out, "outcome: no_connectivity")
	require.Contains(t, out, "exit_code: 3")
	require.Contains(t, out, "2024-05-01T12:00:00Z")
	require.Contains(t, out, "probe:\n  ok: false\n  duration: 3s\n  cause: unreachable")
	require.Contains(t, out, "  attempts: 6")
	require.NotContains(t, out, "transfer:")
	require.NotContains(t, out, "cleanup:")
}

func TestWriteReportFile_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newDeliveryReport("/data/scan.tgz", "t", at)
	r.Transfer = &yamlTransfer{yamlStepStatus: stepStatus(time.Second, nil), Protocol: "sftp", RemotePath: "/in/scan.tgz", Bytes: 42}
	r.Activation = &yamlActivation{
		yamlStepStatus: stepStatus(0, newStepError(stepActivate, causeRemoteExit, errors.New("exit 2"))),
		Command:        "python3 s.py scan.tgz",
		ExitCode:       2,
		Output:         "Traceback\n",
	}
	r.finish(outcomeTransferredNotActivated, at)

	p := filepath.Join(t.TempDir(), "reports", "last.yaml")
	require.NoError(t, writeReportFile(p, r))
	b, err := os.ReadFile(p)
	require.NoError(t, err)

	var got deliveryReport
	require.NoError(t, yaml.Unmarshal(b, &got))
	require.Equal(t, "transferred_not_activated", got.Outcome)
	require.Equal(t, 4, got.ExitCode)
	require.Equal(t, int64(42), got.Transfer.Bytes)
	require.True(t, got.Transfer.OK)
	require.Equal(t, "remote_exit", got.Activation.Cause)
	require.Equal(t, 2, got.Activation.ExitCode)
	require.Equal(t, "Traceback\n", got.Activation.Output)
}

func TestWriteReportFile_BadDir(t *testing.T) {
	dir := t.TempDir()
	blocker := writeTemp(t, dir, "file", "x")
	err := writeReportFile(filepath.Join(blocker, "r.yaml"), newDeliveryReport("f", "t", time.Now()))
	require.ErrorContains(t, err, "report dir")
}
