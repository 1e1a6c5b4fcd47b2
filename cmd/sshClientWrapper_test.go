package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rfims-upload/tools/sshserv"
)

func TestSSHClientWrapper_NewSession_NilClientError(t *testing.T) {
	var w sshClientWrapper
	s, err := w.NewSession()
	require.ErrorIs(t, err, errNilClient)
	require.Nil(t, s)
}

func TestSSHClientWrapper_NewSession_Success_Integ(t *testing.T) {
	_, target := startTestServer(t, sshserv.Options{})
	client, err := dialSSH(context.Background(), target, hostKeyStrict, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	s, err := sshClientWrapper{c: client}.NewSession()
	require.NoError(t, err)
	require.NotNil(t, s)
	require.NoError(t, s.Close())
}
