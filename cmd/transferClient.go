package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/melbahja/goph"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// transferResult describes a completed copy.
type transferResult struct {
	RemotePath string
	Bytes      int64
	Protocol   transferProtocol
}

// transferClient copies one local file to the target's remote directory over
// a fresh SSH connection. It makes exactly one attempt per Send.
type transferClient struct {
	target  transferTarget
	timeout time.Duration
	log     *zap.Logger
}

func newTransferClient(t transferTarget, timeout time.Duration, log *zap.Logger) *transferClient {
	return &transferClient{target: t, timeout: timeout, log: log}
}

// Send copies ref to <remoteDir>/<ref.Base>. The connection is closed on every
// path. Failures are returned as *stepError.
func (c *transferClient) Send(ctx context.Context, ref fileReference) (transferResult, error) {
	res := transferResult{RemotePath: c.target.remotePath(ref.Base), Protocol: c.target.Protocol}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if res.Protocol != protocolSFTP && unsafeRemotePath(res.RemotePath) {
		return res, newStepError(stepTransfer, causeCopy,
			fmt.Errorf("%w: %q (use --transfer-protocol sftp)", errUnsafeRemotePath, res.RemotePath))
	}

	f, err := os.Open(ref.Path)
	if err != nil {
		return res, newStepError(stepTransfer, causeLocalFile, err)
	}
	defer func() { _ = f.Close() }()

	client, err := dialSSHFunc(ctx, c.target, c.target.TransferHostKey, c.log)
	if err != nil {
		return res, newStepError(stepTransfer, classifyConnError(err), err)
	}
	defer func() {
		if client != nil {
			_ = client.Close()
		}
	}()

	c.log.Info("copying file",
		zap.String("protocol", string(res.Protocol)),
		zap.String("local", ref.Path),
		zap.String("remote", res.RemotePath),
		zap.Int64("size", ref.Size))

	cr := &countingReader{r: f}
	switch res.Protocol {
	case protocolSFTP:
		err = copySFTP(ctx, client, cr, res.RemotePath)
	default:
		err = copySCP(ctx, client, cr, res.RemotePath, ref.Size, ref.Mode)
	}
	res.Bytes = cr.n.Load()
	if err != nil {
		return res, newStepError(stepTransfer, classifyCtxError(ctx, err, causeCopy), err)
	}
	return res, nil
}

// copySCP streams r through the remote scp sink.
func copySCP(ctx context.Context, client *ssh.Client, r io.Reader, remotePath string, size int64, mode os.FileMode) error {
	if client == nil {
		return fmt.Errorf("scp: no ssh connection")
	}
	sc, err := scp.NewClientBySSH(client)
	if err != nil {
		return fmt.Errorf("scp session: %w", err)
	}
	defer sc.Close()
	if mode == 0 {
		mode = 0o644
	}
	if err := sc.CopyPassThru(ctx, r, remotePath, fmt.Sprintf("%04o", mode.Perm()), size, nil); err != nil {
		return fmt.Errorf("scp copy: %w", err)
	}
	return nil
}

// copySFTP writes r to remotePath through an SFTP subsystem on client.
func copySFTP(ctx context.Context, client *ssh.Client, r io.Reader, remotePath string) error {
	if client == nil {
		return fmt.Errorf("sftp: no ssh connection")
	}
	sftpClient, err := (&goph.Client{Client: client}).NewSftp()
	if err != nil {
		return fmt.Errorf("sftp session: %w", err)
	}
	defer func() { _ = sftpClient.Close() }()

	done := make(chan error, 1)
	go func() {
		dst, err := sftpClient.Create(remotePath)
		if err != nil {
			done <- fmt.Errorf("sftp create %s: %w", remotePath, err)
			return
		}
		if _, err := io.Copy(dst, r); err != nil {
			_ = dst.Close()
			done <- fmt.Errorf("sftp write: %w", err)
			return
		}
		done <- dst.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Closing the client unblocks the copy goroutine.
		_ = sftpClient.Close()
		return ctx.Err()
	}
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
