package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	srv "rfims-upload/tools/sshserv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func main() {
	s, err := srv.Start("127.0.0.1:20222", srv.Options{User: "rfims", Password: "rfims"})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to start test ssh server:", err)
		os.Exit(1)
	}
	defer func() { _ = s.Close() }()
	_, _ = fmt.Fprintln(os.Stderr, "test ssh server listening on", s.Addr(), "as rfims/rfims")
	_, _ = fmt.Fprintln(os.Stderr, "known_hosts line:")
	_, _ = fmt.Fprintln(os.Stdout, knownhosts.Line([]string{knownhosts.Normalize(s.Addr())}, s.HostKey()))
	_, _ = fmt.Fprintln(os.Stderr, "fingerprint:", ssh.FingerprintSHA256(s.HostKey()))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
