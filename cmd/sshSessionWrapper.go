package cmd

import "golang.org/x/crypto/ssh"

// sshSessionWrapper adapts *ssh.Session to the internal session interface.
type sshSessionWrapper struct {
	s *ssh.Session
}
