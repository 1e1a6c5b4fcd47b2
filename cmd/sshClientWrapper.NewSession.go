package cmd

import "errors"

var errNilClient = errors.New("nil ssh client")

// NewSession opens a new exec channel on the underlying *ssh.Client and wraps
// it so the activator never touches the transport directly.
func (w sshClientWrapper) NewSession() (session, error) {
	if w.c == nil {
		return nil, errNilClient
	}
	s, err := w.c.NewSession()
	if err != nil {
		return nil, err
	}
	return sshSessionWrapper{s}, nil
}
