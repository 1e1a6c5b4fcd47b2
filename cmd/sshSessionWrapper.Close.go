package cmd

import "errors"

var errNilSession = errors.New("nil ssh session")

// Close closes the underlying ssh.Session. A zero wrapper reports an error.
func (w sshSessionWrapper) Close() error {
	if w.s == nil {
		return errNilSession
	}
	return w.s.Close()
}
