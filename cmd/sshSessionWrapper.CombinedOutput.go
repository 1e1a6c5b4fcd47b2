package cmd

// CombinedOutput runs cmd and returns stdout and stderr interleaved.
func (w sshSessionWrapper) CombinedOutput(cmd string) ([]byte, error) {
	return w.s.CombinedOutput(cmd)
}
