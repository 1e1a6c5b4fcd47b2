package cmd

// Start launches cmd without waiting for it to finish.
func (w sshSessionWrapper) Start(cmd string) error {
	return w.s.Start(cmd)
}
