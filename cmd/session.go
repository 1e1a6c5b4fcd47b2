package cmd

// session is the slice of *ssh.Session the activator uses
type session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Start(cmd string) error
	Close() error
}
