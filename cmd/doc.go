// Package cmd implements the rfims-upload command-line interface.
//
// A delivery is four steps run in order: a connectivity probe with bounded
// retries, a copy of the archive over SSH (scp or sftp), a remote activation
// command that names the delivered file, and deletion of the local copy. The
// first failing step decides the exit code and the local file is kept.
//
// Start with rootCmd.go for the CLI wiring and deliver.go for the step
// sequence. prober.go, transferClient.go and activator.go hold the steps;
// dialSSH.go and hostKeyPolicy.go hold the shared SSH connection logic.
package cmd
