package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileReference is the local file handed to the agent.
type fileReference struct {
	Path string
	Base string
	Size int64
	Mode os.FileMode
}

// baseName returns the final path element. A path without any separator is
// its own base name. Inputs that do not name a file are rejected.
func baseName(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: file path is empty", errUsage)
	}
	if strings.HasSuffix(p, string(filepath.Separator)) || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q names a directory, not a file", errUsage, p)
	}
	b := filepath.Base(p)
	if b == "." || b == ".." || b == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q does not name a file", errUsage, p)
	}
	return b, nil
}

func newFileReference(p string) (fileReference, error) {
	b, err := baseName(p)
	if err != nil {
		return fileReference{}, err
	}
	return fileReference{Path: p, Base: b}, nil
}

// stat fills Size and Mode and requires a regular file.
func (f *fileReference) stat() error {
	fi, err := os.Stat(f.Path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", f.Path)
	}
	f.Size = fi.Size()
	f.Mode = fi.Mode().Perm()
	return nil
}
