package cmd

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

var errKeyEncrypted = errors.New("private key is encrypted; provide --passphrase or RFIMS_UPLOAD_PASSPHRASE")

// loadSigner reads the private key at path (a leading ~/ is the home
// directory). The passphrase is only applied to keys that are encrypted, so
// an RFIMS_UPLOAD_PASSPHRASE set for another key does not break a plain one.
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	path = expandHome(path)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(raw)
	var missing *ssh.PassphraseMissingError
	switch {
	case err == nil:
		return signer, nil
	case !errors.As(err, &missing):
		return nil, fmt.Errorf("parse key %s: %w", path, err)
	case passphrase == "":
		return nil, errKeyEncrypted
	}

	signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("decrypt key %s: %w", path, err)
	}
	return signer, nil
}
