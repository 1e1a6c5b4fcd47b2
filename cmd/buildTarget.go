package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// buildTarget assembles the transferTarget from the global configuration.
// A target file only fills fields the flags and environment left empty.
func buildTarget() (transferTarget, error) {
	t := transferTarget{
		Host:                  strings.TrimSpace(cfgHost),
		Port:                  cfgPort,
		User:                  strings.TrimSpace(cfgUser),
		Password:              cfgPassword,
		KeyPath:               cfgKeyPath,
		Passphrase:            cfgPassphrase,
		KnownHosts:            cfgKnownHosts,
		RemoteDir:             cfgRemoteDir,
		ActivationScript:      cfgActivationScript,
		ActivationInterpreter: cfgActivationInterpreter,
		ConnTimeout:           cfgConnTimeout,
	}
	protocol := cfgTransferProtocol

	if cfgTargetFile != "" {
		tf, err := loadTargetFile(cfgTargetFile)
		if err != nil {
			return transferTarget{}, fmt.Errorf("%w: target file: %v", errUsage, err)
		}
		fillString(&t.Host, tf.Host)
		fillString(&t.User, tf.User)
		fillString(&t.KeyPath, tf.KeyPath)
		fillString(&t.KnownHosts, tf.KnownHosts)
		fillString(&t.RemoteDir, tf.RemoteDir)
		fillString(&t.ActivationScript, tf.ActivationScript)
		fillString(&t.ActivationInterpreter, tf.ActivationInterpreter)
		fillString(&protocol, tf.TransferProtocol)
		if t.Port == 0 {
			t.Port = tf.Port
		}
	}

	if t.Port == 0 {
		t.Port = defaultPort
	}
	if t.ConnTimeout <= 0 {
		t.ConnTimeout = defaultConnTimeout
	}
	fillString(&t.KnownHosts, defaultKnownHosts())
	fillString(&t.RemoteDir, defaultRemoteDir)
	fillString(&t.ActivationScript, defaultActivationScript)
	fillString(&t.ActivationInterpreter, defaultActivationInterpreter)

	var err error
	if t.Protocol, err = parseTransferProtocol(protocol); err != nil {
		return transferTarget{}, err
	}
	if t.TransferHostKey, err = parseHostKeyPolicy(cfgTransferHostKey); err != nil {
		return transferTarget{}, err
	}
	if cfgActivationHostKey == "" {
		t.ActivationHostKey = hostKeyAutoTrust
	} else if t.ActivationHostKey, err = parseHostKeyPolicy(cfgActivationHostKey); err != nil {
		return transferTarget{}, err
	}

	if err := t.validate(); err != nil {
		return transferTarget{}, err
	}
	return t, nil
}

func defaultKnownHosts() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

func fillString(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}
