package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"slices"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyAlgorithmPreference orders the algorithms offered during key
// exchange. RSA keys are verified with the SHA-2 signatures first.
var hostKeyAlgorithmPreference = []string{
	ssh.KeyAlgoED25519,
	ssh.KeyAlgoSKED25519,
	ssh.KeyAlgoECDSA256,
	ssh.KeyAlgoECDSA384,
	ssh.KeyAlgoECDSA521,
	ssh.KeyAlgoSKECDSA256,
	ssh.KeyAlgoRSASHA512,
	ssh.KeyAlgoRSASHA256,
	ssh.KeyAlgoRSA,
}

// knownHostKeyAlgorithms returns the host key algorithms matching the key
// types known_hosts records for addr, or nil when the host is not recorded.
// A server holding several host keys must present one of these.
func knownHostKeyAlgorithms(knownHostsPath, addr string) []string {
	if knownHostsPath == "" {
		return nil
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil
	}

	// An unrecorded key makes the callback list every key it has for addr
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil
	}
	placeholder, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil
	}
	var keyErr *knownhosts.KeyError
	err = cb(addr, &net.TCPAddr{IP: net.IPv4zero}, placeholder)
	if !errors.As(err, &keyErr) || len(keyErr.Want) == 0 {
		return nil
	}

	recorded := map[string]bool{}
	for _, k := range keyErr.Want {
		switch typ := k.Key.Type(); typ {
		case ssh.KeyAlgoRSA:
			recorded[ssh.KeyAlgoRSASHA512] = true
			recorded[ssh.KeyAlgoRSASHA256] = true
			recorded[ssh.KeyAlgoRSA] = true
		default:
			recorded[typ] = true
		}
	}
	var algos []string
	for _, a := range hostKeyAlgorithmPreference {
		if recorded[a] {
			algos = append(algos, a)
			delete(recorded, a)
		}
	}
	rest := make([]string, 0, len(recorded))
	for a := range recorded {
		rest = append(rest, a)
	}
	slices.Sort(rest)
	return append(algos, rest...)
}
