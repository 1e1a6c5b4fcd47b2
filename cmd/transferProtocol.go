package cmd

import (
	"fmt"
	"strings"
)

// transferProtocol names the channel used to copy the file.
type transferProtocol string

const (
	protocolSCP  transferProtocol = "scp"
	protocolSFTP transferProtocol = "sftp"
)

func parseTransferProtocol(s string) (transferProtocol, error) {
	switch p := transferProtocol(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return protocolSCP, nil
	case protocolSCP, protocolSFTP:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown transfer protocol %q (want scp or sftp)", errUsage, s)
	}
}
