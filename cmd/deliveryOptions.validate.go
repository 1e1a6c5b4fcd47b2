package cmd

import (
	"fmt"
	"net/url"
	"strings"
)

// validate reports every malformed probe or timeout setting as a usage error.
func (o deliveryOptions) validate() error {
	var problems []string
	u, err := url.Parse(o.ProbeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("--probe-url %q must be an http(s) URL", o.ProbeURL))
	}
	if o.ProbeAttempts <= 0 {
		problems = append(problems, "--probe-attempts must be positive")
	}
	if o.ProbeInterval < 0 {
		problems = append(problems, "--probe-interval must not be negative")
	}
	if o.ProbeTimeout <= 0 {
		problems = append(problems, "--probe-timeout must be positive")
	}
	if o.TransferTimeout < 0 || o.ActivationTimeout < 0 {
		problems = append(problems, "--transfer-timeout and --activation-timeout must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errUsage, strings.Join(problems, "; "))
}
