package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validOptions() deliveryOptions {
	return deliveryOptions{
		ProbeURL:          defaultProbeURL,
		ProbeAttempts:     defaultProbeAttempts,
		ProbeInterval:     defaultProbeInterval,
		ProbeTimeout:      defaultProbeTimeout,
		ActivationTimeout: defaultActivationTimeout,
		ActivationWait:    true,
	}
}

func TestDeliveryOptions_Validate(t *testing.T) {
	require.NoError(t, validOptions().validate())

	cases := []struct {
		name   string
		mutate func(*deliveryOptions)
		want   string
	}{
		{"no scheme", func(o *deliveryOptions) { o.ProbeURL = "www.google.co.in" }, "--probe-url"},
		{"ftp scheme", func(o *deliveryOptions) { o.ProbeURL = "ftp://example.com" }, "--probe-url"},
		{"no host", func(o *deliveryOptions) { o.ProbeURL = "https://" }, "--probe-url"},
		{"zero attempts", func(o *deliveryOptions) { o.ProbeAttempts = 0 }, "--probe-attempts"},
		{"negative interval", func(o *deliveryOptions) { o.ProbeInterval = -time.Second }, "--probe-interval"},
		{"zero probe timeout", func(o *deliveryOptions) { o.ProbeTimeout = 0 }, "--probe-timeout"},
		{"negative activation timeout", func(o *deliveryOptions) { o.ActivationTimeout = -1 }, "--activation-timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := validOptions()
			tc.mutate(&o)
			err := o.validate()
			require.ErrorIs(t, err, errUsage)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
