package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultProbeURL      = "https://www.google.co.in"
	defaultProbeAttempts = 6
	defaultProbeInterval = 600 * time.Second
	defaultProbeTimeout  = 20 * time.Second
)

var errUnreachable = errors.New("internet unreachable")

// httpDoer is the part of *http.Client the prober needs.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// connectivityProber checks general Internet reachability with a bounded
// number of attempts separated by a fixed interval.
type connectivityProber struct {
	url         string
	maxAttempts int
	interval    time.Duration
	timeout     time.Duration
	client      httpDoer
	// timer is nil outside tests; backoff then uses a real time.Timer.
	timer backoff.Timer
	log   *zap.Logger
}

func newConnectivityProber(url string, attempts int, interval, timeout time.Duration, log *zap.Logger) *connectivityProber {
	if url == "" {
		url = defaultProbeURL
	}
	if attempts <= 0 {
		attempts = defaultProbeAttempts
	}
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &connectivityProber{
		url:         url,
		maxAttempts: attempts,
		interval:    interval,
		timeout:     timeout,
		client:      &http.Client{},
		log:         log,
	}
}

// Probe returns the 1-indexed attempt on which the endpoint answered. When no
// attempt succeeds it returns maxAttempts and an error wrapping errUnreachable.
// Any completed HTTP exchange counts as reachable, whatever the status code.
func (p *connectivityProber) Probe(ctx context.Context) (int, error) {
	attempts := 0
	var lastErr error

	op := func() error {
		attempts++
		err := p.check(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		p.log.Warn("no connectivity, waiting before next attempt",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", p.maxAttempts),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), uint64(p.maxAttempts-1)),
		ctx)
	err := backoff.RetryNotifyWithTimer(op, b, notify, p.timer)
	if err == nil {
		p.log.Info("connectivity confirmed", zap.Int("attempt", attempts), zap.String("url", p.url))
		return attempts, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if ctx.Err() != nil {
		return attempts, fmt.Errorf("%w after %d attempt(s): %w", errUnreachable, attempts, ctx.Err())
	}
	return attempts, fmt.Errorf("%w after %d attempt(s): %w", errUnreachable, attempts, lastErr)
}

// check performs one GET bounded by the per-attempt timeout.
func (p *connectivityProber) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	p.log.Debug("probe response", zap.Int("status", resp.StatusCode))
	return nil
}
