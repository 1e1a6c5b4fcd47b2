package cmd

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type connectivityChecker interface {
	Probe(ctx context.Context) (int, error)
}

type fileSender interface {
	Send(ctx context.Context, ref fileReference) (transferResult, error)
}

type commandActivator interface {
	Activate(ctx context.Context, base string) (activationResult, error)
}

// deliveryOptions carries the per-run knobs that are not part of the target.
type deliveryOptions struct {
	ProbeURL          string
	ProbeAttempts     int
	ProbeInterval     time.Duration
	ProbeTimeout      time.Duration
	TransferTimeout   time.Duration
	ActivationTimeout time.Duration
	ActivationWait    bool
}

func optionsFromFlags() deliveryOptions {
	return deliveryOptions{
		ProbeURL:          cfgProbeURL,
		ProbeAttempts:     cfgProbeAttempts,
		ProbeInterval:     cfgProbeInterval,
		ProbeTimeout:      cfgProbeTimeout,
		TransferTimeout:   cfgTransferTimeout,
		ActivationTimeout: cfgActivationTimeout,
		ActivationWait:    cfgActivationWait,
	}
}

// deliverer runs probe, transfer, activation and cleanup in order and
// resolves them to a single outcome. The local file is removed only after
// every earlier step succeeded.
type deliverer struct {
	prober    connectivityChecker
	sender    fileSender
	activator commandActivator
	remove    func(string) error

	probeURL string
	target   string
	log      *zap.Logger
	metrics  *deliveryMetrics
	now      func() time.Time
}

func newDeliverer(t transferTarget, opts deliveryOptions, log *zap.Logger) *deliverer {
	p := newConnectivityProber(opts.ProbeURL, opts.ProbeAttempts, opts.ProbeInterval, opts.ProbeTimeout, log.Named(stepProbe))
	return &deliverer{
		prober:    p,
		sender:    newTransferClient(t, opts.TransferTimeout, log.Named(stepTransfer)),
		activator: newRemoteActivator(t, opts.ActivationWait, opts.ActivationTimeout, log.Named(stepActivate)),
		remove:    removeFileFunc,
		probeURL:  p.url,
		target:    t.String(),
		log:       log,
		metrics:   newDeliveryMetrics(),
		now:       time.Now,
	}
}

// deliver returns the terminal outcome, the report describing every step
// that ran, and the step error behind a non-success outcome.
func (d *deliverer) deliver(ctx context.Context, ref fileReference) (outcome, *deliveryReport, error) {
	rep := newDeliveryReport(ref.Path, d.target, d.now())
	o, err := d.run(ctx, ref, rep)
	rep.finish(o, d.now())
	if d.metrics != nil {
		d.metrics.observeOutcome(o, d.now())
		var se *stepError
		if errors.As(err, &se) {
			d.metrics.observeFailure(se.Step, se.Cause)
		}
	}

	fields := []zap.Field{zap.String("file", ref.Path), zap.String("outcome", o.String()), zap.Int("exit_code", o.exitCode())}
	if err != nil {
		fields = append(fields, zap.String("cause", string(causeOf(err))), zap.Error(err))
		d.log.Warn("delivery incomplete, local file kept", fields...)
	} else {
		d.log.Info("delivery complete", fields...)
	}
	return o, rep, err
}

func (d *deliverer) run(ctx context.Context, ref fileReference, rep *deliveryReport) (outcome, error) {
	// A file that cannot be sent is not worth waiting an hour for
	if err := ref.stat(); err != nil {
		se := newStepError(stepTransfer, causeLocalFile, err)
		rep.Transfer = &yamlTransfer{yamlStepStatus: stepStatus(0, se)}
		return outcomeNotTransferred, se
	}

	start := d.now()
	attempts, err := d.prober.Probe(ctx)
	elapsed := d.observe(stepProbe, start)
	if err != nil {
		cause := causeUnreachable
		if ctx.Err() != nil {
			cause = causeCanceled
		}
		se := newStepError(stepProbe, cause, err)
		rep.Probe = &yamlProbe{yamlStepStatus: stepStatus(elapsed, se), URL: d.probeURL, Attempts: attempts}
		return outcomeNoConnectivity, se
	}
	rep.Probe = &yamlProbe{yamlStepStatus: stepStatus(elapsed, nil), URL: d.probeURL, Attempts: attempts}
	if d.metrics != nil {
		d.metrics.probeAttempts.Set(float64(attempts))
	}

	start = d.now()
	tr, err := d.sender.Send(ctx, ref)
	elapsed = d.observe(stepTransfer, start)
	if err != nil {
		err = asStepError(stepTransfer, causeCopy, err)
	}
	rep.Transfer = &yamlTransfer{
		yamlStepStatus: stepStatus(elapsed, err),
		Protocol:       string(tr.Protocol),
		RemotePath:     tr.RemotePath,
		Bytes:          tr.Bytes,
	}
	if err != nil {
		return outcomeNotTransferred, err
	}
	if d.metrics != nil {
		d.metrics.bytesSent.Set(float64(tr.Bytes))
	}

	start = d.now()
	ar, err := d.activator.Activate(ctx, ref.Base)
	elapsed = d.observe(stepActivate, start)
	if err != nil {
		err = asStepError(stepActivate, causeSession, err)
	}
	rep.Activation = &yamlActivation{
		yamlStepStatus: stepStatus(elapsed, err),
		Command:        ar.Command,
		ExitCode:       ar.ExitCode,
		Dispatched:     ar.Dispatched,
		Output:         ar.Output,
	}
	if err != nil {
		return outcomeTransferredNotActivated, err
	}

	start = d.now()
	err = d.remove(ref.Path)
	elapsed = d.observe(stepCleanup, start)
	if err != nil {
		se := newStepError(stepCleanup, causeDelete, err)
		rep.Cleanup = &yamlCleanup{yamlStepStatus: stepStatus(elapsed, se)}
		return outcomeNotDeleted, se
	}
	rep.Cleanup = &yamlCleanup{yamlStepStatus: stepStatus(elapsed, nil), Deleted: true}
	return outcomeSuccess, nil
}

func (d *deliverer) observe(step string, start time.Time) time.Duration {
	elapsed := d.now().Sub(start)
	if d.metrics != nil {
		d.metrics.observeStep(step, elapsed)
	}
	return elapsed
}

// asStepError keeps a stepError as is and wraps anything else.
func asStepError(step string, cause failureCause, err error) error {
	var se *stepError
	if errors.As(err, &se) {
		return err
	}
	return newStepError(step, cause, err)
}
