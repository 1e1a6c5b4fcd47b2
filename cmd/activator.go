package cmd

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// defaultActivationTimeout bounds a waited-for activation command.
const defaultActivationTimeout = 10 * time.Minute

// activationResult describes what the remote activation reported.
type activationResult struct {
	Command    string
	ExitCode   int
	Output     string
	Dispatched bool
}

// remoteActivator tells the server to process a delivered file by running
// the activation script with the file's base name.
type remoteActivator struct {
	target  transferTarget
	wait    bool
	timeout time.Duration
	log     *zap.Logger
}

func newRemoteActivator(t transferTarget, wait bool, timeout time.Duration, log *zap.Logger) *remoteActivator {
	return &remoteActivator{target: t, wait: wait, timeout: timeout, log: log}
}

// command builds `<interpreter...> <script> <base>`. The interpreter may
// carry its own arguments, e.g. "python3 -u".
func (a *remoteActivator) command(base string) string {
	words := strings.Fields(a.target.ActivationInterpreter)
	words = append(words, a.target.ActivationScript, base)
	return shellJoin(words...)
}

// Activate opens its own SSH connection under the activation host key policy
// and runs the activation command. When waiting, a non-zero exit status is a
// failure. Activating the same base name twice is allowed.
func (a *remoteActivator) Activate(ctx context.Context, base string) (activationResult, error) {
	res := activationResult{Command: a.command(base), ExitCode: -1}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	client, err := dialSSHFunc(ctx, a.target, a.target.ActivationHostKey, a.log)
	if err != nil {
		return res, newStepError(stepActivate, classifyConnError(err), err)
	}
	defer func() {
		if client != nil {
			_ = client.Close()
		}
	}()
	sc := sshClientWrapper{client}

	a.log.Info("running activation command", zap.String("command", res.Command), zap.Bool("wait", a.wait))

	if !a.wait {
		if err := dispatchRemoteCommandFunc(ctx, sc, res.Command); err != nil {
			return res, newStepError(stepActivate, classifyCtxError(ctx, err, causeSession), err)
		}
		res.Dispatched = true
		return res, nil
	}

	out, code, err := runRemoteCommandFunc(ctx, sc, res.Command)
	res.Output = string(out)
	res.ExitCode = code
	if err != nil {
		cause := classifyCtxError(ctx, err, causeSession)
		if code > 0 {
			cause = causeRemoteExit
		}
		a.log.Debug("activation output", zap.String("output", res.Output))
		return res, newStepError(stepActivate, cause, err)
	}
	res.Dispatched = true
	return res, nil
}
