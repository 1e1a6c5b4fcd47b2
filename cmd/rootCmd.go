package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "rfims-upload [flags] <file>",
	Short: "Deliver an RFIMS-CART archive to the processing server",
	Long: "Waits for Internet connectivity, copies the archive to the remote server over SSH (scp or sftp), " +
		"runs the remote activation script with the file name and deletes the local copy once all of that " +
		"succeeded. On any failure the file is kept and the exit code names the failed step:\n" +
		"  0 delivered, 1 usage or configuration error, 3 no connectivity, 4 transferred but not activated,\n" +
		"  5 not transferred, 6 delivered but the local file could not be deleted.",
	Version:       Version,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if initErr != nil {
			return initErr
		}
		l, err := newLogger(logConfig{Level: cfgLogLevel, Format: cfgLogFormat, File: cfgLogFile}, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := newFileReference(args[0])
		if err != nil {
			return err
		}
		t, err := buildTarget()
		if err != nil {
			return err
		}
		opts := optionsFromFlags()
		if err := opts.validate(); err != nil {
			return err
		}
		if cfgNoop {
			return writePlan(cmd.OutOrStdout(), ref, t, opts)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d := newDeliverer(t, opts, logger)
		o, rep, derr := d.deliver(ctx, ref)

		if cfgReportPath != "" {
			if err := writeReportFile(cfgReportPath, rep); err != nil {
				logger.Error("report not written", zap.String("path", cfgReportPath), zap.Error(err))
			}
		}
		if cfgMetricsPath != "" {
			if err := d.metrics.writeTextfile(cfgMetricsPath); err != nil {
				logger.Error("metrics not written", zap.String("path", cfgMetricsPath), zap.Error(err))
			}
		}
		if o != outcomeSuccess {
			return &outcomeError{outcome: o, err: derr}
		}
		return nil
	},
}
