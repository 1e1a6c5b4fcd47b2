package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// deliveryMetrics holds the gauges written to the node exporter textfile
// collector after each run. A private registry keeps Go runtime collectors
// out of the file.
type deliveryMetrics struct {
	reg *prometheus.Registry

	probeAttempts prometheus.Gauge
	bytesSent     prometheus.Gauge
	exitCode      prometheus.Gauge
	lastRun       prometheus.Gauge
	stepDuration  *prometheus.GaugeVec
	stepFailures  *prometheus.GaugeVec
}

func newDeliveryMetrics() *deliveryMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &deliveryMetrics{
		reg: reg,
		probeAttempts: f.NewGauge(prometheus.GaugeOpts{
			Name: "rfims_upload_probe_attempts",
			Help: "Connectivity probe attempts used by the last run",
		}),
		bytesSent: f.NewGauge(prometheus.GaugeOpts{
			Name: "rfims_upload_bytes_sent",
			Help: "Bytes copied to the remote host by the last run",
		}),
		exitCode: f.NewGauge(prometheus.GaugeOpts{
			Name: "rfims_upload_last_exit_code",
			Help: "Exit code of the last run",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "rfims_upload_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		stepDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfims_upload_step_duration_seconds",
			Help: "Wall time spent in each delivery step during the last run",
		}, []string{"step"}),
		stepFailures: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rfims_upload_step_failed",
			Help: "1 when the step failed in the last run, labelled by cause",
		}, []string{"step", "cause"}),
	}
}

func (m *deliveryMetrics) observeStep(step string, d time.Duration) {
	m.stepDuration.WithLabelValues(step).Set(d.Seconds())
}

func (m *deliveryMetrics) observeFailure(step string, cause failureCause) {
	m.stepFailures.WithLabelValues(step, string(cause)).Set(1)
}

func (m *deliveryMetrics) observeOutcome(o outcome, at time.Time) {
	m.exitCode.Set(float64(o.exitCode()))
	m.lastRun.Set(float64(at.Unix()))
}

// writeTextfile atomically replaces path with the current metrics.
func (m *deliveryMetrics) writeTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
