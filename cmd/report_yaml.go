package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// deliveryReport is the YAML document written by --report. Sections for steps
// that never ran are omitted.
type deliveryReport struct {
	File       string          `yaml:"file"`
	Target     string          `yaml:"target"`
	Started    string          `yaml:"started"`
	Finished   string          `yaml:"finished,omitempty"`
	Outcome    string          `yaml:"outcome,omitempty"`
	ExitCode   int             `yaml:"exit_code"`
	Probe      *yamlProbe      `yaml:"probe,omitempty"`
	Transfer   *yamlTransfer   `yaml:"transfer,omitempty"`
	Activation *yamlActivation `yaml:"activation,omitempty"`
	Cleanup    *yamlCleanup    `yaml:"cleanup,omitempty"`
}

// yamlStepStatus is shared by every step section.
type yamlStepStatus struct {
	OK       bool   `yaml:"ok"`
	Duration string `yaml:"duration,omitempty"`
	Cause    string `yaml:"cause,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

type yamlProbe struct {
	yamlStepStatus `yaml:",inline"`
	URL            string `yaml:"url"`
	Attempts       int    `yaml:"attempts"`
}

type yamlTransfer struct {
	yamlStepStatus `yaml:",inline"`
	Protocol       string `yaml:"protocol,omitempty"`
	RemotePath     string `yaml:"remote_path,omitempty"`
	Bytes          int64  `yaml:"bytes"`
}

type yamlActivation struct {
	yamlStepStatus `yaml:",inline"`
	Command        string `yaml:"command,omitempty"`
	ExitCode       int    `yaml:"exit_code"`
	Dispatched     bool   `yaml:"dispatched"`
	Output         string `yaml:"output,omitempty"`
}

type yamlCleanup struct {
	yamlStepStatus `yaml:",inline"`
	Deleted        bool `yaml:"deleted"`
}

func newDeliveryReport(file, target string, started time.Time) *deliveryReport {
	return &deliveryReport{
		File:    file,
		Target:  target,
		Started: started.Format(time.RFC3339),
	}
}

// finish stamps the terminal outcome.
func (r *deliveryReport) finish(o outcome, at time.Time) {
	r.Outcome = o.String()
	r.ExitCode = o.exitCode()
	r.Finished = at.Format(time.RFC3339)
}

func stepStatus(d time.Duration, err error) yamlStepStatus {
	s := yamlStepStatus{OK: err == nil, Duration: d.Round(time.Millisecond).String()}
	if err != nil {
		s.Cause = string(causeOf(err))
		s.Error = err.Error()
	}
	return s
}

// writeYAMLReport serializes the report with two-space indentation.
func writeYAMLReport(w io.Writer, r *deliveryReport) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		_ = enc.Close()
		return err
	}
	_ = enc.Close()
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(buf.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

// writeReportFile creates parent directories and replaces path.
func writeReportFile(path string, r *deliveryReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := writeYAMLReport(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
