package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadTargetFile reads a YAML target file. An empty document yields an empty
// targetFile, leaving every default in place.
func loadTargetFile(p string) (*targetFile, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	tf := &targetFile{}
	if err := yaml.Unmarshal(b, tf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p, err)
	}
	if tf.Port < 0 || tf.Port > 65535 {
		return nil, fmt.Errorf("parse %s: port %d is out of range", p, tf.Port)
	}
	return tf, nil
}
