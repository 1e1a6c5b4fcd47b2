package cmd

import "gopkg.in/yaml.v3"

// targetFile is the optional YAML document supplying connection defaults.
// Values set by flags or environment variables take precedence.
type targetFile struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	User                  string `yaml:"user"`
	KeyPath               string `yaml:"key"`
	KnownHosts            string `yaml:"known_hosts"`
	RemoteDir             string `yaml:"remote_dir"`
	ActivationScript      string `yaml:"activation_script"`
	ActivationInterpreter string `yaml:"activation_interpreter"`
	TransferProtocol      string `yaml:"transfer_protocol"`
}

// UnmarshalYAML accepts the legacy key names used by older deployment
// configs (username, remote_folder, server_script) next to the current ones.
func (tf *targetFile) UnmarshalYAML(node *yaml.Node) error {
	type plain targetFile
	var aux struct {
		plain        `yaml:",inline"`
		Username     string `yaml:"username"`
		RemoteFolder string `yaml:"remote_folder"`
		ServerScript string `yaml:"server_script"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	*tf = targetFile(aux.plain)
	if tf.User == "" {
		tf.User = aux.Username
	}
	if tf.RemoteDir == "" {
		tf.RemoteDir = aux.RemoteFolder
	}
	if tf.ActivationScript == "" {
		tf.ActivationScript = aux.ServerScript
	}
	return nil
}
