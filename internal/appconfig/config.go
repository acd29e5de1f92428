package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/potatopad/internal/jsrun"
	"pkt.systems/potatopad/internal/kv"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string        `mapstructure:"state_dir" yaml:"state_dir"`
	Storage       StorageConfig `mapstructure:"storage" yaml:"storage"`
	Runner        RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	HTTP          HTTPConfig    `mapstructure:"http" yaml:"http"`
	SSH           SSHConfig     `mapstructure:"ssh" yaml:"ssh"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// StorageConfig selects the key-value backend for persisted settings.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// RunnerConfig tunes script execution.
type RunnerConfig struct {
	MaxCallStack   int `mapstructure:"max_call_stack" yaml:"max_call_stack"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
	History  int    `mapstructure:"history" yaml:"history"`
}

// SSHConfig configures the SSH console.
type SSHConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".potatopad", "state"),
		Storage: StorageConfig{
			Backend: kv.BackendFile,
			Path:    "",
		},
		Runner: RunnerConfig{
			MaxCallStack:   jsrun.DefaultMaxCallStackSize,
			TimeoutSeconds: 0,
		},
		HTTP: HTTPConfig{
			Addr:     ":27480",
			BaseURL:  "",
			BasePath: "",
			History:  1000,
		},
		SSH: SSHConfig{
			Enabled:     false,
			Addr:        "127.0.0.1:27422",
			HostKeyPath: filepath.Join(home, ".potatopad", "ssh_host_key"),
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".potatopad", "config.yaml"), nil
}
