package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/potatopad/internal/kv"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("runner.max_call_stack", cfg.Runner.MaxCallStack)
	v.SetDefault("runner.timeout_seconds", cfg.Runner.TimeoutSeconds)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.base_url", cfg.HTTP.BaseURL)
	v.SetDefault("http.base_path", cfg.HTTP.BasePath)
	v.SetDefault("http.history", cfg.HTTP.History)
	v.SetDefault("ssh.enabled", cfg.SSH.Enabled)
	v.SetDefault("ssh.addr", cfg.SSH.Addr)
	v.SetDefault("ssh.host_key_path", cfg.SSH.HostKeyPath)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateStorageConfig(cfg.Storage); err != nil {
		return Config{}, err
	}
	if err := validateRunnerConfig(cfg.Runner); err != nil {
		return Config{}, err
	}
	if err := validateHTTPConfig(cfg.HTTP); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateStorageConfig(cfg StorageConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", kv.BackendMemory, kv.BackendFile, kv.BackendSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported storage.backend %q", cfg.Backend)
	}
}

func validateRunnerConfig(cfg RunnerConfig) error {
	if cfg.MaxCallStack < 0 {
		return fmt.Errorf("runner.max_call_stack must not be negative")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("runner.timeout_seconds must not be negative")
	}
	return nil
}

func validateHTTPConfig(cfg HTTPConfig) error {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("http.base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	basePath := strings.TrimSpace(cfg.BasePath)
	if cfg.History < 0 {
		return fmt.Errorf("http.history must not be negative")
	}
	if basePath != "" {
		if strings.Contains(basePath, "://") {
			return fmt.Errorf("http.base_path must be a path prefix, not a URL")
		}
		if strings.ContainsAny(basePath, "?#") {
			return fmt.Errorf("http.base_path must not include query or fragment")
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Storage.Path = expandEnv(cfg.Storage.Path)
	cfg.SSH.HostKeyPath = expandEnv(cfg.SSH.HostKeyPath)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
