package main

import (
	"io"
	"os"
	"strings"
	"time"

	"pkt.systems/potatopad"
	"pkt.systems/potatopad/httpapi"
	"pkt.systems/potatopad/internal/appconfig"
	"pkt.systems/potatopad/internal/jsrun"
	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/potatopad/sshserver"
)

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:     cfg.Addr,
		BaseURL:  cfg.BaseURL,
		BasePath: cfg.BasePath,
		History:  cfg.History,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
	}
}

func toKVConfig(cfg appconfig.Config) kv.Config {
	return kv.Config{
		Backend:  cfg.Storage.Backend,
		Path:     cfg.Storage.Path,
		StateDir: cfg.StateDir,
	}
}

func toPlaygroundConfig(cfg appconfig.Config, fragment string) potatopad.PlaygroundConfig {
	out := potatopad.PlaygroundConfig{
		Runner: jsrun.Config{MaxCallStackSize: cfg.Runner.MaxCallStack},
	}
	out.Core.Fragment = fragment
	if cfg.Runner.TimeoutSeconds > 0 {
		out.RunTimeout = time.Duration(cfg.Runner.TimeoutSeconds) * time.Second
	}
	return out
}

// publicBaseURL is the address shared links point at.
func publicBaseURL(cfg appconfig.HTTPConfig) string {
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		return base
	}
	addr := cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + cfg.BasePath + "/"
}

// readSource reads script text from a file argument, or stdin for "-" and no argument.
func readSource(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}
