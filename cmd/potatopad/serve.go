package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/potatopad"
	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/internal/appconfig"
	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var fragment string
	var withSSH bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the playground servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if withSSH {
				cfg.SSH.Enabled = true
			}

			store, err := kv.Open(toKVConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("kv close failed", "err", err)
				}
			}()
			logger.Info("kv store opened", "backend", cfg.Storage.Backend)

			serverCfg := potatopad.ServerConfig{
				Playground: toPlaygroundConfig(cfg, fragment),
				HTTP:       toHTTPConfig(cfg.HTTP),
				SSH:        toSSHConfig(cfg.SSH),
			}
			serverDeps := potatopad.ServerDeps{
				Core: core.Deps{KV: store, Logger: logger},
			}
			opts := []potatopad.ServerOption{potatopad.WithHTTP()}
			if cfg.SSH.Enabled {
				opts = append(opts, potatopad.WithSSH())
			}
			server, err := potatopad.New(serverCfg, serverDeps, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr, "base_url", publicBaseURL(cfg.HTTP))
			if cfg.SSH.Enabled {
				logger.Info("ssh server listening", "addr", serverCfg.SSH.Addr)
			}
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&fragment, "fragment", "", "shared link or fragment to seed the editor with")
	cmd.Flags().BoolVar(&withSSH, "ssh", false, "enable the SSH console regardless of config")
	return cmd
}
