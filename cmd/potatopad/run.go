package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/potatopad"
	"pkt.systems/potatopad/core"
	"pkt.systems/potatopad/internal/appconfig"
	"pkt.systems/potatopad/internal/format"
	"pkt.systems/potatopad/internal/kv"
	"pkt.systems/potatopad/internal/share"
	"pkt.systems/potatopad/schema"
	"pkt.systems/pslog"
)

var errRunFailed = errors.New("script failed")

func newRunCmd() *cobra.Command {
	var cfgPath string
	var link string
	var color bool
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Run a script headlessly and print its console output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if link != "" && len(args) > 0 {
				return fmt.Errorf("%w: --link and a file argument are mutually exclusive", schema.ErrInvalidRequest)
			}
			// The store falls back to the default code on a bad fragment; an
			// explicit link must not.
			if link != "" {
				if _, err := share.Decode(share.FragmentFromURL(link)); err != nil {
					return fmt.Errorf("run link: %w", err)
				}
			}
			pad, err := potatopad.NewPlayground(toPlaygroundConfig(cfg, link), core.Deps{
				KV:     kv.NewMemory(),
				Logger: logger,
			})
			if err != nil {
				return err
			}
			if link != "" {
				// The editor was seeded from the link when it was attached.
				err = pad.Store.RunCode(cmd.Context())
			} else {
				var code string
				code, err = readSource(args, cmd.InOrStdin())
				if err != nil {
					return err
				}
				err = pad.Run(cmd.Context(), code)
			}
			if err != nil {
				return err
			}
			var renderer format.Renderer = format.NewPlainRenderer()
			if color {
				renderer = format.NewANSIRenderer(pad.Store.Theme())
			}
			logs := pad.Store.Logs()
			if err := printLogs(cmd.OutOrStdout(), cmd.ErrOrStderr(), renderer, logs); err != nil {
				return err
			}
			if format.Failed(logs) {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&link, "link", "", "run the code carried by a shared link")
	cmd.Flags().BoolVar(&color, "color", isTerminal(os.Stdout), "colorize output")
	return cmd
}

func printLogs(stdout, stderr io.Writer, renderer format.Renderer, logs []schema.LogEntry) error {
	for _, entry := range logs {
		w := stdout
		if format.ToStderr(entry.Kind) {
			w = stderr
		}
		for _, line := range renderer.FormatEntry(entry) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
