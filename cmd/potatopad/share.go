package main

import (
	"fmt"
	"strings"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/potatopad/internal/appconfig"
	"pkt.systems/potatopad/internal/share"
)

func newShareCmd() *cobra.Command {
	var cfgPath string
	var baseURL string
	var qr bool
	var decode bool
	cmd := &cobra.Command{
		Use:   "share [file|-]",
		Short: "Print a shareable link for a script",
		Long:  "Print a shareable link for a script. With --decode the argument is a link and its code is printed instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if decode {
				input, err := readSource(args, cmd.InOrStdin())
				if err != nil {
					return err
				}
				code, err := share.Decode(share.FragmentFromURL(strings.TrimSpace(input)))
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(out, code)
				return err
			}
			base := baseURL
			if base == "" {
				cfg, err := appconfig.Load(cfgPath)
				if err != nil {
					return err
				}
				base = publicBaseURL(cfg.HTTP)
			}
			code, err := readSource(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			link, err := share.Link(base, code)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, link); err != nil {
				return err
			}
			if qr {
				qrterminal.GenerateHalfBlock(link, qrterminal.L, out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "base URL of the playground (defaults to http.base_url)")
	cmd.Flags().BoolVar(&qr, "qr", false, "also print the link as a QR code")
	cmd.Flags().BoolVar(&decode, "decode", false, "decode a shared link back into code")
	return cmd
}
