package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
	"github.com/strct-org/minicp/internal/features/router"
)

func newAPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ap",
		Short: "Run an access point and share the uplink",
	}
	cmd.PersistentFlags().String("iface", "", "adapter for the access point (default: MINICP_AP_IFACE)")

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the access point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			req := router.APRequest{}
			req.Interface, _ = f.GetString("iface")
			req.SSID, _ = f.GetString("ssid")
			req.PSK, _ = f.GetString("psk")
			req.Band, _ = f.GetString("band")
			req.Channel, _ = f.GetInt("channel")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if err := a.Router.StartAP(ctx, req); err != nil {
					return err
				}
				iface := req.Interface
				if iface == "" {
					iface = a.Router.Interface()
				}
				return out.Success(fmt.Sprintf("access point %s running on %s", req.SSID, iface))
			})
		},
	}
	start.Flags().String("ssid", "", "network name")
	start.Flags().String("psk", "", "password (at least 8 characters)")
	start.Flags().String("band", "", `"bg" (2.4 GHz) or "a" (5 GHz)`)
	start.Flags().Int("channel", 0, "radio channel (default: 6 for bg, 36 for a)")
	cmd.AddCommand(start)

	cmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop and delete the access point profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iface, _ := cmd.Flags().GetString("iface")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if err := a.Router.StopAP(ctx, iface); err != nil {
					return err
				}
				return out.Success("access point stopped")
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the access point is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iface, _ := cmd.Flags().GetString("iface")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if iface == "" {
					iface = a.Router.Interface()
				}
				running := a.Router.IsRunning(ctx, iface)
				return out.Print(map[string]any{"adapter": iface, "running": running}, row(iface, yesNo(running)))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clients",
		Short: "List stations seen on the access point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iface, _ := cmd.Flags().GetString("iface")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				clients := a.Router.ConnectedDevices(ctx, iface)
				var b strings.Builder
				for _, c := range clients {
					fmt.Fprintf(&b, "%-16s %s\n", c.IP, c.MAC)
				}
				if len(clients) == 0 {
					b.WriteString(idleStyle.Render("no clients"))
				}
				return out.Print(clients, b.String())
			})
		},
	})

	share := &cobra.Command{
		Use:   "share",
		Short: "NAT the access point's traffic through an uplink adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			iface, _ := cmd.Flags().GetString("iface")
			uplink, _ := cmd.Flags().GetString("uplink")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if iface == "" {
					iface = a.Router.Interface()
				}
				if uplink == "" {
					uplink = cfg.UplinkInterface
				}
				if err := a.Router.EnableInternetSharing(ctx, iface, uplink); err != nil {
					return err
				}
				return out.Success(fmt.Sprintf("sharing %s through %s", iface, uplink))
			})
		},
	}
	share.Flags().String("uplink", "", "internet-facing adapter (default: MINICP_UPLINK_IFACE)")
	cmd.AddCommand(share)

	return cmd
}
