package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
)

func newWiFiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wifi",
		Short: "Join and inspect Wi-Fi networks on the client adapter",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "adapters",
		Short: "List Wi-Fi adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				adapters := a.WiFi.ListAdapters(ctx)
				if adapters == nil {
					adapters = []string{}
				}
				return out.Print(adapters, strings.Join(adapters, "\n"))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Scan for networks, strongest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				nets := a.WiFi.ScanNetworks(ctx)
				var b strings.Builder
				for _, n := range nets {
					security := n.Security
					if security == "" {
						security = "open"
					}
					fmt.Fprintf(&b, "%3d%%  %-32s %s\n", n.Signal, n.SSID, security)
				}
				if len(nets) == 0 {
					b.WriteString(idleStyle.Render("no networks found"))
				}
				return out.Print(nets, b.String())
			})
		},
	})

	status := &cobra.Command{
		Use:   "status",
		Short: "Show an adapter's role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			adapter, _ := cmd.Flags().GetString("adapter")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if adapter == "" {
					adapter = a.WiFi.Interface()
				}
				st := a.WiFi.StatusOf(ctx, adapter)
				return out.Print(st, row(st.Adapter, renderRole(st)))
			})
		},
	}
	status.Flags().String("adapter", "", "adapter to inspect (default: the client adapter)")
	cmd.AddCommand(status)

	connect := &cobra.Command{
		Use:   "connect SSID",
		Short: "Join a WPA network and remember it",
		Args:  exactArgs(1, "minicp wifi connect SSID --psk PASSWORD"),
		RunE: func(cmd *cobra.Command, args []string) error {
			psk, _ := cmd.Flags().GetString("psk")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if err := a.WiFi.Connect(ctx, args[0], psk); err != nil {
					return err
				}
				return out.Success(fmt.Sprintf("connected %s to %s", a.WiFi.Interface(), args[0]))
			})
		},
	}
	connect.Flags().String("psk", "", "network password (at least 8 characters)")
	cmd.AddCommand(connect)

	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Bring down the active connection on the client adapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if err := a.WiFi.Disconnect(ctx); err != nil {
					return err
				}
				return out.Success("disconnected " + a.WiFi.Interface())
			})
		},
	})

	return cmd
}
