package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
	"github.com/strct-org/minicp/internal/features/bluetooth"
)

func newBluetoothCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bt",
		Aliases: []string{"bluetooth"},
		Short:   "Discover, pair and connect Bluetooth devices",
	}

	scan := &cobra.Command{
		Use:   "scan",
		Short: "Listen for nearby devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seconds, _ := cmd.Flags().GetInt("seconds")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				devs := a.Bluetooth.Scan(ctx, time.Duration(seconds)*time.Second)
				return out.Print(devs, renderDevices(devs, "no devices found"))
			})
		},
	}
	scan.Flags().Int("seconds", 10, "how long to listen")
	cmd.AddCommand(scan)

	cmd.AddCommand(&cobra.Command{
		Use:   "paired",
		Short: "List paired devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				devs := a.Bluetooth.Paired(ctx)
				return out.Print(devs, renderDevices(devs, "no paired devices"))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info MAC",
		Short: "Report whether a device is connected",
		Args:  exactArgs(1, "minicp bt info AA:BB:CC:DD:EE:FF"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				connected := a.Bluetooth.IsConnected(ctx, args[0])
				return out.Print(map[string]any{"mac": args[0], "connected": connected}, row(args[0], yesNo(connected)))
			})
		},
	})

	actions := []struct {
		use, short, done string
		fn               func(*bluetooth.Manager) func(context.Context, string) error
	}{
		{"pair", "Pair and trust a device", "paired", func(m *bluetooth.Manager) func(context.Context, string) error { return m.Pair }},
		{"connect", "Open an audio connection", "connected", func(m *bluetooth.Manager) func(context.Context, string) error { return m.Connect }},
		{"disconnect", "Close the connection", "disconnected", func(m *bluetooth.Manager) func(context.Context, string) error { return m.Disconnect }},
		{"remove", "Forget a device", "removed", func(m *bluetooth.Manager) func(context.Context, string) error { return m.Remove }},
	}
	for _, act := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   act.use + " MAC",
			Short: act.short,
			Args:  exactArgs(1, "minicp bt "+act.use+" AA:BB:CC:DD:EE:FF"),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
					if err := act.fn(a.Bluetooth)(ctx, args[0]); err != nil {
						return err
					}
					return out.Success(args[0] + " " + act.done)
				})
			},
		})
	}

	return cmd
}

func renderDevices(devs []bluetooth.Device, empty string) string {
	if len(devs) == 0 {
		return idleStyle.Render(empty)
	}
	var b strings.Builder
	for _, d := range devs {
		fmt.Fprintf(&b, "%s  %s\n", d.MAC, d.Name)
	}
	return b.String()
}
