package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
	"github.com/strct-org/minicp/internal/features/overview"
	"github.com/strct-org/minicp/internal/features/wifi"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show every adapter's role, paired Bluetooth devices and internet reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				ov := a.Overview.Collect(ctx)
				return out.Print(ov, renderOverview(ov))
			})
		},
	}
}

func renderOverview(ov overview.Overview) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Wi-Fi adapters") + "\n")
	if len(ov.Adapters) == 0 {
		b.WriteString(idleStyle.Render("  none found") + "\n")
	}
	for _, st := range ov.Adapters {
		b.WriteString("  " + row(st.Adapter, renderRole(st)) + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("Bluetooth") + "\n")
	if len(ov.Bluetooth) == 0 {
		b.WriteString(idleStyle.Render("  no paired devices") + "\n")
	}
	for _, d := range ov.Bluetooth {
		state := idleStyle.Render("paired")
		if d.Connected {
			state = goodStyle.Render("connected")
		}
		b.WriteString("  " + row(d.MAC, d.Name+"  "+state) + "\n")
	}

	b.WriteString("\n" + row("Internet", yesNo(ov.Internet.Online)))
	return boxStyle.Render(b.String())
}

func renderRole(st wifi.Status) string {
	switch st.Role {
	case wifi.RoleClient:
		return goodStyle.Render("client") + " → " + st.SSID
	case wifi.RoleAP:
		return goodStyle.Render("access point") + " " + st.SSID
	default:
		return idleStyle.Render("idle")
	}
}
