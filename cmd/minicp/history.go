package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent role changes and reconciliation results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withAgent(cmd, func(ctx context.Context, a *agent.Agent, out *outputFormatter) error {
				if limit <= 0 {
					limit = cfg.HistoryLimit
				}
				list, err := a.History.Recent(ctx, limit)
				if err != nil {
					return err
				}

				var b strings.Builder
				for _, e := range list {
					result := goodStyle.Render("ok  ")
					if !e.OK {
						result = badStyle.Render("fail")
					}
					fmt.Fprintf(&b, "%s  %s  %-9s %-10s %-17s %s\n",
						e.At.Local().Format(time.DateTime), result, e.Component, e.Action, e.Subject, e.Detail)
				}
				if len(list) == 0 {
					b.WriteString(idleStyle.Render("no events recorded"))
				}
				return out.Print(list, b.String())
			})
		},
	}
	cmd.Flags().Int("limit", 0, "number of events (default: MINICP_HISTORY_LIMIT)")
	return cmd
}
