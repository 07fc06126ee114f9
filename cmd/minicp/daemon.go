package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
)

func newDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the reconciliation loops and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, cleanup, err := agent.InitializeAgent(cfg)
			if err != nil {
				slog.Error("minicp: failed to initialize", "err", err)
				return err
			}
			defer cleanup()

			a.Start(cmd.Context())
			slog.Info("minicp: shutdown complete")
			return nil
		},
	}
}
