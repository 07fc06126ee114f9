package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/internal/agent"
	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/logger"
)

// Set with -ldflags "-X main.version=1.2.3".
var version = "dev"

// cfg is loaded once flags are parsed.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		var r reportedError
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, "minicp:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "minicp",
		Short:         "Wi-Fi, access point and Bluetooth control for a single-board computer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			dev, _ := cmd.Flags().GetBool("dev")
			cfg = config.Load(dev, version)

			level := cfg.LogLevel
			if cmd.Name() != "daemon" && os.Getenv("MINICP_LOG_LEVEL") == "" {
				level = "warn"
			}
			logger.Init(cfg.IsDev, level)
			return nil
		},
	}
	root.PersistentFlags().Bool("dev", false, "simulate nmcli, bluetoothctl and the firewall")
	root.PersistentFlags().Bool("json", false, "print JSON instead of text")

	root.AddCommand(
		newDaemonCommand(),
		newStatusCommand(),
		newWiFiCommand(),
		newAPCommand(),
		newBluetoothCommand(),
		newHistoryCommand(),
		newVersionCommand(),
	)
	return root
}

// withAgent assembles the device for one command and tears it down after.
func withAgent(cmd *cobra.Command, fn func(ctx context.Context, a *agent.Agent, out *outputFormatter) error) error {
	out := newOutputFormatter(cmd)
	a, cleanup, err := agent.InitializeAgent(cfg)
	if err != nil {
		return out.Error("failed to initialize", err)
	}
	defer cleanup()

	if err := fn(cmd.Context(), a, out); err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return out.Error(errs.Message(err), nil)
		}
		return out.Error("command failed", err)
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
}
