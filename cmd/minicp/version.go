package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/strct-org/minicp/ota"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := newOutputFormatter(cmd)
			data := map[string]string{
				"version": version,
				"go":      runtime.Version(),
				"asset":   ota.BinaryName(),
			}
			return out.Print(data, "minicp "+version+" ("+runtime.Version()+", "+ota.BinaryName()+")")
		},
	}
}
