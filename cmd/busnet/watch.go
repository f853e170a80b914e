package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-busnet/pkg/events"
	"github.com/dd0wney/cluso-busnet/pkg/monitor"
	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

var rxCmd = &cobra.Command{
	Use:   "rx <device>",
	Short: "Print the bus output of one device",
	Long:  `Print the printable ASCII of everything a device transmits on the bus until interrupted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		device := args[0]
		if err := validation.ValidateNodeName(device); err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("events")
		transport, _ := cmd.Flags().GetString("transport")
		stream, err := events.Dial(transport, addr, events.BusTopic(device))
		if err != nil {
			return err
		}
		defer stream.Close()

		ctx, stop := signalContext(cmd)
		defer stop()
		return printBus(ctx, stream, cmd.OutOrStdout())
	},
}

// printBus writes printable bytes and newlines of every event until ctx is done.
func printBus(ctx context.Context, src monitor.Source, w io.Writer) error {
	for {
		ev, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		out := make([]byte, 0, len(ev.Payload))
		for _, c := range ev.Payload {
			if c == '\n' || (c >= 0x20 && c < 0x7f) {
				out = append(out, c)
			}
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show a live dashboard of a running fabric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("events")
		transport, _ := cmd.Flags().GetString("transport")
		stream, err := events.Dial(transport, addr)
		if err != nil {
			return err
		}
		defer stream.Close()

		ctx, stop := signalContext(cmd)
		defer stop()
		return monitor.Run(ctx, stream, fmt.Sprintf("busnet monitor @ %s", addr))
	},
}

func init() {
	rootCmd.AddCommand(rxCmd, monitorCmd)
}
