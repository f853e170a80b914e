package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/server"
)

var rootCmd = &cobra.Command{
	Use:   "busnet",
	Short: "busnet connects simulated microcontrollers on a virtual bus",
	Long: `busnet runs a set of simulated devices on a shared virtual bus, bridges the bus
to TCP clients and publishes bus traffic and GPIO changes on an event stream.

Start a fabric with "busnet up", then inspect it with list, logs, pin, rx and monitor.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("control", "tcp://127.0.0.1:6711", "Control endpoint of a running fabric")
	rootCmd.PersistentFlags().String("events", "tcp://127.0.0.1:6712", "Event stream endpoint of a running fabric")
	rootCmd.PersistentFlags().String("transport", "mangos", "Socket transport for control and events")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().Duration("timeout", control.DefaultTimeout, "Control request timeout")
}

// dialControl connects to the control endpoint named by the global flags.
func dialControl(cmd *cobra.Command) (*control.Client, error) {
	addr, _ := cmd.Flags().GetString("control")
	transport, _ := cmd.Flags().GetString("transport")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return control.Dial(transport, addr, timeout)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return server.WithSignals(cmd.Context(), nil, nil)
}

// logLevel picks the --log-level flag over the configured level.
func logLevel(cmd *cobra.Command, configured string) logging.Level {
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		return logging.ParseLevel(flag)
	}
	return logging.ParseLevel(configured)
}

var startedAt = time.Now()
