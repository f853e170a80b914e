package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-busnet/pkg/validation"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the devices of a running fabric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialControl(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		names, err := client.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent log lines of a running fabric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialControl(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		logs, err := client.Logs()
		if err != nil {
			return err
		}
		if logs != "" {
			fmt.Fprintln(cmd.OutOrStdout(), logs)
		}
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <device> <port> <index>",
	Short: "Read one GPIO pin of a device",
	Long:  `Read the output level of a GPIO pin, e.g. "busnet pin sat B 5". Prints true or false.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		device, port := args[0], strings.ToUpper(args[1])
		if err := validation.ValidateNodeName(device); err != nil {
			return err
		}
		if err := validation.ValidatePortLetter(port); err != nil {
			return err
		}
		index, err := strconv.ParseUint(args[2], 10, 8)
		if err != nil || index > 7 {
			return fmt.Errorf("pin index %q must be 0-7", args[2])
		}

		client, err := dialControl(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		high, err := client.Pin(device, port, uint8(index))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), high)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd, logsCmd, pinCmd)
}
