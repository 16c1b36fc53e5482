package main

import (
	"fmt"
	"strconv"

	"github.com/pior/homeworks/protocol"
	"github.com/spf13/cobra"
)

var fadedimCmd = &cobra.Command{
	Use:   "fadedim ADDRESS INTENSITY",
	Short: "Fade a dimmer to an intensity",
	Example: `  homeworks fadedim 01:01:00:02:04 75
  homeworks fadedim "[01:01:00:02:04]" 0 --fade 10`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		intensity, err := strconv.Atoi(args[1])
		if err != nil || intensity < 0 || intensity > 100 {
			return fmt.Errorf("invalid intensity %q: must be between 0 and 100", args[1])
		}
		fade, _ := cmd.Flags().GetInt("fade")
		delay, _ := cmd.Flags().GetInt("delay")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if fade < 0 || delay < 0 {
			return fmt.Errorf("fade and delay must not be negative")
		}

		client, _, logger, err := newClient(cmd)
		if err != nil {
			return err
		}

		stop, err := startClient(cmd.Context(), client, timeout)
		if err != nil {
			return err
		}

		address := protocol.BracketAddress(args[0])
		if err := client.FadeDim(cmd.Context(), intensity, fade, delay, address); err != nil {
			stop()
			return err
		}
		logger.Info("fade sent", "address", address, "intensity", intensity, "fade", fade, "delay", delay)

		return stop()
	},
}

func init() {
	rootCmd.AddCommand(fadedimCmd)
	fadedimCmd.Flags().Int("fade", 0, "Fade time in seconds")
	fadedimCmd.Flags().Int("delay", 0, "Delay before the fade starts, in seconds")
	fadedimCmd.Flags().Duration("timeout", defaultTimeout, "How long to wait for the controller")
}
