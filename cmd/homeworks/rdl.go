package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/homeworks/protocol"
	"github.com/spf13/cobra"
)

const defaultTimeout = 10 * time.Second

var rdlCmd = &cobra.Command{
	Use:     "rdl ADDRESS",
	Short:   "Print the current level of a dimmer",
	Example: `  homeworks rdl 01:01:00:02:04`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		client, _, _, err := newClient(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		stop, err := startClient(cmd.Context(), client, timeout)
		if err != nil {
			return err
		}
		defer stop()

		address := protocol.BracketAddress(args[0])
		if err := client.RequestDimmerLevel(ctx, address); err != nil {
			return err
		}

		for {
			ev, err := client.Next(ctx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("no level reported for %s after %s", address, timeout)
				}
				return err
			}
			if ev.Kind == protocol.KindLightLevelChanged && ev.Address == address {
				fmt.Fprintln(cmd.OutOrStdout(), ev.Level)
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(rdlCmd)
	rdlCmd.Flags().Duration("timeout", defaultTimeout, "How long to wait for the controller and its answer")
}
