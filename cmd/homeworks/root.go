package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pior/homeworks"
	"github.com/pior/homeworks/internal/config"
	"github.com/pior/homeworks/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "homeworks",
	Short: "Talk to a Lutron Homeworks controller",
	Long: `homeworks connects to a Lutron Homeworks Series 4/8 processor through a
serial-to-network bridge, a telnet terminal server or a local serial port.

Addresses: host:port, tcp://host:port, telnet://host[:port], serial:///dev/ttyS0?baud=9600`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().String("address", "", "Controller address, overrides the configuration file")
	rootCmd.PersistentFlags().String("credentials", "", "Login credentials (user,password)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the configuration file and applies the flags given on
// the command line on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Address, _ = flags.GetString("address")
	}
	if flags.Changed("credentials") {
		cfg.Credentials, _ = flags.GetString("credentials")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if cfg.Address == "" {
		return nil, nil, fmt.Errorf("no controller address: use --address or set address in %s", path)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logging.New(level), nil
}

// newClient builds a client from the configuration and the flags.
func newClient(cmd *cobra.Command) (*homeworks.Client, *config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := homeworks.NewClient(cfg.ClientConfig(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return client, cfg, logger, nil
}
