// Spimemctl reads and writes the register space of an SPI memory-access peer.
//
// It talks to a Linux spidev device, or to the built-in peer simulator with --sim,
// and provides single transactions, parser resynchronization, a throughput soak
// loop and an interactive shell.
//
// Usage:
//
//	spimemctl [command] [flags]
//
// See 'spimemctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-spimem/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	deviceFlag string
	simFlag    bool
	logLevel   string

	theApp *app
)

var rootCmd = &cobra.Command{
	Use:   "spimemctl",
	Short: "SPI memory-access peer utility",
	Long: `A host utility for peers speaking the SPI memory-access protocol.

Reads and writes peer registers, recovers a desynchronized peer parser and
runs a write/read/verify soak loop with throughput reporting.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "spidev device path (default /dev/spidev0.0)")
	rootCmd.PersistentFlags().BoolVar(&simFlag, "sim", false, "Use the in-memory peer simulator")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("device") {
		cfg.Device = deviceFlag
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	theApp, err = newApp(cfg, simFlag, cmd.OutOrStdout(), logger.GetLogger())

	return err
}

func teardown(*cobra.Command, []string) error {
	if theApp == nil {
		return nil
	}

	return theApp.close()
}
