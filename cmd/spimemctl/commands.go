package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Command flags
var (
	expectHex   string
	resyncBytes int
	iterations  int
	reportEvery int
	benchResync bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(resyncCmd)
	rootCmd.AddCommand(unsyncCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(shellCmd)

	readCmd.Flags().StringVar(&expectHex, "expect", "", "Verify the read data against this hex string")
	resyncCmd.Flags().IntVar(&resyncBytes, "bytes", 0, "Peer buffer size to flush (default from config)")
	benchCmd.Flags().IntVar(&iterations, "iterations", 0, "Number of passes, 0 runs until interrupted")
	benchCmd.Flags().IntVar(&reportEvery, "report-every", 100, "Passes between throughput reports")
	benchCmd.Flags().BoolVar(&benchResync, "resync", true, "Unsync and resync the peer every pass")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read and clear the peer status byte",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return theApp.status()
	},
}

var readCmd = &cobra.Command{
	Use:   "read ADDR LEN",
	Short: "Read LEN bytes at ADDR",
	Example: `  # Read the 5-byte test register
  spimemctl read 0xF020 5

  # Read and verify
  spimemctl read 0xF020 5 --expect fffefdfcfb`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return theApp.read(args[0], args[1], expectHex)
	},
}

var writeCmd = &cobra.Command{
	Use:     "write ADDR HEX",
	Short:   "Write hex bytes at ADDR",
	Example: `  spimemctl write 0xF020 fffefdfcfb`,
	Args:    cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		return theApp.write(args[0], args[1])
	},
}

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Force the peer parser back to its idle state",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return theApp.resync(resyncBytes)
	},
}

var unsyncCmd = &cobra.Command{
	Use:   "unsync",
	Short: "Deliberately desynchronize the peer parser (for testing resync)",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return theApp.unsync()
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the write/read/verify soak loop",
	Long: `Run the write/read/verify soak loop.

Every pass writes a 512-byte vector at 0x1000 and a 5-byte vector at 0xF020,
reads both back and verifies them. The loop stops on a data mismatch, after
--iterations passes, or on interrupt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bc := theApp.cfg.Bench
		if cmd.Flags().Changed("iterations") {
			bc.Iterations = iterations
		}
		if cmd.Flags().Changed("report-every") {
			bc.ReportEvery = reportEvery
		}
		if cmd.Flags().Changed("resync") {
			bc.Resync = benchResync
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		_, err := theApp.bench(ctx, bc)

		return err
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		newShell(theApp).Run()
		return nil
	},
}
