// Package cmd provides the command-line interface of dramcal.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dramcal",
	Short: "dramcal brings up and calibrates DRAM behind an FPGA controller.",
	Long: `dramcal drives the DFI injector and PHY of an FPGA memory ` +
		`controller from a host. It reaches the registers through a serial ` +
		`bridge, a TCP bridge, a physical memory window or a simulated ` +
		`device, and can initialize the DRAM, calibrate the read delays and ` +
		`test the memory.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyEnv,
}

// envFlags maps flags to the environment variables that provide their
// defaults.
var envFlags = map[string]string{
	"port":      "DRAMCAL_PORT",
	"baud":      "DRAMCAL_BAUD",
	"ddr-base":  "DRAMCAL_DDR_BASE",
	"core-base": "DRAMCAL_CORE_BASE",
	"phy-base":  "DRAMCAL_PHY_BASE",
	"devmem":    "DRAMCAL_DEVMEM",
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("port", "", "serial device of the bridge, or tcp://host:port")
	f.Int("baud", 115200, "baud rate of the serial bridge")
	f.String("devmem", "", "map the registers from this device, e.g. /dev/mem")
	f.Bool("sim", false, "use a simulated controller")
	f.Bool("sim-link", false, "reach the simulated controller through the framed protocol")
	f.Uint32("ddr-base", 0x10000000, "address of the DRAM window")
	f.Uint32("ddr-size", 0x1000, "size of the DRAM window mapped with --devmem")
	f.Uint32("core-base", 0x00009000, "address of the controller block")
	f.Uint32("phy-base", 0x00008000, "address of the PHY block")
	f.Bool("ecp5-phy", false, "the PHY steps its delay taps instead of taking them")
	f.Int("cycle-ns", 10, "duration of one sequencer delay cycle in nanoseconds")
	f.IntP("verbosity", "v", 0, "log verbosity")
	f.Bool("trace", false, "log every register access")
	f.String("record", "", "record the session in this SQLite database")
}

// applyEnv loads .env and fills the flags that were not given on the command
// line from the environment.
func applyEnv(cmd *cobra.Command, _ []string) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	for flag, env := range envFlags {
		value, ok := os.LookupEnv(env)
		if !ok || cmd.Flags().Changed(flag) {
			continue
		}

		if err := cmd.Flags().Set(flag, value); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}

	return nil
}

func newLogger(cmd *cobra.Command) logr.Logger {
	verbosity, _ := cmd.Flags().GetInt("verbosity")

	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}

		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

// stopsGracefully is set by commands that watch the command context and
// return on their own when interrupted.
var stopsGracefully atomic.Bool

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()

		if !stopsGracefully.Load() {
			atexit.Exit(130)
		}
	}()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
