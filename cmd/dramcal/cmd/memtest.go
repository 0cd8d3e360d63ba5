package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/dram"
	"github.com/sarchlab/dramcal/memtest"
)

var memtestCmd = &cobra.Command{
	Use:   "memtest",
	Short: "Fill the start of the DRAM window and verify it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		width, err := widthFlag(cmd)
		if err != nil {
			return err
		}

		opts, err := memtestOptions(cmd)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		length, _ := cmd.Flags().GetUint32("length")

		report, err := s.ctx.MemTest(length, width, opts...)
		if s.record != nil {
			s.record.RecordMemTest(report)
		}

		for _, f := range report.Failures {
			cmd.PrintErrf("fail : *(0x%08x) = 0x%x, want 0x%x\n", f.Addr, f.Got, f.Want)
		}

		if err != nil {
			return err
		}

		cmd.Printf("%d %s elements ok\n", report.Checked, width)

		return nil
	},
}

func widthFlag(cmd *cobra.Command) (dram.Width, error) {
	w, _ := cmd.Flags().GetInt("width")

	switch dram.Width(w) {
	case dram.Width8, dram.Width32:
		return dram.Width(w), nil
	}

	return 0, fmt.Errorf("width must be 8 or 32, got %d", w)
}

func memtestOptions(cmd *cobra.Command) ([]memtest.Option, error) {
	var opts []memtest.Option

	pattern, _ := cmd.Flags().GetString("pattern")
	switch pattern {
	case "fixed":
	case "lfsr":
		opts = append(opts, memtest.WithLFSR())
	case "address":
		opts = append(opts, memtest.WithAddressPattern())
	default:
		return nil, fmt.Errorf("unknown pattern %q", pattern)
	}

	if settle, _ := cmd.Flags().GetInt("settle"); settle > 0 {
		opts = append(opts, memtest.WithSettleDelay(dfii.BusyLoop{}, settle))
	}

	if limit, _ := cmd.Flags().GetInt("max-errors"); limit != 0 {
		opts = append(opts, memtest.WithErrorLimit(limit))
	}

	return opts, nil
}

func init() {
	rootCmd.AddCommand(memtestCmd)
	memtestCmd.Flags().Uint32("length", 512, "number of elements to test")
	memtestCmd.Flags().Int("width", 32, "access width, 8 or 32")
	memtestCmd.Flags().String("pattern", "fixed", "fill pattern: fixed, lfsr or address")
	memtestCmd.Flags().Int("settle", 0, "busy-loop cycles between the write and the read pass")
	memtestCmd.Flags().Int("max-errors", 0, "keep verifying until more than this many errors, -1 for all")
}
