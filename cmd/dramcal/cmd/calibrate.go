package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dramcal/calibration"
	"github.com/sarchlab/dramcal/dram"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Sweep the read delays and print the calibrated profile.",
	Long: `calibrate sweeps the read delay of each lane, centers it in the ` +
		`window where the PHY detects read bursts and prints the resulting ` +
		`profile as YAML. With --fallback, the base profile is loaded when ` +
		`a lane has no window.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		base, err := loadProfile(cmd)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if doInit, _ := cmd.Flags().GetBool("init"); doInit {
			if err := s.ctx.Init(base); err != nil {
				return err
			}
		}

		profile, res, err := calibrate(cmd, s.ctx, base)
		if err != nil {
			return err
		}

		if sweep, _ := cmd.Flags().GetBool("sweep"); sweep {
			printSweep(cmd.ErrOrStderr(), res)
		}

		out, _ := cmd.Flags().GetString("out")

		return saveProfile(cmd, out, profile)
	},
}

func calibrate(
	cmd *cobra.Command,
	ctx *dram.Context,
	base dram.Profile,
) (dram.Profile, calibration.Result, error) {
	if fallback, _ := cmd.Flags().GetBool("fallback"); !fallback {
		return ctx.GenerateCalibration(base)
	}

	out, err := ctx.CalibrateOrFallback(base)
	if err != nil {
		return out.Profile, out.Result, err
	}

	if out.FellBack {
		cmd.PrintErrf("calibration failed, using the base profile: %v\n", out.Cause)
	}

	return out.Profile, out.Result, nil
}

// printSweep prints one line per lane with a 1 for every delay at which a
// burst was detected.
func printSweep(w io.Writer, res calibration.Result) {
	for lane := 0; lane < calibration.NumLanes; lane++ {
		var line strings.Builder

		for _, s := range res.Samples {
			if s.Lane != lane {
				continue
			}

			if s.Detected {
				line.WriteByte('1')
			} else {
				line.WriteByte('0')
			}
		}

		win := res.Windows[lane]
		fmt.Fprintf(w, "p%d: %-8s window [%d,%d] delay %d\n",
			lane, line.String(), win.Min, win.Max, res.Delays[lane])
	}
}

func init() {
	rootCmd.AddCommand(calibrateCmd)
	calibrateCmd.Flags().String("profile", "", "base YAML profile")
	calibrateCmd.Flags().String("out", "", "write the calibrated profile here instead of stdout")
	calibrateCmd.Flags().Bool("init", false, "run the init sequence first")
	calibrateCmd.Flags().Bool("fallback", false, "load the base profile if calibration fails")
	calibrateCmd.Flags().Bool("sweep", false, "print the burst detect sweep")
}
