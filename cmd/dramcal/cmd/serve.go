package cmd

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/dramcal/dram"
	"github.com/sarchlab/dramcal/monitoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bring up the DRAM while serving the monitoring page.",
	Long: `serve starts the monitoring web server, runs init and calibration ` +
		`and keeps serving until interrupted, so the registers, tasks and ` +
		`calibration progress can be inspected from a browser.`,
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

		port, _ := cmd.Flags().GetInt("http-port")
		open, _ := cmd.Flags().GetBool("open")
		ecp5, _ := cmd.Flags().GetBool("ecp5-phy")

		m := monitoring.NewMonitor().
			WithLogger(s.log).
			WithPortNumber(port).
			WithBrowser(open)
		if ecp5 {
			m.WithECP5Layout()
		}

		m.RegisterTarget(s.ctx)
		m.RegisterHookable(s.access)

		stopsGracefully.Store(true)

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return m.Serve(ctx)
		})
		g.Go(func() error {
			return bringUp(s.log, s.ctx, base)
		})

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	},
}

// bringUp initializes and calibrates, then logs the result. Errors are
// logged rather than returned so the page stays up for inspection.
func bringUp(log logr.Logger, ctx *dram.Context, base dram.Profile) error {
	if err := ctx.Init(base); err != nil {
		log.Error(err, "init failed")
		return nil
	}

	out, err := ctx.CalibrateOrFallback(base)
	if err != nil {
		log.Error(err, "calibration failed")
		return nil
	}

	log.Info("calibrated", "delays", out.Profile.ReadDelay,
		"fellBack", out.FellBack)

	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("profile", "", "base YAML profile")
	serveCmd.Flags().Int("http-port", 0, "port of the monitoring page, 0 for a random one")
	serveCmd.Flags().Bool("open", false, "open the monitoring page in a browser")
}
