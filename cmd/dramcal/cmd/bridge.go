package cmd

import (
	"errors"
	"net"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dramcal/simdram"
	"github.com/sarchlab/dramcal/transport"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve a simulated controller over the framed TCP protocol.",
	Long: `bridge listens for TCP connections and answers framed register ` +
		`accesses from a simulated controller, so that the other commands ` +
		`can be pointed at it with --port tcp://ADDR.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		b := simdram.MakeBuilder()

		for lane, flag := range []string{"window0", "window1"} {
			win, _ := cmd.Flags().GetIntSlice(flag)
			switch len(win) {
			case 0:
			case 2:
				b = b.WithWindow(lane, win[0], win[1])
			default:
				return errors.New("--" + flag + " takes MIN,MAX")
			}
		}

		device := b.Build()
		log := newLogger(cmd)

		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		defer ln.Close()

		log.Info("bridge listening", "addr", ln.Addr().String())

		stopsGracefully.Store(true)

		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			ln.Close()
		}()

		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			go func() {
				defer conn.Close()

				if err := transport.Serve(conn, device); err != nil {
					log.Error(err, "connection closed", "remote", conn.RemoteAddr().String())
				}
			}()
		}
	},
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().String("listen", "127.0.0.1:1234", "address to listen on")
	bridgeCmd.Flags().IntSlice("window0", nil, "burst window of lane 0 as MIN,MAX")
	bridgeCmd.Flags().IntSlice("window1", nil, "burst window of lane 1 as MIN,MAX")
}
