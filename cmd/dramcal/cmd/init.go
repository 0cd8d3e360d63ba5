package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/dramcal/dram"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Run the power-up sequence and load the profile delays.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		profile, err := loadProfile(cmd)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		var opts []dram.InitOption

		length, _ := cmd.Flags().GetUint32("memtest")
		if length > 0 {
			width, err := widthFlag(cmd)
			if err != nil {
				return err
			}

			opts = append(opts, dram.WithMemTest(length, width))
		}

		err = s.ctx.Init(profile, opts...)
		if err != nil {
			return err
		}

		cmd.Println("DRAM initialized")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("profile", "", "YAML profile with mode registers and read delays")
	initCmd.Flags().Uint32("memtest", 0, "elements to test after init, 0 to skip")
	initCmd.Flags().Int("width", 32, "memory test access width, 8 or 32")
}
