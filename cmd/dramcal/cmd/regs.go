package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func parseWord(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid word %q: %w", s, err)
	}

	return uint32(v), nil
}

var peekCmd = &cobra.Command{
	Use:   "peek ADDR [COUNT]",
	Short: "Read 32-bit words.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseWord(args[0])
		if err != nil {
			return err
		}

		count := uint32(1)
		if len(args) == 2 {
			if count, err = parseWord(args[1]); err != nil {
				return err
			}
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		for i := uint32(0); i < count; i++ {
			a := addr + i*4

			v, err := s.access.Read(a)
			if err != nil {
				return err
			}

			cmd.Printf("0x%08x: 0x%08x\n", a, v)
		}

		return nil
	},
}

var pokeCmd = &cobra.Command{
	Use:   "poke ADDR VALUE...",
	Short: "Write consecutive 32-bit words.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseWord(args[0])
		if err != nil {
			return err
		}

		values := make([]uint32, 0, len(args)-1)
		for _, a := range args[1:] {
			v, err := parseWord(a)
			if err != nil {
				return err
			}

			values = append(values, v)
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		for i, v := range values {
			if err := s.access.Write(addr+uint32(i)*4, v); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(peekCmd)
	rootCmd.AddCommand(pokeCmd)
}
