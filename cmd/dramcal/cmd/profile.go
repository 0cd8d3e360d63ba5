package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/dramcal/dram"
)

// loadProfile reads the profile named by the --profile flag, or returns the
// default profile when the flag is empty.
func loadProfile(cmd *cobra.Command) (dram.Profile, error) {
	path, _ := cmd.Flags().GetString("profile")
	if path == "" {
		return dram.DefaultProfile(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return dram.Profile{}, err
	}
	defer f.Close()

	p, err := dram.ReadProfile(f)
	if err != nil {
		return p, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// saveProfile writes p to path, or to stdout when path is empty.
func saveProfile(cmd *cobra.Command, path string, p dram.Profile) error {
	if path == "" {
		return dram.WriteProfile(cmd.OutOrStdout(), p)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := dram.WriteProfile(f, p); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
