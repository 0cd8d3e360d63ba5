package dram

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/dramcal/phy"
)

// NumModeRegisters is the number of mode registers loaded at init.
const NumModeRegisters = 4

// Profile holds the mode register values used at init and the read delay of
// each lane.
type Profile struct {
	ModeRegisters [NumModeRegisters]uint16 `yaml:"mode_registers"`
	ReadDelay     [phy.NumLanes]uint8      `yaml:"read_delay"`
}

// DefaultProfile returns the profile the example SoC boots with.
func DefaultProfile() Profile {
	return Profile{
		ModeRegisters: [NumModeRegisters]uint16{0x320, 0x6, 0x200, 0x0},
		ReadDelay:     [phy.NumLanes]uint8{2, 2},
	}
}

// Validate checks that the delays are within the PHY range.
func (p Profile) Validate() error {
	for lane, d := range p.ReadDelay {
		if d > phy.MaxReadDelay {
			return fmt.Errorf("dram: lane %d read delay %d above %d",
				lane, d, phy.MaxReadDelay)
		}
	}

	return nil
}

// ReadProfile decodes a YAML profile and validates it.
func ReadProfile(r io.Reader) (Profile, error) {
	var p Profile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return p, errors.New("dram: empty profile")
		}

		return p, fmt.Errorf("dram: decode profile: %w", err)
	}

	return p, p.Validate()
}

// WriteProfile encodes a profile as YAML.
func WriteProfile(w io.Writer, p Profile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("dram: encode profile: %w", err)
	}

	return enc.Close()
}
