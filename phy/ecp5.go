package phy

import (
	"fmt"

	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

// ECP5 accesses the delay-increment variant of the PHY. Delays cannot be
// written directly; a lane is selected and its tap is stepped.
type ECP5 struct {
	access transport.RegisterAccess
	base   uint32
}

// NewECP5 creates an ECP5 PHY for the block at base.
func NewECP5(access transport.RegisterAccess, base uint32) *ECP5 {
	return &ECP5{access: access, base: base}
}

func (p *ECP5) write(off, value uint32) error {
	err := p.access.Write(p.base+off, value)
	if err != nil {
		return fmt.Errorf("phy: write 0x%02x: %w", off, err)
	}

	return nil
}

// pulse selects the lane, strobes the register at off, deselects the lane and
// then pauses every DQS buffer by toggling all select lines so they resync.
func (p *ECP5) pulse(lane int, off uint32) error {
	if err := checkLane(lane); err != nil {
		return err
	}

	steps := []struct{ off, value uint32 }{
		{regmap.ECP5DlySel, 1 << lane},
		{off, 1},
		{regmap.ECP5DlySel, 0},
		{regmap.ECP5DlySel, 0xFF},
		{regmap.ECP5DlySel, 0},
	}

	for _, s := range steps {
		if err := p.write(s.off, s.value); err != nil {
			return err
		}
	}

	return nil
}

// IncrementReadDelay steps the read delay of lane by one tap.
func (p *ECP5) IncrementReadDelay(lane int) error {
	return p.pulse(lane, regmap.ECP5RdlyDQInc)
}

// IncrementBitslip steps the bitslip of lane by one.
func (p *ECP5) IncrementBitslip(lane int) error {
	return p.pulse(lane, regmap.ECP5RdlyDQBitslip)
}

// ResetDelays returns the read delay and the bitslip of every lane to zero.
func (p *ECP5) ResetDelays() error {
	steps := []struct{ off, value uint32 }{
		{regmap.ECP5DlySel, 0xFF},
		{regmap.ECP5RdlyDQRst, 1},
		{regmap.ECP5RdlyDQBitslipRst, 1},
		{regmap.ECP5DlySel, 0},
	}

	for _, s := range steps {
		if err := p.write(s.off, s.value); err != nil {
			return err
		}
	}

	return nil
}

// ResetBurstDetect clears the burst-detect latch of every lane.
func (p *ECP5) ResetBurstDetect() error {
	return p.write(regmap.ECP5BurstDetClr, 1)
}

// BurstDetected tells whether lane saw a burst since the last reset.
func (p *ECP5) BurstDetected(lane int) (bool, error) {
	if err := checkLane(lane); err != nil {
		return false, err
	}

	v, err := p.access.Read(p.base + regmap.ECP5BurstDetSeen)
	if err != nil {
		return false, fmt.Errorf("phy: read burst detect: %w", err)
	}

	return v&(1<<lane) != 0, nil
}

// SetReadDelay brings lane to delay by resetting all taps and stepping up.
// The other lane is reset as well; callers that need both lanes use
// SetReadDelays.
func (p *ECP5) SetReadDelay(lane int, delay uint8) error {
	if err := checkLane(lane); err != nil {
		return err
	}

	var delays [NumLanes]uint8
	delays[lane] = delay

	return p.SetReadDelays(delays)
}

// SetReadDelays resets the taps and steps each lane up to its delay.
func (p *ECP5) SetReadDelays(delays [NumLanes]uint8) error {
	if err := p.ResetDelays(); err != nil {
		return err
	}

	for lane, d := range delays {
		if d > MaxReadDelay {
			return fmt.Errorf("phy: read delay %d above %d", d, MaxReadDelay)
		}

		for i := uint8(0); i < d; i++ {
			if err := p.IncrementReadDelay(lane); err != nil {
				return err
			}
		}
	}

	return nil
}
