// Package phy accesses the read path of the DDR PHY: the per-lane read delay
// taps and the sticky burst-detect latch used as the calibration oracle.
package phy

import (
	"fmt"

	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

// MaxReadDelay is the largest read delay tap the PHY supports.
const MaxReadDelay = 7

// NumLanes is the number of independently calibrated lanes.
const NumLanes = regmap.NumLanes

// PHY accesses the read-delay PHY register block.
type PHY struct {
	access transport.RegisterAccess
	base   uint32
}

// New creates a PHY for the block at base.
func New(access transport.RegisterAccess, base uint32) *PHY {
	return &PHY{access: access, base: base}
}

func checkLane(lane int) error {
	if lane < 0 || lane >= NumLanes {
		return fmt.Errorf("phy: lane %d out of range", lane)
	}

	return nil
}

// ResetBurstDetect clears the burst-detect latch of every lane.
func (p *PHY) ResetBurstDetect() error {
	err := p.access.Write(p.base+regmap.PHYBurstDet, 1)
	if err != nil {
		return fmt.Errorf("phy: reset burst detect: %w", err)
	}

	return nil
}

// BurstDetected tells whether lane saw a qualifying burst since the last
// ResetBurstDetect.
func (p *PHY) BurstDetected(lane int) (bool, error) {
	if err := checkLane(lane); err != nil {
		return false, err
	}

	v, err := p.access.Read(p.base + regmap.PHYBurstDet)
	if err != nil {
		return false, fmt.Errorf("phy: read burst detect: %w", err)
	}

	return v&(1<<lane) != 0, nil
}

// SetReadDelay sets the read delay tap of one lane.
func (p *PHY) SetReadDelay(lane int, delay uint8) error {
	if err := checkLane(lane); err != nil {
		return err
	}

	if delay > MaxReadDelay {
		return fmt.Errorf("phy: read delay %d above %d", delay, MaxReadDelay)
	}

	off, _ := regmap.RdlyOffset(lane)

	err := p.access.Write(p.base+off, uint32(delay))
	if err != nil {
		return fmt.Errorf("phy: set lane %d read delay: %w", lane, err)
	}

	return nil
}

// SetReadDelays sets the read delay taps of both lanes, lane 0 first.
func (p *PHY) SetReadDelays(delays [NumLanes]uint8) error {
	for lane, d := range delays {
		if err := p.SetReadDelay(lane, d); err != nil {
			return err
		}
	}

	return nil
}

// ReadDelays returns the current read delay taps.
func (p *PHY) ReadDelays() ([NumLanes]uint8, error) {
	var delays [NumLanes]uint8

	for lane := range delays {
		off, _ := regmap.RdlyOffset(lane)

		v, err := p.access.Read(p.base + off)
		if err != nil {
			return delays, fmt.Errorf("phy: read lane %d delay: %w", lane, err)
		}

		delays[lane] = uint8(v & MaxReadDelay)
	}

	return delays, nil
}
