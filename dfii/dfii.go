// Package dfii drives the DFI injector of the memory controller: it switches
// the command lines between software and hardware ownership, issues
// mode-register loads and commands through phase 0, and runs the power-up
// initialization sequence of the SDRAM.
package dfii

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

// Control word bits.
const (
	ControlSel    uint32 = 0x01
	ControlCKE    uint32 = 0x02
	ControlODT    uint32 = 0x04
	ControlResetN uint32 = 0x08
)

// Command word bits.
const (
	CommandCS     uint32 = 0x01
	CommandWE     uint32 = 0x02
	CommandCAS    uint32 = 0x04
	CommandRAS    uint32 = 0x08
	CommandWrData uint32 = 0x10
	CommandRdData uint32 = 0x20
)

// Frequently used control and command words.
const (
	ControlSoftware = ControlCKE | ControlODT | ControlResetN
	ControlHardware = ControlSel | ControlResetN

	CommandModeRegister = CommandRAS | CommandCAS | CommandWE | CommandCS
	CommandZQCalibrate  = CommandWE | CommandCS
)

// MR0DLLReset is the DLL reset bit of mode register 0.
const MR0DLLReset uint16 = 1 << 8

// ZQCLAddress selects the long ZQ calibration on the address bus.
const ZQCLAddress uint32 = 0x400

// Settle delays of the init sequence, in sequencer cycles.
const (
	DelayReset     = 50000
	DelayResetDone = 50000
	DelayCKE       = 10000
	DelayDLLReset  = 100
	DelayModeRegs  = 600
	DelayZQ        = 600
)

// Mode selects who owns the command lines.
type Mode int

// The two owners of the command lines.
const (
	ModeHardware Mode = iota
	ModeSoftware
)

func (m Mode) String() string {
	if m == ModeSoftware {
		return "software"
	}

	return "hardware"
}

// Sequencer issues DFI control words and commands through a register
// transport. It is not safe for concurrent use, except for Mode, which may be
// read from any goroutine.
type Sequencer struct {
	access  transport.RegisterAccess
	base    uint32
	delayer Delayer
	log     logr.Logger
	mode    atomic.Int32
}

// NewSequencer creates a Sequencer for the controller block at base.
func NewSequencer(
	access transport.RegisterAccess,
	base uint32,
	delayer Delayer,
	log logr.Logger,
) *Sequencer {
	if delayer == nil {
		delayer = BusyLoop{}
	}

	return &Sequencer{
		access:  access,
		base:    base,
		delayer: delayer,
		log:     log,
	}
}

// Mode returns the last control mode the sequencer set.
func (s *Sequencer) Mode() Mode {
	return Mode(s.mode.Load())
}

// SetControl writes the control word.
func (s *Sequencer) SetControl(value uint32) error {
	err := s.access.Write(s.base+regmap.DFIIControl, value)
	if err != nil {
		return fmt.Errorf("dfii: set control 0x%x: %w", value, err)
	}

	return nil
}

// SetSoftwareControl hands the command lines to this library.
func (s *Sequencer) SetSoftwareControl() error {
	err := s.SetControl(ControlSoftware)
	if err != nil {
		return err
	}

	s.mode.Store(int32(ModeSoftware))

	return nil
}

// SetHardwareControl hands the command lines back to the controller.
func (s *Sequencer) SetHardwareControl() error {
	err := s.SetControl(ControlHardware)
	if err != nil {
		return err
	}

	s.mode.Store(int32(ModeHardware))

	return nil
}

// WithSoftwareControl runs fn with the command lines under software control
// and always returns them to the controller afterwards, also when fn fails.
func (s *Sequencer) WithSoftwareControl(fn func() error) error {
	err := s.SetSoftwareControl()
	if err != nil {
		return errors.Join(err, s.SetHardwareControl())
	}

	fnErr := fn()
	releaseErr := s.SetHardwareControl()

	return errors.Join(fnErr, releaseErr)
}

func (s *Sequencer) writePhase0(field regmap.PhaseField, value uint32) error {
	addr := s.base + regmap.MustPhaseOffset(0, field)

	err := s.access.Write(addr, value)
	if err != nil {
		return fmt.Errorf("dfii: write p0 %s: %w", field, err)
	}

	return nil
}

// SetAddress drives the address bus of phase 0.
func (s *Sequencer) SetAddress(value uint32) error {
	return s.writePhase0(regmap.PhaseAddress, value)
}

// SetBankAddress drives the bank address bus of phase 0.
func (s *Sequencer) SetBankAddress(value uint32) error {
	return s.writePhase0(regmap.PhaseBAddress, value)
}

// Command writes the command word of phase 0 and strobes it.
func (s *Sequencer) Command(cmd uint32) error {
	err := s.writePhase0(regmap.PhaseCommand, cmd)
	if err != nil {
		return err
	}

	return s.writePhase0(regmap.PhaseCommandIssue, 1)
}

// SetMR loads a mode register.
func (s *Sequencer) SetMR(mr uint8, value uint16) error {
	err := s.SetAddress(uint32(value))
	if err != nil {
		return err
	}

	err = s.SetBankAddress(uint32(mr))
	if err != nil {
		return err
	}

	return s.Command(CommandModeRegister)
}

func (s *Sequencer) step(control uint32, cycles int) error {
	err := s.SetAddress(0)
	if err != nil {
		return err
	}

	err = s.SetBankAddress(0)
	if err != nil {
		return err
	}

	err = s.SetControl(control)
	if err != nil {
		return err
	}

	s.delayer.Delay(cycles)

	return nil
}

// InitSequence brings the SDRAM out of reset and loads the mode registers
// mr[0..3]. The order of the steps and the settle delays are part of the
// device timing contract. The first failed register write aborts the
// sequence.
func (s *Sequencer) InitSequence(mr [4]uint16) error {
	s.log.V(1).Info("assert reset")
	if err := s.step(0, DelayReset); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}

	s.log.V(1).Info("release reset")
	if err := s.step(ControlODT|ControlResetN, DelayResetDone); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}

	s.log.V(1).Info("raise cke")
	if err := s.step(ControlSoftware, DelayCKE); err != nil {
		return fmt.Errorf("raise cke: %w", err)
	}

	for _, n := range []uint8{2, 3, 1, 0} {
		s.log.V(1).Info("load mode register", "mr", n, "value", mr[n])
		if err := s.SetMR(n, mr[n]); err != nil {
			return fmt.Errorf("load mr%d: %w", n, err)
		}
	}

	if mr[0]&MR0DLLReset != 0 {
		s.delayer.Delay(DelayDLLReset)

		s.log.V(1).Info("clear dll reset", "value", mr[0]&^MR0DLLReset)
		if err := s.SetMR(0, mr[0]&^MR0DLLReset); err != nil {
			return fmt.Errorf("clear dll reset: %w", err)
		}
	}

	s.delayer.Delay(DelayModeRegs)

	s.log.V(1).Info("zq calibration")
	if err := s.zqCalibrate(); err != nil {
		return fmt.Errorf("zq calibration: %w", err)
	}

	s.delayer.Delay(DelayZQ)

	s.mode.Store(int32(ModeSoftware))

	return nil
}

func (s *Sequencer) zqCalibrate() error {
	err := s.SetAddress(ZQCLAddress)
	if err != nil {
		return err
	}

	err = s.SetBankAddress(0)
	if err != nil {
		return err
	}

	return s.Command(CommandZQCalibrate)
}
