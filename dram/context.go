// Package dram brings a DRAM device behind an FPGA memory controller from
// reset to a usable state: it runs the init sequence, loads and generates
// read-delay calibrations and tests the memory.
package dram

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/sarchlab/dramcal/calibration"
	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/hooking"
	"github.com/sarchlab/dramcal/memtest"
	"github.com/sarchlab/dramcal/phy"
	"github.com/sarchlab/dramcal/transport"
)

// Width is the access width of a memory test.
type Width = memtest.Width

// Supported memory test widths.
const (
	Width8  = memtest.Width8
	Width32 = memtest.Width32
)

// Context addresses one controller, its PHY and its DRAM window. It is owned
// by one caller and is not safe for concurrent use.
type Context struct {
	hooking.HookableBase

	name       string
	access     transport.RegisterAccess
	ddrBase    uint32
	coreBase   uint32
	phyBase    uint32
	delayer    dfii.Delayer
	log        logr.Logger
	burstReads int
	maxDelay   uint8

	seq *dfii.Sequencer
	phy readPath
}

// readPath is the part of a PHY that the context drives. Both phy.PHY and
// phy.ECP5 implement it.
type readPath interface {
	ResetBurstDetect() error
	BurstDetected(lane int) (bool, error)
	SetReadDelays(delays [phy.NumLanes]uint8) error
}

// Name returns the name of the context.
func (c *Context) Name() string {
	return c.name
}

// Access returns the register transport.
func (c *Context) Access() transport.RegisterAccess {
	return c.access
}

// DDRBase returns the address of the DRAM data window.
func (c *Context) DDRBase() uint32 {
	return c.ddrBase
}

// CoreBase returns the address of the controller command block.
func (c *Context) CoreBase() uint32 {
	return c.coreBase
}

// PHYBase returns the address of the PHY block.
func (c *Context) PHYBase() uint32 {
	return c.phyBase
}

// Sequencer returns the DFI sequencer of the controller.
func (c *Context) Sequencer() *dfii.Sequencer {
	return c.seq
}

// MaxDelay returns the largest read delay the calibration sweep tries.
func (c *Context) MaxDelay() uint8 {
	return c.maxDelay
}

func (c *Context) startTask(kind hooking.TaskKind, what string) string {
	id := xid.New().String()

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosTaskStart,
		Item:   hooking.TaskStart{ID: id, Kind: kind, What: what},
	})

	return id
}

func (c *Context) stepTask(id, what, detail string) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosTaskStep,
		Item:   hooking.TaskStep{TaskID: id, What: what, Detail: detail},
	})
}

func (c *Context) endTask(id string, err error) {
	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    hooking.HookPosTaskEnd,
		Item:   hooking.TaskEnd{ID: id, Err: err},
	})
}

// InitOption configures Init.
type InitOption func(*initConfig)

type initConfig struct {
	testLength uint32
	testWidth  Width
}

// WithMemTest runs a memory test of length elements once the controller has
// taken the lines back.
func WithMemTest(length uint32, width Width) InitOption {
	return func(c *initConfig) {
		c.testLength = length
		c.testWidth = width
	}
}

// Init runs the power-up sequence with the mode registers of the profile,
// loads its read delays and returns the lines to the controller.
func (c *Context) Init(profile Profile, opts ...InitOption) (err error) {
	cfg := initConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	if err = profile.Validate(); err != nil {
		return err
	}

	id := c.startTask(hooking.TaskInit, "init sequence")
	defer func() { c.endTask(id, err) }()

	err = c.seq.WithSoftwareControl(func() error {
		if err := c.seq.InitSequence(profile.ModeRegisters); err != nil {
			return err
		}

		c.stepTask(id, "sequence", "done")

		return c.phy.SetReadDelays(profile.ReadDelay)
	})
	if err != nil {
		return fmt.Errorf("dram: init: %w", err)
	}

	c.log.Info("init done", "mode_registers", profile.ModeRegisters,
		"read_delay", profile.ReadDelay)

	if cfg.testLength == 0 {
		return nil
	}

	_, err = c.MemTest(cfg.testLength, cfg.testWidth)

	return err
}

// LoadCalibration writes the read delays of the profile. Loading the same
// profile again leaves the PHY unchanged.
func (c *Context) LoadCalibration(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	err := c.seq.WithSoftwareControl(func() error {
		return c.phy.SetReadDelays(profile.ReadDelay)
	})
	if err != nil {
		return fmt.Errorf("dram: load calibration: %w", err)
	}

	return nil
}

// ResetBurstDetect clears the burst detect latch of every lane.
func (c *Context) ResetBurstDetect() error {
	return c.phy.ResetBurstDetect()
}

// ReadBurstDetect tells whether lane saw a burst since the last reset.
func (c *Context) ReadBurstDetect(lane int) (bool, error) {
	return c.phy.BurstDetected(lane)
}

// ReadDelays returns the delays currently loaded in the PHY. The
// delay-increment PHY cannot report its taps and returns ErrUndocumented.
func (c *Context) ReadDelays() ([phy.NumLanes]uint8, error) {
	r, ok := c.phy.(interface {
		ReadDelays() ([phy.NumLanes]uint8, error)
	})
	if !ok {
		return [phy.NumLanes]uint8{}, fmt.Errorf(
			"%w: the PHY cannot report its read delays", ErrUndocumented)
	}

	return r.ReadDelays()
}

// readBus generates read bursts by reading the start of the DRAM window.
type readBus struct {
	access transport.RegisterAccess
	base   uint32
}

func (b readBus) ReadBurst(n int) error {
	for i := 0; i < n; i++ {
		if _, err := b.access.Read(b.base + uint32(i)*4); err != nil {
			return err
		}
	}

	return nil
}

func (c *Context) engine() *calibration.Engine {
	e := calibration.MakeBuilder().
		WithControlOwner(c.seq).
		WithDelayLoader(c.phy).
		WithProbe(c.phy).
		WithBus(readBus{access: c.access, base: c.ddrBase}).
		WithMaxDelay(c.maxDelay).
		WithBurstReads(c.burstReads).
		WithLogger(c.log).
		Build()

	for _, h := range c.Hooks() {
		e.AcceptHook(h)
	}

	return e
}

// GenerateCalibration sweeps the read delays starting from base and returns
// base with the calibrated delays. The calibrated delays are left loaded. If
// a lane has no window, the lane keeps its base delay and the error wraps
// calibration.ErrNoWindow.
func (c *Context) GenerateCalibration(
	base Profile,
) (profile Profile, res calibration.Result, err error) {
	if err = base.Validate(); err != nil {
		return base, res, err
	}

	id := c.startTask(hooking.TaskCalibration, "read delay sweep")
	defer func() { c.endTask(id, err) }()

	e := c.engine()
	e.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != calibration.HookPosLaneDone {
			return
		}

		done := ctx.Item.(calibration.LaneDone)
		c.stepTask(id, fmt.Sprintf("lane %d", done.Lane),
			fmt.Sprintf("window [%d,%d] delay %d",
				done.Window.Min, done.Window.Max, done.Delay))
	}))

	res, err = e.Run(base.ReadDelay)
	profile = base
	profile.ReadDelay = res.Delays

	if err != nil {
		return profile, res, fmt.Errorf("dram: generate calibration: %w", err)
	}

	return profile, res, nil
}

// Outcome is the result of CalibrateOrFallback.
type Outcome struct {
	Profile  Profile
	Result   calibration.Result
	FellBack bool
	Cause    error
}

// CalibrateOrFallback generates a calibration from fallback and loads it. If
// the calibration fails, fallback is loaded instead and the failure is kept
// in the outcome.
func (c *Context) CalibrateOrFallback(fallback Profile) (Outcome, error) {
	profile, res, genErr := c.GenerateCalibration(fallback)
	out := Outcome{Profile: profile, Result: res}

	if genErr != nil {
		c.log.Info("calibration failed, loading fallback", "err", genErr.Error())

		out.Profile = fallback
		out.FellBack = true
		out.Cause = genErr
	}

	if err := c.LoadCalibration(out.Profile); err != nil {
		return out, err
	}

	return out, nil
}

// MemTest tests length elements of width at the start of the DRAM window.
// Mismatches are reported as ErrMemTest and unsupported widths as
// ErrUndocumented; both wrap the underlying memtest error.
func (c *Context) MemTest(
	length uint32,
	width Width,
	opts ...memtest.Option,
) (report memtest.Report, err error) {
	id := c.startTask(hooking.TaskMemTest, fmt.Sprintf("%d x %s", length, width))
	defer func() { c.endTask(id, err) }()

	report, err = memtest.Run(c.access, c.ddrBase, length, width, opts...)

	switch {
	case err == nil:
		c.log.V(1).Info("memtest passed", "elements", length, "width", width.String())
		return report, nil
	case errors.Is(err, memtest.ErrMismatch):
		return report, fmt.Errorf("%w: %w", ErrMemTest, err)
	case errors.Is(err, memtest.ErrUnsupportedWidth):
		return report, fmt.Errorf("%w: %w", ErrUndocumented, err)
	}

	return report, fmt.Errorf("dram: memtest: %w", err)
}
