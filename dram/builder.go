package dram

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/phy"
	"github.com/sarchlab/dramcal/transport"
)

// Builder can build contexts.
type Builder struct {
	name       string
	access     transport.RegisterAccess
	ddrBase    uint32
	coreBase   uint32
	phyBase    uint32
	delayer    dfii.Delayer
	log        logr.Logger
	burstReads int
	maxDelay   uint8
	ecp5       bool
}

// MakeBuilder returns a Builder with the address map of the example SoC.
func MakeBuilder() Builder {
	return Builder{
		name:       "DRAM",
		ddrBase:    0x10000000,
		coreBase:   0x00009000,
		phyBase:    0x00008000,
		delayer:    dfii.BusyLoop{},
		log:        logr.Discard(),
		burstReads: 128,
		maxDelay:   phy.MaxReadDelay,
	}
}

// WithName sets the name reported to hooks.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithAccess sets the register transport.
func (b Builder) WithAccess(access transport.RegisterAccess) Builder {
	b.access = access
	return b
}

// WithDDRBase sets the address of the DRAM data window.
func (b Builder) WithDDRBase(base uint32) Builder {
	b.ddrBase = base
	return b
}

// WithCoreBase sets the address of the controller command block.
func (b Builder) WithCoreBase(base uint32) Builder {
	b.coreBase = base
	return b
}

// WithPHYBase sets the address of the PHY block.
func (b Builder) WithPHYBase(base uint32) Builder {
	b.phyBase = base
	return b
}

// WithDelayer sets how the settle delays are waited.
func (b Builder) WithDelayer(d dfii.Delayer) Builder {
	b.delayer = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// WithBurstReads sets the number of reads per calibration sample.
func (b Builder) WithBurstReads(n int) Builder {
	b.burstReads = n
	return b
}

// WithMaxDelay sets the largest delay tried by the calibration.
func (b Builder) WithMaxDelay(d uint8) Builder {
	b.maxDelay = d
	return b
}

// WithECP5PHY drives the delay-increment PHY variant, whose taps are stepped
// instead of written.
func (b Builder) WithECP5PHY() Builder {
	b.ecp5 = true
	return b
}

// Build creates the context.
func (b Builder) Build() *Context {
	if b.access == nil {
		panic("dram: a register transport is required")
	}

	if b.maxDelay > phy.MaxReadDelay {
		panic("dram: max delay above the PHY range")
	}

	c := &Context{
		name:       b.name,
		access:     b.access,
		ddrBase:    b.ddrBase,
		coreBase:   b.coreBase,
		phyBase:    b.phyBase,
		delayer:    b.delayer,
		log:        b.log,
		burstReads: b.burstReads,
		maxDelay:   b.maxDelay,
	}

	c.seq = dfii.NewSequencer(b.access, b.coreBase, b.delayer, b.log)
	if b.ecp5 {
		c.phy = phy.NewECP5(b.access, b.phyBase)
	} else {
		c.phy = phy.New(b.access, b.phyBase)
	}

	return c
}
