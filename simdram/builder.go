package simdram

import (
	"github.com/sarchlab/dramcal/regmap"
)

// Default address map, matching the example SoC.
const (
	DefaultDDRBase  uint32 = 0x10000000
	DefaultCoreBase uint32 = 0x00009000
	DefaultPHYBase  uint32 = 0x00008000
	DefaultWords           = 512
)

// Builder can build simulated devices.
type Builder struct {
	ddrBase  uint32
	coreBase uint32
	phyBase  uint32
	words    int
	windows  [regmap.NumLanes]Window
}

// MakeBuilder returns a Builder with the default address map and windows
// that cover every delay.
func MakeBuilder() Builder {
	b := Builder{
		ddrBase:  DefaultDDRBase,
		coreBase: DefaultCoreBase,
		phyBase:  DefaultPHYBase,
		words:    DefaultWords,
	}

	for lane := range b.windows {
		b.windows[lane] = Window{Min: 0, Max: 7}
	}

	return b
}

// WithDDRBase sets the address of the DRAM array.
func (b Builder) WithDDRBase(base uint32) Builder {
	b.ddrBase = base
	return b
}

// WithCoreBase sets the address of the controller block.
func (b Builder) WithCoreBase(base uint32) Builder {
	b.coreBase = base
	return b
}

// WithPHYBase sets the address of the PHY block.
func (b Builder) WithPHYBase(base uint32) Builder {
	b.phyBase = base
	return b
}

// WithWords sets the size of the DRAM array in 32-bit words.
func (b Builder) WithWords(words int) Builder {
	b.words = words
	return b
}

// WithWindow sets the delays at which a lane samples correctly.
func (b Builder) WithWindow(lane, minDelay, maxDelay int) Builder {
	b.windows[lane] = Window{Min: minDelay, Max: maxDelay}
	return b
}

// WithNoWindow makes a lane fail at every delay.
func (b Builder) WithNoWindow(lane int) Builder {
	b.windows[lane] = Window{Never: true}
	return b
}

// Build creates the device.
func (b Builder) Build() *Device {
	if b.words <= 0 {
		panic("simdram: the DRAM array must not be empty")
	}

	return &Device{
		ddrBase:  b.ddrBase,
		coreBase: b.coreBase,
		phyBase:  b.phyBase,
		ram:      make([]uint32, b.words),
		windows:  b.windows,
	}
}
