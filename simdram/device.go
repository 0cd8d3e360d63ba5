// Package simdram simulates a memory controller, its read-delay PHY and the
// attached DRAM behind a single register address space.
package simdram

import (
	"fmt"
	"sync"

	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

// Window is the range of read delays at which a lane samples correctly.
type Window struct {
	Min, Max int
	Never    bool
}

func (w Window) contains(delay uint32) bool {
	return !w.Never && int(delay) >= w.Min && int(delay) <= w.Max
}

// Command is one command issued through a phase injector.
type Command struct {
	Phase    int
	Command  uint32
	Address  uint32
	BAddress uint32
}

// corruption is XORed into the half word of a lane read outside its window.
const corruption uint32 = 0xA5A5

// Device is a simulated controller, PHY and DRAM. It implements
// transport.RegisterAccess and dfii.Delayer. Device is safe for concurrent
// use.
type Device struct {
	lock sync.Mutex

	ddrBase, coreBase, phyBase uint32

	core    [regmap.DFIISize / regmap.WordSize]uint32
	phy     [regmap.PHYSize / regmap.WordSize]uint32
	ram     []uint32
	windows [regmap.NumLanes]Window

	controls    []uint32
	commands    []Command
	delays      []int
	initialized bool
	reads       uint64
	writes      uint64
}

// Read implements transport.RegisterAccess.
func (d *Device) Read(addr uint32) (uint32, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if addr%regmap.WordSize != 0 {
		return 0, fmt.Errorf("simdram: read 0x%08x: %w", addr, transport.ErrMisaligned)
	}

	d.reads++

	switch {
	case d.inRAM(addr):
		return d.readRAM(addr), nil
	case d.inBlock(addr, d.coreBase, regmap.DFIISize):
		return d.core[(addr-d.coreBase)/regmap.WordSize], nil
	case d.inBlock(addr, d.phyBase, regmap.PHYSize):
		return d.phy[(addr-d.phyBase)/regmap.WordSize], nil
	}

	return 0, fmt.Errorf("simdram: read 0x%08x: %w", addr, transport.ErrOutOfRange)
}

// Write implements transport.RegisterAccess.
func (d *Device) Write(addr, value uint32) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if addr%regmap.WordSize != 0 {
		return fmt.Errorf("simdram: write 0x%08x: %w", addr, transport.ErrMisaligned)
	}

	d.writes++

	switch {
	case d.inRAM(addr):
		d.ram[(addr-d.ddrBase)/regmap.WordSize] = value
	case d.inBlock(addr, d.coreBase, regmap.DFIISize):
		d.writeCore(addr-d.coreBase, value)
	case d.inBlock(addr, d.phyBase, regmap.PHYSize):
		d.writePHY(addr-d.phyBase, value)
	default:
		return fmt.Errorf("simdram: write 0x%08x: %w", addr, transport.ErrOutOfRange)
	}

	return nil
}

// Delay records a wait of the sequencer. It implements dfii.Delayer.
func (d *Device) Delay(cycles int) {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.delays = append(d.delays, cycles)
}

func (d *Device) inBlock(addr, base, size uint32) bool {
	return addr >= base && addr-base < size
}

func (d *Device) inRAM(addr uint32) bool {
	return d.inBlock(addr, d.ddrBase, uint32(len(d.ram))*regmap.WordSize)
}

func (d *Device) writeCore(off, value uint32) {
	d.core[off/regmap.WordSize] = value

	if off == regmap.DFIIControl {
		d.controls = append(d.controls, value)
		return
	}

	for p := 0; p < regmap.NumPhases; p++ {
		if off != regmap.MustPhaseOffset(p, regmap.PhaseCommandIssue) {
			continue
		}

		cmd := Command{
			Phase:    p,
			Command:  d.coreField(p, regmap.PhaseCommand),
			Address:  d.coreField(p, regmap.PhaseAddress),
			BAddress: d.coreField(p, regmap.PhaseBAddress),
		}
		d.commands = append(d.commands, cmd)

		if cmd.Command == dfii.CommandZQCalibrate &&
			cmd.Address == dfii.ZQCLAddress {
			d.initialized = true
		}
	}
}

func (d *Device) coreField(phase int, field regmap.PhaseField) uint32 {
	return d.core[regmap.MustPhaseOffset(phase, field)/regmap.WordSize]
}

func (d *Device) writePHY(off, value uint32) {
	switch off {
	case regmap.PHYBurstDet:
		d.phy[off/regmap.WordSize] = 0
	case regmap.PHYRdlyP0, regmap.PHYRdlyP1:
		d.phy[off/regmap.WordSize] = value & 0x7
	}
}

// readRAM returns the stored word as seen through the PHY. Lanes sampled
// inside their window latch burst detect; lanes outside it return corrupted
// data.
func (d *Device) readRAM(addr uint32) uint32 {
	value := d.ram[(addr-d.ddrBase)/regmap.WordSize]

	for lane := 0; lane < regmap.NumLanes; lane++ {
		off, _ := regmap.RdlyOffset(lane)
		delay := d.phy[off/regmap.WordSize]

		if d.windows[lane].contains(delay) {
			d.phy[regmap.PHYBurstDet/regmap.WordSize] |= 1 << lane
			continue
		}

		value ^= corruption << (16 * lane)
	}

	return value
}

// Controls returns every control word written, in order.
func (d *Device) Controls() []uint32 {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]uint32(nil), d.controls...)
}

// Commands returns every issued command, in order.
func (d *Device) Commands() []Command {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]Command(nil), d.commands...)
}

// Delays returns every recorded wait, in order.
func (d *Device) Delays() []int {
	d.lock.Lock()
	defer d.lock.Unlock()

	return append([]int(nil), d.delays...)
}

// Initialized tells whether the long ZQ calibration that ends the init
// sequence was issued.
func (d *Device) Initialized() bool {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.initialized
}

// AccessCounts returns the number of reads and writes served.
func (d *Device) AccessCounts() (reads, writes uint64) {
	d.lock.Lock()
	defer d.lock.Unlock()

	return d.reads, d.writes
}

// Words returns the size of the DRAM array in words.
func (d *Device) Words() int {
	return len(d.ram)
}

// CoreRegisters returns a snapshot of the controller block.
func (d *Device) CoreRegisters() regmap.DFII {
	d.lock.Lock()
	defer d.lock.Unlock()

	var regs regmap.DFII
	if err := regmap.Decode(d.core[:], &regs); err != nil {
		panic(err)
	}

	return regs
}

// PHYRegisters returns a snapshot of the PHY block.
func (d *Device) PHYRegisters() regmap.PHY {
	d.lock.Lock()
	defer d.lock.Unlock()

	var regs regmap.PHY
	if err := regmap.Decode(d.phy[:], &regs); err != nil {
		panic(err)
	}

	return regs
}

// Bases returns the addresses of the DRAM array, the controller block and
// the PHY block.
func (d *Device) Bases() (ddr, core, phy uint32) {
	return d.ddrBase, d.coreBase, d.phyBase
}
