// Package memtest fills a window of memory with a pattern through a register
// transport and verifies it.
package memtest

import (
	"errors"
	"fmt"

	"github.com/sarchlab/dramcal/transport"
)

// Width is the access width of a test.
type Width int

// Supported access widths.
const (
	Width8  Width = 8
	Width32 Width = 32
)

func (w Width) String() string {
	switch w {
	case Width8:
		return "8-bit"
	case Width32:
		return "32-bit"
	}

	return fmt.Sprintf("Width(%d)", int(w))
}

// Bytes returns the number of bytes of one element.
func (w Width) Bytes() uint32 {
	return uint32(w) / 8
}

// Fill values of the fixed pattern.
const (
	Fill8  uint32 = 0xDE
	Fill32 uint32 = 0xFEEDFACE
)

// AddressTag is ORed with the byte offset in the address pattern.
const AddressTag uint32 = 0xDEAF0000

var (
	// ErrUnsupportedWidth is returned for widths other than 8 and 32 bits.
	ErrUnsupportedWidth = errors.New("memtest: unsupported width")

	// ErrMismatch is returned when a read back element differs.
	ErrMismatch = errors.New("memtest: mismatch")

	// ErrOutOfRange is returned when the window runs past the 32-bit address
	// space.
	ErrOutOfRange = errors.New("memtest: window exceeds address space")
)

// Failure describes one mismatching element.
type Failure struct {
	Addr uint32
	Want uint32
	Got  uint32
}

// Report summarizes a run.
type Report struct {
	Width    Width
	Elements uint32
	Checked  uint32
	Errors   int
	Failures []Failure
}

// FirstFailAddr returns the address of the first mismatch.
func (r Report) FirstFailAddr() (uint32, bool) {
	if len(r.Failures) == 0 {
		return 0, false
	}

	return r.Failures[0].Addr, true
}

// Passed tells whether every element matched.
func (r Report) Passed() bool {
	return r.Errors == 0
}

// Run writes length elements of width starting at base, then reads all of
// them back. The write pass always completes before the read pass starts.
// Without WithErrorLimit the read pass stops at the first mismatch.
//
// Bytes are written by read-modify-write of their word, so a fault on the
// read path during the write pass spreads into the neighbouring bytes of the
// same word.
func Run(
	access transport.RegisterAccess,
	base, length uint32,
	width Width,
	opts ...Option,
) (Report, error) {
	report := Report{Width: width, Elements: length}

	if width != Width8 && width != Width32 {
		return report, fmt.Errorf("%w: %d", ErrUnsupportedWidth, int(width))
	}

	if uint64(base)+uint64(length)*uint64(width.Bytes()) > 1<<32 {
		return report, fmt.Errorf("%w: 0x%08x + %d x %s",
			ErrOutOfRange, base, length, width)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	mem := elementAccess{access: access, base: base, width: width}
	gen := cfg.pattern(width)

	for i := uint32(0); i < length; i++ {
		if err := mem.store(i, gen.next(i)); err != nil {
			return report, fmt.Errorf("memtest: write element %d: %w", i, err)
		}
	}

	if cfg.delayer != nil && cfg.settleCycles > 0 {
		cfg.delayer.Delay(cfg.settleCycles)
	}

	gen = cfg.pattern(width)

	for i := uint32(0); i < length; i++ {
		want := gen.next(i)

		got, err := mem.load(i)
		if err != nil {
			return report, fmt.Errorf("memtest: read element %d: %w", i, err)
		}

		report.Checked++

		if got == want {
			continue
		}

		report.Errors++
		report.Failures = append(report.Failures,
			Failure{Addr: mem.addr(i), Want: want, Got: got})

		if report.Errors > cfg.errorLimit {
			break
		}
	}

	if report.Errors > 0 {
		f := report.Failures[0]

		return report, fmt.Errorf("%w at 0x%08x: want 0x%x, got 0x%x",
			ErrMismatch, f.Addr, f.Want, f.Got)
	}

	return report, nil
}

// elementAccess reads and writes elements of a width through a 32-bit
// transport. Bytes are accessed as read-modify-write of the containing word,
// little endian.
type elementAccess struct {
	access transport.RegisterAccess
	base   uint32
	width  Width
}

func (m elementAccess) addr(i uint32) uint32 {
	return m.base + i*m.width.Bytes()
}

func (m elementAccess) store(i, value uint32) error {
	addr := m.addr(i)

	if m.width == Width32 {
		return m.access.Write(addr, value)
	}

	word, shift := addr&^3, (addr&3)*8

	old, err := m.access.Read(word)
	if err != nil {
		return err
	}

	updated := old&^(0xFF<<shift) | (value&0xFF)<<shift

	return m.access.Write(word, updated)
}

func (m elementAccess) load(i uint32) (uint32, error) {
	addr := m.addr(i)

	if m.width == Width32 {
		return m.access.Read(addr)
	}

	word, err := m.access.Read(addr &^ 3)
	if err != nil {
		return 0, err
	}

	return (word >> ((addr & 3) * 8)) & 0xFF, nil
}
