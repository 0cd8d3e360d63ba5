package memtest

// LFSR parameters of the pseudo-random pattern.
const (
	LFSRSeed uint32 = 0xACE1ACE1
	LFSRTaps uint32 = 0x80200003
)

type generator interface {
	next(i uint32) uint32
}

type fixedPattern struct {
	value uint32
}

func (p fixedPattern) next(uint32) uint32 {
	return p.value
}

// LFSR is a 32-bit Galois linear-feedback shift register.
type LFSR struct {
	state uint32
}

// NewLFSR creates an LFSR with the given non-zero seed.
func NewLFSR(seed uint32) *LFSR {
	if seed == 0 {
		panic("memtest: LFSR seed must be non-zero")
	}

	return &LFSR{state: seed}
}

// Next advances the register and returns the new state.
func (l *LFSR) Next() uint32 {
	lsb := l.state & 1
	l.state >>= 1

	if lsb != 0 {
		l.state ^= LFSRTaps
	}

	return l.state
}

type lfsrPattern struct {
	lfsr *LFSR
	mask uint32
}

func (p lfsrPattern) next(uint32) uint32 {
	return p.lfsr.Next() & p.mask
}

type addressPattern struct {
	width Width
	mask  uint32
}

func (p addressPattern) next(i uint32) uint32 {
	return (AddressTag | i*p.width.Bytes()) & p.mask
}

func widthMask(w Width) uint32 {
	if w == Width8 {
		return 0xFF
	}

	return 0xFFFFFFFF
}

func fixedFor(w Width) uint32 {
	if w == Width8 {
		return Fill8
	}

	return Fill32
}
