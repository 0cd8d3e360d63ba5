package memtest_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramcal/memtest"
	"github.com/sarchlab/dramcal/transport"
)

const ramBase = uint32(0x10000000)

// faultyMemory flips bits of selected words when they are read.
type faultyMemory struct {
	*transport.Memory
	flips map[uint32]uint32
}

func (m *faultyMemory) Read(addr uint32) (uint32, error) {
	v, err := m.Memory.Read(addr)
	return v ^ m.flips[addr], err
}

type op struct {
	write bool
	addr  uint32
}

// opLog records the order of accesses.
type opLog struct {
	*transport.Memory
	ops []op
}

func (l *opLog) Read(addr uint32) (uint32, error) {
	l.ops = append(l.ops, op{addr: addr})
	return l.Memory.Read(addr)
}

func (l *opLog) Write(addr, value uint32) error {
	l.ops = append(l.ops, op{write: true, addr: addr})
	return l.Memory.Write(addr, value)
}

type countingDelayer struct {
	cycles int
}

func (d *countingDelayer) Delay(cycles int) {
	d.cycles += cycles
}

// corruptingDelayer flips bits of a stored word while the test settles.
type corruptingDelayer struct {
	mem  *transport.Memory
	addr uint32
	mask uint32
}

func (d *corruptingDelayer) Delay(int) {
	v, _ := d.mem.Read(d.addr)
	_ = d.mem.Write(d.addr, v^d.mask)
}

var _ = Describe("Run", func() {
	var mem *transport.Memory

	BeforeEach(func() {
		mem = transport.NewMemory()
	})

	It("should pass over healthy memory at 32 bits", func() {
		report, err := memtest.Run(mem, ramBase, 64, memtest.Width32)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Passed()).To(BeTrue())
		Expect(report.Checked).To(Equal(uint32(64)))
		Expect(mem.Read(ramBase + 63*4)).To(Equal(memtest.Fill32))
	})

	It("should pass over healthy memory at 8 bits", func() {
		report, err := memtest.Run(mem, ramBase, 10, memtest.Width8)

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Checked).To(Equal(uint32(10)))
		Expect(mem.Read(ramBase)).To(Equal(uint32(0xDEDEDEDE)))
		Expect(mem.Read(ramBase + 8)).To(Equal(uint32(0x0000DEDE)))
	})

	It("should reject unknown widths", func() {
		_, err := memtest.Run(mem, ramBase, 4, memtest.Width(16))

		Expect(err).To(MatchError(memtest.ErrUnsupportedWidth))
		Expect(mem.Len()).To(Equal(0))
	})

	It("should complete the write pass before reading", func() {
		log := &opLog{Memory: mem}

		_, err := memtest.Run(log, ramBase, 16, memtest.Width32)

		Expect(err).NotTo(HaveOccurred())
		Expect(log.ops).To(HaveLen(32))
		for i, o := range log.ops {
			Expect(o.write).To(Equal(i < 16))
		}
	})

	It("should wait between the passes", func() {
		d := &countingDelayer{}

		_, err := memtest.Run(mem, ramBase, 4, memtest.Width32, memtest.WithSettleDelay(d, 1000))

		Expect(err).NotTo(HaveOccurred())
		Expect(d.cycles).To(Equal(1000))
	})

	It("should stop at the first mismatch", func() {
		faulty := &faultyMemory{
			Memory: mem,
			flips:  map[uint32]uint32{ramBase + 8: 0x10, ramBase + 12: 0x1},
		}

		report, err := memtest.Run(faulty, ramBase, 8, memtest.Width32)

		Expect(err).To(MatchError(memtest.ErrMismatch))
		Expect(report.Errors).To(Equal(1))
		Expect(report.Checked).To(Equal(uint32(3)))
		addr, ok := report.FirstFailAddr()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(ramBase + 8))
	})

	It("should detect a corrupted byte lane", func() {
		corrupt := &corruptingDelayer{
			mem:  mem,
			addr: ramBase + 4,
			mask: 0x00FF0000,
		}

		report, err := memtest.Run(mem, ramBase, 8, memtest.Width8,
			memtest.WithSettleDelay(corrupt, 1), memtest.WithErrorLimit(-1))

		Expect(err).To(MatchError(memtest.ErrMismatch))
		Expect(report.Errors).To(Equal(1))
		Expect(report.Checked).To(Equal(uint32(8)))
		Expect(report.Failures[0]).To(Equal(memtest.Failure{
			Addr: ramBase + 6,
			Want: memtest.Fill8,
			Got:  memtest.Fill8 ^ 0xFF,
		}))
	})

	It("should spread a read path fault across the word at 8 bits", func() {
		faulty := &faultyMemory{
			Memory: mem,
			flips:  map[uint32]uint32{ramBase + 4: 0x00FF0000},
		}

		_, err := memtest.Run(faulty, ramBase, 8, memtest.Width8)

		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Read(ramBase + 4)).To(Equal(uint32(0xDE21DEDE)))
	})

	It("should refuse a window past the end of the address space", func() {
		_, err := memtest.Run(mem, 0xFFFFFFF8, 4, memtest.Width32)

		Expect(err).To(MatchError(memtest.ErrOutOfRange))
		Expect(mem.Len()).To(Equal(0))
	})

	It("should accept a window ending at the top of the address space", func() {
		_, err := memtest.Run(mem, 0xFFFFFFF8, 2, memtest.Width32)

		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Read(0xFFFFFFFC)).To(Equal(memtest.Fill32))
	})

	It("should keep scanning up to the error limit", func() {
		flips := map[uint32]uint32{}
		for i := uint32(0); i < 20; i++ {
			flips[ramBase+i*4] = 1
		}
		faulty := &faultyMemory{Memory: mem, flips: flips}

		report, err := memtest.Run(faulty, ramBase, 32, memtest.Width32,
			memtest.WithAddressPattern(), memtest.WithErrorLimit(10))

		Expect(err).To(MatchError(memtest.ErrMismatch))
		Expect(report.Errors).To(Equal(11))
		Expect(report.Checked).To(Equal(uint32(11)))
	})

	It("should tag elements with their offset", func() {
		_, err := memtest.Run(mem, ramBase, 4, memtest.Width32, memtest.WithAddressPattern())

		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Read(ramBase + 12)).To(Equal(uint32(0xDEAF000C)))
	})

	It("should fill with the LFSR sequence", func() {
		_, err := memtest.Run(mem, ramBase, 2, memtest.Width32, memtest.WithLFSR())

		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Read(ramBase)).To(Equal(uint32(0xD650D673)))
		Expect(mem.Read(ramBase + 4)).To(Equal(uint32(0xEB086B3A)))
	})

	It("should truncate the LFSR sequence to bytes", func() {
		_, err := memtest.Run(mem, ramBase, 2, memtest.Width8, memtest.WithLFSR())

		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Read(ramBase)).To(Equal(uint32(0x3A73)))
	})
})

var _ = Describe("LFSR", func() {
	It("should not repeat within a short run", func() {
		l := memtest.NewLFSR(memtest.LFSRSeed)
		seen := map[uint32]bool{}

		for i := 0; i < 1000; i++ {
			v := l.Next()
			Expect(v).NotTo(BeZero())
			Expect(seen).NotTo(HaveKey(v))
			seen[v] = true
		}
	})

	It("should refuse a zero seed", func() {
		Expect(func() { memtest.NewLFSR(0) }).To(Panic())
	})
})
