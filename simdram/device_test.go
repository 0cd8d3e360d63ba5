package simdram

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

var _ = Describe("Device", func() {
	var d *Device

	BeforeEach(func() {
		d = MakeBuilder().
			WithWords(16).
			WithWindow(0, 2, 4).
			WithNoWindow(1).
			Build()
	})

	rdly := func(lane int) uint32 {
		off, _ := regmap.RdlyOffset(lane)
		return DefaultPHYBase + off
	}

	It("should store words in the DRAM array", func() {
		Expect(d.Write(DefaultDDRBase+4, 0x12345678)).To(Succeed())
		Expect(d.Write(rdly(0), 3)).To(Succeed())

		v, err := d.Read(DefaultDDRBase + 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x12345678) ^ corruption<<16))
	})

	It("should reject addresses outside every block", func() {
		_, err := d.Read(DefaultDDRBase + 16*4)
		Expect(err).To(MatchError(transport.ErrOutOfRange))

		Expect(d.Write(DefaultDDRBase+2, 0)).
			To(MatchError(transport.ErrMisaligned))
	})

	It("should latch burst detect only inside the window", func() {
		burstdet := DefaultPHYBase + regmap.PHYBurstDet

		Expect(d.Write(rdly(0), 1)).To(Succeed())
		_, _ = d.Read(DefaultDDRBase)
		Expect(d.Read(burstdet)).To(Equal(uint32(0)))

		Expect(d.Write(rdly(0), 4)).To(Succeed())
		_, _ = d.Read(DefaultDDRBase)
		Expect(d.Read(burstdet)).To(Equal(uint32(1)))

		Expect(d.Write(burstdet, 1)).To(Succeed())
		Expect(d.Read(burstdet)).To(Equal(uint32(0)))
	})

	It("should log control words and commands", func() {
		core := DefaultCoreBase
		Expect(d.Write(core+regmap.DFIIControl, dfii.ControlSoftware)).
			To(Succeed())
		Expect(d.Write(
			core+regmap.MustPhaseOffset(0, regmap.PhaseAddress),
			dfii.ZQCLAddress)).To(Succeed())
		Expect(d.Write(
			core+regmap.MustPhaseOffset(0, regmap.PhaseCommand),
			dfii.CommandZQCalibrate)).To(Succeed())
		Expect(d.Initialized()).To(BeFalse())
		Expect(d.Write(
			core+regmap.MustPhaseOffset(0, regmap.PhaseCommandIssue), 1)).
			To(Succeed())

		Expect(d.Controls()).To(Equal([]uint32{dfii.ControlSoftware}))
		Expect(d.Commands()).To(Equal([]Command{{
			Phase:   0,
			Command: dfii.CommandZQCalibrate,
			Address: dfii.ZQCLAddress,
		}}))
		Expect(d.Initialized()).To(BeTrue())
		Expect(d.CoreRegisters().Phases[0].Address).
			To(Equal(dfii.ZQCLAddress))
	})

	It("should record delays", func() {
		var delayer dfii.Delayer = d
		delayer.Delay(100)
		delayer.Delay(600)

		Expect(d.Delays()).To(Equal([]int{100, 600}))
	})

	It("should snapshot the PHY block", func() {
		Expect(d.Write(rdly(1), 0xF)).To(Succeed())

		Expect(d.PHYRegisters()).To(Equal(regmap.PHY{RdlyP1: 7}))
	})
})
