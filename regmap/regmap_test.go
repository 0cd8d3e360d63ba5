package regmap

import (
	"encoding/binary"
	"unsafe"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Layout", func() {
	It("should pin the controller block offsets", func() {
		var d DFII

		Expect(binary.Size(d)).To(Equal(int(DFIISize)))
		Expect(unsafe.Offsetof(d.Control)).To(BeEquivalentTo(DFIIControl))
		Expect(unsafe.Offsetof(d.Phases)).To(BeEquivalentTo(DFIIPhaseBase))

		var p Phase
		Expect(binary.Size(p)).To(Equal(int(PhaseSize)))
		Expect(unsafe.Offsetof(p.Command)).To(BeEquivalentTo(0x00))
		Expect(unsafe.Offsetof(p.CommandIssue)).To(BeEquivalentTo(0x04))
		Expect(unsafe.Offsetof(p.Address)).To(BeEquivalentTo(0x08))
		Expect(unsafe.Offsetof(p.BAddress)).To(BeEquivalentTo(0x0C))
		Expect(unsafe.Offsetof(p.WrData)).To(BeEquivalentTo(0x10))
		Expect(unsafe.Offsetof(p.RdData)).To(BeEquivalentTo(0x14))
	})

	It("should pin the PHY block offsets", func() {
		var p PHY

		Expect(binary.Size(p)).To(Equal(int(PHYSize)))
		Expect(unsafe.Offsetof(p.BurstDet)).To(BeEquivalentTo(PHYBurstDet))
		Expect(unsafe.Offsetof(p.RdlyP0)).To(BeEquivalentTo(PHYRdlyP0))
		Expect(unsafe.Offsetof(p.RdlyP1)).To(BeEquivalentTo(PHYRdlyP1))

		var e ECP5PHY
		Expect(binary.Size(e)).To(Equal(int(ECP5Size)))
		Expect(unsafe.Offsetof(e.DlySel)).To(BeEquivalentTo(ECP5DlySel))
		Expect(unsafe.Offsetof(e.BurstDetClr)).To(BeEquivalentTo(ECP5BurstDetClr))
		Expect(unsafe.Offsetof(e.BurstDetSeen)).To(BeEquivalentTo(ECP5BurstDetSeen))
	})

	It("should compute phase offsets", func() {
		Expect(MustPhaseOffset(0, PhaseCommand)).To(Equal(uint32(0x04)))
		Expect(MustPhaseOffset(0, PhaseAddress)).To(Equal(uint32(0x0C)))
		Expect(MustPhaseOffset(1, PhaseCommand)).To(Equal(uint32(0x1C)))
		Expect(MustPhaseOffset(1, PhaseRdData)).To(Equal(uint32(0x30)))
	})

	It("should reject out of range phases and lanes", func() {
		_, err := PhaseOffset(2, PhaseCommand)
		Expect(err).To(HaveOccurred())

		_, err = PhaseOffset(0, PhaseField(9))
		Expect(err).To(HaveOccurred())

		_, err = RdlyOffset(2)
		Expect(err).To(HaveOccurred())
	})

	It("should list the controller fields in address order", func() {
		l := DFIILayout()

		Expect(l.Fields).To(HaveLen(1 + NumPhases*6))
		Expect(l.Fields[0].Name).To(Equal("control"))
		Expect(l.Fields[1].Name).To(Equal("p0_command"))
		Expect(l.Fields[12].Name).To(Equal("p1_rddata"))

		for i := 1; i < len(l.Fields); i++ {
			Expect(l.Fields[i].Offset).To(
				Equal(l.Fields[i-1].Offset + WordSize))
		}
	})

	It("should decode and encode register images", func() {
		words := []uint32{0x0E, 1, 2, 3, 4, 5, 6}

		var phy ECP5PHY
		Expect(Decode(words, &phy)).To(Succeed())
		Expect(phy.DlySel).To(Equal(uint32(0x0E)))
		Expect(phy.BurstDetSeen).To(Equal(uint32(6)))

		back, err := Encode(phy)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal(words))
	})

	It("should reject a short image", func() {
		var d DFII
		Expect(Decode([]uint32{1, 2}, &d)).NotTo(Succeed())
	})
})
