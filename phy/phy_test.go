package phy

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/dramcal/regmap"
)

const phyBase = uint32(0x8000)

var _ = Describe("PHY", func() {
	var (
		mockCtrl *gomock.Controller
		access   *MockRegisterAccess
		p        *PHY
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		access = NewMockRegisterAccess(mockCtrl)
		p = New(access, phyBase)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should clear the burst detect latch by writing 1", func() {
		access.EXPECT().Write(phyBase+regmap.PHYBurstDet, uint32(1))

		Expect(p.ResetBurstDetect()).To(Succeed())
	})

	It("should report burst detection per lane", func() {
		access.EXPECT().
			Read(phyBase + regmap.PHYBurstDet).
			Return(uint32(0b10), nil).
			Times(2)

		lane0, err := p.BurstDetected(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(lane0).To(BeFalse())

		lane1, err := p.BurstDetected(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(lane1).To(BeTrue())
	})

	It("should reject lanes out of range", func() {
		_, err := p.BurstDetected(2)
		Expect(err).To(HaveOccurred())

		Expect(p.SetReadDelay(-1, 0)).NotTo(Succeed())
	})

	It("should write both delay fields", func() {
		gomock.InOrder(
			access.EXPECT().Write(phyBase+regmap.PHYRdlyP0, uint32(3)),
			access.EXPECT().Write(phyBase+regmap.PHYRdlyP1, uint32(5)),
		)

		Expect(p.SetReadDelays([NumLanes]uint8{3, 5})).To(Succeed())
	})

	It("should reject delays above the maximum", func() {
		Expect(p.SetReadDelay(0, MaxReadDelay+1)).NotTo(Succeed())
	})

	It("should read back the delays", func() {
		access.EXPECT().
			Read(phyBase+regmap.PHYRdlyP0).
			Return(uint32(2), nil)
		access.EXPECT().
			Read(phyBase+regmap.PHYRdlyP1).
			Return(uint32(6), nil)

		delays, err := p.ReadDelays()

		Expect(err).NotTo(HaveOccurred())
		Expect(delays).To(Equal([NumLanes]uint8{2, 6}))
	})

	It("should wrap transport errors", func() {
		failure := errors.New("link down")
		access.EXPECT().
			Write(phyBase+regmap.PHYBurstDet, uint32(1)).
			Return(failure)

		Expect(p.ResetBurstDetect()).To(MatchError(failure))
	})
})

var _ = Describe("ECP5", func() {
	var (
		mockCtrl *gomock.Controller
		access   *MockRegisterAccess
		p        *ECP5
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		access = NewMockRegisterAccess(mockCtrl)
		p = NewECP5(access, phyBase)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectPulse := func(lane int, off uint32) []any {
		return []any{
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(1)<<lane),
			access.EXPECT().Write(phyBase+off, uint32(1)),
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(0)),
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(0xFF)),
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(0)),
		}
	}

	expectReset := func() []any {
		return []any{
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(0xFF)),
			access.EXPECT().Write(phyBase+regmap.ECP5RdlyDQRst, uint32(1)),
			access.EXPECT().
				Write(phyBase+regmap.ECP5RdlyDQBitslipRst, uint32(1)),
			access.EXPECT().Write(phyBase+regmap.ECP5DlySel, uint32(0)),
		}
	}

	It("should select, strobe, deselect and pause for a delay step", func() {
		gomock.InOrder(expectPulse(1, regmap.ECP5RdlyDQInc)...)

		Expect(p.IncrementReadDelay(1)).To(Succeed())
	})

	It("should step the bitslip", func() {
		gomock.InOrder(expectPulse(0, regmap.ECP5RdlyDQBitslip)...)

		Expect(p.IncrementBitslip(0)).To(Succeed())
	})

	It("should reset and step up to the requested delays", func() {
		calls := expectReset()
		calls = append(calls, expectPulse(0, regmap.ECP5RdlyDQInc)...)
		calls = append(calls, expectPulse(1, regmap.ECP5RdlyDQInc)...)
		calls = append(calls, expectPulse(1, regmap.ECP5RdlyDQInc)...)
		gomock.InOrder(calls...)

		Expect(p.SetReadDelays([NumLanes]uint8{1, 2})).To(Succeed())
	})

	It("should use the dedicated burst detect registers", func() {
		access.EXPECT().Write(phyBase+regmap.ECP5BurstDetClr, uint32(1))
		access.EXPECT().
			Read(phyBase+regmap.ECP5BurstDetSeen).
			Return(uint32(0b01), nil)

		Expect(p.ResetBurstDetect()).To(Succeed())
		seen, err := p.BurstDetected(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(BeTrue())
	})
})
