// Package regmap describes the register images of the DFI injector (the
// controller command block) and of the PHY. The layouts are a hardware
// contract: every field is a 32-bit word, fields are never reordered and
// there is no padding between them.
package regmap

import "fmt"

// WordSize is the width of every register field in bytes.
const WordSize = 4

// NumPhases is the number of DFI phases exposed by the injector.
const NumPhases = 2

// NumLanes is the number of byte lanes that the PHY calibrates.
const NumLanes = 2

// Phase mirrors one phase injector sub-block of the controller.
type Phase struct {
	Command      uint32 // 0x00
	CommandIssue uint32 // 0x04
	Address      uint32 // 0x08
	BAddress     uint32 // 0x0C
	WrData       uint32 // 0x10
	RdData       uint32 // 0x14
}

// DFII mirrors the controller command block. The control word comes first,
// followed by the phase injectors.
type DFII struct {
	Control uint32 // 0x00
	Phases  [NumPhases]Phase
}

// PHY mirrors the read-delay PHY register block.
type PHY struct {
	BurstDet uint32 // 0x00, write clears, bit n is lane n
	RdlyP0   uint32 // 0x04
	RdlyP1   uint32 // 0x08
}

// ECP5PHY mirrors the delay-increment PHY register block.
type ECP5PHY struct {
	DlySel           uint32 // 0x00
	RdlyDQRst        uint32 // 0x04
	RdlyDQInc        uint32 // 0x08
	RdlyDQBitslipRst uint32 // 0x0C
	RdlyDQBitslip    uint32 // 0x10
	BurstDetClr      uint32 // 0x14
	BurstDetSeen     uint32 // 0x18
}

// PhaseField selects a field inside a phase injector.
type PhaseField int

// The fields of a phase injector, in layout order.
const (
	PhaseCommand PhaseField = iota
	PhaseCommandIssue
	PhaseAddress
	PhaseBAddress
	PhaseWrData
	PhaseRdData
	numPhaseFields
)

var phaseFieldNames = [...]string{
	"command", "command_issue", "address", "baddress", "wrdata", "rddata",
}

func (f PhaseField) String() string {
	if f < 0 || f >= numPhaseFields {
		return fmt.Sprintf("PhaseField(%d)", int(f))
	}

	return phaseFieldNames[f]
}

// Byte offsets inside the controller block.
const (
	DFIIControl   uint32 = 0x00
	DFIIPhaseBase uint32 = 0x04
	PhaseSize     uint32 = uint32(numPhaseFields) * WordSize
	DFIISize      uint32 = DFIIPhaseBase + NumPhases*PhaseSize
)

// Byte offsets inside the read-delay PHY block.
const (
	PHYBurstDet uint32 = 0x00
	PHYRdlyP0   uint32 = 0x04
	PHYRdlyP1   uint32 = 0x08
	PHYSize     uint32 = 0x0C
)

// Byte offsets inside the delay-increment PHY block.
const (
	ECP5DlySel           uint32 = 0x00
	ECP5RdlyDQRst        uint32 = 0x04
	ECP5RdlyDQInc        uint32 = 0x08
	ECP5RdlyDQBitslipRst uint32 = 0x0C
	ECP5RdlyDQBitslip    uint32 = 0x10
	ECP5BurstDetClr      uint32 = 0x14
	ECP5BurstDetSeen     uint32 = 0x18
	ECP5Size             uint32 = 0x1C
)

// PhaseOffset returns the byte offset of a phase injector field relative to
// the start of the controller block.
func PhaseOffset(phase int, field PhaseField) (uint32, error) {
	if phase < 0 || phase >= NumPhases {
		return 0, fmt.Errorf("regmap: phase %d out of range", phase)
	}

	if field < 0 || field >= numPhaseFields {
		return 0, fmt.Errorf("regmap: invalid phase field %d", int(field))
	}

	return DFIIPhaseBase + uint32(phase)*PhaseSize + uint32(field)*WordSize, nil
}

// MustPhaseOffset is PhaseOffset for indices known to be valid.
func MustPhaseOffset(phase int, field PhaseField) uint32 {
	off, err := PhaseOffset(phase, field)
	if err != nil {
		panic(err)
	}

	return off
}

// RdlyOffset returns the byte offset of the read-delay field of a lane.
func RdlyOffset(lane int) (uint32, error) {
	switch lane {
	case 0:
		return PHYRdlyP0, nil
	case 1:
		return PHYRdlyP1, nil
	}

	return 0, fmt.Errorf("regmap: lane %d out of range", lane)
}

// Layout describes a block of registers for inspection.
type Layout struct {
	Name   string
	Fields []Field
}

// Field names one register in a Layout.
type Field struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
}

// DFIILayout lists every field of the controller block in address order.
func DFIILayout() Layout {
	l := Layout{Name: "dfii"}
	l.Fields = append(l.Fields, Field{Name: "control", Offset: DFIIControl})

	for p := 0; p < NumPhases; p++ {
		for f := PhaseCommand; f < numPhaseFields; f++ {
			l.Fields = append(l.Fields, Field{
				Name:   fmt.Sprintf("p%d_%s", p, f),
				Offset: MustPhaseOffset(p, f),
			})
		}
	}

	return l
}

// PHYLayout lists every field of the read-delay PHY block.
func PHYLayout() Layout {
	return Layout{
		Name: "phy",
		Fields: []Field{
			{Name: "burstdet", Offset: PHYBurstDet},
			{Name: "rdly_p0", Offset: PHYRdlyP0},
			{Name: "rdly_p1", Offset: PHYRdlyP1},
		},
	}
}

// ECP5Layout lists every field of the delay-increment PHY block.
func ECP5Layout() Layout {
	return Layout{
		Name: "ecp5phy",
		Fields: []Field{
			{Name: "dly_sel", Offset: ECP5DlySel},
			{Name: "rdly_dq_rst", Offset: ECP5RdlyDQRst},
			{Name: "rdly_dq_inc", Offset: ECP5RdlyDQInc},
			{Name: "rdly_dq_bitslip_rst", Offset: ECP5RdlyDQBitslipRst},
			{Name: "rdly_dq_bitslip", Offset: ECP5RdlyDQBitslip},
			{Name: "burstdet_clr", Offset: ECP5BurstDetClr},
			{Name: "burstdet_seen", Offset: ECP5BurstDetSeen},
		},
	}
}
