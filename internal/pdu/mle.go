package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// MLE protocol discriminator values, the demux key at the top of every
// upper-MAC SDU.
const (
	ProtoDiscriminatorMM    = 0b001
	ProtoDiscriminatorCMCE  = 0b000
	ProtoDiscriminatorMLE   = 0b101
	ProtoDiscriminatorSNDCP = 0b100
)

// MLE PDU type codes carried after the protocol discriminator.
const (
	MlePDUTypeDSysinfo = 0b0111
	MlePDUTypeDSync    = 0b0010
)

// DMleSysinfo re-announces cell parameters at the MLE layer: cell
// reselection thresholds and neighbour-cell advertisement, layered above
// the MAC-layer MAC-SYSINFO broadcast.
type DMleSysinfo struct {
	CellReselectParam uint8
	NeighbourCells    []uint16 // each a main carrier number
}

const mleNeighbourCellsFieldID = 0x1

func (p DMleSysinfo) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMLE), 3)
	b.WriteBits(uint64(MlePDUTypeDSysinfo), 4)
	b.WriteBits(uint64(p.CellReselectParam), 8)
	WriteOBit(b, len(p.NeighbourCells) > 0)
	WriteType4Struct(len(p.NeighbourCells) > 0, b, p.NeighbourCells, mleNeighbourCellsFieldID, func(v uint16, b *bitio.Buffer) {
		b.WriteBits(uint64(v), 12)
	})
}

func DMleSysinfoFromBits(b *bitio.Buffer) (DMleSysinfo, error) {
	var p DMleSysinfo
	if _, err := b.ReadField(3, "d_mle_sysinfo.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "d_mle_sysinfo.pdu_type"); err != nil {
		return p, err
	}
	crp, err := b.ReadField(8, "d_mle_sysinfo.cell_reselect_param")
	if err != nil {
		return p, err
	}
	p.CellReselectParam = uint8(crp)
	obit, err := ReadOBit(b)
	if err != nil {
		return p, err
	}
	cells, err := ParseType4Struct(obit, b, mleNeighbourCellsFieldID, func(b *bitio.Buffer) (uint16, error) {
		v, err := b.ReadField(12, "d_mle_sysinfo.neighbour_cell")
		return uint16(v), err
	})
	if err != nil {
		return p, err
	}
	p.NeighbourCells = cells
	return p, nil
}

// DMleSync announces synchronization-burst timing to a station completing
// late entry: the same timing the MAC-SYNC broadcast carries, repeated at
// the MLE layer so it can be requested on demand.
type DMleSync struct {
	ColourCode  uint8
	Timeslot    uint8
	FrameNumber uint8
	Multiframe  uint8
}

func (p DMleSync) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMLE), 3)
	b.WriteBits(uint64(MlePDUTypeDSync), 4)
	b.WriteBits(uint64(p.ColourCode), 6)
	b.WriteBits(uint64(p.Timeslot), 2)
	b.WriteBits(uint64(p.FrameNumber), 5)
	b.WriteBits(uint64(p.Multiframe), 6)
}

func DMleSyncFromBits(b *bitio.Buffer) (DMleSync, error) {
	var p DMleSync
	if _, err := b.ReadField(3, "d_mle_sync.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "d_mle_sync.pdu_type"); err != nil {
		return p, err
	}
	cc, err := b.ReadField(6, "d_mle_sync.colour_code")
	if err != nil {
		return p, err
	}
	p.ColourCode = uint8(cc)
	ts, err := b.ReadField(2, "d_mle_sync.timeslot")
	if err != nil {
		return p, err
	}
	p.Timeslot = uint8(ts)
	fn, err := b.ReadField(5, "d_mle_sync.frame_number")
	if err != nil {
		return p, err
	}
	p.FrameNumber = uint8(fn)
	mf, err := b.ReadField(6, "d_mle_sync.multiframe")
	if err != nil {
		return p, err
	}
	p.Multiframe = uint8(mf)
	return p, nil
}
