package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// LLC PDU type codes, carried in the 4-bit basic-link PDU type field.
const (
	LlcPDUTypeBlAdata = 0b0000
	LlcPDUTypeBlData  = 0b0001
	LlcPDUTypeBlUdata = 0b0100
	LlcPDUTypeBlAck   = 0b0010
	LlcPDUTypeBlUack  = 0b0110
)

// BlData is an acknowledged basic-link data PDU: an N(S) sequence number
// protecting in-order delivery, plus the TL-SDU it carries.
type BlData struct {
	NS      uint8 // sequence number, mod 2 per basic-link window
	TLSDU   []byte
}

func (p BlData) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(LlcPDUTypeBlData), 4)
	b.WriteBits(uint64(p.NS), 1)
	b.CopyBits(bitio.FromBytes(p.TLSDU), len(p.TLSDU)*8)
}

func BlDataFromBits(b *bitio.Buffer) (BlData, error) {
	var p BlData
	if _, err := b.ReadField(4, "bl_data.pdu_type"); err != nil {
		return p, err
	}
	ns, err := b.ReadField(1, "bl_data.ns")
	if err != nil {
		return p, err
	}
	p.NS = uint8(ns)
	// The TL-SDU is whole bytes; bits past the last whole byte are padding.
	remaining := b.LenRemaining() / 8 * 8
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	p.TLSDU = dst.Bytes()
	return p, nil
}

// BlAdata has the same layout as BlData (an N(S) field plus the TL-SDU).
// LLC sends it in place of BL-DATA while an acknowledgement of the peer is
// pending, and it is acknowledged like BL-DATA; this encoding carries no
// N(R) field.
type BlAdata struct {
	NS    uint8
	TLSDU []byte
}

func (p BlAdata) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(LlcPDUTypeBlAdata), 4)
	b.WriteBits(uint64(p.NS), 1)
	b.CopyBits(bitio.FromBytes(p.TLSDU), len(p.TLSDU)*8)
}

func BlAdataFromBits(b *bitio.Buffer) (BlAdata, error) {
	var p BlAdata
	if _, err := b.ReadField(4, "bl_adata.pdu_type"); err != nil {
		return p, err
	}
	ns, err := b.ReadField(1, "bl_adata.ns")
	if err != nil {
		return p, err
	}
	p.NS = uint8(ns)
	remaining := b.LenRemaining() / 8 * 8
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	p.TLSDU = dst.Bytes()
	return p, nil
}

// BlUdata is unsequenced, unacknowledged basic-link data: no N(S) field.
type BlUdata struct {
	TLSDU []byte
}

func (p BlUdata) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(LlcPDUTypeBlUdata), 4)
	b.CopyBits(bitio.FromBytes(p.TLSDU), len(p.TLSDU)*8)
}

func BlUdataFromBits(b *bitio.Buffer) (BlUdata, error) {
	var p BlUdata
	if _, err := b.ReadField(4, "bl_udata.pdu_type"); err != nil {
		return p, err
	}
	remaining := b.LenRemaining() / 8 * 8
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	p.TLSDU = dst.Bytes()
	return p, nil
}

// BlAck acknowledges receipt of a BL-DATA PDU, optionally piggybacking a
// short retry-count element when the peer is probing for a stalled window.
type BlAck struct {
	NR         uint8
	RetryCount *uint8
}

const blAckRetryCountFieldID = 0x1

func (p BlAck) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(LlcPDUTypeBlAck), 4)
	b.WriteBits(uint64(p.NR), 1)
	WriteOBit(b, p.RetryCount != nil)
	if p.RetryCount != nil {
		v := uint64(*p.RetryCount)
		WriteType2Generic(true, b, &v, 4)
	}
}

func BlAckFromBits(b *bitio.Buffer) (BlAck, error) {
	var p BlAck
	if _, err := b.ReadField(4, "bl_ack.pdu_type"); err != nil {
		return p, err
	}
	nr, err := b.ReadField(1, "bl_ack.nr")
	if err != nil {
		return p, err
	}
	p.NR = uint8(nr)
	obit, err := ReadOBit(b)
	if err != nil {
		return p, err
	}
	v, err := ParseType2Generic(obit, b, 4, "bl_ack.retry_count")
	if err != nil {
		return p, err
	}
	if v != nil {
		rc := uint8(*v)
		p.RetryCount = &rc
	}
	return p, nil
}
