// Package lmac defines the boundary contract with the error-control
// pipeline: the convolutional/interleave/scramble stack that turns a
// MAC-PDU type-1 bit block into the type-5 channel block the physical
// layer transmits, and back. The pipeline itself (FEC, interleaving,
// scrambling) is an external collaborator; this package only fixes the
// shapes that cross the boundary.
package lmac

// LogicalChannel identifies a TDMA logical channel, each with a fixed
// type-1 (pre-FEC) and type-5 (post-FEC) bit length.
type LogicalChannel int

const (
	ChannelAACH LogicalChannel = iota
	ChannelBSCH
	ChannelBNCH
	ChannelSCHF
	ChannelSCHHD
	ChannelSCHHU
	ChannelSTCH
	ChannelTCHS
)

// Type1Bits is the pre-FEC bit length mandated for each logical channel.
func (c LogicalChannel) Type1Bits() int {
	switch c {
	case ChannelAACH:
		return 14
	case ChannelBSCH:
		return 60
	case ChannelBNCH:
		return 124
	case ChannelSCHF:
		return 268
	case ChannelSCHHD, ChannelSTCH:
		return 124
	case ChannelSCHHU:
		return 92
	case ChannelTCHS:
		return 274
	default:
		return 0
	}
}

// BlockNum identifies which half (or both) of a timeslot a received
// uplink indication covers.
type BlockNum int

const (
	Block1 BlockNum = iota
	Block2
	BlockBoth
)

// TmvUnitdataReqSlot is a finalized downlink slot handed to LMAC: the
// access-assignment channel plus one or two MAC-PDU blocks.
type TmvUnitdataReqSlot struct {
	Timeslot int
	BBK      uint16 // 14-bit AACH
	Blk1     []byte
	Blk2     []byte // nil when the slot is a single full-slot PDU
}

// TmvUnitdataInd is a decoded uplink slot delivered by LMAC: the logical
// channel it arrived on, which block(s) it covers, the type-1 PDU bytes,
// whether its CRC passed, and the scrambling code it was descrambled with.
type TmvUnitdataInd struct {
	LogicalChannel LogicalChannel
	BlockNum       BlockNum
	PDU            []byte
	CRCPass        bool
	ScramblingCode uint32
}

// Encoder is the control-plane/traffic-plane encode contract: turn a
// type-1 block for a logical channel into its type-5 channel block. The
// cell's 32-bit scrambling code is used for every channel except BSCH,
// which always scrambles with DefaultScramblingCode.
type Encoder interface {
	EncodeCP(channel LogicalChannel, type1 []byte, scramblingCode uint32) ([]byte, error)
	// EncodeTP encodes a 274-bit ACELP frame. halfSlotOnly requests the
	// 216-bit second-half-only variant used for STCH stealing.
	EncodeTP(frame []byte, scramblingCode uint32, halfSlotOnly bool) ([]byte, error)
}

// Decoder is the inverse of Encoder.
type Decoder interface {
	DecodeCP(channel LogicalChannel, type5 []byte, scramblingCode uint32) (type1 []byte, crcPass bool, err error)
	// DecodeTP decodes a traffic-plane channel block. halfSlotOnly signals
	// that only the second half of the slot was received, the first half
	// having been erased by an STCH steal on receive.
	DecodeTP(type5 []byte, scramblingCode uint32, halfSlotOnly bool) (frame []byte, crcPass bool, err error)
}

// DefaultScramblingCode is used to scramble BSCH regardless of cell
// identity, so a mobile can synchronize before it knows the cell's MCC/MNC.
const DefaultScramblingCode = 0x0001

// DeriveScramblingCode computes the per-cell 32-bit scrambling code from
// colour code, MNC, and MCC: sc = ((cc | (mnc<<6) | (mcc<<20)) << 2) | 3.
func DeriveScramblingCode(colourCode, mnc, mcc uint32) uint32 {
	return ((colourCode | (mnc << 6) | (mcc << 20)) << 2) | 3
}
