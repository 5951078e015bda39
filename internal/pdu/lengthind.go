package pdu

// LengthIndKind classifies a 6-bit MAC-PDU length-indicator field. The
// boundary values (0b111110, 0b111111) carry stolen-slot and fragmentation
// signalling instead of a length.
type LengthIndKind int

const (
	// LengthIndNull marks a null PDU: fixed-length filler with no SDU.
	LengthIndNull LengthIndKind = iota
	// LengthIndReserved is an unassigned code point: 0b000001, between the
	// null PDU and the lowest valid length, or 0b111000..0b111101, between
	// the highest valid length and the stolen-slot and fragmentation-start
	// codes.
	LengthIndReserved
	// LengthIndValid carries an explicit PDU length in ValidBits.
	LengthIndValid
	// LengthIndStolenNoFrag marks the second half-slot stolen for FACCH
	// signalling, with no fragmentation in progress.
	LengthIndStolenNoFrag
	// LengthIndFragStart marks the start of a fragmented TL-SDU; the PDU
	// occupies the remainder of the slot and continues in MAC-FRAG/MAC-END.
	LengthIndFragStart
)

const (
	lengthIndMin          = 0b000010
	lengthIndMax          = 0b110111
	lengthIndStolenNoFrag = 0b111110
	lengthIndFragStart    = 0b111111
)

// LengthIndFragStartValue is the raw 6-bit wire value of the
// fragmentation-start length-ind code, exported so a composer building a
// MAC-RESOURCE/MAC-DATA/MAC-ACCESS start PDU can set Header.LengthInd
// without duplicating the bit pattern InterpretLengthInd classifies.
const LengthIndFragStartValue uint64 = lengthIndFragStart

// InterpretLengthInd classifies a raw 6-bit length-indicator value and, for
// LengthIndValid, reports the PDU length it encodes in bits (len*8).
func InterpretLengthInd(raw uint64) (kind LengthIndKind, validBits int) {
	switch {
	case raw == 0:
		return LengthIndNull, 0
	case raw >= lengthIndMin && raw <= lengthIndMax:
		return LengthIndValid, int(raw) * 8
	case raw == lengthIndStolenNoFrag:
		return LengthIndStolenNoFrag, 0
	case raw == lengthIndFragStart:
		return LengthIndFragStart, 0
	default:
		return LengthIndReserved, 0
	}
}
