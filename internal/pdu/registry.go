package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// SAP names the service access point a PDU family is exchanged over,
// mirroring the layering in spec.md's entity diagram: MAC talks to LMAC
// below and LLC above; LLC talks to MLE; MLE demuxes MM and CMCE by
// protocol discriminator.
type SAP int

const (
	SAPLMAC SAP = iota
	SAPMAC
	SAPLLC
	SAPMLE
	SAPMM
	SAPCMCE
)

// PDUFamily classifies a decoded PDU by the layer it belongs to, for
// routing a raw slot payload to the right FromBits function before its
// protocol-discriminator or PDU-type field has been interpreted.
type PDUFamily int

const (
	FamilyMAC PDUFamily = iota
	FamilyLLC
	FamilyMLE
	FamilyMM
	FamilyCMCE
)

// protocolDiscriminatorFamily maps the 3-bit protocol discriminator carried
// at the head of every upper-MAC SDU to the family that owns it.
func protocolDiscriminatorFamily(pd uint64) (PDUFamily, bool) {
	switch pd {
	case ProtoDiscriminatorMM:
		return FamilyMM, true
	case ProtoDiscriminatorCMCE:
		return FamilyCMCE, true
	case ProtoDiscriminatorMLE:
		return FamilyMLE, true
	default:
		return 0, false
	}
}

// IdentifyUpperFamily peeks the 3-bit protocol discriminator at the start
// of an LLC-delivered TL-SDU without consuming it, so the MLE dispatcher
// can route to the right family parser before any header field is parsed.
func IdentifyUpperFamily(b *bitio.Buffer) (PDUFamily, bool) {
	pd, ok := b.PeekBits(3)
	if !ok {
		return 0, false
	}
	return protocolDiscriminatorFamily(pd)
}
