package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// MM PDU type codes, the 4-bit field immediately following the MM
// protocol discriminator.
const (
	MmPDUTypeULocationUpdateDemand  = 0b0001
	MmPDUTypeDLocationUpdateAccept  = 0b0010
	MmPDUTypeDLocationUpdateReject  = 0b0011
	MmPDUTypeUItsiDetach            = 0b0101
	MmPDUTypeUAttachDetachGroupID   = 0b0110
	MmPDUTypeDAttachDetachGroupIDAck = 0b0111
	MmPDUTypeUMmStatus              = 0b1000
	MmPDUTypeDMmStatus              = 0b1001
)

// LocationUpdateType enumerates the reason a mobile gives for a location
// update demand.
type LocationUpdateType uint8

const (
	LocationUpdateRoaming LocationUpdateType = iota
	LocationUpdatePeriodic
	LocationUpdateItsiAttach
	LocationUpdateCallRestore
	LocationUpdateDemand
	LocationUpdateDisabledToEnabled
)

// ULocationUpdateDemand is the uplink registration request a mobile sends
// on entering a new location area or on its periodic update timer.
type ULocationUpdateDemand struct {
	UpdateType   LocationUpdateType
	LocationArea uint16
	ITSI         uint32
}

func (p ULocationUpdateDemand) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeULocationUpdateDemand), 4)
	b.WriteBits(uint64(p.UpdateType), 3)
	b.WriteBits(uint64(p.LocationArea), 14)
	b.WriteBits(uint64(p.ITSI), 24)
}

func ULocationUpdateDemandFromBits(b *bitio.Buffer) (ULocationUpdateDemand, error) {
	var p ULocationUpdateDemand
	if _, err := b.ReadField(3, "u_location_update_demand.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "u_location_update_demand.pdu_type"); err != nil {
		return p, err
	}
	ut, err := b.ReadField(3, "u_location_update_demand.update_type")
	if err != nil {
		return p, err
	}
	p.UpdateType = LocationUpdateType(ut)
	la, err := b.ReadField(14, "u_location_update_demand.location_area")
	if err != nil {
		return p, err
	}
	p.LocationArea = uint16(la)
	itsi, err := b.ReadField(24, "u_location_update_demand.itsi")
	if err != nil {
		return p, err
	}
	p.ITSI = uint32(itsi)
	return p, nil
}

// DLocationUpdateAccept confirms successful registration, optionally
// assigning a fresh group identity alongside acceptance.
type DLocationUpdateAccept struct {
	UpdateType   LocationUpdateType
	LocationArea uint16
}

func (p DLocationUpdateAccept) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeDLocationUpdateAccept), 4)
	b.WriteBits(uint64(p.UpdateType), 3)
	b.WriteBits(uint64(p.LocationArea), 14)
}

func DLocationUpdateAcceptFromBits(b *bitio.Buffer) (DLocationUpdateAccept, error) {
	var p DLocationUpdateAccept
	if _, err := b.ReadField(3, "d_location_update_accept.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "d_location_update_accept.pdu_type"); err != nil {
		return p, err
	}
	ut, err := b.ReadField(3, "d_location_update_accept.update_type")
	if err != nil {
		return p, err
	}
	p.UpdateType = LocationUpdateType(ut)
	la, err := b.ReadField(14, "d_location_update_accept.location_area")
	if err != nil {
		return p, err
	}
	p.LocationArea = uint16(la)
	return p, nil
}

// LocationUpdateRejectCause enumerates the reasons a registration demand
// can be refused.
type LocationUpdateRejectCause uint8

const (
	RejectCauseNetworkCongestion LocationUpdateRejectCause = iota
	RejectCauseITSIUnknown
	RejectCauseIllegalMS
	RejectCauseLocationAreaNotAllowed
)

// DLocationUpdateReject refuses a registration demand with a cause.
type DLocationUpdateReject struct {
	Cause LocationUpdateRejectCause
}

func (p DLocationUpdateReject) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeDLocationUpdateReject), 4)
	b.WriteBits(uint64(p.Cause), 4)
}

func DLocationUpdateRejectFromBits(b *bitio.Buffer) (DLocationUpdateReject, error) {
	var p DLocationUpdateReject
	if _, err := b.ReadField(3, "d_location_update_reject.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "d_location_update_reject.pdu_type"); err != nil {
		return p, err
	}
	cause, err := b.ReadField(4, "d_location_update_reject.cause")
	if err != nil {
		return p, err
	}
	p.Cause = LocationUpdateRejectCause(cause)
	return p, nil
}

// UItsiDetach announces that a mobile is powering down or otherwise
// leaving the air interface, so its circuit/location state can be freed.
type UItsiDetach struct {
	ITSI uint32
}

func (p UItsiDetach) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeUItsiDetach), 4)
	b.WriteBits(uint64(p.ITSI), 24)
}

func UItsiDetachFromBits(b *bitio.Buffer) (UItsiDetach, error) {
	var p UItsiDetach
	if _, err := b.ReadField(3, "u_itsi_detach.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "u_itsi_detach.pdu_type"); err != nil {
		return p, err
	}
	itsi, err := b.ReadField(24, "u_itsi_detach.itsi")
	if err != nil {
		return p, err
	}
	p.ITSI = uint32(itsi)
	return p, nil
}

// GroupIdentityAttachment is uplink/downlink shared: a mobile announces or
// acknowledges the group SSIs it monitors.
type GroupIdentityAttachment struct {
	Attach bool // true=attach, false=detach
	GSSI   uint32
}

func (p GroupIdentityAttachment) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeUAttachDetachGroupID), 4)
	b.WriteBit(boolBit(p.Attach))
	b.WriteBits(uint64(p.GSSI), 24)
}

func GroupIdentityAttachmentFromBits(b *bitio.Buffer) (GroupIdentityAttachment, error) {
	var p GroupIdentityAttachment
	if _, err := b.ReadField(3, "group_identity_attachment.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "group_identity_attachment.pdu_type"); err != nil {
		return p, err
	}
	attach, err := b.ReadField(1, "group_identity_attachment.attach")
	if err != nil {
		return p, err
	}
	p.Attach = attach == 1
	gssi, err := b.ReadField(24, "group_identity_attachment.gssi")
	if err != nil {
		return p, err
	}
	p.GSSI = uint32(gssi)
	return p, nil
}

// GroupIdentityAck confirms a GroupIdentityAttachment, echoing the GSSI and
// reporting whether it was accepted.
type GroupIdentityAck struct {
	GSSI     uint32
	Accepted bool
}

func (p GroupIdentityAck) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	b.WriteBits(uint64(MmPDUTypeDAttachDetachGroupIDAck), 4)
	b.WriteBits(uint64(p.GSSI), 24)
	b.WriteBit(boolBit(p.Accepted))
}

func GroupIdentityAckFromBits(b *bitio.Buffer) (GroupIdentityAck, error) {
	var p GroupIdentityAck
	if _, err := b.ReadField(3, "group_identity_ack.protocol_discriminator"); err != nil {
		return p, err
	}
	if _, err := b.ReadField(4, "group_identity_ack.pdu_type"); err != nil {
		return p, err
	}
	gssi, err := b.ReadField(24, "group_identity_ack.gssi")
	if err != nil {
		return p, err
	}
	p.GSSI = uint32(gssi)
	acc, err := b.ReadField(1, "group_identity_ack.accepted")
	if err != nil {
		return p, err
	}
	p.Accepted = acc == 1
	return p, nil
}

// MmStatus carries a free-form status code in either direction, used for
// out-of-band diagnostics between a mobile and the switch.
type MmStatus struct {
	Uplink     bool
	StatusCode uint16
}

func (p MmStatus) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(ProtoDiscriminatorMM), 3)
	if p.Uplink {
		b.WriteBits(uint64(MmPDUTypeUMmStatus), 4)
	} else {
		b.WriteBits(uint64(MmPDUTypeDMmStatus), 4)
	}
	b.WriteBits(uint64(p.StatusCode), 16)
}

func MmStatusFromBits(b *bitio.Buffer) (MmStatus, error) {
	var p MmStatus
	if _, err := b.ReadField(3, "mm_status.protocol_discriminator"); err != nil {
		return p, err
	}
	pduType, err := b.ReadField(4, "mm_status.pdu_type")
	if err != nil {
		return p, err
	}
	p.Uplink = pduType == MmPDUTypeUMmStatus
	sc, err := b.ReadField(16, "mm_status.status_code")
	if err != nil {
		return p, err
	}
	p.StatusCode = uint16(sc)
	return p, nil
}
