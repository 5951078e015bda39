package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// CMCE PDU type codes, the 5-bit field following the CMCE protocol
// discriminator.
const (
	CmcePDUTypeUAlert          = 0x00
	CmcePDUTypeUSetup          = 0x01
	CmcePDUTypeDCallProceeding = 0x02
	CmcePDUTypeUConnect        = 0x03
	CmcePDUTypeDConnect        = 0x04
	CmcePDUTypeDConnectAck     = 0x05
	CmcePDUTypeUTxCeased       = 0x06
	CmcePDUTypeDTxCeased       = 0x07
	CmcePDUTypeUTxDemand       = 0x08
	CmcePDUTypeDTxGranted      = 0x09
	CmcePDUTypeDTxContinue     = 0x0A
	CmcePDUTypeDTxInterrupt    = 0x0B
	CmcePDUTypeDTxWait         = 0x0C
	CmcePDUTypeUDisconnect     = 0x0D
	CmcePDUTypeDDisconnect     = 0x0E
	CmcePDUTypeDRelease        = 0x0F
	CmcePDUTypeUInfo           = 0x10
	CmcePDUTypeDInfo           = 0x11
	CmcePDUTypeUCallRestore    = 0x12
	CmcePDUTypeDCallRestore    = 0x13
	CmcePDUTypeDSetup          = 0x14
)

// CallType distinguishes the basic TETRA call categories a setup can
// request.
type CallType uint8

const (
	CallTypeIndividual CallType = iota
	CallTypeGroup
	CallTypeAckedGroup
	CallTypeBroadcast
)

// writeCmceHeader writes the shared protocol-discriminator + pdu-type +
// call-identifier prefix every CMCE PDU in this registry starts with.
func writeCmceHeader(b *bitio.Buffer, pduType uint8, callID uint16) {
	b.WriteBits(uint64(ProtoDiscriminatorCMCE), 3)
	b.WriteBits(uint64(pduType), 5)
	b.WriteBits(uint64(callID), 14)
}

func readCmceHeader(b *bitio.Buffer, fieldPrefix string) (callID uint16, err error) {
	if _, err := b.ReadField(3, fieldPrefix+".protocol_discriminator"); err != nil {
		return 0, err
	}
	if _, err := b.ReadField(5, fieldPrefix+".pdu_type"); err != nil {
		return 0, err
	}
	v, err := b.ReadField(14, fieldPrefix+".call_identifier")
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// USetup requests a new call. CalledParty carries the destination SSI/GSSI;
// the Facility element, when present, carries call-priority or
// supplementary-service signalling the switch forwards unmodified.
type USetup struct {
	CallType    CallType
	CallID      uint16
	CalledParty uint32
	Facility    *uint64
}

const cmceFacilityFieldID = 0x1

func (p USetup) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeUSetup, p.CallID)
	b.WriteBits(uint64(p.CallType), 2)
	b.WriteBits(uint64(p.CalledParty), 24)
	WriteOBit(b, p.Facility != nil)
	WriteType3Generic(p.Facility != nil, b, facilityGeneric(p.Facility), cmceFacilityFieldID)
}

func facilityGeneric(v *uint64) *Type3Generic {
	if v == nil {
		return nil
	}
	return &Type3Generic{LenBits: 16, Data: *v}
}

func USetupFromBits(b *bitio.Buffer) (USetup, error) {
	var p USetup
	callID, err := readCmceHeader(b, "u_setup")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ct, err := b.ReadField(2, "u_setup.call_type")
	if err != nil {
		return p, err
	}
	p.CallType = CallType(ct)
	cp, err := b.ReadField(24, "u_setup.called_party")
	if err != nil {
		return p, err
	}
	p.CalledParty = uint32(cp)
	obit, err := ReadOBit(b)
	if err != nil {
		return p, err
	}
	facility, err := ParseType3Generic(obit, b, cmceFacilityFieldID)
	if err != nil {
		return p, err
	}
	if facility != nil {
		p.Facility = &facility.Data
	}
	return p, nil
}

// DSetup offers an incoming call to the called party: an individual SSI or
// a group GSSI depending on CallType.
type DSetup struct {
	CallID       uint16
	CallType     CallType
	CallingParty uint32
	CalledParty  uint32
}

func (p DSetup) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDSetup, p.CallID)
	b.WriteBits(uint64(p.CallType), 2)
	b.WriteBits(uint64(p.CallingParty), 24)
	b.WriteBits(uint64(p.CalledParty), 24)
}

func DSetupFromBits(b *bitio.Buffer) (DSetup, error) {
	var p DSetup
	callID, err := readCmceHeader(b, "d_setup")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ct, err := b.ReadField(2, "d_setup.call_type")
	if err != nil {
		return p, err
	}
	p.CallType = CallType(ct)
	calling, err := b.ReadField(24, "d_setup.calling_party")
	if err != nil {
		return p, err
	}
	p.CallingParty = uint32(calling)
	called, err := b.ReadField(24, "d_setup.called_party")
	if err != nil {
		return p, err
	}
	p.CalledParty = uint32(called)
	return p, nil
}

// DCallProceeding tells the requesting mobile the switch has accepted the
// setup and is working on establishing the call.
type DCallProceeding struct {
	CallID   uint16
	CallType CallType
}

func (p DCallProceeding) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDCallProceeding, p.CallID)
	b.WriteBits(uint64(p.CallType), 2)
}

func DCallProceedingFromBits(b *bitio.Buffer) (DCallProceeding, error) {
	var p DCallProceeding
	callID, err := readCmceHeader(b, "d_call_proceeding")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ct, err := b.ReadField(2, "d_call_proceeding.call_type")
	if err != nil {
		return p, err
	}
	p.CallType = CallType(ct)
	return p, nil
}

// UConnect is sent by the called party's mobile accepting an incoming call.
type UConnect struct {
	CallID uint16
}

func (p UConnect) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeUConnect, p.CallID) }

func UConnectFromBits(b *bitio.Buffer) (UConnect, error) {
	callID, err := readCmceHeader(b, "u_connect")
	return UConnect{CallID: callID}, err
}

// DConnect tells both parties the call is now active and assigns the
// traffic channel.
type DConnect struct {
	CallID   uint16
	Timeslot uint8
}

func (p DConnect) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDConnect, p.CallID)
	b.WriteBits(uint64(p.Timeslot), 2)
}

func DConnectFromBits(b *bitio.Buffer) (DConnect, error) {
	var p DConnect
	callID, err := readCmceHeader(b, "d_connect")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ts, err := b.ReadField(2, "d_connect.timeslot")
	if err != nil {
		return p, err
	}
	p.Timeslot = uint8(ts)
	return p, nil
}

// DConnectAck confirms the mobile's traffic-channel assignment was
// received and acted on.
type DConnectAck struct {
	CallID uint16
}

func (p DConnectAck) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeDConnectAck, p.CallID) }

func DConnectAckFromBits(b *bitio.Buffer) (DConnectAck, error) {
	callID, err := readCmceHeader(b, "d_connect_ack")
	return DConnectAck{CallID: callID}, err
}

// UTxCeased announces the transmitting party released PTT.
type UTxCeased struct {
	CallID uint16
}

func (p UTxCeased) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeUTxCeased, p.CallID) }

func UTxCeasedFromBits(b *bitio.Buffer) (UTxCeased, error) {
	callID, err := readCmceHeader(b, "u_tx_ceased")
	return UTxCeased{CallID: callID}, err
}

// DTxCeased relays the same to the rest of the group.
type DTxCeased struct {
	CallID uint16
}

func (p DTxCeased) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeDTxCeased, p.CallID) }

func DTxCeasedFromBits(b *bitio.Buffer) (DTxCeased, error) {
	callID, err := readCmceHeader(b, "d_tx_ceased")
	return DTxCeased{CallID: callID}, err
}

// UTxDemand requests the floor (PTT) on an existing call.
type UTxDemand struct {
	CallID   uint16
	Priority uint8
}

func (p UTxDemand) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeUTxDemand, p.CallID)
	b.WriteBits(uint64(p.Priority), 3)
}

func UTxDemandFromBits(b *bitio.Buffer) (UTxDemand, error) {
	var p UTxDemand
	callID, err := readCmceHeader(b, "u_tx_demand")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	pr, err := b.ReadField(3, "u_tx_demand.priority")
	if err != nil {
		return p, err
	}
	p.Priority = uint8(pr)
	return p, nil
}

// DTxGranted grants the floor to exactly one requester.
type DTxGranted struct {
	CallID      uint16
	GrantedSSI  uint32
}

func (p DTxGranted) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDTxGranted, p.CallID)
	b.WriteBits(uint64(p.GrantedSSI), 24)
}

func DTxGrantedFromBits(b *bitio.Buffer) (DTxGranted, error) {
	var p DTxGranted
	callID, err := readCmceHeader(b, "d_tx_granted")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ssi, err := b.ReadField(24, "d_tx_granted.granted_ssi")
	if err != nil {
		return p, err
	}
	p.GrantedSSI = uint32(ssi)
	return p, nil
}

// DTxContinue tells the current talker the floor remains theirs (keepalive
// during a long transmission).
type DTxContinue struct {
	CallID uint16
}

func (p DTxContinue) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeDTxContinue, p.CallID) }

func DTxContinueFromBits(b *bitio.Buffer) (DTxContinue, error) {
	callID, err := readCmceHeader(b, "d_tx_continue")
	return DTxContinue{CallID: callID}, err
}

// DTxInterrupt pre-empts the current talker for a higher-priority demand.
type DTxInterrupt struct {
	CallID         uint16
	InterruptingSSI uint32
}

func (p DTxInterrupt) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDTxInterrupt, p.CallID)
	b.WriteBits(uint64(p.InterruptingSSI), 24)
}

func DTxInterruptFromBits(b *bitio.Buffer) (DTxInterrupt, error) {
	var p DTxInterrupt
	callID, err := readCmceHeader(b, "d_tx_interrupt")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ssi, err := b.ReadField(24, "d_tx_interrupt.interrupting_ssi")
	if err != nil {
		return p, err
	}
	p.InterruptingSSI = uint32(ssi)
	return p, nil
}

// DTxWait tells a requester the floor is occupied; it should retry later.
type DTxWait struct {
	CallID uint16
}

func (p DTxWait) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeDTxWait, p.CallID) }

func DTxWaitFromBits(b *bitio.Buffer) (DTxWait, error) {
	callID, err := readCmceHeader(b, "d_tx_wait")
	return DTxWait{CallID: callID}, err
}

// DisconnectCause enumerates why a call ended.
type DisconnectCause uint8

const (
	DisconnectCauseUnspecified DisconnectCause = iota
	DisconnectCauseCalledPartyBusy
	DisconnectCauseNetworkCongestion
	DisconnectCauseNoReplyFromCalledParty
	DisconnectCauseHangtimeExpiry
)

// UDisconnect ends a call from the mobile's side.
type UDisconnect struct {
	CallID uint16
	Cause  DisconnectCause
}

func (p UDisconnect) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeUDisconnect, p.CallID)
	b.WriteBits(uint64(p.Cause), 4)
}

func UDisconnectFromBits(b *bitio.Buffer) (UDisconnect, error) {
	var p UDisconnect
	callID, err := readCmceHeader(b, "u_disconnect")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	cause, err := b.ReadField(4, "u_disconnect.cause")
	if err != nil {
		return p, err
	}
	p.Cause = DisconnectCause(cause)
	return p, nil
}

// DDisconnect ends a call from the switch's side (e.g. hangtime expiry).
type DDisconnect struct {
	CallID uint16
	Cause  DisconnectCause
}

func (p DDisconnect) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDDisconnect, p.CallID)
	b.WriteBits(uint64(p.Cause), 4)
}

func DDisconnectFromBits(b *bitio.Buffer) (DDisconnect, error) {
	var p DDisconnect
	callID, err := readCmceHeader(b, "d_disconnect")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	cause, err := b.ReadField(4, "d_disconnect.cause")
	if err != nil {
		return p, err
	}
	p.Cause = DisconnectCause(cause)
	return p, nil
}

// DRelease tears down the circuit entirely, releasing the call identifier
// for reuse. Distinct from DDisconnect: disconnect can precede a hangtime
// window during which the circuit is kept warm for quick re-seizure.
type DRelease struct {
	CallID uint16
}

func (p DRelease) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeDRelease, p.CallID) }

func DReleaseFromBits(b *bitio.Buffer) (DRelease, error) {
	callID, err := readCmceHeader(b, "d_release")
	return DRelease{CallID: callID}, err
}

// UInfo/DInfo carry short in-call status text (e.g. short data messages
// piggybacked on an active voice call) in either direction.
type UInfo struct {
	CallID  uint16
	Payload []byte
}

func (p UInfo) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeUInfo, p.CallID)
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func UInfoFromBits(b *bitio.Buffer) (UInfo, error) {
	var p UInfo
	callID, err := readCmceHeader(b, "u_info")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	remaining := b.LenRemaining()
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	p.Payload = dst.Bytes()
	return p, nil
}

type DInfo struct {
	CallID  uint16
	Payload []byte
}

func (p DInfo) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDInfo, p.CallID)
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func DInfoFromBits(b *bitio.Buffer) (DInfo, error) {
	var p DInfo
	callID, err := readCmceHeader(b, "d_info")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	remaining := b.LenRemaining()
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	p.Payload = dst.Bytes()
	return p, nil
}

// UAlert notifies the switch that the called mobile is ringing.
type UAlert struct {
	CallID uint16
}

func (p UAlert) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeUAlert, p.CallID) }

func UAlertFromBits(b *bitio.Buffer) (UAlert, error) {
	callID, err := readCmceHeader(b, "u_alert")
	return UAlert{CallID: callID}, err
}

// UCallRestore/DCallRestore re-establish a call after a brief loss of radio
// coverage, reusing the original call identifier rather than re-running
// the full setup handshake.
type UCallRestore struct {
	CallID uint16
}

func (p UCallRestore) ToBits(b *bitio.Buffer) { writeCmceHeader(b, CmcePDUTypeUCallRestore, p.CallID) }

func UCallRestoreFromBits(b *bitio.Buffer) (UCallRestore, error) {
	callID, err := readCmceHeader(b, "u_call_restore")
	return UCallRestore{CallID: callID}, err
}

type DCallRestore struct {
	CallID   uint16
	Timeslot uint8
}

func (p DCallRestore) ToBits(b *bitio.Buffer) {
	writeCmceHeader(b, CmcePDUTypeDCallRestore, p.CallID)
	b.WriteBits(uint64(p.Timeslot), 2)
}

func DCallRestoreFromBits(b *bitio.Buffer) (DCallRestore, error) {
	var p DCallRestore
	callID, err := readCmceHeader(b, "d_call_restore")
	if err != nil {
		return p, err
	}
	p.CallID = callID
	ts, err := b.ReadField(2, "d_call_restore.timeslot")
	if err != nil {
		return p, err
	}
	p.Timeslot = uint8(ts)
	return p, nil
}
