package pdu

import "github.com/trunkctl/tetrabase/internal/bitio"

// MAC PDU type codes, carried in the 2-bit PDU type field that precedes
// every MAC-layer header (ETSI assigns these per C-plane/U-plane split;
// the sub-type byte that follows narrows DATA/ACCESS/SYSINFO/SYNC further).
const (
	MacPDUTypeResource = 0b00
	MacPDUTypeFrag     = 0b01
	MacPDUTypeEnd      = 0b10
	MacPDUTypeDBControl = 0b11
)

// MacResourceHeader is the mandatory header common to every MAC-RESOURCE
// PDU: destination addressing, length-indicator, and the fill-bit flag.
type MacResourceHeader struct {
	Fill       bool
	PosOfGrant bool
	Encrypted  bool
	Address    uint32 // SSI or event label, per EventLabel
	EventLabel bool
	LengthInd  uint64
}

func (h MacResourceHeader) ToBits(b *bitio.Buffer) {
	b.WriteBit(boolBit(h.Fill))
	b.WriteBit(boolBit(h.PosOfGrant))
	b.WriteBit(boolBit(h.Encrypted))
	b.WriteBit(boolBit(h.EventLabel))
	if h.EventLabel {
		b.WriteBits(uint64(h.Address), 10)
	} else {
		b.WriteBits(uint64(h.Address), 24)
	}
	b.WriteBits(h.LengthInd, 6)
}

func macResourceHeaderFromBits(b *bitio.Buffer) (MacResourceHeader, error) {
	var h MacResourceHeader
	fill, err := b.ReadField(1, "mac_resource.fill")
	if err != nil {
		return h, err
	}
	h.Fill = fill == 1
	pos, err := b.ReadField(1, "mac_resource.pos_of_grant")
	if err != nil {
		return h, err
	}
	h.PosOfGrant = pos == 1
	enc, err := b.ReadField(1, "mac_resource.encrypted")
	if err != nil {
		return h, err
	}
	h.Encrypted = enc == 1
	evl, err := b.ReadField(1, "mac_resource.event_label_flag")
	if err != nil {
		return h, err
	}
	h.EventLabel = evl == 1
	width := 24
	if h.EventLabel {
		width = 10
	}
	addr, err := b.ReadField(width, "mac_resource.address")
	if err != nil {
		return h, err
	}
	h.Address = uint32(addr)
	lenInd, err := b.ReadField(6, "mac_resource.length_ind")
	if err != nil {
		return h, err
	}
	h.LengthInd = lenInd
	return h, nil
}

// MacResource carries a downlink SDU, possibly fragmented, targeted at
// Header.Address. Payload holds exactly LengthInd*8 bits once LengthInd is
// in the valid range (see InterpretLengthInd); the fragmentation-start and
// stolen-half codes leave Payload to be filled by a continuation PDU.
type MacResource struct {
	Header  MacResourceHeader
	Payload []byte
}

func (p MacResource) ToBits(b *bitio.Buffer) {
	p.Header.ToBits(b)
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func MacResourceFromBits(b *bitio.Buffer) (MacResource, error) {
	var p MacResource
	h, err := macResourceHeaderFromBits(b)
	if err != nil {
		return p, err
	}
	p.Header = h
	kind, validBits := InterpretLengthInd(h.LengthInd)
	if kind != LengthIndValid {
		return p, nil
	}
	payloadBits := validBits
	if payloadBits > b.LenRemaining() {
		payloadBits = b.LenRemaining()
	}
	dst := bitio.NewAutoExpand(payloadBits)
	dst.CopyBits(b, payloadBits)
	p.Payload = dst.Bytes()
	return p, nil
}

// MacAccess is the uplink random-access / reservation-request PDU.
type MacAccess struct {
	Address         uint32
	EventLabel      bool
	LengthInd       *uint64 // nil when this carries a bare capacity request
	ReservationReq  uint8
	FragFlag        bool
}

func (p MacAccess) ToBits(b *bitio.Buffer) {
	b.WriteBit(boolBit(p.EventLabel))
	width := 24
	if p.EventLabel {
		width = 10
	}
	b.WriteBits(uint64(p.Address), width)
	if p.LengthInd != nil {
		b.WriteBit(1)
		b.WriteBits(*p.LengthInd, 6)
	} else {
		b.WriteBit(0)
		b.WriteBits(uint64(p.ReservationReq), 3)
		b.WriteBit(boolBit(p.FragFlag))
	}
}

func MacAccessFromBits(b *bitio.Buffer) (MacAccess, error) {
	var p MacAccess
	evl, err := b.ReadField(1, "mac_access.event_label_flag")
	if err != nil {
		return p, err
	}
	p.EventLabel = evl == 1
	width := 24
	if p.EventLabel {
		width = 10
	}
	addr, err := b.ReadField(width, "mac_access.address")
	if err != nil {
		return p, err
	}
	p.Address = uint32(addr)
	hasLen, err := b.ReadField(1, "mac_access.has_length_ind")
	if err != nil {
		return p, err
	}
	if hasLen == 1 {
		li, err := b.ReadField(6, "mac_access.length_ind")
		if err != nil {
			return p, err
		}
		p.LengthInd = &li
		return p, nil
	}
	rr, err := b.ReadField(3, "mac_access.reservation_req")
	if err != nil {
		return p, err
	}
	p.ReservationReq = uint8(rr)
	ff, err := b.ReadField(1, "mac_access.frag_flag")
	if err != nil {
		return p, err
	}
	p.FragFlag = ff == 1
	return p, nil
}

// MacData is the uplink equivalent of MAC-RESOURCE: an addressed SDU, with
// the same length-indicator semantics (null/valid/stolen/frag-start).
type MacData struct {
	Address    uint32
	EventLabel bool
	LengthInd  uint64
	Payload    []byte
}

func (p MacData) ToBits(b *bitio.Buffer) {
	b.WriteBit(boolBit(p.EventLabel))
	width := 24
	if p.EventLabel {
		width = 10
	}
	b.WriteBits(uint64(p.Address), width)
	b.WriteBits(p.LengthInd, 6)
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func MacDataFromBits(b *bitio.Buffer) (MacData, error) {
	var p MacData
	evl, err := b.ReadField(1, "mac_data.event_label_flag")
	if err != nil {
		return p, err
	}
	p.EventLabel = evl == 1
	width := 24
	if p.EventLabel {
		width = 10
	}
	addr, err := b.ReadField(width, "mac_data.address")
	if err != nil {
		return p, err
	}
	p.Address = uint32(addr)
	lenInd, err := b.ReadField(6, "mac_data.length_ind")
	if err != nil {
		return p, err
	}
	p.LengthInd = lenInd
	kind, validBits := InterpretLengthInd(lenInd)
	if kind != LengthIndValid {
		return p, nil
	}
	payloadBits := validBits
	if payloadBits > b.LenRemaining() {
		payloadBits = b.LenRemaining()
	}
	dst := bitio.NewAutoExpand(payloadBits)
	dst.CopyBits(b, payloadBits)
	p.Payload = dst.Bytes()
	return p, nil
}

// MacFrag carries a middle fragment of a segmented TL-SDU: no header beyond
// the raw continuation bits, since the owner and position are tracked by
// the fragment table keyed on the slot that delivered it.
type MacFrag struct {
	Payload []byte
}

func (p MacFrag) ToBits(b *bitio.Buffer) {
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func MacFragFromBits(b *bitio.Buffer) (MacFrag, error) {
	remaining := b.LenRemaining()
	dst := bitio.NewAutoExpand(remaining)
	dst.CopyBits(b, remaining)
	return MacFrag{Payload: dst.Bytes()}, nil
}

// MacEnd carries the final fragment, with an explicit length so trailing
// fill bits can be stripped.
type MacEnd struct {
	LengthInd uint64
	Payload   []byte
}

func (p MacEnd) ToBits(b *bitio.Buffer) {
	b.WriteBits(p.LengthInd, 6)
	b.CopyBits(bitio.FromBytes(p.Payload), len(p.Payload)*8)
}

func MacEndFromBits(b *bitio.Buffer) (MacEnd, error) {
	var p MacEnd
	lenInd, err := b.ReadField(6, "mac_end.length_ind")
	if err != nil {
		return p, err
	}
	p.LengthInd = lenInd
	kind, validBits := InterpretLengthInd(lenInd)
	if kind != LengthIndValid {
		return p, nil
	}
	payloadBits := validBits
	if payloadBits > b.LenRemaining() {
		payloadBits = b.LenRemaining()
	}
	dst := bitio.NewAutoExpand(payloadBits)
	dst.CopyBits(b, payloadBits)
	p.Payload = dst.Bytes()
	return p, nil
}

// MacSync is the BSCH: broadcast synchronization burst carrying colour
// code, timeslot/frame/multiframe numbers, and sharing-mode flags.
type MacSync struct {
	SystemCode   uint8
	ColourCode   uint8
	Timeslot     uint8
	FrameNumber  uint8
	Multiframe   uint8
	SharingMode  uint8
	FreeChannels uint8
}

func (p MacSync) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(p.SystemCode), 4)
	b.WriteBits(uint64(p.ColourCode), 6)
	b.WriteBits(uint64(p.Timeslot), 2)
	b.WriteBits(uint64(p.FrameNumber), 5)
	b.WriteBits(uint64(p.Multiframe), 6)
	b.WriteBits(uint64(p.SharingMode), 2)
	b.WriteBits(uint64(p.FreeChannels), 2)
}

func MacSyncFromBits(b *bitio.Buffer) (MacSync, error) {
	var p MacSync
	fields := []struct {
		dst   *uint8
		width int
		name  string
	}{
		{&p.SystemCode, 4, "mac_sync.system_code"},
		{&p.ColourCode, 6, "mac_sync.colour_code"},
		{&p.Timeslot, 2, "mac_sync.timeslot"},
		{&p.FrameNumber, 5, "mac_sync.frame_number"},
		{&p.Multiframe, 6, "mac_sync.multiframe"},
		{&p.SharingMode, 2, "mac_sync.sharing_mode"},
		{&p.FreeChannels, 2, "mac_sync.free_channels"},
	}
	for _, f := range fields {
		v, err := b.ReadField(f.width, f.name)
		if err != nil {
			return p, err
		}
		*f.dst = uint8(v)
	}
	return p, nil
}

// MacSysinfo is the BNCH: broadcast network/cell parameters.
type MacSysinfo struct {
	MainCarrier       uint16
	FrequencyBandAndOffset uint8
	MCC               uint16
	MNC               uint16
	LocationArea      uint16
	LateEntrySupported bool
}

func (p MacSysinfo) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(p.MainCarrier), 12)
	b.WriteBits(uint64(p.FrequencyBandAndOffset), 6)
	b.WriteBits(uint64(p.MCC), 10)
	b.WriteBits(uint64(p.MNC), 14)
	b.WriteBits(uint64(p.LocationArea), 14)
	b.WriteBit(boolBit(p.LateEntrySupported))
}

func MacSysinfoFromBits(b *bitio.Buffer) (MacSysinfo, error) {
	var p MacSysinfo
	mc, err := b.ReadField(12, "mac_sysinfo.main_carrier")
	if err != nil {
		return p, err
	}
	p.MainCarrier = uint16(mc)
	fb, err := b.ReadField(6, "mac_sysinfo.freq_band_offset")
	if err != nil {
		return p, err
	}
	p.FrequencyBandAndOffset = uint8(fb)
	mcc, err := b.ReadField(10, "mac_sysinfo.mcc")
	if err != nil {
		return p, err
	}
	p.MCC = uint16(mcc)
	mnc, err := b.ReadField(14, "mac_sysinfo.mnc")
	if err != nil {
		return p, err
	}
	p.MNC = uint16(mnc)
	la, err := b.ReadField(14, "mac_sysinfo.location_area")
	if err != nil {
		return p, err
	}
	p.LocationArea = uint16(la)
	le, err := b.ReadField(1, "mac_sysinfo.late_entry_supported")
	if err != nil {
		return p, err
	}
	p.LateEntrySupported = le == 1
	return p, nil
}

// AccessAssignUsage enumerates what a half-slot's access-assignment field
// (AACH/BBK) declares about uplink usage for the paired timeslot.
type AccessAssignUsage uint8

const (
	AccessAssignCommonOnly AccessAssignUsage = iota
	AccessAssignCommonAndAssigned
	AccessAssignAssignedOnly
	AccessAssignTraffic
)

// Aach is the access-assignment channel carried in every slot's BBK,
// describing the uplink usage of the paired timeslot.
type Aach struct {
	Usage        AccessAssignUsage
	TrafficUsage uint8
}

func (p Aach) ToBits(b *bitio.Buffer) {
	b.WriteBits(uint64(p.Usage), 2)
	b.WriteBits(uint64(p.TrafficUsage), 4)
}

func AachFromBits(b *bitio.Buffer) (Aach, error) {
	var p Aach
	u, err := b.ReadField(2, "aach.usage")
	if err != nil {
		return p, err
	}
	p.Usage = AccessAssignUsage(u)
	t, err := b.ReadField(4, "aach.traffic_usage")
	if err != nil {
		return p, err
	}
	p.TrafficUsage = uint8(t)
	return p, nil
}

// NullPDU is the filler PDU for unused capacity: either an SSI-addressed or
// event-label-addressed frame carrying no SDU.
type NullPDU struct {
	EventLabel bool
	Address    uint32
}

func (p NullPDU) ToBits(b *bitio.Buffer) {
	b.WriteBit(boolBit(p.EventLabel))
	width := 24
	if p.EventLabel {
		width = 10
	}
	b.WriteBits(uint64(p.Address), width)
	b.WriteBits(0, 6) // length_ind = 0: null PDU
}

func NullPDUFromBits(b *bitio.Buffer) (NullPDU, error) {
	var p NullPDU
	evl, err := b.ReadField(1, "null_pdu.event_label_flag")
	if err != nil {
		return p, err
	}
	p.EventLabel = evl == 1
	width := 24
	if p.EventLabel {
		width = 10
	}
	addr, err := b.ReadField(width, "null_pdu.address")
	if err != nil {
		return p, err
	}
	p.Address = uint32(addr)
	if _, err := b.ReadField(6, "null_pdu.length_ind"); err != nil {
		return p, err
	}
	return p, nil
}
