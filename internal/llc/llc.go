// Package llc implements the TETRA basic-link sublayer: acknowledged
// (BL-DATA/BL-ADATA/BL-ACK) and unacknowledged (BL-UDATA) data service
// between MLE and MAC, with per-link single-bit N(S)/N(R) sequencing and an
// optional FCS.
package llc

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// UnitdataInd is TMA-UNITDATA.indication: a decoded LLC PDU MAC delivers
// from the uplink.
type UnitdataInd struct {
	Address address.Address
	PDU     []byte
}

// UnitdataReq is TMA-UNITDATA.request: an encoded LLC PDU handed to MAC for
// the downlink.
type UnitdataReq struct {
	Address address.Address
	PDU     []byte
}

// DataInd carries a reassembled TL-SDU up to MLE: TL-DATA.indication when
// Acknowledged, TL-UNITDATA.indication otherwise.
type DataInd struct {
	Address      address.Address
	SDU          []byte
	Acknowledged bool
}

// DataReq is TL-DATA.request from MLE: deliver SDU to Address, acknowledged
// and optionally FCS-protected unless Unacknowledged is set.
type DataReq struct {
	Address        address.Address
	SDU            []byte
	FCS            bool
	Unacknowledged bool
}

type linkState struct {
	nsOut        uint8
	awaitingAck  bool
	pendingAckNR *uint8
}

// LLC owns one linkState per peer SSI and posts encoded/decoded PDUs
// directly to the bus rather than buffering them for an external drain.
type LLC struct {
	bus   *bus.Bus
	links map[uint32]*linkState
}

func New(b *bus.Bus) *LLC {
	return &LLC{bus: b, links: make(map[uint32]*linkState)}
}

func (l *LLC) SAP() bus.SAP { return bus.SAPLLC }

func (l *LLC) link(addr address.Address) *linkState {
	s, ok := l.links[addr.SSI]
	if !ok {
		s = &linkState{}
		l.links[addr.SSI] = s
	}
	return s
}

func (l *LLC) TickStart(now tdmatime.Time) {}

func (l *LLC) RxPrim(msg bus.Msg) {
	switch body := msg.Body.(type) {
	case UnitdataInd:
		l.handleUplink(body)
	case DataReq:
		l.handleDownlinkRequest(body)
	}
}

// TickEnd emits any still-pending standalone BL-ACKs that did not get to
// piggyback on an outgoing BL-ADATA this tick, per spec.md §4.5.
func (l *LLC) TickEnd(now tdmatime.Time) bool {
	redrain := false
	for ssi, link := range l.links {
		if link.pendingAckNR == nil {
			continue
		}
		nr := *link.pendingAckNR
		link.pendingAckNR = nil
		ack := pdu.BlAck{NR: nr}
		buf := bitio.NewAutoExpand(16)
		ack.ToBits(buf)
		l.bus.Post(bus.Msg{
			Src:  bus.SAPLLC,
			Dest: bus.SAPMAC,
			Body: UnitdataReq{Address: address.New(ssi, address.SSI), PDU: buf.Bytes()},
		})
		redrain = true
	}
	return redrain
}

func (l *LLC) handleUplink(ind UnitdataInd) {
	b := bitio.FromBytes(ind.PDU)
	pduType, ok := b.PeekBits(4)
	if !ok {
		return
	}
	switch pduType {
	case pdu.LlcPDUTypeBlData:
		p, err := pdu.BlDataFromBits(b)
		if err != nil {
			return
		}
		l.onSequenced(ind.Address, p.NS, p.TLSDU)
	case pdu.LlcPDUTypeBlAdata:
		p, err := pdu.BlAdataFromBits(b)
		if err != nil {
			return
		}
		l.onSequenced(ind.Address, p.NS, p.TLSDU)
	case pdu.LlcPDUTypeBlUdata:
		p, err := pdu.BlUdataFromBits(b)
		if err != nil {
			return
		}
		l.bus.Post(bus.Msg{
			Src:  bus.SAPLLC,
			Dest: bus.SAPMLE,
			Body: DataInd{Address: ind.Address, SDU: p.TLSDU, Acknowledged: false},
		})
	case pdu.LlcPDUTypeBlAck:
		p, err := pdu.BlAckFromBits(b)
		if err != nil {
			return
		}
		link := l.link(ind.Address)
		if link.awaitingAck && p.NR == link.nsOut^1 {
			link.awaitingAck = false
		}
	}
}

func (l *LLC) onSequenced(addr address.Address, ns uint8, sdu []byte) {
	payload, ok := stripFCS(sdu)
	if !ok {
		return
	}
	link := l.link(addr)
	nr := ns
	link.pendingAckNR = &nr
	l.bus.Post(bus.Msg{
		Src:  bus.SAPLLC,
		Dest: bus.SAPMLE,
		Body: DataInd{Address: addr, SDU: payload, Acknowledged: true},
	})
}

func (l *LLC) handleDownlinkRequest(req DataReq) {
	sdu := req.SDU
	if req.FCS {
		sdu = appendFCS(sdu)
	}

	if req.Unacknowledged {
		p := pdu.BlUdata{TLSDU: sdu}
		buf := bitio.NewAutoExpand(len(sdu)*8 + 4)
		p.ToBits(buf)
		l.bus.Post(bus.Msg{Src: bus.SAPLLC, Dest: bus.SAPMAC, Body: UnitdataReq{Address: req.Address, PDU: buf.Bytes()}})
		return
	}

	link := l.link(req.Address)
	ns := link.nsOut
	link.nsOut ^= 1
	link.awaitingAck = true

	buf := bitio.NewAutoExpand(len(sdu)*8 + 5)
	if link.pendingAckNR != nil {
		// Piggybacking degrades to "don't also send a standalone BL-ACK
		// this tick": the basic-link BL-ADATA shape carries N(S) only, so
		// the peer's pending N(R) rides the next BL-ACK instead once one
		// becomes necessary again.
		link.pendingAckNR = nil
		p := pdu.BlAdata{NS: ns, TLSDU: sdu}
		p.ToBits(buf)
	} else {
		p := pdu.BlData{NS: ns, TLSDU: sdu}
		p.ToBits(buf)
	}
	l.bus.Post(bus.Msg{Src: bus.SAPLLC, Dest: bus.SAPMAC, Body: UnitdataReq{Address: req.Address, PDU: buf.Bytes()}})
}

func stripFCS(data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return data, true
	}
	payload := data[:len(data)-4]
	want := binary.BigEndian.Uint32(data[len(data)-4:])
	return payload, crc32.ChecksumIEEE(payload) == want
}

func appendFCS(payload []byte) []byte {
	sum := crc32.ChecksumIEEE(payload)
	out := make([]byte, len(payload)+4)
	copy(out, payload)
	binary.BigEndian.PutUint32(out[len(payload):], sum)
	return out
}
