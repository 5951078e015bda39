// Package mm implements the base-station side of mobility management: a
// client table indexed by ITSI and handlers for location update,
// ITSI detach, and group identity attachment.
package mm

import (
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/mle"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// statusCodeFunctionNotSupported is the D-MM-STATUS code returned for any
// MM PDU type the base station does not implement.
const statusCodeFunctionNotSupported = 0xFFFF

// Client tracks one registered mobile's mobility state.
type Client struct {
	ITSI         uint32
	LocationArea uint16
	Groups       map[uint32]bool
	LastUpdate   tdmatime.Time
}

// MM owns the client table and answers uplink MM PDUs demultiplexed by
// MLE, replying through the same handle.
type MM struct {
	bus     *bus.Bus
	clients map[uint32]*Client
	now     tdmatime.Time
}

func New(b *bus.Bus) *MM {
	return &MM{bus: b, clients: make(map[uint32]*Client)}
}

func (m *MM) SAP() bus.SAP { return bus.SAPMM }

func (m *MM) TickStart(now tdmatime.Time) { m.now = now }

func (m *MM) TickEnd(now tdmatime.Time) bool { return false }

// Client returns the registered client for itsi, if any.
func (m *MM) Client(itsi uint32) (Client, bool) {
	c, ok := m.clients[itsi]
	if !ok {
		return Client{}, false
	}
	return *c, true
}

// Count returns the number of currently registered clients.
func (m *MM) Count() int { return len(m.clients) }

func (m *MM) RxPrim(msg bus.Msg) {
	ind, ok := msg.Body.(mle.UpperInd)
	if !ok {
		return
	}
	b := bitio.FromBytes(ind.PDU)
	pduType, ok := b.PeekBitsOffset(3, 4)
	if !ok {
		return
	}

	switch pduType {
	case pdu.MmPDUTypeULocationUpdateDemand:
		m.handleLocationUpdateDemand(ind, b)
	case pdu.MmPDUTypeUItsiDetach:
		m.handleItsiDetach(ind, b)
	case pdu.MmPDUTypeUAttachDetachGroupID:
		m.handleGroupAttachDetach(ind, b)
	case pdu.MmPDUTypeUMmStatus:
		m.handleStatus(ind, b)
	default:
		m.reply(ind.Handle, pdu.MmStatus{Uplink: false, StatusCode: statusCodeFunctionNotSupported})
	}
}

func (m *MM) client(itsi uint32) *Client {
	c, ok := m.clients[itsi]
	if !ok {
		c = &Client{ITSI: itsi, Groups: make(map[uint32]bool)}
		m.clients[itsi] = c
	}
	return c
}

func (m *MM) handleLocationUpdateDemand(ind mle.UpperInd, b *bitio.Buffer) {
	req, err := pdu.ULocationUpdateDemandFromBits(b)
	if err != nil {
		return
	}
	c := m.client(req.ITSI)
	c.LocationArea = req.LocationArea
	c.LastUpdate = m.now

	m.reply(ind.Handle, pdu.DLocationUpdateAccept{UpdateType: req.UpdateType, LocationArea: req.LocationArea})
}

func (m *MM) handleItsiDetach(ind mle.UpperInd, b *bitio.Buffer) {
	req, err := pdu.UItsiDetachFromBits(b)
	if err != nil {
		return
	}
	delete(m.clients, req.ITSI)
}

func (m *MM) handleGroupAttachDetach(ind mle.UpperInd, b *bitio.Buffer) {
	req, err := pdu.GroupIdentityAttachmentFromBits(b)
	if err != nil {
		return
	}
	c := m.client(ind.Address.SSI)
	if req.Attach {
		c.Groups[req.GSSI] = true
	} else {
		delete(c.Groups, req.GSSI)
	}
	m.reply(ind.Handle, pdu.GroupIdentityAck{GSSI: req.GSSI, Accepted: true})
}

func (m *MM) handleStatus(ind mle.UpperInd, b *bitio.Buffer) {
	if _, err := pdu.MmStatusFromBits(b); err != nil {
		return
	}
	m.reply(ind.Handle, pdu.MmStatus{Uplink: false, StatusCode: statusCodeFunctionNotSupported})
}

func (m *MM) reply(handle mle.Handle, p interface{ ToBits(*bitio.Buffer) }) {
	buf := bitio.NewAutoExpand(48)
	p.ToBits(buf)
	m.bus.Post(bus.Msg{
		Src:  bus.SAPMM,
		Dest: bus.SAPMLE,
		Body: mle.UpperReq{Handle: handle, PDU: buf.Bytes()},
	})
}
