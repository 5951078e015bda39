// Package mle implements the MLE sublayer: protocol-discriminator demux of
// LLC SDUs to MM/CMCE/SNDCP, a bidirectional request/response handle table,
// and processing of the D-MLE-SYSINFO/D-MLE-SYNC broadcasts.
package mle

import (
	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/llc"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// Endpoint names the upper-layer protocol an MLE handle belongs to.
type Endpoint int

const (
	EndpointMM Endpoint = iota
	EndpointCMCE
	EndpointSNDCP
)

func (e Endpoint) sap() bus.SAP {
	switch e {
	case EndpointMM:
		return bus.SAPMM
	case EndpointCMCE:
		return bus.SAPCMCE
	default:
		return bus.SAPMM
	}
}

// Handle is an opaque request/response correlator an upper layer threads
// through an MLE exchange without having to track LLC addressing itself.
type Handle uint32

type handleEntry struct {
	Address  address.Address
	Endpoint Endpoint
	Started  tdmatime.Time
}

// UpperInd delivers a demultiplexed SDU to MM or CMCE: Handle correlates a
// later UpperReq back to the same peer.
type UpperInd struct {
	Handle  Handle
	Address address.Address
	PDU     []byte
}

// UpperReq is a downlink SDU from MM or CMCE addressed either by an
// existing Handle (continuing an exchange) or a bare Address (opening one).
type UpperReq struct {
	Handle         Handle
	Address        address.Address
	PDU            []byte
	FCS            bool
	Unacknowledged bool
}

// CellParams are the parameters extracted from this cell's own
// D-MLE-SYSINFO/D-MLE-SYNC broadcasts, kept available for MAC to consult
// when composing the next broadcast.
type CellParams struct {
	CellReselectParam uint8
	NeighbourCells    []uint16
	ColourCode        uint8
	FrameNumber       uint8
	Multiframe        uint8
}

// MLE demultiplexes LLC SDUs by protocol discriminator and owns the
// handle table that lets MM/CMCE correlate a reply without tracking
// addresses themselves.
type MLE struct {
	bus        *bus.Bus
	handles    map[Handle]handleEntry
	nextHandle Handle
	cellParams CellParams
}

func New(b *bus.Bus) *MLE {
	return &MLE{bus: b, handles: make(map[Handle]handleEntry), nextHandle: 1}
}

func (m *MLE) SAP() bus.SAP { return bus.SAPMLE }

func (m *MLE) TickStart(now tdmatime.Time) {}

func (m *MLE) TickEnd(now tdmatime.Time) bool { return false }

func (m *MLE) RxPrim(msg bus.Msg) {
	switch body := msg.Body.(type) {
	case llc.DataInd:
		m.handleUplink(body)
	case UpperReq:
		m.handleUpperRequest(body)
	}
}

func (m *MLE) handleUplink(ind llc.DataInd) {
	b := bitio.FromBytes(ind.SDU)
	discriminator, ok := b.PeekBits(3)
	if !ok {
		return
	}

	switch discriminator {
	case pdu.ProtoDiscriminatorMLE:
		m.handleOwnBroadcast(b)
		return
	case pdu.ProtoDiscriminatorMM:
		m.deliverUpper(ind.Address, EndpointMM, ind.SDU)
	case pdu.ProtoDiscriminatorCMCE:
		m.deliverUpper(ind.Address, EndpointCMCE, ind.SDU)
	case pdu.ProtoDiscriminatorSNDCP:
		m.deliverUpper(ind.Address, EndpointSNDCP, ind.SDU)
	}
}

func (m *MLE) handleOwnBroadcast(b *bitio.Buffer) {
	pduType, ok := b.PeekBitsOffset(3, 4)
	if !ok {
		return
	}
	switch pduType {
	case pdu.MlePDUTypeDSysinfo:
		p, err := pdu.DMleSysinfoFromBits(b)
		if err != nil {
			return
		}
		m.cellParams.CellReselectParam = p.CellReselectParam
		m.cellParams.NeighbourCells = p.NeighbourCells
	case pdu.MlePDUTypeDSync:
		p, err := pdu.DMleSyncFromBits(b)
		if err != nil {
			return
		}
		m.cellParams.ColourCode = p.ColourCode
		m.cellParams.FrameNumber = p.FrameNumber
		m.cellParams.Multiframe = p.Multiframe
	}
}

// CellParams returns the most recently processed broadcast parameters.
func (m *MLE) CellParams() CellParams { return m.cellParams }

func (m *MLE) deliverUpper(addr address.Address, ep Endpoint, sdu []byte) {
	h := m.nextHandle
	m.nextHandle++
	m.handles[h] = handleEntry{Address: addr, Endpoint: ep}
	m.bus.Post(bus.Msg{
		Src:  bus.SAPMLE,
		Dest: ep.sap(),
		Body: UpperInd{Handle: h, Address: addr, PDU: sdu},
	})
}

func (m *MLE) handleUpperRequest(req UpperReq) {
	addr := req.Address
	if entry, ok := m.handles[req.Handle]; ok {
		addr = entry.Address
	}
	m.bus.Post(bus.Msg{
		Src:  bus.SAPMLE,
		Dest: bus.SAPLLC,
		Body: llc.DataReq{Address: addr, SDU: req.PDU, FCS: req.FCS, Unacknowledged: req.Unacknowledged},
	})
}
