package mac

import (
	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/llc"
	"github.com/trunkctl/tetrabase/internal/lmac"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// ControlTimeslot is the main control channel: downlink signalling for an
// address with no allocated traffic circuit (registration, location
// update, a call-setup reply sent before its circuit exists) queues here.
const ControlTimeslot = 1

// tchActivityFrames/tchActivityWindowSlots bound the uplink-TCH-activity
// debounce per spec.md §4.8: at least this many frames within this many
// timeslots before UMAC treats a hanging circuit as reclaimed by its talker.
const (
	tchActivityFrames      = 2
	tchActivityWindowSlots = 8
)

// UplinkPttBounce and UplinkTchActivity are the two floor-control hints
// UMAC derives from uplink activity on a hanging circuit and reports to
// CMCE; both are advisory, CMCE's state machine is the source of truth.
// PttBounceGrant is CMCE's immediate-priority reply instructing UMAC to
// fast-grant without L3 re-signalling.
type UplinkPttBounce struct {
	Timeslot int
	SSI      uint32
}

type UplinkTchActivity struct {
	Timeslot int
	SSI      uint32
}

type PttBounceGrant struct {
	Timeslot int
	SSI      uint32
}

type activityWindow struct {
	count     int
	windowEnd tdmatime.Time
}

// fragChain correlates an open uplink reassembly in progress on a
// timeslot: MAC-FRAG and MAC-END carry no address of their own (the
// fragment table is keyed by owner and start time, tracked here per the
// slot that delivered the start), so this is how a later MAC-FRAG/MAC-END
// on ts finds its way back to the right Defragmenter key.
type fragChain struct {
	owner uint32
	start tdmatime.Time
}

// Entity adapts Scheduler onto the bus. ComposeDownlink stays a plain
// method call the tick driver invokes directly per spec.md §4.3; this is
// the half of UMAC that has to react to messages other layers post rather
// than being polled each tick, plus the uplink decode path's dispatch
// point: downlink LLC PDUs routed down from MLE, CMCE's fast-grant
// replies, and MAC-ACCESS/MAC-DATA/MAC-FRAG/MAC-END arriving from LMAC.
type Entity struct {
	bus        *bus.Bus
	sched      *Scheduler
	activity   map[int]*activityWindow
	fragChains map[int]fragChain
}

func NewEntity(b *bus.Bus, s *Scheduler) *Entity {
	return &Entity{
		bus:        b,
		sched:      s,
		activity:   make(map[int]*activityWindow),
		fragChains: make(map[int]fragChain),
	}
}

func (e *Entity) SAP() bus.SAP { return bus.SAPMAC }

func (e *Entity) TickStart(now tdmatime.Time) {}

func (e *Entity) TickEnd(now tdmatime.Time) bool { return false }

func (e *Entity) RxPrim(msg bus.Msg) {
	switch body := msg.Body.(type) {
	case llc.UnitdataReq:
		ts := e.resolveTimeslot(body.Address)
		_, _ = e.sched.Queue.Push(ts, body.PDU)
	case PttBounceGrant:
		e.sched.QueueGrant(body.Timeslot, body.SSI, BasicSlotGrant{
			CapacityAllocation: 1,
			Timeslot:           body.Timeslot,
			Halfslot:           true,
		})
	}
}

// resolveTimeslot maps a downlink PDU's destination to the timeslot it
// queues on: the address's own traffic circuit if CMCE has allocated one,
// otherwise the main control channel.
func (e *Entity) resolveTimeslot(addr address.Address) int {
	if ts, ok := e.sched.Circuits.Lookup(addr); ok {
		return ts
	}
	return ControlTimeslot
}

// ObserveAccessRequest is called by the uplink decode path on every
// MAC-ACCESS capacity request. If ts carries a hanging circuit, the
// request is a PTT bounce: a rapid re-press from the same talker. Reported
// to CMCE at immediate priority so the re-grant beats any other signalling
// queued for the next tick.
func (e *Entity) ObserveAccessRequest(ts int, ssi uint32) {
	c, ok := e.sched.Circuits.Get(ts)
	if !ok || !c.Hanging {
		return
	}
	e.bus.Post(bus.Msg{
		Src:  bus.SAPMAC,
		Dest: bus.SAPCMCE,
		Pri:  bus.Immediate,
		Body: UplinkPttBounce{Timeslot: ts, SSI: ssi},
	})
}

// ObserveTrafficFrame is called by the uplink decode path for every
// traffic-plane frame received on ts. It debounces sustained uplink voice
// on a hanging circuit into a single UplinkTchActivity report once
// tchActivityFrames frames have landed within tchActivityWindowSlots of
// each other.
func (e *Entity) ObserveTrafficFrame(ts int, ssi uint32, now tdmatime.Time) {
	c, ok := e.sched.Circuits.Get(ts)
	if !ok || !c.Hanging {
		delete(e.activity, ts)
		return
	}

	w, ok := e.activity[ts]
	if !ok || now.DistanceSlots(w.windowEnd) > 0 {
		w = &activityWindow{count: 0, windowEnd: now.AddSlots(tchActivityWindowSlots)}
		e.activity[ts] = w
	}
	w.count++
	if w.count < tchActivityFrames {
		return
	}
	delete(e.activity, ts)
	e.bus.Post(bus.Msg{
		Src:  bus.SAPMAC,
		Dest: bus.SAPCMCE,
		Body: UplinkTchActivity{Timeslot: ts, SSI: ssi},
	})
}

// HandleUplinkSlot is the uplink decode path's single entry point: the tick
// driver runs the raw channel block through the LMAC decoder (FEC,
// deinterleave, descramble — the external collaborator's job) and hands the
// resulting TmvUnitdataInd here for ts, where this layer's own job starts:
// classifying the logical channel, parsing the uplink MAC-PDU it carries,
// servicing any reservation requirement, reassembling fragments, and
// routing the result to LLC. A failed CRC discards whatever reassembly was
// in progress on ts and drops the slot; LMAC has no retransmission concept
// at this boundary.
func (e *Entity) HandleUplinkSlot(ts int, ind lmac.TmvUnitdataInd, now tdmatime.Time) {
	if !ind.CRCPass {
		e.discardChain(ts)
		return
	}
	c, hasCircuit := e.sched.Circuits.Get(ts)

	switch ind.LogicalChannel {
	case lmac.ChannelTCHS:
		if hasCircuit {
			e.ObserveTrafficFrame(ts, c.Address.SSI, now)
		}
	case lmac.ChannelSCHHU:
		e.handleAccess(ts, c, hasCircuit, ind.PDU, now)
	default:
		e.handleAssignedUplink(ts, c, hasCircuit, ind.PDU, now)
	}
}

// handleAccess parses an uplink MAC-ACCESS PDU, the fixed SCH/HU format
// random access and reservation requests arrive in. A bare capacity
// request (no length-ind) is serviced against the uplink reservation table
// per spec.md §4.3; one carrying a length-ind is signalling, handled by the
// same valid/frag-start classification as an assigned-channel MAC-DATA.
func (e *Entity) handleAccess(ts int, c Circuit, hasCircuit bool, type1 []byte, now tdmatime.Time) {
	var ssi uint32
	if hasCircuit {
		ssi = c.Address.SSI
	}
	e.ObserveAccessRequest(ts, ssi)

	buf := bitio.FromBytes(type1)
	access, err := pdu.MacAccessFromBits(buf)
	if err != nil {
		return
	}

	if access.LengthInd == nil {
		e.requestCapacity(ts, now, access.Address, access.EventLabel, access.ReservationReq)
		return
	}

	owner, ok := e.resolveOwner(access.Address, access.EventLabel)
	if !ok {
		return
	}
	e.handleLengthIndicated(ts, c, hasCircuit, owner, *access.LengthInd, buf, now)
}

// requestCapacity services a bare MAC-ACCESS capacity request against the
// uplink reservation table and queues the resulting grant for ts's next
// downlink slot, per spec.md §4.3's "on receipt of a reservation
// requirement ... reserve the slot(s)".
func (e *Entity) requestCapacity(ts int, now tdmatime.Time, addr uint32, eventLabel bool, reservationReq uint8) {
	requestedCap, isHalfslot, has := reservationReqToCapacity(reservationReq)
	if !has {
		return
	}
	owner, ok := e.resolveOwner(addr, eventLabel)
	if !ok {
		return
	}
	grant, granted := e.sched.RequestUplinkCapacity(ts, now.F, owner, requestedCap, isHalfslot)
	if !granted {
		return
	}
	e.sched.QueueGrant(ts, owner, grant)
}

// reservationReqToCapacity maps MAC-ACCESS's 3-bit reservation_req field to
// the slot count and half-slot flag spec.md §4.3's uplink capacity
// allocation works in: 0 reports no capacity requested (an access burst
// carrying only signalling); 1 requests a single half-slot (subslot); 2..7
// request increasingly many full slots.
func reservationReqToCapacity(raw uint8) (requestedCap uint8, isHalfslot bool, has bool) {
	switch raw {
	case 0:
		return 0, false, false
	case 1:
		return 1, true, true
	default:
		return raw - 1, false, true
	}
}

// handleAssignedUplink dispatches a decoded PDU from any uplink channel
// other than SCH/HU or TCH/S by its leading 2-bit MAC-PDU type field, the
// discriminator that precedes every MAC-DATA/MAC-FRAG/MAC-END header.
func (e *Entity) handleAssignedUplink(ts int, c Circuit, hasCircuit bool, type1 []byte, now tdmatime.Time) {
	buf := bitio.FromBytes(type1)
	pduType, err := buf.ReadField(2, "mac.pdu_type")
	if err != nil {
		return
	}
	switch uint8(pduType) {
	case pdu.MacPDUTypeResource:
		e.handleMacData(ts, c, hasCircuit, buf, now)
	case pdu.MacPDUTypeFrag:
		e.handleMacFrag(ts, buf)
	case pdu.MacPDUTypeEnd:
		e.handleMacEnd(ts, c, hasCircuit, buf)
	default:
		// MAC-U-SIGNAL/DB-CONTROL framing isn't modeled; nothing here to
		// reassemble or forward.
	}
}

// handleMacData parses an uplink MAC-DATA start PDU and classifies it by
// length-ind: a valid length is a complete, unfragmented SDU forwarded
// straight to LLC; a fragmentation-start length-ind opens a reassembly
// chain keyed by ts per spec.md §4.4; anything else carries no SDU.
func (e *Entity) handleMacData(ts int, c Circuit, hasCircuit bool, buf *bitio.Buffer, now tdmatime.Time) {
	data, err := pdu.MacDataFromBits(buf)
	if err != nil {
		return
	}
	owner, ok := e.resolveOwner(data.Address, data.EventLabel)
	if !ok {
		return
	}
	if kind, _ := pdu.InterpretLengthInd(data.LengthInd); kind == pdu.LengthIndValid {
		// MacDataFromBits has already read the valid-length payload out of buf.
		delete(e.fragChains, ts)
		e.postUplinkSignalling(ts, c, hasCircuit, data.Payload)
		return
	}
	e.handleLengthIndicated(ts, c, hasCircuit, owner, data.LengthInd, buf, now)
}

// handleLengthIndicated applies the shared valid/frag-start/other
// classification used by both MAC-DATA and MAC-ACCESS's length-ind field,
// since both can open the same kind of uplink fragmentation chain.
func (e *Entity) handleLengthIndicated(ts int, c Circuit, hasCircuit bool, owner uint32, lengthInd uint64, buf *bitio.Buffer, now tdmatime.Time) {
	switch kind, validBits := pdu.InterpretLengthInd(lengthInd); kind {
	case pdu.LengthIndValid:
		delete(e.fragChains, ts)
		e.postUplinkSignalling(ts, c, hasCircuit, capturePayload(buf, validBits))
	case pdu.LengthIndFragStart:
		first, _ := pdu.MacFragFromBits(buf)
		e.sched.Defrag.InsertFirst(owner, now, first.Payload, nil)
		e.fragChains[ts] = fragChain{owner: owner, start: now}
	default:
		delete(e.fragChains, ts)
	}
}

// handleMacFrag appends a middle fragment to ts's open reassembly chain, if
// any; a middle fragment with no open start is dropped per spec.md §4.4.
func (e *Entity) handleMacFrag(ts int, buf *bitio.Buffer) {
	chain, ok := e.fragChains[ts]
	if !ok {
		return
	}
	frag, err := pdu.MacFragFromBits(buf)
	if err != nil {
		return
	}
	e.sched.Defrag.InsertNext(chain.owner, chain.start, frag.Payload)
}

// handleMacEnd finalizes ts's open reassembly chain and forwards the
// reassembled SDU to LLC; a MAC-END with no matching start is dropped.
func (e *Entity) handleMacEnd(ts int, c Circuit, hasCircuit bool, buf *bitio.Buffer) {
	chain, ok := e.fragChains[ts]
	if !ok {
		return
	}
	delete(e.fragChains, ts)
	end, err := pdu.MacEndFromBits(buf)
	if err != nil {
		e.sched.Defrag.Discard(chain.owner, chain.start)
		return
	}
	data, ok := e.sched.Defrag.InsertLast(chain.owner, chain.start, end.Payload)
	if !ok {
		return
	}
	e.postUplinkSignalling(ts, c, hasCircuit, data)
}

// discardChain drops any reassembly in progress on ts, used when the slot
// that would have carried its next fragment failed CRC.
func (e *Entity) discardChain(ts int) {
	chain, ok := e.fragChains[ts]
	if !ok {
		return
	}
	delete(e.fragChains, ts)
	e.sched.Defrag.Discard(chain.owner, chain.start)
}

// resolveOwner maps a MAC-header address field to the owner SSI the
// fragment table and reservation table key on, resolving through the
// UMAC-local event-label store when the header addresses by label rather
// than SSI directly. An unrecognized label has no owner to resolve to.
func (e *Entity) resolveOwner(addr uint32, eventLabel bool) (uint32, bool) {
	if !eventLabel {
		return addr, true
	}
	resolved, ok := e.sched.Labels.Lookup(uint16(addr))
	if !ok {
		return 0, false
	}
	return resolved.SSI, true
}

// capturePayload reads a length-ind-valid SDU of validBits payload length
// (header excluded) out of buf, mirroring the payload-extraction pattern
// pdu's MAC-RESOURCE/MAC-DATA/MAC-END decoders each use internally.
func capturePayload(buf *bitio.Buffer, validBits int) []byte {
	payloadBits := validBits
	if payloadBits > buf.LenRemaining() {
		payloadBits = buf.LenRemaining()
	}
	dst := bitio.NewAutoExpand(payloadBits)
	dst.CopyBits(buf, payloadBits)
	return dst.Bytes()
}

// postUplinkSignalling forwards a decoded control-plane SDU to LLC,
// addressed by ts's circuit if one is allocated, or left unresolved
// (address.Unknown) for pre-circuit signalling like random access and
// location update, which LLC/MLE route by handle rather than address.
func (e *Entity) postUplinkSignalling(ts int, c Circuit, hasCircuit bool, type1 []byte) {
	if len(type1) == 0 {
		return
	}
	addr := address.Address{Type: address.Unknown}
	if hasCircuit {
		addr = c.Address
	}
	e.bus.Post(bus.Msg{
		Src:  bus.SAPMAC,
		Dest: bus.SAPLLC,
		Body: llc.UnitdataInd{Address: addr, PDU: type1},
	})
}
