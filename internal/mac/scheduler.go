package mac

import (
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/lmac"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/queue"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// SchedulingHorizonSlots is how many future occurrences of a single
// timeslot the reservation table tracks ahead of now (MACSCHED_NUM_FRAMES).
const SchedulingHorizonSlots = 18

// fullSlotBudgetBits is the nominal downlink payload budget for a
// non-traffic slot: SCH/F's type-1 length, the largest signalling channel
// the scheduler composes into.
const fullSlotBudgetBits = 268

// macResourceHeaderBits is the fixed-width portion of MacResourceHeader for
// an SSI-addressed (non-event-label) PDU: Fill+PosOfGrant+Encrypted+
// EventLabel flags (4) + 24-bit address + 6-bit length-ind.
const macResourceHeaderBits = 34

type reservationHalf struct {
	occupied bool
	owner    uint32
}

type reservationSlot struct {
	first  reservationHalf
	second reservationHalf
}

func (s reservationSlot) free() bool { return !s.first.occupied && !s.second.occupied }

// BasicSlotGrant is the capacity grant UMAC hands back to an uplink
// reservation requester.
type BasicSlotGrant struct {
	CapacityAllocation uint8
	GrantingDelay      uint8
	Timeslot           int
	Halfslot           bool
	SecondHalf         bool
}

// UplinkReservationTable tracks grants already issued against future
// occurrences of each timeslot, out to SchedulingHorizonSlots frames deep.
// Offset i represents the i-th future occurrence of that timeslot, which
// lands on frame ((currentFrame-1+i) % FramesPerMultiframe)+1.
type UplinkReservationTable struct {
	byTimeslot map[int][]reservationSlot
}

func NewUplinkReservationTable() *UplinkReservationTable {
	return &UplinkReservationTable{byTimeslot: make(map[int][]reservationSlot)}
}

func (r *UplinkReservationTable) horizon(ts int) []reservationSlot {
	h, ok := r.byTimeslot[ts]
	if !ok {
		h = make([]reservationSlot, SchedulingHorizonSlots)
		r.byTimeslot[ts] = h
	}
	return h
}

func frameAtOffset(currentFrame, offset int) int {
	return (currentFrame-1+offset)%tdmatime.FramesPerMultiframe + 1
}

// Reserve walks forward from currentFrame across ts's tracked future
// occurrences, skipping the mandatory control frame, and allocates capacity
// for a requestedCap-slot (or half-slot) request. A half-slot request may
// share a slot whose complementary half is free; a multi-slot request needs
// requestedCap consecutive fully-free slots, and the run resets on every
// occupied or mandatory-control slot it crosses.
func (r *UplinkReservationTable) Reserve(ts int, currentFrame int, owner uint32, requestedCap uint8, isHalfslot bool) (BasicSlotGrant, bool) {
	slots := r.horizon(ts)

	if isHalfslot {
		for offset := range slots {
			if frameAtOffset(currentFrame, offset) == tdmatime.ControlFrame {
				continue
			}
			slot := &slots[offset]
			switch {
			case slot.free():
				slot.first = reservationHalf{occupied: true, owner: owner}
				return BasicSlotGrant{CapacityAllocation: 1, GrantingDelay: uint8(offset), Timeslot: ts, Halfslot: true}, true
			case !slot.first.occupied:
				slot.first = reservationHalf{occupied: true, owner: owner}
				return BasicSlotGrant{CapacityAllocation: 1, GrantingDelay: uint8(offset), Timeslot: ts, Halfslot: true}, true
			case !slot.second.occupied:
				slot.second = reservationHalf{occupied: true, owner: owner}
				return BasicSlotGrant{CapacityAllocation: 1, GrantingDelay: uint8(offset), Timeslot: ts, Halfslot: true, SecondHalf: true}, true
			}
		}
		return BasicSlotGrant{}, false
	}

	run := 0
	for offset := range slots {
		if frameAtOffset(currentFrame, offset) == tdmatime.ControlFrame || !slots[offset].free() {
			run = 0
			continue
		}
		run++
		if run == int(requestedCap) {
			start := offset - run + 1
			for i := start; i <= offset; i++ {
				slots[i].first = reservationHalf{occupied: true, owner: owner}
				slots[i].second = reservationHalf{occupied: true, owner: owner}
			}
			return BasicSlotGrant{CapacityAllocation: requestedCap, GrantingDelay: uint8(start), Timeslot: ts}, true
		}
	}
	return BasicSlotGrant{}, false
}

// Advance discards the occurrence at offset 0 (the one whose turn has just
// come up) and shifts every later occurrence one step closer. Called once
// per tick for the timeslot that ticked.
func (r *UplinkReservationTable) Advance(ts int) {
	slots, ok := r.byTimeslot[ts]
	if !ok {
		return
	}
	copy(slots, slots[1:])
	slots[len(slots)-1] = reservationSlot{}
}

// PendingGrant is a capacity grant awaiting composition into a downlink
// slot's MAC-RESOURCE header.
type PendingGrant struct {
	Owner uint32
	Grant BasicSlotGrant
}

// TrafficProducer supplies the next codec block for an active traffic
// circuit, returning ok=false when starved (the scheduler then zero-fills).
type TrafficProducer func() (block []byte, ok bool)

// CellConfig carries the broadcast parameters the scheduler stamps into
// MAC-SYNC/MAC-SYSINFO on default (nothing-scheduled) ticks.
type CellConfig struct {
	SystemCode, ColourCode, SharingMode, FreeChannels uint8
	MainCarrier                                       uint16
	FrequencyBandAndOffset                            uint8
	MCC, MNC, LocationArea                            uint16
	LateEntrySupported                                bool
}

// Scheduler is the base-station UMAC: it owns the circuit table, the
// fragment reassembly table, the event-label store, the uplink reservation
// table, and the per-timeslot downlink queues, and composes one finalized
// slot per tick per spec.md §4.3.
type Scheduler struct {
	Circuits     *CircuitTable
	Defrag       *Defragmenter
	Labels       *EventLabelStore
	Reservations *UplinkReservationTable
	Queue        *queue.DownlinkQueue

	cellConfig CellConfig
	producers  map[int]TrafficProducer
	grants     map[int][]PendingGrant
	lastTick   tdmatime.Time
}

func NewScheduler(cfg CellConfig) *Scheduler {
	return &Scheduler{
		Circuits:     NewCircuitTable(),
		Defrag:       NewDefragmenter(),
		Labels:       NewEventLabelStore(),
		Reservations: NewUplinkReservationTable(),
		Queue:        queue.NewDownlinkQueue(),
		cellConfig:   cfg,
		producers:    make(map[int]TrafficProducer),
		grants:       make(map[int][]PendingGrant),
	}
}

// SetTrafficProducer registers (or clears, with nil) the codec block source
// for ts's traffic circuit.
func (s *Scheduler) SetTrafficProducer(ts int, producer TrafficProducer) {
	if producer == nil {
		delete(s.producers, ts)
		return
	}
	s.producers[ts] = producer
}

// QueueGrant schedules a capacity grant for composition into ts's next
// downlink slot.
func (s *Scheduler) QueueGrant(ts int, owner uint32, grant BasicSlotGrant) {
	s.grants[ts] = append(s.grants[ts], PendingGrant{Owner: owner, Grant: grant})
}

// RequestUplinkCapacity services a reservation requirement carried in an
// uplink MAC-DATA/MAC-ACCESS/MAC-END.
func (s *Scheduler) RequestUplinkCapacity(ts int, currentFrame int, owner uint32, requestedCap uint8, isHalfslot bool) (BasicSlotGrant, bool) {
	return s.Reservations.Reserve(ts, currentFrame, owner, requestedCap, isHalfslot)
}

// ComposeDownlink builds the finalized slot for timeslot ts at time now
// (the tick before transmission), per spec.md §4.3's seven-step algorithm.
func (s *Scheduler) ComposeDownlink(ts int, now tdmatime.Time) lmac.TmvUnitdataReqSlot {
	s.lastTick = now
	s.Reservations.Advance(ts)

	if circuit, ok := s.Circuits.Get(ts); ok && s.Circuits.Active(ts) && !now.IsControlFrame() {
		return lmac.TmvUnitdataReqSlot{
			Timeslot: ts,
			BBK:      encodeAach(pdu.Aach{Usage: pdu.AccessAssignTraffic, TrafficUsage: circuit.Usage}),
			Blk1:     s.drainTraffic(ts),
		}
	}

	grants := s.grants[ts]
	delete(s.grants, ts)
	queued := s.Queue.Drain(ts)

	buf := bitio.NewAutoExpand(fullSlotBudgetBits)
	remaining := fullSlotBudgetBits
	usage := pdu.AccessAssignCommonOnly

	if len(grants) > 0 {
		g := grants[0]
		grants = grants[1:]
		res := pdu.MacResource{Header: pdu.MacResourceHeader{PosOfGrant: true, Address: g.Owner, LengthInd: 0}}
		resBytes, encoded := encodePDU(res, remaining)
		if encoded {
			buf.CopyBits(bitio.FromBytes(resBytes), len(resBytes)*8)
			remaining -= len(resBytes) * 8
			if g.Grant.Halfslot && !g.Grant.SecondHalf {
				usage = pdu.AccessAssignCommonAndAssigned
			} else {
				usage = pdu.AccessAssignAssignedOnly
			}
		} else {
			grants = append(grants, g)
		}
	}
	for _, g := range grants {
		s.QueueGrant(ts, g.Owner, g.Grant)
	}

	for len(queued) > 0 && remaining > 0 {
		item := queued[0]
		queued = queued[1:]
		itemBits := len(item) * 8
		if itemBits <= remaining {
			buf.CopyBits(bitio.FromBytes(item), itemBits)
			remaining -= itemBits
			continue
		}

		// item doesn't fit in what's left of this slot: open a
		// fragmentation chain per spec.md §4.4. The start PDU is a
		// MAC-RESOURCE with length-ind set to the fragmentation-start
		// code, filling the rest of this slot with as much of item as
		// fits; the unsent tail is requeued as a MAC-END carrying its own
		// explicit length so the receiver can strip trailing fill bits.
		fitBytes := (remaining - macResourceHeaderBits) / 8
		switch {
		case fitBytes > len(item):
			fitBytes = len(item)
		case fitBytes < 0:
			fitBytes = 0
		}
		start := pdu.MacResource{
			Header:  pdu.MacResourceHeader{LengthInd: pdu.LengthIndFragStartValue},
			Payload: item[:fitBytes],
		}
		startBytes, encoded := encodePDU(start, remaining)
		if encoded {
			buf.CopyBits(bitio.FromBytes(startBytes), len(startBytes)*8)
			remaining -= len(startBytes) * 8
		} else {
			fitBytes = 0
		}

		tail := item[fitBytes:]
		end := pdu.MacEnd{LengthInd: uint64(len(tail)), Payload: tail}
		if endBytes, ok := encodePDU(end, len(tail)*8+6); ok {
			_, _ = s.Queue.Push(ts, endBytes)
		}
		break
	}
	for _, item := range queued {
		_, _ = s.Queue.Push(ts, item)
	}

	// NullPDU: event-label flag, 24-bit address, 6-bit length-ind.
	const nullPDUBits = 1 + 24 + 6
	if remaining >= nullPDUBits {
		null := pdu.NullPDU{}
		nullBytes, ok := encodePDU(null, nullPDUBits)
		if ok {
			buf.CopyBits(bitio.FromBytes(nullBytes), nullPDUBits)
			remaining -= nullPDUBits
		}
	}

	return lmac.TmvUnitdataReqSlot{
		Timeslot: ts,
		BBK:      encodeAach(pdu.Aach{Usage: usage}),
		Blk1:     buf.Bytes(),
	}
}

// drainTraffic pulls the next codec block from ts's producer, falling back
// to a zero-filled block sized to the TCH/S type-1 length when starved.
func (s *Scheduler) drainTraffic(ts int) []byte {
	if producer, ok := s.producers[ts]; ok {
		if block, ok := producer(); ok {
			return block
		}
	}
	zeroBytes := (lmac.ChannelTCHS.Type1Bits() + 7) / 8
	return make([]byte, zeroBytes)
}

// LastTick returns the TDMA time of the most recent ComposeDownlink call,
// for housekeeping's wall-clock fragment-GC backstop to close over.
func (s *Scheduler) LastTick() tdmatime.Time { return s.lastTick }

// GCFragments sweeps the defragmenter using LastTick, for wiring directly
// into housekeeping's periodic job without the caller tracking TDMA time
// itself.
func (s *Scheduler) GCFragments() int {
	return s.Defrag.ExpireOlderThan(s.lastTick)
}

// encodeAach packs an Aach's 6 bits into the low bits of the slot's 14-bit
// BBK field (the remaining bits belong to the colour-code/frame framing the
// physical layer stamps on, outside this package's contract).
func encodeAach(a pdu.Aach) uint16 {
	b := bitio.New(6)
	a.ToBits(b)
	b.Seek(0)
	v, _ := b.ReadBits(6)
	return uint16(v)
}

// encodePDU writes a fixed-shape PDU (one whose ToBits never exceeds
// budgetBits) and reports whether it fit; used for the small headers/fillers
// the composer packs (MAC-RESOURCE grant header, NullPDU, MAC-END tail).
func encodePDU(p interface{ ToBits(*bitio.Buffer) }, budgetBits int) ([]byte, bool) {
	b := bitio.NewAutoExpand(budgetBits)
	p.ToBits(b)
	if b.LenWritten() > budgetBits {
		return nil, false
	}
	return b.Bytes(), true
}
