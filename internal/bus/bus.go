// Package bus implements the inter-entity message bus that drives every
// tick: a tagged-variant channel with two priority bands, SAP-addressed
// dispatch, and the tick_start/rx_prim/tick_end cycle that threads a single
// TDMA timeslot through every registered entity.
package bus

import (
	"fmt"

	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// SAP names a service access point: the registration key entities dispatch
// messages by. Mirrors internal/pdu.SAP but kept independent so the bus
// does not import the PDU registry.
type SAP int

const (
	SAPLMAC SAP = iota
	SAPMAC
	SAPLLC
	SAPMLE
	SAPMM
	SAPCMCE
	SAPVoiceBridge
)

func (s SAP) String() string {
	switch s {
	case SAPLMAC:
		return "LMAC"
	case SAPMAC:
		return "MAC"
	case SAPLLC:
		return "LLC"
	case SAPMLE:
		return "MLE"
	case SAPMM:
		return "MM"
	case SAPCMCE:
		return "CMCE"
	case SAPVoiceBridge:
		return "VoiceBridge"
	default:
		return "Unknown"
	}
}

// Priority selects which of the bus's two delivery bands a message travels
// in. Immediate messages are drained ahead of every pending Normal message
// in the same tick, but still respect FIFO order among themselves.
type Priority int

const (
	Normal Priority = iota
	Immediate
)

// Msg is a single addressed item on the bus: a source and destination SAP,
// the TDMA time it was posted at, and an opaque body each entity type-
// asserts against the messages it understands.
type Msg struct {
	SAP     SAP
	Src     SAP
	Dest    SAP
	DLTime  tdmatime.Time
	Body    any
	Pri     Priority
}

// Entity is implemented by every layer the bus drives. tick_end returns
// true when it queued additional work during the tick that must be
// redrained before the tick can close (e.g. LLC scheduled a late ACK).
type Entity interface {
	SAP() SAP
	TickStart(now tdmatime.Time)
	RxPrim(msg Msg)
	TickEnd(now tdmatime.Time) (redrain bool)
}

// Bus owns the entity registry and the two priority queues. Not safe for
// concurrent use: the entire tick pipeline runs on the single TDMA driver
// goroutine per spec.md §5's single-threaded cooperative model.
type Bus struct {
	entities []Entity
	byName   map[SAP]Entity
	normal   []Msg
	immediate []Msg
}

func New() *Bus {
	return &Bus{byName: make(map[SAP]Entity)}
}

// Register adds an entity in dependency order: Tick drives TickStart in
// registration order and TickEnd in reverse.
func (b *Bus) Register(e Entity) error {
	if _, exists := b.byName[e.SAP()]; exists {
		return fmt.Errorf("bus: entity already registered for sap %s", e.SAP())
	}
	b.entities = append(b.entities, e)
	b.byName[e.SAP()] = e
	return nil
}

// Post enqueues msg for delivery during the current or next drain pass.
func (b *Bus) Post(msg Msg) {
	if msg.Pri == Immediate {
		b.immediate = append(b.immediate, msg)
		return
	}
	b.normal = append(b.normal, msg)
}

// Tick runs one full cycle: tick_start on every entity in registration
// order, a drain pass, then tick_end on every entity in reverse order, with
// a further drain pass after each tick_end that returns true.
func (b *Bus) Tick(now tdmatime.Time) {
	for _, e := range b.entities {
		e.TickStart(now)
	}
	b.drain()
	for i := len(b.entities) - 1; i >= 0; i-- {
		if b.entities[i].TickEnd(now) {
			b.drain()
		}
	}
}

// drain dispatches every queued message, immediate band first, until both
// queues are empty. A handler that posts new messages during dispatch will
// see them picked up by this same drain loop.
func (b *Bus) drain() {
	for len(b.immediate) > 0 || len(b.normal) > 0 {
		var msg Msg
		if len(b.immediate) > 0 {
			msg, b.immediate = b.immediate[0], b.immediate[1:]
		} else {
			msg, b.normal = b.normal[0], b.normal[1:]
		}
		if e, ok := b.byName[msg.Dest]; ok {
			e.RxPrim(msg)
		}
	}
}
