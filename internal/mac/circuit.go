// Package mac implements the base-station UMAC: the TDMA-tick-driven
// scheduler that allocates uplink capacity, composes downlink slots,
// tracks traffic circuits, and reassembles fragmented uplink SDUs.
package mac

import "github.com/trunkctl/tetrabase/internal/address"

// Direction describes which way a circuit carries traffic.
type Direction int

const (
	DirectionDL Direction = iota
	DirectionUL
	DirectionBoth
)

// CircuitMode distinguishes circuit-mode data from speech traffic.
type CircuitMode int

const (
	CircuitModeSpeech CircuitMode = iota
	CircuitModeData
)

// Circuit is an allocated traffic channel: one timeslot dedicated to a
// single call for as long as the call (or its hangtime) holds it.
type Circuit struct {
	Direction     Direction
	Timeslot      int
	Usage         uint8
	Mode          CircuitMode
	SpeechService uint8
	Encrypted     bool
	Hanging       bool
	// Address is the circuit's destination (individual or group), so the
	// MAC entity can resolve a downlink LLC PDU's address to the timeslot
	// it belongs to instead of every layer above UMAC tracking timeslots.
	Address address.Address
}

// Lookup returns the timeslot of the circuit addressed to addr, if any.
func (t *CircuitTable) Lookup(addr address.Address) (int, bool) {
	for ts, c := range t.circuits {
		if c.Address.SSI == addr.SSI && c.Address.Type == addr.Type {
			return ts, true
		}
	}
	return 0, false
}

// CircuitTable owns every currently-allocated traffic circuit, indexed by
// timeslot. The table is shared by pointer: CMCE calls Open, Close and
// SetHanging on it directly (not through bus messages), and UMAC reads it
// to route downlink PDUs and to spot hanging circuits.
type CircuitTable struct {
	circuits map[int]*Circuit
}

func NewCircuitTable() *CircuitTable {
	return &CircuitTable{circuits: make(map[int]*Circuit)}
}

// Open allocates ts to circuit, replacing whatever was previously there.
func (t *CircuitTable) Open(ts int, circuit Circuit) {
	circuit.Timeslot = ts
	t.circuits[ts] = &circuit
}

// Close releases ts's circuit entirely.
func (t *CircuitTable) Close(ts int) {
	delete(t.circuits, ts)
}

// Get returns the circuit on ts, if any.
func (t *CircuitTable) Get(ts int) (Circuit, bool) {
	c, ok := t.circuits[ts]
	if !ok {
		return Circuit{}, false
	}
	return *c, true
}

// SetHanging marks ts's circuit as hanging or active. No-op if ts has no
// circuit.
func (t *CircuitTable) SetHanging(ts int, hanging bool) {
	if c, ok := t.circuits[ts]; ok {
		c.Hanging = hanging
	}
}

// Active reports whether ts carries a non-hanging traffic circuit.
func (t *CircuitTable) Active(ts int) bool {
	c, ok := t.circuits[ts]
	return ok && !c.Hanging
}

// Count returns the number of currently-allocated circuits.
func (t *CircuitTable) Count() int { return len(t.circuits) }
