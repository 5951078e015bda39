// Package cmce implements the base-station side of call control: the
// per-call state machine (Init -> CallActive <-> TxCeased -> Disconnected),
// circuit allocation against UMAC's circuit table, and hangtime reuse of a
// group's traffic circuit across back-to-back calls on the same GSSI.
package cmce

import (
	"time"

	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/logging"
	"github.com/trunkctl/tetrabase/internal/mac"
	"github.com/trunkctl/tetrabase/internal/metrics"
	"github.com/trunkctl/tetrabase/internal/mle"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/pubsub"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// hangtimeWindow is the fixed wall-clock interval a disconnected group
// circuit is held for fast re-seizure, per spec.md §5.
const hangtimeWindow = 5 * time.Second

// firstTrafficTimeslot/lastTrafficTimeslot bound the timeslots CMCE may
// allocate a traffic circuit on; ts 1 stays reserved for control.
const (
	firstTrafficTimeslot = 2
	lastTrafficTimeslot  = 4
)

// CallState is this call's position in the Init/CallActive/TxCeased/
// Disconnected state machine.
type CallState int

const (
	StateInit CallState = iota
	StateCallActive
	StateTxCeased
	StateDisconnected
)

// Call is one downlink call context, per spec.md's "Call context (CMCE)".
type Call struct {
	ID         uint16
	State      CallState
	Source     uint32
	DestAddr   address.Address
	IsGroup    bool
	Timeslot   int
	Talker     uint32
	Handle     mle.Handle
	BridgeUUID string
}

// HangingCall is a circuit parked in its hangtime window, indexed by the
// destination GSSI it was last used for.
type HangingCall struct {
	CallID   uint16
	Timeslot int
	GSSI     uint32
	Since    time.Time
}

// Bridge events (bridge -> CMCE), per spec.md §4.9.
type Connected struct{}
type Disconnected struct{ Reason string }
type GroupCallStart struct {
	UUID       string
	SourceISSI uint32
	DestGSSI   uint32
	Priority   uint8
	Service    uint8
}
type GroupCallEnd struct {
	UUID  string
	Cause string
}
type VoiceFrame struct {
	UUID       string
	LengthBits int
	Data       []byte
}
type SubscriberEvent struct {
	ISSI  uint32
	Event string
}
type ServerError struct{ Message string }

// Bridge commands (CMCE -> bridge).
type RegisterSubscriber struct{ ISSI uint32 }
type AffiliateGroups struct {
	ISSI   uint32
	Groups []uint32
}
type SendGroupTx struct {
	UUID     string
	Source   uint32
	Dest     uint32
	Priority uint8
	Service  uint8
}
type SendVoiceFrame struct {
	UUID       string
	LengthBits int
	Data       []byte
}
type SendGroupIdle struct {
	UUID  string
	Cause string
}
type DisconnectBridge struct{}

// CMCE owns every active and hanging call. Circuit state lives in the
// shared mac.CircuitTable, which CMCE updates directly through its
// Open/Close/SetHanging methods (there are no Open/Close bus messages to
// UMAC); CMCE holds no circuit state itself.
type CMCE struct {
	bus      *bus.Bus
	circuits *mac.CircuitTable
	clock    func() time.Time
	metrics  *metrics.Metrics

	calls      map[uint16]*Call
	byUUID     map[string]uint16
	hanging    map[uint32]*HangingCall
	nextCallID uint16

	noticePubSub pubsub.PubSub
	noticeTopic  string
}

// New builds a CMCE wired to circuits for traffic-channel allocation.
// clock defaults to time.Now; tests may inject a fake. m may be nil, in
// which case call metrics are not recorded.
func New(b *bus.Bus, circuits *mac.CircuitTable, clock func() time.Time, m *metrics.Metrics) *CMCE {
	if clock == nil {
		clock = time.Now
	}
	return &CMCE{
		bus:        b,
		circuits:   circuits,
		clock:      clock,
		metrics:    m,
		calls:      make(map[uint16]*Call),
		byUUID:     make(map[string]uint16),
		hanging:    make(map[uint32]*HangingCall),
		nextCallID: 1,
	}
}

// WithNotifier turns on cross-process hangtime notices over ps: other
// base-station processes sharing the same Redis backend learn when a
// group circuit enters hangtime and when its hangtime expires, so a
// clustered deployment can keep its own view of which GSSIs are
// fast-reseizable without polling this instance directly. Reseizing a
// hanging circuit (a new call start or uplink traffic on it) publishes no
// notice.
func (c *CMCE) WithNotifier(ps pubsub.PubSub, topic string) *CMCE {
	c.noticePubSub = ps
	c.noticeTopic = topic
	return c
}

func (c *CMCE) notify(kind string, gssi uint32, callID uint16, timeslot int) {
	if c.noticePubSub == nil {
		return
	}
	if err := pubsub.PublishNotice(c.noticePubSub, c.noticeTopic, pubsub.CrossProcessNotice{
		Kind:      kind,
		GSSI:      gssi,
		CallID:    callID,
		Timeslot:  uint8(timeslot),
		SinceUnix: c.clock().Unix(),
	}); err != nil {
		logging.Errorf("cmce: publish %s notice: %v", kind, err)
	}
}

func (c *CMCE) recordCallSetup(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordCallSetup(outcome)
	}
}

func (c *CMCE) recordActiveCalls() {
	if c.metrics != nil {
		c.metrics.SetActiveCalls(float64(len(c.calls)))
	}
}

func (c *CMCE) recordHangtimeReuse() {
	if c.metrics != nil {
		c.metrics.IncrementHangtimeReuses()
	}
}

func (c *CMCE) SAP() bus.SAP { return bus.SAPCMCE }

// TickStart sweeps hanging calls past their hangtime window, releasing the
// circuit back to the pool.
func (c *CMCE) TickStart(now tdmatime.Time) {
	c.SweepHangtime()
}

// SweepHangtime releases every hanging circuit whose hangtime window has
// elapsed. Run once per tick by TickStart; also exposed so housekeeping's
// wall-clock job can run it as a backstop independent of the TDMA driver.
func (c *CMCE) SweepHangtime() (expired int) {
	cutoff := c.clock()
	for gssi, hc := range c.hanging {
		if cutoff.Sub(hc.Since) >= hangtimeWindow {
			c.circuits.Close(hc.Timeslot)
			delete(c.hanging, gssi)
			c.notify(pubsub.NoticeHangtimeExpired, gssi, hc.CallID, hc.Timeslot)
			expired++
		}
	}
	return expired
}

func (c *CMCE) TickEnd(now tdmatime.Time) bool { return false }

func (c *CMCE) RxPrim(msg bus.Msg) {
	switch body := msg.Body.(type) {
	case mle.UpperInd:
		c.handleUplink(body)
	case GroupCallStart:
		c.handleGroupCallStart(body)
	case GroupCallEnd:
		c.handleGroupCallEnd(body)
	case mac.UplinkPttBounce:
		c.handlePttBounce(body)
	case mac.UplinkTchActivity:
		c.handleTchActivity(body)
	}
}

func (c *CMCE) handleUplink(ind mle.UpperInd) {
	b := bitio.FromBytes(ind.PDU)
	pduType, ok := b.PeekBitsOffset(3, 5)
	if !ok {
		return
	}

	if pduType == pdu.CmcePDUTypeUSetup {
		p, err := pdu.USetupFromBits(b)
		if err != nil {
			return
		}
		c.handleSetup(ind, p)
		return
	}

	callID, ok := peekCallID(b)
	if !ok {
		return
	}
	call, ok := c.calls[callID]
	if !ok {
		return
	}
	call.Handle = ind.Handle

	switch pduType {
	case pdu.CmcePDUTypeUTxCeased:
		if call.State != StateCallActive {
			return
		}
		if _, err := pdu.UTxCeasedFromBits(b); err != nil {
			return
		}
		call.State = StateTxCeased
		call.Talker = 0
		c.broadcast(call.DestAddr, pdu.DTxCeased{CallID: callID})

	case pdu.CmcePDUTypeUTxDemand:
		if call.State != StateCallActive && call.State != StateTxCeased {
			return
		}
		if _, err := pdu.UTxDemandFromBits(b); err != nil {
			return
		}
		call.Talker = ind.Address.SSI
		call.State = StateCallActive
		c.broadcast(call.DestAddr, pdu.DTxGranted{CallID: callID, GrantedSSI: ind.Address.SSI})

	case pdu.CmcePDUTypeUConnect:
		if call.State != StateCallActive || call.IsGroup {
			return
		}
		if _, err := pdu.UConnectFromBits(b); err != nil {
			return
		}
		c.reply(ind.Handle, ind.Address, pdu.DConnectAck{CallID: callID})

	case pdu.CmcePDUTypeUDisconnect:
		if call.State != StateCallActive && call.State != StateTxCeased {
			return
		}
		p, err := pdu.UDisconnectFromBits(b)
		if err != nil {
			return
		}
		c.endCall(call, p.Cause)

	case pdu.CmcePDUTypeUInfo:
		if call.State != StateCallActive {
			return
		}
		p, err := pdu.UInfoFromBits(b)
		if err != nil {
			return
		}
		c.broadcast(call.DestAddr, pdu.DInfo{CallID: callID, Payload: p.Payload})

	case pdu.CmcePDUTypeUAlert:
		if call.State != StateCallActive {
			return
		}
		if _, err := pdu.UAlertFromBits(b); err != nil {
			return
		}

	case pdu.CmcePDUTypeUCallRestore:
		if call.State == StateDisconnected {
			return
		}
		if _, err := pdu.UCallRestoreFromBits(b); err != nil {
			return
		}
		call.State = StateCallActive
		c.reply(ind.Handle, ind.Address, pdu.DCallRestore{CallID: callID, Timeslot: uint8(call.Timeslot)})
	}
}

func (c *CMCE) handleSetup(ind mle.UpperInd, p pdu.USetup) {
	isGroup := p.CallType != pdu.CallTypeIndividual
	dest := address.Issi(p.CalledParty)
	if isGroup {
		dest = address.Gssi(p.CalledParty)
	}

	ts, ok := c.allocateCircuit(uint8(p.CallType), dest)
	if !ok {
		c.reply(ind.Handle, ind.Address, pdu.DDisconnect{Cause: pdu.DisconnectCauseNetworkCongestion})
		c.recordCallSetup("no_circuit")
		return
	}

	id := c.nextCallID
	c.nextCallID++
	call := &Call{
		ID:       id,
		State:    StateCallActive,
		Source:   ind.Address.SSI,
		DestAddr: dest,
		IsGroup:  isGroup,
		Timeslot: ts,
		Handle:   ind.Handle,
	}
	c.calls[id] = call

	c.reply(ind.Handle, ind.Address, pdu.DCallProceeding{CallID: id, CallType: p.CallType})
	c.broadcast(dest, pdu.DSetup{CallID: id, CallType: p.CallType, CallingParty: ind.Address.SSI, CalledParty: p.CalledParty})
	c.broadcast(dest, pdu.DConnect{CallID: id, Timeslot: uint8(ts)})
	c.recordCallSetup("accepted")
	c.recordActiveCalls()
}

func (c *CMCE) handleGroupCallStart(ev GroupCallStart) {
	dest := address.Gssi(ev.DestGSSI)

	if hc, ok := c.hanging[ev.DestGSSI]; ok {
		delete(c.hanging, ev.DestGSSI)
		c.circuits.SetHanging(hc.Timeslot, false)
		call := &Call{
			ID:         hc.CallID,
			State:      StateCallActive,
			Source:     ev.SourceISSI,
			DestAddr:   dest,
			IsGroup:    true,
			Timeslot:   hc.Timeslot,
			Talker:     ev.SourceISSI,
			BridgeUUID: ev.UUID,
		}
		c.calls[hc.CallID] = call
		c.byUUID[ev.UUID] = hc.CallID
		// Hangtime reuse: same circuit, no D-SETUP rebroadcast, only the
		// speaker-change notification per spec.md §4.8/§8 scenario 4.
		c.broadcast(dest, pdu.DTxGranted{CallID: hc.CallID, GrantedSSI: ev.SourceISSI})
		c.recordHangtimeReuse()
		c.recordActiveCalls()
		return
	}

	ts, ok := c.allocateCircuit(ev.Service, dest)
	if !ok {
		c.recordCallSetup("no_circuit")
		return
	}
	id := c.nextCallID
	c.nextCallID++
	call := &Call{
		ID:         id,
		State:      StateCallActive,
		Source:     ev.SourceISSI,
		DestAddr:   dest,
		IsGroup:    true,
		Timeslot:   ts,
		Talker:     ev.SourceISSI,
		BridgeUUID: ev.UUID,
	}
	c.calls[id] = call
	c.byUUID[ev.UUID] = id

	c.broadcast(dest, pdu.DSetup{CallID: id, CallType: pdu.CallTypeGroup, CallingParty: ev.SourceISSI, CalledParty: ev.DestGSSI})
	c.broadcast(dest, pdu.DConnect{CallID: id, Timeslot: uint8(ts)})
	c.recordCallSetup("accepted")
	c.recordActiveCalls()
}

func (c *CMCE) handleGroupCallEnd(ev GroupCallEnd) {
	id, ok := c.byUUID[ev.UUID]
	if !ok {
		return
	}
	call, ok := c.calls[id]
	if !ok {
		delete(c.byUUID, ev.UUID)
		return
	}
	c.endCall(call, pdu.DisconnectCauseUnspecified)
}

func (c *CMCE) handlePttBounce(ev mac.UplinkPttBounce) {
	for _, hc := range c.hanging {
		if hc.Timeslot != ev.Timeslot {
			continue
		}
		c.bus.Post(bus.Msg{
			Src:  bus.SAPCMCE,
			Dest: bus.SAPMAC,
			Pri:  bus.Immediate,
			Body: mac.PttBounceGrant{Timeslot: ev.Timeslot, SSI: ev.SSI},
		})
		return
	}
}

func (c *CMCE) handleTchActivity(ev mac.UplinkTchActivity) {
	for gssi, hc := range c.hanging {
		if hc.Timeslot != ev.Timeslot {
			continue
		}
		delete(c.hanging, gssi)
		c.circuits.SetHanging(hc.Timeslot, false)
		call, ok := c.calls[hc.CallID]
		if !ok {
			call = &Call{ID: hc.CallID, State: StateCallActive, DestAddr: address.Gssi(gssi), IsGroup: true, Timeslot: hc.Timeslot}
			c.calls[hc.CallID] = call
		}
		call.Talker = ev.SSI
		call.State = StateCallActive
		c.broadcast(call.DestAddr, pdu.DTxGranted{CallID: hc.CallID, GrantedSSI: ev.SSI})
		return
	}
}

// endCall closes an active call. Group calls enter hangtime instead of
// releasing the circuit outright; individual calls release immediately.
func (c *CMCE) endCall(call *Call, cause pdu.DisconnectCause) {
	c.broadcast(call.DestAddr, pdu.DDisconnect{CallID: call.ID, Cause: cause})

	if call.IsGroup {
		c.circuits.SetHanging(call.Timeslot, true)
		c.hanging[call.DestAddr.SSI] = &HangingCall{
			CallID:   call.ID,
			Timeslot: call.Timeslot,
			GSSI:     call.DestAddr.SSI,
			Since:    c.clock(),
		}
		c.notify(pubsub.NoticeHangtimeStarted, call.DestAddr.SSI, call.ID, call.Timeslot)
	} else {
		c.circuits.Close(call.Timeslot)
	}

	call.State = StateDisconnected
	delete(c.calls, call.ID)
	if call.BridgeUUID != "" {
		delete(c.byUUID, call.BridgeUUID)
	}
	c.recordActiveCalls()
}

// allocateCircuit claims the first free traffic timeslot in ts 2..4 and
// binds it to dest, so UMAC can resolve downlink LLC PDUs addressed to dest
// to this timeslot without CMCE routing them itself.
func (c *CMCE) allocateCircuit(usage uint8, dest address.Address) (int, bool) {
	for ts := firstTrafficTimeslot; ts <= lastTrafficTimeslot; ts++ {
		if _, ok := c.circuits.Get(ts); ok {
			continue
		}
		c.circuits.Open(ts, mac.Circuit{Direction: mac.DirectionDL, Usage: usage, Mode: mac.CircuitModeSpeech, Address: dest})
		return ts, true
	}
	return 0, false
}

func (c *CMCE) reply(handle mle.Handle, addr address.Address, p interface{ ToBits(*bitio.Buffer) }) {
	buf := bitio.NewAutoExpand(64)
	p.ToBits(buf)
	c.bus.Post(bus.Msg{Src: bus.SAPCMCE, Dest: bus.SAPMLE, Body: mle.UpperReq{Handle: handle, Address: addr, PDU: buf.Bytes()}})
}

func (c *CMCE) broadcast(addr address.Address, p interface{ ToBits(*bitio.Buffer) }) {
	buf := bitio.NewAutoExpand(64)
	p.ToBits(buf)
	c.bus.Post(bus.Msg{Src: bus.SAPCMCE, Dest: bus.SAPMLE, Body: mle.UpperReq{Address: addr, PDU: buf.Bytes(), Unacknowledged: true}})
}

func peekCallID(b *bitio.Buffer) (uint16, bool) {
	v, ok := b.PeekBitsOffset(8, 14)
	if !ok {
		return 0, false
	}
	return uint16(v), true
}

// Call returns the call context for id, if any. Exposed for tests and
// diagnostics.
func (c *CMCE) Call(id uint16) (Call, bool) {
	call, ok := c.calls[id]
	if !ok {
		return Call{}, false
	}
	return *call, true
}

// Hanging returns the hanging-call entry for gssi, if any.
func (c *CMCE) Hanging(gssi uint32) (HangingCall, bool) {
	hc, ok := c.hanging[gssi]
	if !ok {
		return HangingCall{}, false
	}
	return *hc, true
}

// BridgedCalls returns every active call currently bound to a voice-bridge
// UUID, for the driver loop to reconcile against the scheduler's traffic
// producers each tick without CMCE having to know about the bridge itself.
func (c *CMCE) BridgedCalls() []Call {
	var out []Call
	for _, call := range c.calls {
		if call.BridgeUUID != "" {
			out = append(out, *call)
		}
	}
	return out
}
