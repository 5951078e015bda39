package mac_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/llc"
	"github.com/trunkctl/tetrabase/internal/lmac"
	"github.com/trunkctl/tetrabase/internal/mac"
	"github.com/trunkctl/tetrabase/internal/pdu"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

func TestEntityQueuesUnresolvedAddressOnControlTimeslot(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	e := mac.NewEntity(b, sched)

	e.RxPrim(bus.Msg{Body: llc.UnitdataReq{Address: address.Issi(1001), PDU: []byte{0xAB}}})

	if got := sched.Queue.Drain(mac.ControlTimeslot); len(got) != 1 || got[0][0] != 0xAB {
		t.Fatalf("expected PDU queued on the control timeslot, got %v", got)
	}
}

func TestEntityQueuesOnTheAddressOwnCircuit(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	addr := address.Gssi(42)
	sched.Circuits.Open(3, mac.Circuit{Address: addr})
	e := mac.NewEntity(b, sched)

	e.RxPrim(bus.Msg{Body: llc.UnitdataReq{Address: addr, PDU: []byte{0x01}}})

	if got := sched.Queue.Drain(3); len(got) != 1 {
		t.Fatalf("expected PDU queued on ts 3, got %v", got)
	}
	if got := sched.Queue.Drain(mac.ControlTimeslot); len(got) != 0 {
		t.Fatalf("expected nothing queued on the control timeslot, got %v", got)
	}
}

func TestEntityTranslatesPttBounceGrantIntoAFastGrant(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	e := mac.NewEntity(b, sched)

	e.RxPrim(bus.Msg{Body: mac.PttBounceGrant{Timeslot: 2, SSI: 1001}})

	composed := sched.ComposeDownlink(2, tdmatime.New(1, 1, 1, 0))
	if len(composed.Blk1) == 0 {
		t.Fatal("expected the queued fast grant to compose into ts 2's downlink slot")
	}
}

func TestObserveAccessRequestIgnoresNonHangingCircuit(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	sched.Circuits.Open(2, mac.Circuit{})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPCMCE, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	e.ObserveAccessRequest(2, 1001)
	if len(recorded) != 0 {
		t.Fatalf("expected no bounce report for a non-hanging circuit, got %+v", recorded)
	}
}

func TestObserveAccessRequestReportsBounceOnHangingCircuit(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	sched.Circuits.Open(2, mac.Circuit{Hanging: true})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPCMCE, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	e.ObserveAccessRequest(2, 1001)
	if len(recorded) != 1 {
		t.Fatalf("expected one bounce report, got %d", len(recorded))
	}
	ev := recorded[0].Body.(mac.UplinkPttBounce)
	if ev.Timeslot != 2 || ev.SSI != 1001 {
		t.Fatalf("unexpected bounce: %+v", ev)
	}
	if recorded[0].Pri != bus.Immediate {
		t.Fatal("expected the bounce report posted at immediate priority")
	}
}

func TestObserveTrafficFrameDebouncesBeforeReporting(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	sched.Circuits.Open(2, mac.Circuit{Hanging: true})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPCMCE, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	now := tdmatime.New(1, 1, 1, 0)
	e.ObserveTrafficFrame(2, 1001, now)
	if len(recorded) != 0 {
		t.Fatalf("expected no report after a single frame, got %+v", recorded)
	}

	e.ObserveTrafficFrame(2, 1001, now.AddSlots(2))
	if len(recorded) != 1 {
		t.Fatalf("expected a report after the second frame within the debounce window, got %d", len(recorded))
	}
	ev := recorded[0].Body.(mac.UplinkTchActivity)
	if ev.Timeslot != 2 || ev.SSI != 1001 {
		t.Fatalf("unexpected activity report: %+v", ev)
	}
}

func TestHandleUplinkSlotDropsFailedCRC(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPLLC, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	e.HandleUplinkSlot(2, lmac.TmvUnitdataInd{LogicalChannel: lmac.ChannelSCHF, PDU: []byte{0x01}, CRCPass: false}, tdmatime.New(1, 1, 1, 0))
	if len(recorded) != 0 {
		t.Fatalf("expected a failed CRC to be dropped, got %+v", recorded)
	}
}

func TestHandleUplinkSlotRoutesSignallingToLLCWithCircuitAddress(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	addr := address.Issi(1001)
	sched.Circuits.Open(2, mac.Circuit{Address: addr})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPLLC, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	raw := bitio.NewAutoExpand(64)
	raw.WriteBits(pdu.MacPDUTypeResource, 2)
	pdu.MacData{Address: addr.SSI, LengthInd: 2, Payload: []byte{0xAB, 0xCD}}.ToBits(raw)
	e.HandleUplinkSlot(2, lmac.TmvUnitdataInd{LogicalChannel: lmac.ChannelSCHF, PDU: raw.Bytes(), CRCPass: true}, tdmatime.New(1, 1, 1, 0))
	if len(recorded) != 1 {
		t.Fatalf("expected one LLC indication, got %d", len(recorded))
	}
	ind := recorded[0].Body.(llc.UnitdataInd)
	if ind.Address != addr || ind.PDU[0] != 0xAB {
		t.Fatalf("unexpected indication: %+v", ind)
	}
}

func TestHandleUplinkSlotReportsTrafficFromKnownCircuit(t *testing.T) {
	t.Parallel()
	b := bus.New()
	sched := mac.NewScheduler(mac.CellConfig{})
	addr := address.Issi(1001)
	sched.Circuits.Open(2, mac.Circuit{Address: addr, Hanging: true})
	e := mac.NewEntity(b, sched)

	var recorded []bus.Msg
	rec := &recordingMacEntity{sap: bus.SAPCMCE, out: &recorded}
	if err := b.Register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}

	now := tdmatime.New(1, 1, 1, 0)
	e.HandleUplinkSlot(2, lmac.TmvUnitdataInd{LogicalChannel: lmac.ChannelTCHS, PDU: []byte{0x01}, CRCPass: true}, now)
	e.HandleUplinkSlot(2, lmac.TmvUnitdataInd{LogicalChannel: lmac.ChannelTCHS, PDU: []byte{0x01}, CRCPass: true}, now.AddSlots(1))
	if len(recorded) != 1 {
		t.Fatalf("expected a debounced activity report, got %d", len(recorded))
	}
	ev := recorded[0].Body.(mac.UplinkTchActivity)
	if ev.SSI != addr.SSI {
		t.Fatalf("unexpected activity ssi: %+v", ev)
	}
}

type recordingMacEntity struct {
	sap bus.SAP
	out *[]bus.Msg
}

func (r *recordingMacEntity) SAP() bus.SAP                        { return r.sap }
func (r *recordingMacEntity) TickStart(now tdmatime.Time)         {}
func (r *recordingMacEntity) TickEnd(now tdmatime.Time) bool      { return false }
func (r *recordingMacEntity) RxPrim(msg bus.Msg)                  { *r.out = append(*r.out, msg) }
