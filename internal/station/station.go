// Package station assembles the full TETRA base-station protocol core —
// bus, every layer entity, the UMAC scheduler, and the tick-driver loop
// that advances TDMA time — and wires the LMAC boundary to whatever
// encoder/decoder/transceiver implementation the caller supplies. Callers
// construct a Station once at startup (see internal/cmd) and drive it with
// Run until ctx is cancelled.
package station

import (
	"context"
	"time"

	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/cmce"
	"github.com/trunkctl/tetrabase/internal/config"
	"github.com/trunkctl/tetrabase/internal/lmac"
	"github.com/trunkctl/tetrabase/internal/llc"
	"github.com/trunkctl/tetrabase/internal/logging"
	"github.com/trunkctl/tetrabase/internal/mac"
	"github.com/trunkctl/tetrabase/internal/metrics"
	"github.com/trunkctl/tetrabase/internal/mle"
	"github.com/trunkctl/tetrabase/internal/mm"
	"github.com/trunkctl/tetrabase/internal/pubsub"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
	"github.com/trunkctl/tetrabase/internal/voicebridge"
)

// SlotPeriod is the wall-clock duration of one TDMA timeslot (spec.md §5).
const SlotPeriod = 14170 * time.Microsecond

// Transceiver is the physical-layer front end: the seam between this
// package's logical timeslots and whatever actually puts bits on the air.
// A deployment supplies a real implementation bound to its SDR/modem;
// internal/radio.NullTransceiver is the default no-op used when none is
// configured, so the protocol core still runs (e.g. under test, or for
// protocol-logic development without RF hardware attached).
type Transceiver interface {
	// Transmit hands LMAC-encoded channel blocks for ts's downlink burst
	// to the front end.
	Transmit(ts int, bbk uint16, blk1, blk2 []byte)
	// Receive polls for a raw uplink channel block for ts, if one has
	// arrived since the last poll.
	Receive(ts int) (channel lmac.LogicalChannel, type5 []byte, scramblingCode uint32, ok bool)
}

// Station owns the bus, every registered entity, and the codec/transceiver
// seam, and runs the single-threaded tick loop spec.md §5 describes.
type Station struct {
	bus    *bus.Bus
	sched  *mac.Scheduler
	macE   *mac.Entity
	cmceE  *cmce.CMCE
	bridge *voicebridge.Bridge

	encoder lmac.Encoder
	decoder lmac.Decoder
	xcvr    Transceiver

	scramblingCode uint32
	now            tdmatime.Time

	wired map[int]string // ts -> bridge UUID currently wired as traffic producer

	noticePubSub pubsub.PubSub
	noticeTopic  string
}

// Deps bundles the constructed collaborators a Station wires together, so
// cmd can build each one (and their own dependencies: kv, pubsub, metrics)
// without this package reaching into config itself beyond what CellConfig
// needs.
type Deps struct {
	CellConfig     mac.CellConfig
	ScramblingCode uint32
	Clock          func() time.Time
	Metrics        *metrics.Metrics
	VoiceBridge    config.VoiceBridge
	Encoder        lmac.Encoder
	Decoder        lmac.Decoder
	Transceiver    Transceiver

	// PubSub and NoticeTopic enable cross-process hangtime/fragment-
	// eviction notices (see internal/pubsub.CrossProcessNotice). PubSub
	// may be nil to skip them entirely, e.g. single-process deployments.
	PubSub      pubsub.PubSub
	NoticeTopic string
}

// New builds a Station with every layer entity registered on a fresh bus,
// in the dependency order spec.md's entity diagram implies: UMAC below
// LLC below MLE below MM/CMCE, with the voice bridge alongside CMCE.
func New(d Deps) (*Station, error) {
	b := bus.New()
	sched := mac.NewScheduler(d.CellConfig)
	macEntity := mac.NewEntity(b, sched)
	llcEntity := llc.New(b)
	mleEntity := mle.New(b)
	mmEntity := mm.New(b)
	cmceEntity := cmce.New(b, sched.Circuits, d.Clock, d.Metrics).WithNotifier(d.PubSub, d.NoticeTopic)
	bridge := voicebridge.New(b, d.VoiceBridge, d.Metrics)

	for _, e := range []bus.Entity{macEntity, llcEntity, mleEntity, mmEntity, cmceEntity, bridge} {
		if err := b.Register(e); err != nil {
			return nil, err
		}
	}

	return &Station{
		bus:            b,
		sched:          sched,
		macE:           macEntity,
		cmceE:          cmceEntity,
		bridge:         bridge,
		encoder:        d.Encoder,
		decoder:        d.Decoder,
		xcvr:           d.Transceiver,
		scramblingCode: d.ScramblingCode,
		wired:          make(map[int]string),
		noticePubSub:   d.PubSub,
		noticeTopic:    d.NoticeTopic,
	}, nil
}

// Start connects the voice bridge collaborator. The tick loop runs
// regardless of whether it ever connects; CMCE/UMAC floor control doesn't
// depend on it.
func (s *Station) Start(ctx context.Context) {
	s.bridge.Start(ctx)
}

// Stop disconnects the voice bridge.
func (s *Station) Stop() {
	s.bridge.Stop()
}

// GCFragments and SweepHangtime are exposed for internal/housekeeping to
// schedule independently of the tick loop, per spec.md's wall-clock
// backstop. The loop itself sweeps hangtime every tick (CMCE's TickStart);
// fragment chains are expired only through GCFragments.
func (s *Station) GCFragments() int {
	expired := s.sched.GCFragments()
	if expired > 0 && s.noticePubSub != nil {
		if err := pubsub.PublishNotice(s.noticePubSub, s.noticeTopic, pubsub.CrossProcessNotice{
			Kind:      pubsub.NoticeFragmentEvicted,
			SinceUnix: time.Now().Unix(),
		}); err != nil {
			logging.Errorf("station: publish fragment eviction notice: %v", err)
		}
	}
	return expired
}

func (s *Station) SweepHangtime() int { return s.cmceE.SweepHangtime() }

// Run advances the TDMA clock one timeslot per SlotPeriod until ctx is
// cancelled. Each tick: reconcile voice-bridge traffic producers against
// CMCE's current bridged calls, drain any pending uplink burst per
// timeslot, run the bus tick, then compose and hand off each timeslot's
// downlink burst.
func (s *Station) Run(ctx context.Context, start tdmatime.Time) {
	s.now = start
	ticker := time.NewTicker(SlotPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Station) tick() {
	s.reconcileBridgedProducers()
	s.pollUplink()
	s.bus.Tick(s.now)
	s.composeDownlink()
	s.now = s.now.AddSlots(1)
}

// reconcileBridgedProducers wires/rewires scheduler.SetTrafficProducer for
// every call CMCE currently has bound to a voice-bridge UUID, and clears
// any timeslot that no longer has one — the mechanism that closes the loop
// between CMCE's call state and the voicebridge's per-call jitter buffers
// without either package depending on the other.
func (s *Station) reconcileBridgedProducers() {
	seen := make(map[int]bool, len(s.wired))
	for _, call := range s.cmceE.BridgedCalls() {
		seen[call.Timeslot] = true
		if s.wired[call.Timeslot] == call.BridgeUUID {
			continue
		}
		s.wired[call.Timeslot] = call.BridgeUUID
		s.sched.SetTrafficProducer(call.Timeslot, s.bridge.ProducerFor(call.BridgeUUID))
	}
	for ts := range s.wired {
		if !seen[ts] {
			delete(s.wired, ts)
			s.sched.SetTrafficProducer(ts, nil)
		}
	}
}

// pollUplink drains one received channel block per timeslot from the
// transceiver, decodes it through LMAC, and hands the result to UMAC for
// classification and dispatch. Traffic-plane blocks (TCHS) decode through
// DecodeTP; everything else decodes through DecodeCP.
func (s *Station) pollUplink() {
	if s.xcvr == nil || s.decoder == nil {
		return
	}
	for ts := 1; ts <= tdmatime.TimeslotsPerFrame; ts++ {
		channel, type5, sc, ok := s.xcvr.Receive(ts)
		if !ok {
			continue
		}
		ind := s.decodeUplink(channel, type5, sc)
		s.macE.HandleUplinkSlot(ts, ind, s.now)
	}
}

func (s *Station) decodeUplink(channel lmac.LogicalChannel, type5 []byte, sc uint32) lmac.TmvUnitdataInd {
	if channel == lmac.ChannelTCHS {
		frame, crcPass, err := s.decoder.DecodeTP(type5, sc, false)
		if err != nil {
			return lmac.TmvUnitdataInd{LogicalChannel: channel, ScramblingCode: sc}
		}
		return lmac.TmvUnitdataInd{LogicalChannel: channel, PDU: frame, CRCPass: crcPass, ScramblingCode: sc}
	}
	type1, crcPass, err := s.decoder.DecodeCP(channel, type5, sc)
	if err != nil {
		return lmac.TmvUnitdataInd{LogicalChannel: channel, ScramblingCode: sc}
	}
	return lmac.TmvUnitdataInd{LogicalChannel: channel, PDU: type1, CRCPass: crcPass, ScramblingCode: sc}
}

// composeDownlink asks UMAC for each timeslot's finalized burst and hands
// it to the encoder/transceiver, if configured.
func (s *Station) composeDownlink() {
	if s.xcvr == nil || s.encoder == nil {
		return
	}
	for ts := 1; ts <= tdmatime.TimeslotsPerFrame; ts++ {
		slot := s.sched.ComposeDownlink(ts, s.now)
		blk1, err := s.encoder.EncodeCP(lmac.ChannelSCHF, slot.Blk1, s.scramblingCode)
		if err != nil {
			logging.Errorf("station: encode ts %d block 1: %v", ts, err)
			continue
		}
		var blk2 []byte
		if slot.Blk2 != nil {
			blk2, err = s.encoder.EncodeCP(lmac.ChannelSCHHD, slot.Blk2, s.scramblingCode)
			if err != nil {
				logging.Errorf("station: encode ts %d block 2: %v", ts, err)
				continue
			}
		}
		s.xcvr.Transmit(ts, slot.BBK, blk1, blk2)
	}
}
