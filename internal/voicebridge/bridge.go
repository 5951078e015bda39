// Package voicebridge is the base-station side of the external voice-bridge
// collaborator named in spec.md §4.9: a websocket client running on its own
// goroutines, translating the bridge's wire events into bus messages CMCE
// consumes and CMCE's commands into wire frames, with a jitter buffer
// smoothing each call's inbound audio ahead of TDMA playout.
package voicebridge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/cmce"
	"github.com/trunkctl/tetrabase/internal/config"
	"github.com/trunkctl/tetrabase/internal/logging"
	"github.com/trunkctl/tetrabase/internal/metrics"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

const (
	eventBufferSize   = 256
	commandBufferSize = 256

	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second

	dialTimeout = 10 * time.Second
)

// Bridge is a bus.Entity registered at bus.SAPVoiceBridge. Its connection
// lifecycle runs on a background goroutine started by Start; the bus-facing
// half only ever touches the two channels the goroutines feed, so TickStart
// and RxPrim stay non-blocking per spec.md §5's dedicated-thread contract.
type Bridge struct {
	cfg     config.VoiceBridge
	bus     *bus.Bus
	metrics *metrics.Metrics
	dialer  *websocket.Dialer

	events   chan bus.Msg
	commands chan []byte
	cancel   context.CancelFunc

	jitter map[string]*JitterBuffer
}

// New builds a bridge client for cfg. m may be nil, in which case frame and
// jitter-depth metrics are not recorded.
func New(b *bus.Bus, cfg config.VoiceBridge, m *metrics.Metrics) *Bridge {
	return &Bridge{
		cfg:      cfg,
		bus:      b,
		metrics:  m,
		dialer:   &websocket.Dialer{HandshakeTimeout: dialTimeout},
		events:   make(chan bus.Msg, eventBufferSize),
		commands: make(chan []byte, commandBufferSize),
		jitter:   make(map[string]*JitterBuffer),
	}
}

func (br *Bridge) SAP() bus.SAP { return bus.SAPVoiceBridge }

// Start launches the reconnecting dial loop in the background, a no-op
// when the bridge is disabled in configuration. Call once at startup.
func (br *Bridge) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	br.cancel = cancel
	if !br.cfg.Enabled {
		return
	}
	go br.run(ctx)
}

// Stop cancels the dial loop, closing any live connection.
func (br *Bridge) Stop() {
	if br.cancel != nil {
		br.cancel()
	}
}

func (br *Bridge) run(ctx context.Context) {
	backoff := minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := br.dialer.DialContext(ctx, br.cfg.URL, br.authHeader())
		if err != nil {
			logging.Errorf("voice bridge dial failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = minBackoff
		br.onConnected()
		br.serve(ctx, conn)
	}
}

func nextBackoff(b time.Duration) time.Duration {
	next := b * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (br *Bridge) authHeader() http.Header {
	token := br.cfg.AuthToken(fmt.Sprintf("%d", br.cfg.RegisteredISSI))
	h := http.Header{}
	h.Set("Authorization", "Bearer "+base64.StdEncoding.EncodeToString(token))
	return h
}

// onConnected announces the cell's identity and group affiliations, then
// queues the Connected event for CMCE.
func (br *Bridge) onConnected() {
	br.pushEvent(cmce.Connected{})
	if err := br.sendCommand(cmce.RegisterSubscriber{ISSI: br.cfg.RegisteredISSI}); err != nil {
		logging.Errorf("voice bridge register failed: %v", err)
	}
	if len(br.cfg.AffiliatedGroups) > 0 {
		if err := br.sendCommand(cmce.AffiliateGroups{ISSI: br.cfg.RegisteredISSI, Groups: br.cfg.AffiliatedGroups}); err != nil {
			logging.Errorf("voice bridge affiliate failed: %v", err)
		}
	}
}

func (br *Bridge) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	readFailed := make(chan struct{})
	go func() {
		defer close(readFailed)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				logging.Errorf("voice bridge read failed: %v", err)
				return
			}
			br.handleFrame(data)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readFailed:
			br.pushEvent(cmce.Disconnected{Reason: "connection lost"})
			return
		case data := <-br.commands:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Errorf("voice bridge write failed: %v", err)
				return
			}
		}
	}
}

// handleFrame decodes one inbound wire message. Voice frames are pushed
// straight into that call's jitter buffer rather than forwarded over the
// bus: they're drained one at a time by the TDMA traffic producer, not by
// CMCE's event handling.
func (br *Bridge) handleFrame(data []byte) {
	ev, err := decodeEvent(data)
	if err != nil {
		logging.Errorf("voice bridge event decode failed: %v", err)
		return
	}
	switch e := ev.(type) {
	case cmce.VoiceFrame:
		br.jitterBufferFor(e.UUID).Push(e.Data)
		if br.metrics != nil {
			br.metrics.RecordVoiceBridgeFrame("rx")
		}
	case cmce.GroupCallEnd:
		delete(br.jitter, e.UUID)
		br.pushEvent(e)
	case cmce.Disconnected:
		br.jitter = make(map[string]*JitterBuffer)
		br.pushEvent(e)
	default:
		br.pushEvent(ev)
	}
}

func (br *Bridge) jitterBufferFor(uuid string) *JitterBuffer {
	jb, ok := br.jitter[uuid]
	if !ok {
		jb = NewJitterBuffer(br.cfg.JitterBaseLatencyMs/frameDurationMs, nil)
		br.jitter[uuid] = jb
	}
	return jb
}

// frameDurationMs is a TETRA traffic frame's nominal duration, used to
// convert the configured jitter latency budget into a frame-count depth.
const frameDurationMs = 56

func (br *Bridge) pushEvent(body any) {
	msg := bus.Msg{Src: bus.SAPVoiceBridge, Dest: bus.SAPCMCE, Body: body}
	select {
	case br.events <- msg:
	default:
		logging.Error("voice bridge event dropped, core not draining fast enough")
	}
}

func (br *Bridge) sendCommand(body any) error {
	data, err := encodeCommand(body)
	if err != nil {
		return err
	}
	select {
	case br.commands <- data:
		return nil
	default:
		return fmt.Errorf("voicebridge: command channel full")
	}
}

// TickStart drains every event queued since the previous tick onto the
// bus. Per spec.md §5 this is the only point the core touches the bridge's
// dedicated-thread state, and it never blocks.
func (br *Bridge) TickStart(now tdmatime.Time) {
	for {
		select {
		case msg := <-br.events:
			br.bus.Post(msg)
		default:
			return
		}
	}
}

func (br *Bridge) TickEnd(now tdmatime.Time) bool { return false }

// RxPrim accepts a CMCE command addressed to the bridge and queues it for
// the write pump, dropping it if the connection is backed up.
func (br *Bridge) RxPrim(msg bus.Msg) {
	if err := br.sendCommand(msg.Body); err != nil {
		logging.Errorf("voice bridge command dropped: %v", err)
	}
}

// ProducerFor returns a mac.TrafficProducer-shaped closure drawing from
// uuid's jitter buffer, for cmd to wire onto the traffic circuit's
// timeslot once CMCE has allocated one.
func (br *Bridge) ProducerFor(uuid string) func() ([]byte, bool) {
	return func() ([]byte, bool) {
		jb, ok := br.jitter[uuid]
		if !ok {
			return nil, false
		}
		data, ok := jb.Pop()
		if br.metrics != nil {
			br.metrics.SetVoiceBridgeJitterBufferDepth(float64(jb.Depth()))
		}
		return data, ok
	}
}
