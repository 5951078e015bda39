package voicebridge

import (
	"encoding/json"
	"testing"

	"github.com/trunkctl/tetrabase/internal/bus"
	"github.com/trunkctl/tetrabase/internal/cmce"
	"github.com/trunkctl/tetrabase/internal/config"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

func marshalEventForTest(typ string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Payload: payload})
}

type recordingEntity struct {
	sap      bus.SAP
	received []bus.Msg
}

func (r *recordingEntity) SAP() bus.SAP                   { return r.sap }
func (r *recordingEntity) TickStart(now tdmatime.Time)    {}
func (r *recordingEntity) RxPrim(msg bus.Msg)             { r.received = append(r.received, msg) }
func (r *recordingEntity) TickEnd(now tdmatime.Time) bool { return false }

func TestTickStartDrainsQueuedEventsOntoTheBus(t *testing.T) {
	t.Parallel()
	b := bus.New()
	br := New(b, config.VoiceBridge{}, nil)
	cmceEntity := &recordingEntity{sap: bus.SAPCMCE}
	if err := b.Register(br); err != nil {
		t.Fatal(err)
	}
	if err := b.Register(cmceEntity); err != nil {
		t.Fatal(err)
	}

	br.pushEvent(cmce.Connected{})
	b.Tick(tdmatime.New(1, 1, 1, 0))

	if len(cmceEntity.received) != 1 {
		t.Fatalf("expected one event delivered to CMCE, got %d", len(cmceEntity.received))
	}
	if _, ok := cmceEntity.received[0].Body.(cmce.Connected); !ok {
		t.Fatalf("expected a Connected event, got %+v", cmceEntity.received[0].Body)
	}
}

func TestRxPrimQueuesAnEncodedCommand(t *testing.T) {
	t.Parallel()
	b := bus.New()
	br := New(b, config.VoiceBridge{}, nil)

	br.RxPrim(bus.Msg{Dest: bus.SAPVoiceBridge, Body: cmce.RegisterSubscriber{ISSI: 1001}})

	select {
	case data := <-br.commands:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal queued command: %v", err)
		}
		if env.Type != "register_subscriber" {
			t.Fatalf("expected register_subscriber, got %q", env.Type)
		}
	default:
		t.Fatal("expected a queued outbound command")
	}
}

func TestHandleFrameBuffersVoiceAndForwardsOtherEvents(t *testing.T) {
	t.Parallel()
	b := bus.New()
	cfg := config.VoiceBridge{JitterBaseLatencyMs: 2 * frameDurationMs}
	br := New(b, cfg, nil)

	voiceFrame, err := marshalEventForTest("voice_frame", cmce.VoiceFrame{UUID: "X", Data: []byte{9}})
	if err != nil {
		t.Fatal(err)
	}
	br.handleFrame(voiceFrame)
	if br.jitterBufferFor("X").Depth() != 1 {
		t.Fatalf("expected the voice frame buffered, depth=%d", br.jitterBufferFor("X").Depth())
	}

	other, err := marshalEventForTest("subscriber_event", cmce.SubscriberEvent{ISSI: 1001, Event: "online"})
	if err != nil {
		t.Fatal(err)
	}
	br.handleFrame(other)

	select {
	case msg := <-br.events:
		if _, ok := msg.Body.(cmce.SubscriberEvent); !ok {
			t.Fatalf("expected a SubscriberEvent, got %+v", msg.Body)
		}
	default:
		t.Fatal("expected the non-audio event forwarded to the bus queue")
	}
}
