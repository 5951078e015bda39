package voicebridge

import (
	"encoding/json"
	"testing"

	"github.com/trunkctl/tetrabase/internal/cmce"
)

func TestEncodeCommandRoundTripsThroughEnvelope(t *testing.T) {
	t.Parallel()
	data, err := encodeCommand(cmce.AffiliateGroups{ISSI: 1001, Groups: []uint32{42, 43}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != "affiliate_groups" {
		t.Fatalf("expected affiliate_groups type, got %q", env.Type)
	}
}

func TestEncodeCommandRejectsUnknownType(t *testing.T) {
	t.Parallel()
	if _, err := encodeCommand(struct{}{}); err == nil {
		t.Fatal("expected an error for an unsupported command type")
	}
}

func TestDecodeEventDispatchesByType(t *testing.T) {
	t.Parallel()
	data := []byte(`{"type":"group_call_start","payload":{"UUID":"X","SourceISSI":1001,"DestGSSI":42}}`)
	ev, err := decodeEvent(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	start, ok := ev.(cmce.GroupCallStart)
	if !ok || start.UUID != "X" || start.DestGSSI != 42 {
		t.Fatalf("unexpected event: %+v ok=%v", ev, ok)
	}
}

func TestDecodeEventRejectsUnknownType(t *testing.T) {
	t.Parallel()
	if _, err := decodeEvent([]byte(`{"type":"nonsense"}`)); err == nil {
		t.Fatal("expected an error for an unknown event type")
	}
}
