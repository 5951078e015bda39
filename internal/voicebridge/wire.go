package voicebridge

import (
	"encoding/json"
	"fmt"

	"github.com/trunkctl/tetrabase/internal/cmce"
)

// envelope is the wire framing exchanged with the bridge collaborator: a
// type tag plus its JSON-encoded payload. The bridge protocol is external
// and owned by the voice-bridge side, so this is a plain envelope rather
// than anything CMCE's PDU registry would recognize.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func encodeCommand(body any) ([]byte, error) {
	var typ string
	switch body.(type) {
	case cmce.RegisterSubscriber:
		typ = "register_subscriber"
	case cmce.AffiliateGroups:
		typ = "affiliate_groups"
	case cmce.SendGroupTx:
		typ = "send_group_tx"
	case cmce.SendVoiceFrame:
		typ = "send_voice_frame"
	case cmce.SendGroupIdle:
		typ = "send_group_idle"
	case cmce.DisconnectBridge:
		typ = "disconnect"
	default:
		return nil, fmt.Errorf("voicebridge: unsupported command %T", body)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Payload: payload})
}

func decodeEvent(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "connected":
		return cmce.Connected{}, nil
	case "disconnected":
		var e cmce.Disconnected
		return e, json.Unmarshal(env.Payload, &e)
	case "group_call_start":
		var e cmce.GroupCallStart
		return e, json.Unmarshal(env.Payload, &e)
	case "group_call_end":
		var e cmce.GroupCallEnd
		return e, json.Unmarshal(env.Payload, &e)
	case "voice_frame":
		var e cmce.VoiceFrame
		return e, json.Unmarshal(env.Payload, &e)
	case "subscriber_event":
		var e cmce.SubscriberEvent
		return e, json.Unmarshal(env.Payload, &e)
	case "server_error":
		var e cmce.ServerError
		return e, json.Unmarshal(env.Payload, &e)
	default:
		return nil, fmt.Errorf("voicebridge: unknown event type %q", env.Type)
	}
}
