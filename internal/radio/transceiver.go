package radio

import "github.com/trunkctl/tetrabase/internal/lmac"

// NullTransceiver implements station.Transceiver by discarding every
// downlink burst and never reporting an uplink one. It lets the protocol
// core run its tick loop end to end — scheduling, floor control,
// housekeeping — with no RF hardware attached, the same role Loopback
// plays for the codec boundary.
type NullTransceiver struct{}

func (NullTransceiver) Transmit(_ int, _ uint16, _, _ []byte) {}

func (NullTransceiver) Receive(_ int) (lmac.LogicalChannel, []byte, uint32, bool) {
	return 0, nil, 0, false
}
