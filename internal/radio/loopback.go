// Package radio provides the default lmac.Encoder/Decoder implementation
// used when no physical-layer front end is configured: a loopback that
// hands type-1 bits back unchanged instead of running them through a real
// convolutional/interleave/scramble pipeline. The pipeline itself is an
// external collaborator (see internal/lmac's package doc) that a production
// deployment supplies by implementing the same two interfaces against its
// SDR or modem hardware; this package exists so the rest of the stack has
// something to drive in its absence, e.g. during development or in tests
// that exercise a full tick loop without real RF.
package radio

import "github.com/trunkctl/tetrabase/internal/lmac"

// Loopback implements lmac.Encoder and lmac.Decoder by passing bits
// through unmodified. CRC always reports as passing, since no FEC ever
// actually ran to fail.
type Loopback struct{}

func (Loopback) EncodeCP(_ lmac.LogicalChannel, type1 []byte, _ uint32) ([]byte, error) {
	return type1, nil
}

func (Loopback) EncodeTP(frame []byte, _ uint32, _ bool) ([]byte, error) {
	return frame, nil
}

func (Loopback) DecodeCP(_ lmac.LogicalChannel, type5 []byte, _ uint32) (type1 []byte, crcPass bool, err error) {
	return type5, true, nil
}

func (Loopback) DecodeTP(type5 []byte, _ uint32, _ bool) (frame []byte, crcPass bool, err error) {
	return type5, true, nil
}
