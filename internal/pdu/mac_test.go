package pdu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/pdu"
)

func roundTripMacResource(t *testing.T, p pdu.MacResource) pdu.MacResource {
	t.Helper()
	buf := bitio.NewAutoExpand(256)
	p.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacResourceFromBits(buf)
	if err != nil {
		t.Fatalf("MacResourceFromBits: %v", err)
	}
	return got
}

func TestMacResourceRoundTripSSIAddressedValidLength(t *testing.T) {
	t.Parallel()
	want := pdu.MacResource{
		Header: pdu.MacResourceHeader{
			Fill:       true,
			PosOfGrant: false,
			Encrypted:  false,
			EventLabel: false,
			Address:    0x123456,
			LengthInd:  4, // 32 bits
		},
		Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	got := roundTripMacResource(t, want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacResourceRoundTripEventLabelAddressed(t *testing.T) {
	t.Parallel()
	want := pdu.MacResource{
		Header: pdu.MacResourceHeader{
			EventLabel: true,
			Address:    0x3AB,
			LengthInd:  2, // 16 bits
		},
		Payload: []byte{0x01, 0x02},
	}
	got := roundTripMacResource(t, want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacResourceNullLengthIndHasNoPayload(t *testing.T) {
	t.Parallel()
	want := pdu.MacResource{
		Header: pdu.MacResourceHeader{
			EventLabel: true,
			Address:    1,
			LengthInd:  0,
		},
	}
	got := roundTripMacResource(t, want)
	if len(got.Payload) != 0 {
		t.Fatalf("expected no payload for null length indicator, got %d bytes", len(got.Payload))
	}
}

func TestMacAccessRoundTripWithLengthInd(t *testing.T) {
	t.Parallel()
	li := uint64(5)
	want := pdu.MacAccess{
		EventLabel: false,
		Address:    0xABCDEF,
		LengthInd:  &li,
	}
	buf := bitio.NewAutoExpand(64)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacAccessFromBits(buf)
	if err != nil {
		t.Fatalf("MacAccessFromBits: %v", err)
	}
	if got.LengthInd == nil || *got.LengthInd != li {
		t.Fatalf("expected length ind %d, got %v", li, got.LengthInd)
	}
	got.LengthInd = nil
	want.LengthInd = nil
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacAccessRoundTripWithReservationRequest(t *testing.T) {
	t.Parallel()
	want := pdu.MacAccess{
		EventLabel:     true,
		Address:        0x2AA,
		ReservationReq: 3,
		FragFlag:       true,
	}
	buf := bitio.NewAutoExpand(64)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacAccessFromBits(buf)
	if err != nil {
		t.Fatalf("MacAccessFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacDataRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.MacData{
		EventLabel: false,
		Address:    0x445566,
		LengthInd:  3, // 24 bits
		Payload:    []byte{0x11, 0x22, 0x33},
	}
	buf := bitio.NewAutoExpand(128)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacDataFromBits(buf)
	if err != nil {
		t.Fatalf("MacDataFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacFragRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.MacFrag{Payload: []byte{0xAA, 0xBB, 0xCC}}
	buf := bitio.NewAutoExpand(64)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacFragFromBits(buf)
	if err != nil {
		t.Fatalf("MacFragFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacEndRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.MacEnd{
		LengthInd: 2,
		Payload:   []byte{0x9A, 0xBC},
	}
	buf := bitio.NewAutoExpand(64)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacEndFromBits(buf)
	if err != nil {
		t.Fatalf("MacEndFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacSyncRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.MacSync{
		SystemCode:   5,
		ColourCode:   42,
		Timeslot:     2,
		FrameNumber:  17,
		Multiframe:   30,
		SharingMode:  1,
		FreeChannels: 3,
	}
	buf := bitio.New(27)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacSyncFromBits(buf)
	if err != nil {
		t.Fatalf("MacSyncFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMacSysinfoRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.MacSysinfo{
		MainCarrier:            0xABC,
		FrequencyBandAndOffset: 0x2A,
		MCC:                    0x3CC,
		MNC:                    0x1ABC,
		LocationArea:           0x2DCE,
		LateEntrySupported:     true,
	}
	buf := bitio.New(57)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MacSysinfoFromBits(buf)
	if err != nil {
		t.Fatalf("MacSysinfoFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestAachRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.Aach{
		Usage:        pdu.AccessAssignTraffic,
		TrafficUsage: 9,
	}
	buf := bitio.New(6)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.AachFromBits(buf)
	if err != nil {
		t.Fatalf("AachFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNullPDURoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.NullPDU{
		EventLabel: true,
		Address:    0x123,
	}
	buf := bitio.New(17)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.NullPDUFromBits(buf)
	if err != nil {
		t.Fatalf("NullPDUFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
