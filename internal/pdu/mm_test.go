package pdu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/pdu"
)

func TestULocationUpdateDemandRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.ULocationUpdateDemand{
		UpdateType:   pdu.LocationUpdateItsiAttach,
		LocationArea: 0x2ABC,
		ITSI:         0xABCDEF,
	}
	buf := bitio.New(45)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.ULocationUpdateDemandFromBits(buf)
	if err != nil {
		t.Fatalf("ULocationUpdateDemandFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDLocationUpdateAcceptRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.DLocationUpdateAccept{
		UpdateType:   pdu.LocationUpdateRoaming,
		LocationArea: 0x1234,
	}
	buf := bitio.New(21)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.DLocationUpdateAcceptFromBits(buf)
	if err != nil {
		t.Fatalf("DLocationUpdateAcceptFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDLocationUpdateRejectRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.DLocationUpdateReject{Cause: pdu.RejectCauseITSIUnknown}
	buf := bitio.New(11)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.DLocationUpdateRejectFromBits(buf)
	if err != nil {
		t.Fatalf("DLocationUpdateRejectFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUItsiDetachRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.UItsiDetach{ITSI: 0x112233}
	buf := bitio.New(31)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.UItsiDetachFromBits(buf)
	if err != nil {
		t.Fatalf("UItsiDetachFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupIdentityAttachmentRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.GroupIdentityAttachment{Attach: true, GSSI: 0xABCDEF}
	buf := bitio.New(32)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.GroupIdentityAttachmentFromBits(buf)
	if err != nil {
		t.Fatalf("GroupIdentityAttachmentFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupIdentityAckRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.GroupIdentityAck{GSSI: 0x445566, Accepted: true}
	buf := bitio.New(32)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.GroupIdentityAckFromBits(buf)
	if err != nil {
		t.Fatalf("GroupIdentityAckFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMmStatusRoundTripUplink(t *testing.T) {
	t.Parallel()
	want := pdu.MmStatus{Uplink: true, StatusCode: 0x2AAA}
	buf := bitio.New(23)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MmStatusFromBits(buf)
	if err != nil {
		t.Fatalf("MmStatusFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMmStatusRoundTripDownlink(t *testing.T) {
	t.Parallel()
	want := pdu.MmStatus{Uplink: false, StatusCode: 0x0001}
	buf := bitio.New(23)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.MmStatusFromBits(buf)
	if err != nil {
		t.Fatalf("MmStatusFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
