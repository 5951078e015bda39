package pdu_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/pdu"
)

func TestDMleSysinfoRoundTripNoNeighbours(t *testing.T) {
	t.Parallel()
	want := pdu.DMleSysinfo{CellReselectParam: 12}
	buf := bitio.NewAutoExpand(32)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.DMleSysinfoFromBits(buf)
	if err != nil {
		t.Fatalf("DMleSysinfoFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDMleSysinfoRoundTripWithNeighbours(t *testing.T) {
	t.Parallel()
	want := pdu.DMleSysinfo{
		CellReselectParam: 200,
		NeighbourCells:    []uint16{0x123, 0x456, 0x789},
	}
	buf := bitio.NewAutoExpand(128)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.DMleSysinfoFromBits(buf)
	if err != nil {
		t.Fatalf("DMleSysinfoFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDMleSyncRoundTrip(t *testing.T) {
	t.Parallel()
	want := pdu.DMleSync{
		ColourCode:  13,
		Timeslot:    3,
		FrameNumber: 9,
		Multiframe:  20,
	}
	buf := bitio.New(20)
	want.ToBits(buf)
	buf.Seek(0)
	got, err := pdu.DMleSyncFromBits(buf)
	if err != nil {
		t.Fatalf("DMleSyncFromBits: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
