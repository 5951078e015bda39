package pdu_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/pdu"
)

func TestIdentifyUpperFamilyMM(t *testing.T) {
	t.Parallel()
	buf := bitio.New(3)
	buf.WriteBits(uint64(pdu.ProtoDiscriminatorMM), 3)
	buf.Seek(0)
	family, ok := pdu.IdentifyUpperFamily(buf)
	if !ok || family != pdu.FamilyMM {
		t.Fatalf("expected FamilyMM, got %v/%v", family, ok)
	}
	if buf.Pos() != 0 {
		t.Fatal("expected peek to leave position unchanged")
	}
}

func TestIdentifyUpperFamilyCMCE(t *testing.T) {
	t.Parallel()
	buf := bitio.New(3)
	buf.WriteBits(uint64(pdu.ProtoDiscriminatorCMCE), 3)
	buf.Seek(0)
	family, ok := pdu.IdentifyUpperFamily(buf)
	if !ok || family != pdu.FamilyCMCE {
		t.Fatalf("expected FamilyCMCE, got %v/%v", family, ok)
	}
}

func TestIdentifyUpperFamilyUnknown(t *testing.T) {
	t.Parallel()
	buf := bitio.New(3)
	buf.WriteBits(0b010, 3)
	buf.Seek(0)
	_, ok := pdu.IdentifyUpperFamily(buf)
	if ok {
		t.Fatal("expected unknown protocol discriminator to report false")
	}
}

func TestIdentifyUpperFamilyEmptyBuffer(t *testing.T) {
	t.Parallel()
	buf := bitio.New(0)
	_, ok := pdu.IdentifyUpperFamily(buf)
	if ok {
		t.Fatal("expected empty buffer to report false")
	}
}
