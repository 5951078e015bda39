package pdu_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/pdu"
)

func TestInterpretLengthIndNull(t *testing.T) {
	t.Parallel()
	kind, _ := pdu.InterpretLengthInd(0)
	if kind != pdu.LengthIndNull {
		t.Fatalf("expected LengthIndNull, got %v", kind)
	}
}

func TestInterpretLengthIndReservedLowGap(t *testing.T) {
	t.Parallel()
	kind, _ := pdu.InterpretLengthInd(1)
	if kind != pdu.LengthIndReserved {
		t.Fatalf("expected LengthIndReserved, got %v", kind)
	}
}

func TestInterpretLengthIndValidRange(t *testing.T) {
	t.Parallel()
	kind, bits := pdu.InterpretLengthInd(2)
	if kind != pdu.LengthIndValid || bits != 16 {
		t.Fatalf("expected LengthIndValid/16, got %v/%d", kind, bits)
	}

	kind, bits = pdu.InterpretLengthInd(0b110111)
	if kind != pdu.LengthIndValid || bits != 0b110111*8 {
		t.Fatalf("expected LengthIndValid at top of range, got %v/%d", kind, bits)
	}
}

func TestInterpretLengthIndReservedHighGap(t *testing.T) {
	t.Parallel()
	kind, _ := pdu.InterpretLengthInd(0b111001)
	if kind != pdu.LengthIndReserved {
		t.Fatalf("expected LengthIndReserved, got %v", kind)
	}
	kind, _ = pdu.InterpretLengthInd(0b111101)
	if kind != pdu.LengthIndReserved {
		t.Fatalf("expected LengthIndReserved, got %v", kind)
	}
}

func TestInterpretLengthIndStolenNoFrag(t *testing.T) {
	t.Parallel()
	kind, _ := pdu.InterpretLengthInd(0b111110)
	if kind != pdu.LengthIndStolenNoFrag {
		t.Fatalf("expected LengthIndStolenNoFrag, got %v", kind)
	}
}

func TestInterpretLengthIndFragStart(t *testing.T) {
	t.Parallel()
	kind, _ := pdu.InterpretLengthInd(0b111111)
	if kind != pdu.LengthIndFragStart {
		t.Fatalf("expected LengthIndFragStart, got %v", kind)
	}
}
