package pdu_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/bitio"
	"github.com/trunkctl/tetrabase/internal/pdu"
)

func TestNumFillBitsComputesPadding(t *testing.T) {
	t.Parallel()
	buf := bitio.New(40)
	if n := pdu.NumFillBits(buf, 32); n != 8 {
		t.Fatalf("expected 8 fill bits, got %d", n)
	}
}

func TestNumFillBitsClampsNegative(t *testing.T) {
	t.Parallel()
	buf := bitio.New(16)
	if n := pdu.NumFillBits(buf, 32); n != 0 {
		t.Fatalf("expected 0 fill bits, got %d", n)
	}
}

func TestWriteFillBitsThenVerify(t *testing.T) {
	t.Parallel()
	buf := bitio.New(16)
	buf.WriteBits(0b1010101010, 10)
	pdu.WriteFillBits(buf, 6)

	buf.Seek(10)
	if !pdu.VerifyFillBits(buf, 6) {
		t.Fatal("expected fill bits to verify as zero")
	}
}

func TestVerifyFillBitsRejectsNonZero(t *testing.T) {
	t.Parallel()
	buf := bitio.New(8)
	buf.WriteBits(0b11111111, 8)
	buf.Seek(0)
	if pdu.VerifyFillBits(buf, 8) {
		t.Fatal("expected non-zero bits to fail verification")
	}
}

func TestWriteFillBitsNoopOnZero(t *testing.T) {
	t.Parallel()
	buf := bitio.New(8)
	pdu.WriteFillBits(buf, 0)
	if buf.LenWritten() != 0 {
		t.Fatalf("expected no bits written, got %d", buf.LenWritten())
	}
}
