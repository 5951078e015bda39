package lmac_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/lmac"
)

func TestLogicalChannelType1Bits(t *testing.T) {
	t.Parallel()
	cases := map[lmac.LogicalChannel]int{
		lmac.ChannelAACH: 14,
		lmac.ChannelBSCH: 60,
		lmac.ChannelBNCH: 124,
		lmac.ChannelSCHF: 268,
		lmac.ChannelSCHHD: 124,
		lmac.ChannelSTCH: 124,
		lmac.ChannelTCHS: 274,
	}
	for channel, want := range cases {
		if got := channel.Type1Bits(); got != want {
			t.Errorf("channel %v: expected %d bits, got %d", channel, want, got)
		}
	}
}

func TestDeriveScramblingCode(t *testing.T) {
	t.Parallel()
	sc := lmac.DeriveScramblingCode(1, 1, 901)
	want := uint32(((1 | (1 << 6) | (901 << 20)) << 2) | 3)
	if sc != want {
		t.Fatalf("expected %d, got %d", want, sc)
	}
}

func TestDeriveScramblingCodeLowestBitsAlwaysSet(t *testing.T) {
	t.Parallel()
	sc := lmac.DeriveScramblingCode(0, 0, 0)
	if sc&0b11 != 0b11 {
		t.Fatalf("expected low 2 bits set, got %b", sc)
	}
}
