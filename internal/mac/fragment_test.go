package mac_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/mac"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

func TestDefragmenterReassemblesSimpleChain(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	d.InsertFirst(1001, start, []byte{0x01, 0x02}, nil)
	d.InsertNext(1001, start, []byte{0x03, 0x04})
	got, ok := d.InsertLast(1001, start, []byte{0x05})
	if !ok {
		t.Fatal("expected chain to finalize")
	}
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDefragmenterReassemblesZeroMiddleFragments(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(2, 1, 1, 0)
	d.InsertFirst(1002, start, []byte{0xAA}, nil)
	got, ok := d.InsertLast(1002, start, []byte{0xBB})
	if !ok || len(got) != 2 || got[0] != 0xAA || got[1] != 0xBB {
		t.Fatalf("expected [0xAA 0xBB], got %v ok=%v", got, ok)
	}
}

func TestDefragmenterNewChainDiscardsExistingOpenChain(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	d.InsertFirst(1001, start, []byte{0x01}, nil)
	d.InsertFirst(1001, start, []byte{0x02}, nil)
	got, ok := d.InsertLast(1001, start, []byte{0x03})
	if !ok || len(got) != 2 || got[0] != 0x02 {
		t.Fatalf("expected the second start to win, got %v ok=%v", got, ok)
	}
}

func TestDefragmenterInsertNextOnUnknownChainIsNoop(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	d.InsertNext(9999, start, []byte{0x01})
	if d.Pending() != 0 {
		t.Fatalf("expected no chain created, got %d pending", d.Pending())
	}
}

func TestDefragmenterInsertLastOnUnknownChainReturnsFalse(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	_, ok := d.InsertLast(9999, tdmatime.New(1, 1, 1, 0), []byte{0x01})
	if ok {
		t.Fatal("expected InsertLast on unknown chain to fail")
	}
}

func TestDefragmenterDiscard(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	d.InsertFirst(1001, start, []byte{0x01}, nil)
	d.Discard(1001, start)
	if d.Pending() != 0 {
		t.Fatalf("expected chain discarded, got %d pending", d.Pending())
	}
}

func TestDefragmenterGetAIEInfo(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	aie := []byte{0xDE, 0xAD}
	d.InsertFirst(1001, start, []byte{0x01}, aie)
	got, ok := d.GetAIEInfo(1001, start)
	if !ok || len(got) != 2 || got[0] != 0xDE {
		t.Fatalf("expected aie info preserved, got %v ok=%v", got, ok)
	}
}

func TestDefragmenterExpireOlderThan(t *testing.T) {
	t.Parallel()
	d := mac.NewDefragmenter()
	start := tdmatime.New(1, 1, 1, 0)
	d.InsertFirst(1001, start, []byte{0x01}, nil)
	farFuture := start.AddSlots(2 * tdmatime.FramesPerMultiframe * tdmatime.TimeslotsPerFrame)
	if expired := d.ExpireOlderThan(farFuture); expired != 1 {
		t.Fatalf("expected 1 expired chain, got %d", expired)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected chain removed, got %d pending", d.Pending())
	}
}
