package mac_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/address"
	"github.com/trunkctl/tetrabase/internal/mac"
)

func TestEventLabelStoreIssueIsStableForSameAddress(t *testing.T) {
	t.Parallel()
	s := mac.NewEventLabelStore()
	a := address.Issi(1001)
	l1 := s.Issue(a)
	l2 := s.Issue(a)
	if l1 != l2 {
		t.Fatalf("expected stable label, got %d then %d", l1, l2)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 label live, got %d", s.Count())
	}
}

func TestEventLabelStoreLookupRoundTrip(t *testing.T) {
	t.Parallel()
	s := mac.NewEventLabelStore()
	a := address.Issi(2002)
	label := s.Issue(a)
	got, ok := s.Lookup(label)
	if !ok || got.SSI != a.SSI {
		t.Fatalf("expected %v, got %v ok=%v", a, got, ok)
	}
}

func TestEventLabelStoreLookupMiss(t *testing.T) {
	t.Parallel()
	s := mac.NewEventLabelStore()
	_, ok := s.Lookup(999)
	if ok {
		t.Fatal("expected miss on unissued label")
	}
}

func TestEventLabelStoreReleaseFreesAddress(t *testing.T) {
	t.Parallel()
	s := mac.NewEventLabelStore()
	a := address.Issi(3003)
	label := s.Issue(a)
	s.Release(a)
	if _, ok := s.Lookup(label); ok {
		t.Fatal("expected label to be gone after release")
	}
	if s.Count() != 0 {
		t.Fatalf("expected 0 labels live, got %d", s.Count())
	}
}

func TestEventLabelStoreDistinctAddressesGetDistinctLabels(t *testing.T) {
	t.Parallel()
	s := mac.NewEventLabelStore()
	l1 := s.Issue(address.Issi(1))
	l2 := s.Issue(address.Issi(2))
	if l1 == l2 {
		t.Fatalf("expected distinct labels, got %d and %d", l1, l2)
	}
}
