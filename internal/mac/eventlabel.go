package mac

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/trunkctl/tetrabase/internal/address"
)

// eventLabelCapacity bounds the number of live labels one store tracks;
// event labels are 10 bits wide (0..1023) but in practice only a handful of
// addresses are active on any one channel at once.
const eventLabelCapacity = 1024

// EventLabelStore issues short (10-bit) labels that stand in for a full
// address within one call, so MAC-RESOURCE/MAC-DATA headers addressed with
// EventLabel=true don't have to repeat a 24-bit SSI every PDU. It's a small
// LRU keyed by label, owned exclusively by UMAC.
type EventLabelStore struct {
	byLabel *xsync.Map[uint16, address.Address]
	byAddr  *xsync.Map[uint32, uint16]
	order   []uint16
	next    uint16
}

func NewEventLabelStore() *EventLabelStore {
	return &EventLabelStore{
		byLabel: xsync.NewMap[uint16, address.Address](),
		byAddr:  xsync.NewMap[uint32, uint16](),
	}
}

// Issue returns the label bound to addr, allocating a new one (evicting the
// least-recently-used label, by Issue or Lookup, if the store is full) if
// addr has none yet.
func (s *EventLabelStore) Issue(addr address.Address) uint16 {
	if label, ok := s.byAddr.Load(addr.SSI); ok {
		s.touch(label)
		return label
	}

	var label uint16
	if len(s.order) >= eventLabelCapacity {
		label = s.order[0]
		s.evictOldest()
	} else {
		for {
			if _, taken := s.byLabel.Load(s.next); !taken {
				break
			}
			s.next = (s.next + 1) % eventLabelCapacity
		}
		label = s.next
		s.next = (s.next + 1) % eventLabelCapacity
	}

	s.byLabel.Store(label, addr)
	s.byAddr.Store(addr.SSI, label)
	s.order = append(s.order, label)
	return label
}

// Lookup resolves a label back to its address, reporting a miss if the
// label was never issued or has since been evicted.
func (s *EventLabelStore) Lookup(label uint16) (address.Address, bool) {
	addr, ok := s.byLabel.Load(label)
	if ok {
		s.touch(label)
	}
	return addr, ok
}

// Release drops addr's label, if it has one, ahead of its natural eviction.
func (s *EventLabelStore) Release(addr address.Address) {
	label, ok := s.byAddr.Load(addr.SSI)
	if !ok {
		return
	}
	s.byAddr.Delete(addr.SSI)
	s.byLabel.Delete(label)
	s.removeFromOrder(label)
}

// Count returns the number of labels currently live.
func (s *EventLabelStore) Count() int { return len(s.order) }

func (s *EventLabelStore) touch(label uint16) {
	s.removeFromOrder(label)
	s.order = append(s.order, label)
}

func (s *EventLabelStore) removeFromOrder(label uint16) {
	for i, l := range s.order {
		if l == label {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *EventLabelStore) evictOldest() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.order = s.order[1:]
	if addr, ok := s.byLabel.Load(oldest); ok {
		s.byAddr.Delete(addr.SSI)
	}
	s.byLabel.Delete(oldest)
}
