package mac

import (
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/trunkctl/tetrabase/internal/tdmatime"
)

// fragmentKey identifies one in-progress reassembly chain: the owning SSI
// and the frame-aligned time its start fragment arrived at.
type fragmentKey struct {
	owner uint32
	time  tdmatime.Time
}

// FragmentEntry accumulates a chain's bits until its MAC-END, plus
// whatever air-interface-encryption context was attached at the start
// fragment (nil when the chain is unencrypted).
type FragmentEntry struct {
	Owner   uint32
	Started tdmatime.Time
	Data    []byte
	AIE     []byte
}

// Defragmenter reassembles uplink fragment chains keyed by (owner SSI,
// frame-aligned time), per spec.md §4.4. Built on a lock-striped map since
// housekeeping's expiry sweep runs as a scheduled job on its own goroutine,
// concurrently with the tick driver's inserts.
type Defragmenter struct {
	chains *xsync.Map[fragmentKey, *FragmentEntry]
}

func NewDefragmenter() *Defragmenter {
	return &Defragmenter{chains: xsync.NewMap[fragmentKey, *FragmentEntry]()}
}

// InsertFirst begins a new chain for (owner, time), discarding any chain
// already open under the same key.
func (d *Defragmenter) InsertFirst(owner uint32, at tdmatime.Time, body []byte, aie []byte) {
	key := fragmentKey{owner: owner, time: at}
	d.chains.Store(key, &FragmentEntry{
		Owner:   owner,
		Started: at,
		Data:    append([]byte(nil), body...),
		AIE:     aie,
	})
}

// InsertNext appends a middle fragment's body to the chain for (owner,
// time), silently dropping it if no such chain is open.
func (d *Defragmenter) InsertNext(owner uint32, at tdmatime.Time, body []byte) {
	key := fragmentKey{owner: owner, time: at}
	entry, ok := d.chains.Load(key)
	if !ok {
		return
	}
	entry.Data = append(entry.Data, body...)
}

// InsertLast appends the final fragment, finalizes, and removes the chain
// from the table. Returns (data, true) on success, or (nil, false) if no
// chain was open for (owner, time).
func (d *Defragmenter) InsertLast(owner uint32, at tdmatime.Time, body []byte) ([]byte, bool) {
	key := fragmentKey{owner: owner, time: at}
	entry, ok := d.chains.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return append(entry.Data, body...), true
}

// Discard drops an open chain without finalizing it, used when an
// expected MAC-END never arrived.
func (d *Defragmenter) Discard(owner uint32, at tdmatime.Time) {
	d.chains.Delete(fragmentKey{owner: owner, time: at})
}

// GetAIEInfo retrieves the encryption context attached at the chain's
// start fragment, needed to decrypt subsequent middle/end fragments.
func (d *Defragmenter) GetAIEInfo(owner uint32, at tdmatime.Time) ([]byte, bool) {
	entry, ok := d.chains.Load(fragmentKey{owner: owner, time: at})
	if !ok {
		return nil, false
	}
	return entry.AIE, true
}

// Pending reports the number of chains currently open, for the scheduler's
// fragments-pending gauge.
func (d *Defragmenter) Pending() int {
	n := 0
	d.chains.Range(func(_ fragmentKey, _ *FragmentEntry) bool {
		n++
		return true
	})
	return n
}

// ExpireOlderThan drops every chain whose start time is more than one
// multiframe behind now (hyperframe-naive: callers run this every
// multiframe boundary, well within HyperframeModulus wraparound).
func (d *Defragmenter) ExpireOlderThan(now tdmatime.Time) (expired int) {
	const oneMultiframeSlots = tdmatime.FramesPerMultiframe * tdmatime.TimeslotsPerFrame
	d.chains.Range(func(key fragmentKey, entry *FragmentEntry) bool {
		age := now.DistanceSlots(entry.Started)
		if age > oneMultiframeSlots {
			d.chains.Delete(key)
			expired++
		}
		return true
	})
	return expired
}
