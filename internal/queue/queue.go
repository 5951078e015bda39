// Package queue holds the UMAC scheduler's per-timeslot downlink queues:
// encoded PDUs (LLC PDUs routed down by the MAC entity, and the MAC-END
// tails of fragmented ones) waiting for their timeslot's next tick, in FIFO
// arrival order. Capacity grants are kept separately by the scheduler.
package queue

// DownlinkQueue is a set of independent FIFOs, one per timeslot. The
// scheduler pops a timeslot's queue wholesale on each tick it owns.
type DownlinkQueue struct {
	data map[int][][]byte
}

func NewDownlinkQueue() *DownlinkQueue {
	return &DownlinkQueue{
		data: make(map[int][][]byte),
	}
}

// Push appends item to the timeslot's queue and returns the new length.
func (q *DownlinkQueue) Push(ts int, item []byte) (int, error) {
	q.data[ts] = append(q.data[ts], item)
	return len(q.data[ts]), nil
}

// Drain returns and clears everything queued for ts, in arrival order.
func (q *DownlinkQueue) Drain(ts int) [][]byte {
	items := q.data[ts]
	delete(q.data, ts)
	return items
}

func (q *DownlinkQueue) Delete(ts int) error {
	delete(q.data, ts)
	return nil
}
