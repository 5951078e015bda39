package queue_test

import (
	"testing"

	"github.com/trunkctl/tetrabase/internal/queue"
)

func TestNewDownlinkQueue(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()
	if q == nil {
		t.Fatal("Expected non-nil queue")
	}
}

func TestPushAndDrain(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	count, err := q.Push(1, []byte("resource1"))
	if err != nil {
		t.Fatalf("Unexpected error on Push: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected count 1, got %d", count)
	}

	count, err = q.Push(1, []byte("resource2"))
	if err != nil {
		t.Fatalf("Unexpected error on Push: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}

	items := q.Drain(1)
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if string(items[0]) != "resource1" {
		t.Errorf("Expected 'resource1', got '%s'", string(items[0]))
	}
	if string(items[1]) != "resource2" {
		t.Errorf("Expected 'resource2', got '%s'", string(items[1]))
	}
}

func TestDrainEmptiesQueue(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	_, _ = q.Push(2, []byte("grant"))

	items := q.Drain(2)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	items = q.Drain(2)
	if items != nil {
		t.Errorf("Expected nil after drain, got %v", items)
	}
}

func TestDrainUnusedTimeslot(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	items := q.Drain(4)
	if items != nil {
		t.Errorf("Expected nil for unused timeslot, got %v", items)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	_, _ = q.Push(3, []byte("a"))
	_, _ = q.Push(3, []byte("b"))

	err := q.Delete(3)
	if err != nil {
		t.Fatalf("Unexpected error on Delete: %v", err)
	}

	items := q.Drain(3)
	if items != nil {
		t.Errorf("Expected nil after delete, got %v", items)
	}
}

func TestDeleteUnusedTimeslot(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	err := q.Delete(4)
	if err != nil {
		t.Fatalf("Unexpected error deleting unused timeslot: %v", err)
	}
}

func TestIndependentTimeslots(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	_, _ = q.Push(1, []byte("a"))
	_, _ = q.Push(2, []byte("b"))
	_, _ = q.Push(1, []byte("c"))

	ts1 := q.Drain(1)
	ts2 := q.Drain(2)

	if len(ts1) != 2 {
		t.Errorf("Expected 2 items for ts1, got %d", len(ts1))
	}
	if len(ts2) != 1 {
		t.Errorf("Expected 1 item for ts2, got %d", len(ts2))
	}
}

func TestPushBinaryPayload(t *testing.T) {
	t.Parallel()
	q := queue.NewDownlinkQueue()

	data := []byte{0x00, 0xFF, 0xAB, 0xCD}
	_, err := q.Push(1, data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	items := q.Drain(1)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if len(items[0]) != 4 {
		t.Errorf("Expected 4 bytes, got %d", len(items[0]))
	}
	for i, b := range data {
		if items[0][i] != b {
			t.Errorf("Byte %d: expected %x, got %x", i, b, items[0][i])
		}
	}
}
