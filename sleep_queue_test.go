// sleep_queue_test.go - Sleep queue ordering and drain tests

package main

import "testing"

func TestSleepQueue_DrainEmpty(t *testing.T) {
	q := NewSleepQueue()
	if pids := q.Drain(100); len(pids) != 0 {
		t.Fatalf("expected no pids from empty queue, got %v", pids)
	}
}

func TestSleepQueue_DrainOrdersByTick(t *testing.T) {
	q := NewSleepQueue()
	q.Enqueue(1, 50)
	q.Enqueue(2, 30)
	q.Enqueue(3, 40)

	pids := q.Drain(100)
	want := []int{2, 3, 1}
	if len(pids) != len(want) {
		t.Fatalf("expected %d pids, got %d", len(want), len(pids))
	}
	for i := range want {
		if pids[i] != want[i] {
			t.Fatalf("expected wake order %v, got %v", want, pids)
		}
	}
}

func TestSleepQueue_EqualTicksWakeFIFO(t *testing.T) {
	q := NewSleepQueue()
	for pid := 1; pid <= 5; pid++ {
		q.Enqueue(pid, 10)
	}
	pids := q.Drain(10)
	for i, pid := range pids {
		if pid != i+1 {
			t.Fatalf("expected FIFO order on equal ticks, got %v", pids)
		}
	}
}

func TestSleepQueue_DrainStopsAtNow(t *testing.T) {
	q := NewSleepQueue()
	q.Enqueue(1, 10)
	q.Enqueue(2, 20)
	q.Enqueue(3, 30)

	pids := q.Drain(20)
	if len(pids) != 2 || pids[0] != 1 || pids[1] != 2 {
		t.Fatalf("expected pids [1 2] due at tick 20, got %v", pids)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 pending record, got %d", q.Len())
	}
	if pids := q.Drain(30); len(pids) != 1 || pids[0] != 3 {
		t.Fatalf("expected pid 3 at tick 30, got %v", pids)
	}
}

func TestSleepQueue_InterleavedEnqueueDrain(t *testing.T) {
	q := NewSleepQueue()
	q.Enqueue(1, 10)
	if pids := q.Drain(5); len(pids) != 0 {
		t.Fatalf("expected nothing due at tick 5, got %v", pids)
	}
	q.Enqueue(2, 7)
	pids := q.Drain(10)
	if len(pids) != 2 || pids[0] != 2 || pids[1] != 1 {
		t.Fatalf("expected [2 1], got %v", pids)
	}
}
