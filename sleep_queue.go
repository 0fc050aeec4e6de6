// sleep_queue.go - Ordered queue of pending sleep wake-ups

package main

import (
	"container/heap"
	"sync"
)

// sleepRecord is one pending wake-up: a process parked in Sleep until
// wakeTick. seq breaks ties so equal-tick sleepers wake in enqueue order.
type sleepRecord struct {
	wakeTick int64
	seq      uint64
	pid      int
}

type sleepHeap []sleepRecord

func (h sleepHeap) Len() int { return len(h) }
func (h sleepHeap) Less(i, j int) bool {
	if h[i].wakeTick != h[j].wakeTick {
		return h[i].wakeTick < h[j].wakeTick
	}
	return h[i].seq < h[j].seq
}
func (h sleepHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *sleepHeap) Push(x any)        { *h = append(*h, x.(sleepRecord)) }
func (h *sleepHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	*h = old[:n-1]
	return rec
}

// SleepQueue holds pending wake-ups ordered by wake tick. The enqueue
// side (sleep handler, caller's context) and the drain side (clock
// driver) run on different goroutines, so the queue carries its own
// mutex.
type SleepQueue struct {
	mu   sync.Mutex
	h    sleepHeap
	next uint64
}

// NewSleepQueue creates an empty queue.
func NewSleepQueue() *SleepQueue {
	return &SleepQueue{}
}

// Enqueue records that pid must be woken once the tick counter reaches
// wakeTick.
func (q *SleepQueue) Enqueue(pid int, wakeTick int64) {
	q.mu.Lock()
	heap.Push(&q.h, sleepRecord{wakeTick: wakeTick, seq: q.next, pid: pid})
	q.next++
	q.mu.Unlock()
}

// Drain removes every record whose wake tick has passed and returns the
// pids in wake order: ascending tick, enqueue order on equal ticks.
func (q *SleepQueue) Drain(now int64) []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var pids []int
	for len(q.h) > 0 && q.h[0].wakeTick <= now {
		rec := heap.Pop(&q.h).(sleepRecord)
		pids = append(pids, rec.pid)
	}
	return pids
}

// Len reports the number of pending wake-ups.
func (q *SleepQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
