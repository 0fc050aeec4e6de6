// kernel_proc_test.go - Process spawn, block and unblock tests

package main

import (
	"testing"
	"time"
)

func TestKernel_SpawnAssignsUniquePIDs(t *testing.T) {
	k := NewKernel()
	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		p := k.Spawn("worker", 3, func(p *Proc) {})
		if seen[p.PID()] {
			t.Fatalf("pid %d assigned twice", p.PID())
		}
		seen[p.PID()] = true
	}
}

func TestKernel_BlockMeParksUntilUnblock(t *testing.T) {
	k := NewKernel()
	resumed := make(chan struct{})
	p := k.Spawn("blocker", 3, func(p *Proc) {
		p.BlockMe()
		close(resumed)
	})

	select {
	case <-resumed:
		t.Fatalf("process resumed without unblock")
	case <-time.After(20 * time.Millisecond):
	}

	if err := k.Unblock(p.PID()); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	select {
	case <-resumed:
	case <-time.After(2 * time.Second):
		t.Fatalf("process did not resume after unblock")
	}
}

func TestKernel_UnblockBeforeBlockIsNotLost(t *testing.T) {
	k := NewKernel()
	entered := make(chan *Proc, 1)
	resumed := make(chan struct{})
	k.Spawn("racer", 3, func(p *Proc) {
		entered <- p
		// Give the unblock a chance to land first.
		time.Sleep(20 * time.Millisecond)
		p.BlockMe()
		close(resumed)
	})

	p := <-entered
	if err := k.Unblock(p.PID()); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	select {
	case <-resumed:
	case <-time.After(2 * time.Second):
		t.Fatalf("early unblock token was lost")
	}
}

func TestKernel_UnblockUnknownPID(t *testing.T) {
	k := NewKernel()
	if err := k.Unblock(9999); err == nil {
		t.Fatalf("expected error unblocking unknown pid")
	}
}

func TestKernel_DoneClosesWhenBodyReturns(t *testing.T) {
	k := NewKernel()
	p := k.Spawn("quick", 3, func(p *Proc) {})
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("done channel never closed")
	}
	if err := k.Unblock(p.PID()); err == nil {
		t.Fatalf("expected exited process to be out of the table")
	}
}
