// component_reset.go - Reset() methods for machine components (hard reset support)

package main

import (
	"context"
	"time"
)

// TerminalDevice.Reset clears both data paths and disarms interrupts, as
// a power cycle would.
func (t *TerminalDevice) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recvIntEnable = false
	t.xmitIntEnable = false
	t.inputHead = 0
	t.inputTail = 0
	t.inputLen = 0
	t.presented = false
	t.presentedChar = 0
	t.xmitPending = false
	t.xmitError = false
	t.outputBuf = t.outputBuf[:0]
}

// ClockDevice.Reset rewinds the microsecond counter. The tick stream, if
// running, keeps running.
func (c *ClockDevice) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bootTime = time.Now()
	c.manualTicks = 0
}

// SleepQueue.Reset discards every pending wake-up. Only sound when no
// process is still parked on one of them.
func (q *SleepQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.h = q.h[:0]
	q.next = 0
}

// DeviceServices.Reset restores the service state of a quiesced machine:
// no user process may be blocked in a service call and the drivers must
// be idle. Pending lines and statuses are discarded.
func (svc *DeviceServices) Reset() {
	svc.ticks.Store(0)
	svc.sleepers.Reset()

	ctx := context.Background()
	var scratch [MAX_LINE_LENGTH]byte
	for _, u := range svc.term {
		_ = u.writeLock.P(ctx)
		u.writeLen = 0
		u.writeIdx = 0
		u.writeBusy = false
		u.writerPID = NO_PROC
		u.lineLen = 0
		u.writeLock.V()

		for u.intMbox.CondRecv(scratch[:4]) {
		}
		for u.readMbox.CondRecv(scratch[:]) {
		}
	}
}
