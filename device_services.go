// device_services.go - Device services: Sleep, TermRead, TermWrite

/*
device_services.go - Device Services Layer

This module turns the machine's raw clock and terminal interrupts into the
three blocking services user processes see: Sleep, TermRead and TermWrite.

Three kinds of actors share the state here:

    The terminal ISR, an interrupt-context callback on the bus pump. It
    reads the status word and forwards it to the owning driver through a
    non-blocking mailbox send. No policy runs in interrupt context.
    One driver process per terminal unit plus one clock driver. Drivers
    run at normal process priority and hold all policy: the transmit state
    machine, input line assembly, sleep queue draining.
    User processes entering through the system call vector, which publish
    work, block, and are unblocked by a driver when the work completes.

Per unit, the write-side fields are co-mutated by the driver and by
TermWrite callers; a count-1 semaphore serializes them, held only across
short sections that never touch the device. The driver alone mutates the
input line buffer and the transmit cursor's consumption, so those need no
further protection beyond the same lock.

The transmitter's life per unit, guarded by that lock:

    idle     writeBusy unset. A TermWrite gains admission, seeds the
             state, emits the first character itself and blocks.
    sending  each transmit-complete interrupt emits the next character
             with both interrupt streams re-asserted.
    drain    the interrupt after the last character unblocks the writer,
             clears ownership and idles the transmitter with interrupts
             still armed for the next writer.

A ready status with no writer active is spurious and takes no device
action; the hardware's ready-edge nudge after arming makes one of these
normal at boot.
*/

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
)

// termUnit is the service-side state of one terminal unit.
type termUnit struct {
	// writeLock guards every field below it except lineBuf/lineLen,
	// which only the unit's driver touches.
	writeLock *Semaphore
	writeBuf  [MAX_LINE_LENGTH]byte
	writeLen  int
	writeIdx  int
	writeBusy bool
	writerPID int

	intMbox  *Mailbox // ISR -> driver status hand-off
	readMbox *Mailbox // driver -> TermRead completed lines

	lineBuf [MAX_LINE_LENGTH]byte
	lineLen int
}

// DeviceServices owns the sleep queue, the tick counter and the per-unit
// terminal state, and runs the driver processes. Construct once at boot
// and pass by reference; nothing here is package-global.
type DeviceServices struct {
	kern *Kernel
	bus  *DeviceBus

	ticks    atomic.Int64
	sleepers *SleepQueue

	term [TERM_UNITS]*termUnit

	drivers []*Proc
}

// NewDeviceServices builds the service state for a kernel and a bus.
func NewDeviceServices(kern *Kernel, bus *DeviceBus) *DeviceServices {
	svc := &DeviceServices{
		kern:     kern,
		bus:      bus,
		sleepers: NewSleepQueue(),
	}
	for i := range svc.term {
		svc.term[i] = &termUnit{
			writeLock: NewSemaphore(1),
			writerPID: NO_PROC,
			intMbox:   NewMailbox(TERM_INT_MBOX_SLOTS, 4),
			readMbox:  NewMailbox(MAX_LINES, MAX_LINE_LENGTH),
		}
	}
	return svc
}

// Init installs the system call handlers and the terminal ISR. Must run
// before StartServiceProcesses.
func (svc *DeviceServices) Init() error {
	if err := svc.kern.SetSyscall(SYS_SLEEP, svc.sleepHandler); err != nil {
		return err
	}
	if err := svc.kern.SetSyscall(SYS_TERMWRITE, svc.termWriteHandler); err != nil {
		return err
	}
	if err := svc.kern.SetSyscall(SYS_TERMREAD, svc.termReadHandler); err != nil {
		return err
	}
	svc.bus.SetIntHandler(TERM_DEV, svc.termISR)
	return nil
}

// StartServiceProcesses spawns the clock driver and one driver per
// terminal unit, then arms every unit's interrupt streams.
func (svc *DeviceServices) StartServiceProcesses() {
	svc.drivers = append(svc.drivers,
		svc.kern.Spawn("ClockDriver", 1, svc.clockDriver))
	for i := 0; i < TERM_UNITS; i++ {
		unit := i
		svc.drivers = append(svc.drivers,
			svc.kern.Spawn(fmt.Sprintf("TermDriver%d", unit), 1, func(p *Proc) {
				svc.terminalDriver(p, unit)
			}))
	}
	for i := 0; i < TERM_UNITS; i++ {
		if err := svc.bus.DeviceOutput(TERM_DEV, i, TermCtrlWord(false, 0, true, true)); err != nil {
			fmt.Fprintf(os.Stderr, "device_services: arming unit %d: %v\n", i, err)
		}
	}
}

// Ticks returns the current clock tick count.
func (svc *DeviceServices) Ticks() int64 {
	return svc.ticks.Load()
}

// UnitBusy reports whether a writer currently owns the unit.
func (svc *DeviceServices) UnitBusy(unit int) bool {
	if unit < 0 || unit >= TERM_UNITS {
		return false
	}
	u := svc.term[unit]
	_ = u.writeLock.P(context.Background())
	busy := u.writeBusy
	u.writeLock.V()
	return busy
}

// clockDriver consumes clock interrupts, advances the tick counter and
// wakes every sleeper whose tick has passed. Wake-up dispatch runs here,
// at process priority, so Unblock is an ordinary call, not ISR work.
func (svc *DeviceServices) clockDriver(p *Proc) {
	for {
		if _, err := svc.bus.WaitDevice(CLOCK_DEV, 0); err != nil {
			return
		}
		now := svc.ticks.Add(1)
		for _, pid := range svc.sleepers.Drain(now) {
			if err := svc.kern.Unblock(pid); err != nil {
				fmt.Fprintf(os.Stderr, "device_services: waking sleeper: %v\n", err)
			}
		}
	}
}

// termISR is the terminal interrupt-context callback: read the status
// word, forward it to the unit's driver, nothing else. If the hand-off
// mailbox is full the status is dropped; the drivers re-arm on every
// touch, so the stream recovers on the next interrupt.
func (svc *DeviceServices) termISR(dev, unit int) {
	status, err := svc.bus.DeviceInput(dev, unit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "device_services: terminal status read: %v\n", err)
		return
	}
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], uint32(status))
	svc.term[unit].intMbox.CondSend(word[:])
}

// terminalDriver serializes all work for one unit. Each status word is
// checked for both conditions: a single interrupt can report
// transmit-complete and a received character at once.
func (svc *DeviceServices) terminalDriver(p *Proc, unit int) {
	u := svc.term[unit]
	ctx := context.Background()
	var word [4]byte

	for {
		if n := u.intMbox.Recv(word[:]); n != len(word) {
			continue
		}
		status := int(binary.LittleEndian.Uint32(word[:]))

		if TermStatXmit(status) == DEV_READY {
			_ = u.writeLock.P(ctx)
			if u.writeBusy {
				if u.writeIdx < u.writeLen {
					ch := u.writeBuf[u.writeIdx]
					u.writeIdx++
					u.writeLock.V()
					svc.termOut(unit, TermCtrlWord(true, ch, true, true))
				} else {
					pid := u.writerPID
					u.writeBusy = false
					u.writerPID = NO_PROC
					u.writeLock.V()
					if pid != NO_PROC {
						if err := svc.kern.Unblock(pid); err != nil {
							fmt.Fprintf(os.Stderr, "device_services: waking writer: %v\n", err)
						}
					}
					// Idle the transmitter, interrupts still armed for
					// the next writer.
					svc.termOut(unit, TermCtrlWord(false, 0, true, true))
				}
			} else {
				// Spurious ready: no writer, no device action.
				u.writeLock.V()
			}
		}

		if TermStatRecv(status) == DEV_BUSY {
			ch := TermStatChar(status)
			if u.lineLen < MAX_LINE_LENGTH {
				u.lineBuf[u.lineLen] = ch
				u.lineLen++
			}
			if ch == '\n' || u.lineLen == MAX_LINE_LENGTH {
				if err := u.readMbox.Send(u.lineBuf[:u.lineLen]); err != nil {
					fmt.Fprintf(os.Stderr, "device_services: publishing line on unit %d: %v\n", unit, err)
				}
				u.lineLen = 0
			}
			// Re-arm: every control write replaces the whole mask, so
			// the transmit stream must be re-asserted iff a writer is
			// active right now.
			_ = u.writeLock.P(ctx)
			busy := u.writeBusy
			u.writeLock.V()
			svc.termOut(unit, TermCtrlWord(false, 0, busy, true))
		}
	}
}

func (svc *DeviceServices) termOut(unit, ctrl int) {
	if err := svc.bus.DeviceOutput(TERM_DEV, unit, ctrl); err != nil {
		fmt.Fprintf(os.Stderr, "device_services: control write on unit %d: %v\n", unit, err)
	}
}

// sleepHandler implements Sleep: enqueue a wake-up and park the caller
// until the clock driver's drain passes the wake tick.
func (svc *DeviceServices) sleepHandler(p *Proc, args *Sysargs) {
	seconds := args.Arg1
	if seconds < 0 {
		args.Arg4 = -1
		return
	}
	wake := svc.ticks.Load() + int64(seconds)*TICKS_PER_SECOND
	svc.sleepers.Enqueue(p.PID(), wake)
	p.BlockMe()
	args.Arg4 = 0
}

// termWriteHandler implements TermWrite. Admission control: a unit with
// an active writer rejects further writers with -1 rather than queueing
// them; callers that want queueing serialize above the call.
func (svc *DeviceServices) termWriteHandler(p *Proc, args *Sysargs) {
	buf, length, unit := args.Buf, args.Arg2, args.Arg3
	if buf == nil || length < 0 || length > MAX_LINE_LENGTH || length > len(buf) ||
		unit < 0 || unit >= TERM_UNITS {
		args.Arg4 = -1
		return
	}
	u := svc.term[unit]
	ctx := context.Background()

	_ = u.writeLock.P(ctx)
	if u.writeBusy {
		u.writeLock.V()
		args.Arg4 = -1
		return
	}
	if length == 0 {
		// Nothing to transmit; ownership would be released before anyone
		// could observe it.
		u.writeLock.V()
		args.Arg2 = 0
		args.Arg4 = 0
		return
	}
	copy(u.writeBuf[:], buf[:length])
	u.writeLen = length
	u.writeIdx = 1
	u.writeBusy = true
	u.writerPID = p.PID()
	ch := u.writeBuf[0]
	u.writeLock.V()

	// First character goes out from the caller; the driver emits the
	// rest, one per transmit-complete interrupt.
	svc.termOut(unit, TermCtrlWord(true, ch, true, true))
	p.BlockMe()

	args.Arg2 = length
	args.Arg4 = 0
}

// termReadHandler implements TermRead: deliver exactly one previously
// completed line, truncated to the caller's buffer.
func (svc *DeviceServices) termReadHandler(p *Proc, args *Sysargs) {
	buf, capacity, unit := args.Buf, args.Arg2, args.Arg3
	if capacity > len(buf) {
		capacity = len(buf)
	}
	if buf == nil || capacity <= 0 || unit < 0 || unit >= TERM_UNITS {
		args.Arg4 = -1
		return
	}
	u := svc.term[unit]

	var line [MAX_LINE_LENGTH]byte
	n := u.readMbox.Recv(line[:])
	if n > capacity {
		n = capacity
	}
	copy(buf, line[:n])
	args.Arg2 = n
	args.Arg4 = 0
}
