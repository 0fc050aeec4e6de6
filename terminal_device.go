// terminal_device.go - Terminal hardware model for the Coracle machine

/*
terminal_device.go - Terminal Device

One TerminalDevice models one serial terminal unit: a write-only control
register and a read-only status register, wired to the DeviceBus.

Transmit: a control write carrying TERM_CTRL_XMIT_CHAR emits the
character to the output sink and raises a completion interrupt when
transmit interrupts are enabled in that same control word. The
transmitter then stays busy until the completion is acknowledged by a
status read: a second character written inside that window is an
overrun — the character is dropped and the next status read reports
DEV_ERROR on the transmit field. Software that waits for the interrupt
and reads the status before writing again, as the driver protocol does,
never sees the error.

Receive: host bytes enter through EnqueueByte and queue in a ring buffer.
Whenever receive interrupts are enabled and no character is currently
presented, the device latches the next byte into the status word and
raises an interrupt. Reading the status register consumes the presented
character; remaining bytes are presented one interrupt at a time. A
single status word can show transmit-ready and a received character at
once.

The interrupt-enable state is exactly the last control write. Enabling
transmit interrupts with no character in the same write raises one
ready interrupt on the enable edge, the same nudge real hardware gives an
idle, armed transmitter.
*/

package main

import "sync"

const termInputRing = 1024

// TerminalDevice is a pure state-machine terminal unit. Tests inject
// characters via EnqueueByte(); the host adapters (the Console, the PTY
// bridge, the IPC endpoint) feed bytes through the same method.
type TerminalDevice struct {
	mu   sync.Mutex
	unit int

	// Interrupt enables: exactly the last control write.
	recvIntEnable bool
	xmitIntEnable bool

	// Host input ring buffer.
	inputBuf  [termInputRing]byte
	inputHead int
	inputTail int
	inputLen  int

	// Character latched into the status word, if any.
	presented     bool
	presentedChar byte

	// Transmit window: pending is set by a character write and cleared
	// by the next status read; a character write while pending is an
	// overrun and latches the error.
	xmitPending bool
	xmitError   bool

	// Output sink. When onCharOutput is set, transmitted bytes are
	// delivered to it outside the lock; otherwise they collect in
	// outputBuf until DrainOutput.
	onCharOutput func(byte)
	outputBuf    []byte

	raise func()
}

// NewTerminalDevice creates one terminal unit. Interrupts start disabled;
// the service layer arms them with its first control write.
func NewTerminalDevice(unit int) *TerminalDevice {
	return &TerminalDevice{
		unit:      unit,
		outputBuf: make([]byte, 0, 256),
	}
}

// Attach hands the device its interrupt raise function.
func (t *TerminalDevice) Attach(raise func()) {
	t.mu.Lock()
	t.raise = raise
	t.mu.Unlock()
}

// SetCharOutputCallback registers a callback for transmitted bytes. When
// set, bytes are delivered directly to fn and not buffered.
func (t *TerminalDevice) SetCharOutputCallback(fn func(byte)) {
	t.mu.Lock()
	t.onCharOutput = fn
	t.mu.Unlock()
}

// Input reads the status register. A presented receive character is
// consumed by the read; if more input is queued the next byte is
// presented with its own interrupt.
func (t *TerminalDevice) Input() (int, error) {
	t.mu.Lock()
	xfield := DEV_READY
	if t.xmitError {
		xfield = DEV_ERROR
		t.xmitError = false
	}
	t.xmitPending = false
	status := xfield << TERM_STAT_XMIT_SHIFT
	if t.presented {
		status |= DEV_BUSY << TERM_STAT_RECV_SHIFT
		status |= int(t.presentedChar) << TERM_STAT_CHAR_SHIFT
		t.presented = false
	} else {
		status |= DEV_READY << TERM_STAT_RECV_SHIFT
	}
	fire := t.presentNextLocked()
	t.mu.Unlock()

	if fire {
		t.fireRaise()
	}
	return status, nil
}

// Output writes the control register. Every write fully replaces the
// interrupt-enable state; a write carrying a character transmits it.
func (t *TerminalDevice) Output(ctrl int) error {
	t.mu.Lock()
	wasXmitInt := t.xmitIntEnable
	t.recvIntEnable = ctrl&TERM_CTRL_RECV_INT != 0
	t.xmitIntEnable = ctrl&TERM_CTRL_XMIT_INT != 0

	var emit bool
	var ch byte
	var charFn func(byte)
	fire := false

	if ctrl&TERM_CTRL_XMIT_CHAR != 0 {
		if t.xmitPending {
			// Overrun: the previous completion was never acknowledged.
			t.xmitError = true
		} else {
			ch = byte(ctrl >> TERM_CTRL_CHAR_SHIFT)
			emit = true
			t.xmitPending = true
			if t.onCharOutput != nil {
				charFn = t.onCharOutput
			} else {
				t.outputBuf = append(t.outputBuf, ch)
			}
			if t.xmitIntEnable {
				fire = true
			}
		}
	} else if t.xmitIntEnable && !wasXmitInt {
		// Ready edge: arming transmit interrupts on an idle transmitter.
		fire = true
	}

	// A recv enable may release queued input.
	if t.presentNextLocked() {
		fire = true
	}
	t.mu.Unlock()

	if emit && charFn != nil {
		charFn(ch)
	}
	if fire {
		t.fireRaise()
	}
	return nil
}

// EnqueueByte adds one host byte to the input ring buffer. Bytes beyond
// the ring capacity are dropped, as a UART overrun would.
func (t *TerminalDevice) EnqueueByte(b byte) {
	t.mu.Lock()
	if t.inputLen < len(t.inputBuf) {
		t.inputBuf[t.inputTail] = b
		t.inputTail = (t.inputTail + 1) % len(t.inputBuf)
		t.inputLen++
	}
	fire := t.presentNextLocked()
	t.mu.Unlock()

	if fire {
		t.fireRaise()
	}
}

// EnqueueString feeds every byte of s to the unit.
func (t *TerminalDevice) EnqueueString(s string) {
	for i := 0; i < len(s); i++ {
		t.EnqueueByte(s[i])
	}
}

// DrainOutput returns and clears the accumulated output buffer. Only
// meaningful when no output callback is registered.
func (t *TerminalDevice) DrainOutput() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := string(t.outputBuf)
	t.outputBuf = t.outputBuf[:0]
	return s
}

// presentNextLocked latches the next queued byte into the status word if
// receive interrupts are enabled and nothing is presented. Returns true
// when the caller must raise an interrupt after releasing the lock.
func (t *TerminalDevice) presentNextLocked() bool {
	if !t.recvIntEnable || t.presented || t.inputLen == 0 {
		return false
	}
	t.presentedChar = t.inputBuf[t.inputHead]
	t.inputHead = (t.inputHead + 1) % len(t.inputBuf)
	t.inputLen--
	t.presented = true
	return true
}

func (t *TerminalDevice) fireRaise() {
	t.mu.Lock()
	raise := t.raise
	t.mu.Unlock()
	if raise != nil {
		raise()
	}
}
