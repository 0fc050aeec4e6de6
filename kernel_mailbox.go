// kernel_mailbox.go - Bounded FIFO mailboxes with fixed-size slots

package main

import (
	"errors"
	"fmt"
)

var ErrMsgTooBig = errors.New("message exceeds mailbox slot size")

// Mailbox is a bounded FIFO of fixed-size message slots. Send blocks
// while the mailbox is full, Recv blocks while it is empty, CondSend
// never blocks. Messages are copied on send, so callers may reuse their
// buffers immediately.
type Mailbox struct {
	slots    chan []byte
	slotSize int
}

// NewMailbox creates a mailbox with numSlots slots of slotSize bytes.
func NewMailbox(numSlots, slotSize int) *Mailbox {
	return &Mailbox{
		slots:    make(chan []byte, numSlots),
		slotSize: slotSize,
	}
}

// Send enqueues a copy of msg, blocking until a slot is free.
func (m *Mailbox) Send(msg []byte) error {
	if len(msg) > m.slotSize {
		return fmt.Errorf("%w: %d > %d", ErrMsgTooBig, len(msg), m.slotSize)
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	m.slots <- cp
	return nil
}

// CondSend enqueues a copy of msg only if a slot is free right now.
// Returns false when the mailbox is full or the message is oversized.
func (m *Mailbox) CondSend(msg []byte) bool {
	if len(msg) > m.slotSize {
		return false
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	select {
	case m.slots <- cp:
		return true
	default:
		return false
	}
}

// CondRecv dequeues into buf only if a message is ready right now.
func (m *Mailbox) CondRecv(buf []byte) bool {
	select {
	case msg := <-m.slots:
		copy(buf, msg)
		return true
	default:
		return false
	}
}

// Recv dequeues the oldest message, blocking until one is available, and
// copies it into buf. Returns the number of bytes copied: the message
// length, or len(buf) when the caller's buffer is smaller.
func (m *Mailbox) Recv(buf []byte) int {
	msg := <-m.slots
	return copy(buf, msg)
}
