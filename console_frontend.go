//go:build !windows

// console_frontend.go - Interactive console session on a terminal unit

package main

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

// consoleKeymap rewrites raw keyboard bytes into what the unit's line
// discipline keys on: Enter arrives as CR and Backspace as DEL.
var consoleKeymap = map[byte]byte{
	'\r': '\n', // Enter
	0x7F: 0x08, // Backspace
}

// consoleQuitKey ends the session. The tty runs raw, so the kernel's
// usual Ctrl-C signal generation is off and the console owns its own
// exit key.
const consoleQuitKey = 0x03

// Console joins the operator's tty to one terminal unit: keystrokes feed
// the unit's receiver through the same EnqueueByte path every other
// frontend uses, and the unit's transmit stream plays back to the
// screen through the device output callback. One Console per run; tests
// drive units directly instead.
type Console struct {
	dev    *TerminalDevice
	unit   int
	onQuit func()

	mu      sync.Mutex
	restore func()
	closed  bool
}

// NewConsole creates a console session for the given unit. onQuit runs
// once if the operator presses the quit key.
func NewConsole(unit int, dev *TerminalDevice, onQuit func()) *Console {
	return &Console{dev: dev, unit: unit, onQuit: onQuit}
}

// Start switches the tty to raw mode, attaches the playback path and
// begins feeding keystrokes.
func (c *Console) Start() error {
	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("console: raw mode on unit %d: %w", c.unit, err)
	}
	c.mu.Lock()
	c.restore = func() { _ = term.Restore(fd, state) }
	c.mu.Unlock()

	// Raw mode leaves newline expansion to us.
	c.dev.SetCharOutputCallback(func(b byte) {
		if b == '\n' {
			os.Stdout.Write([]byte{'\r', '\n'})
			return
		}
		os.Stdout.Write([]byte{b})
	})

	go c.readLoop()
	return nil
}

func (c *Console) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			c.Stop()
			return
		}
		if c.isClosed() {
			return
		}
		for _, b := range buf[:n] {
			if b == consoleQuitKey {
				c.Stop()
				if c.onQuit != nil {
					c.onQuit()
				}
				return
			}
			if mapped, ok := consoleKeymap[b]; ok {
				b = mapped
			}
			c.dev.EnqueueByte(b)
		}
	}
}

// Stop restores the tty. Idempotent. The read loop sits in a blocking
// stdin read; after Stop it exits on the next byte or at process exit,
// and in practice Stop immediately precedes shutdown.
func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.restore != nil {
		c.restore()
	}
}

func (c *Console) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
