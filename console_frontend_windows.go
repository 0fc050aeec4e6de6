//go:build windows

// console_frontend_windows.go - Cooked-mode console session for Windows

package main

import (
	"bufio"
	"os"
	"sync"
)

// Console on Windows runs the tty cooked: line-buffered input, no raw
// keymap, and Ctrl-C keeps its usual signal meaning, so onQuit is never
// called from here.
type Console struct {
	dev    *TerminalDevice
	unit   int
	onQuit func()

	mu     sync.Mutex
	closed bool
}

func NewConsole(unit int, dev *TerminalDevice, onQuit func()) *Console {
	return &Console{dev: dev, unit: unit, onQuit: onQuit}
}

func (c *Console) Start() error {
	c.dev.SetCharOutputCallback(func(b byte) {
		os.Stdout.Write([]byte{b})
	})

	go func() {
		r := bufio.NewReader(os.Stdin)
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			if c.isClosed() {
				return
			}
			if b == '\r' {
				continue
			}
			c.dev.EnqueueByte(b)
		}
	}()
	return nil
}

func (c *Console) Stop() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Console) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
