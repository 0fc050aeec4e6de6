//go:build linux

// terminal_pty_linux.go - PTY bridge: expose a terminal unit as a Linux pseudoterminal

package main

import (
	"fmt"
	"os"
	"sync"

	serial "github.com/daedaluz/goserial"
)

// PTYBridge attaches one terminal unit to a pseudoterminal pair, so any
// host program that can open a tty can talk to the simulated unit: bytes
// typed at the slave side enter the unit's receiver, the unit's transmit
// stream appears as slave output.
type PTYBridge struct {
	unit    int
	dev     *TerminalDevice
	master  *serial.Port
	slave   *serial.Port
	path    string
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once
}

// NewPTYBridge allocates a pty pair for the given unit. The slave side is
// put in raw mode; the bridge is a transport, the line discipline lives
// in the unit's driver.
func NewPTYBridge(unit int, dev *TerminalDevice) (*PTYBridge, error) {
	master, slave, err := serial.OpenPTY(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("pty bridge: open pty for unit %d: %w", unit, err)
	}
	if err := slave.MakeRaw(); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("pty bridge: raw mode on unit %d slave: %w", unit, err)
	}
	path, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", slave.Fd()))
	if err != nil {
		path = fmt.Sprintf("fd %d", slave.Fd())
	}
	return &PTYBridge{
		unit:   unit,
		dev:    dev,
		master: master,
		slave:  slave,
		path:   path,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Path returns the slave device path host programs should open.
func (b *PTYBridge) Path() string { return b.path }

// Start wires the pty to the unit and begins the reader goroutine.
func (b *PTYBridge) Start() {
	b.dev.SetCharOutputCallback(func(ch byte) {
		if _, err := b.master.Write([]byte{ch}); err != nil {
			fmt.Fprintf(os.Stderr, "pty bridge: write on unit %d: %v\n", b.unit, err)
		}
	})

	go func() {
		defer close(b.done)
		buf := make([]byte, 256)
		for {
			select {
			case <-b.stopCh:
				return
			default:
			}
			n, err := b.master.Read(buf)
			if err != nil {
				return
			}
			for _, ch := range buf[:n] {
				b.dev.EnqueueByte(ch)
			}
		}
	}()
	fmt.Fprintf(os.Stderr, "pty bridge: unit %d attached to %s\n", b.unit, b.path)
}

// Stop closes the pair and waits for the reader to exit.
func (b *PTYBridge) Stop() {
	b.stopped.Do(func() {
		close(b.stopCh)
		b.master.Close()
		b.slave.Close()
		<-b.done
	})
}
