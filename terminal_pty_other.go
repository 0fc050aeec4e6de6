//go:build !linux

// terminal_pty_other.go - PTY bridge stub for platforms without one

package main

import "errors"

// PTYBridge is only implemented on Linux.
type PTYBridge struct{}

func NewPTYBridge(unit int, dev *TerminalDevice) (*PTYBridge, error) {
	return nil, errors.New("pty bridge: only supported on linux")
}

func (b *PTYBridge) Path() string { return "" }
func (b *PTYBridge) Start()       {}
func (b *PTYBridge) Stop()        {}
