// machine.go - Machine assembly: bus, devices, kernel, services

package main

import "time"

// Machine wires a complete Coracle system: the device bus, the clock,
// four terminal units, the process kernel and the device services layer.
type Machine struct {
	Kern  *Kernel
	Bus   *DeviceBus
	Clock *ClockDevice
	Term  [TERM_UNITS]*TerminalDevice
	Svc   *DeviceServices
}

// NewMachine assembles a machine with the given clock interval. Interval
// 0 builds a manual-clock machine; tests drive it with Clock.Tick().
// Init is done but nothing runs until Start.
func NewMachine(tickInterval time.Duration) (*Machine, error) {
	m := &Machine{
		Kern:  NewKernel(),
		Bus:   NewDeviceBus(),
		Clock: NewClockDevice(tickInterval),
	}
	m.Clock.Attach(m.Bus.RegisterDevice(CLOCK_DEV, 0, m.Clock))
	for i := 0; i < TERM_UNITS; i++ {
		m.Term[i] = NewTerminalDevice(i)
		m.Term[i].Attach(m.Bus.RegisterDevice(TERM_DEV, i, m.Term[i]))
	}
	m.Svc = NewDeviceServices(m.Kern, m.Bus)
	if err := m.Svc.Init(); err != nil {
		return nil, err
	}
	return m, nil
}

// Start spawns the service processes and starts the clock.
func (m *Machine) Start() {
	m.Svc.StartServiceProcesses()
	m.Clock.Start()
}

// Stop halts the clock and the interrupt pump. Driver processes park on
// their mailboxes and wait channels; the machine is not restartable.
func (m *Machine) Stop() {
	m.Clock.Stop()
	m.Bus.Stop()
}
