// clock_device.go - Clock device for the Coracle machine

package main

import (
	"sync"
	"time"
)

// ClockDevice raises one interrupt per tick, nominally every 100 ms. Its
// status register is a free-running microsecond counter; the interrupt
// stream is the time base the service layer counts in.
//
// Interval 0 puts the clock in manual mode: no goroutine runs and tests
// drive time forward one Tick() at a time.
type ClockDevice struct {
	mu       sync.Mutex
	interval time.Duration
	raise    func()
	bootTime time.Time

	// Manual-mode tick count, so the status register still advances when
	// no wall clock is attached.
	manualTicks int64

	running bool
	stopCh  chan struct{}
	done    chan struct{}
}

// NewClockDevice creates a clock with the given tick interval. Pass 0 for
// manual mode.
func NewClockDevice(interval time.Duration) *ClockDevice {
	return &ClockDevice{
		interval: interval,
		bootTime: time.Now(),
	}
}

// Attach hands the clock its interrupt raise function. Called by machine
// assembly right after RegisterDevice.
func (c *ClockDevice) Attach(raise func()) {
	c.mu.Lock()
	c.raise = raise
	c.mu.Unlock()
}

// Input reads the status register: microseconds since boot. In manual
// mode the counter advances one nominal tick per Tick() call instead of
// tracking the wall clock.
func (c *ClockDevice) Input() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval == 0 {
		return int(c.manualTicks * 100_000), nil
	}
	return int(time.Since(c.bootTime).Microseconds()), nil
}

// Output writes the control register. The clock has none.
func (c *ClockDevice) Output(ctrl int) error {
	return ErrNotSupported
}

// Start begins raising tick interrupts. No-op in manual mode.
func (c *ClockDevice) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interval == 0 || c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})

	go func(interval time.Duration, stopCh chan struct{}, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.fire()
			case <-stopCh:
				return
			}
		}
	}(c.interval, c.stopCh, c.done)
}

// Stop halts the tick stream and waits for the ticker goroutine to exit.
func (c *ClockDevice) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	close(stopCh)
	<-done
}

// Tick fires one clock interrupt by hand. Manual mode only; tests use
// this to make time deterministic.
func (c *ClockDevice) Tick() {
	c.mu.Lock()
	c.manualTicks++
	c.mu.Unlock()
	c.fire()
}

func (c *ClockDevice) fire() {
	c.mu.Lock()
	raise := c.raise
	c.mu.Unlock()
	if raise != nil {
		raise()
	}
}
