// main.go - Main entry point for the Coracle machine

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"
)

func main() {
	interval := flag.Duration("interval", 100*time.Millisecond, "clock tick interval")
	console := flag.Bool("console", false, "attach stdin/stdout to terminal unit 0")
	ptyUnit := flag.Int("pty", -1, "expose the given terminal unit as a pty (linux)")
	ipc := flag.Bool("ipc", false, "serve the control socket")
	script := flag.String("script", "", "run a Lua workload script and exit")
	flag.Parse()

	machine, err := NewMachine(*interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coracle: %v\n", err)
		os.Exit(1)
	}

	quit := make(chan struct{})
	if *console {
		cons := NewConsole(0, machine.Term[0], func() { close(quit) })
		if err := cons.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "coracle: %v\n", err)
			os.Exit(1)
		}
		defer cons.Stop()
	}

	var bridge *PTYBridge
	if *ptyUnit >= 0 {
		if *ptyUnit >= TERM_UNITS {
			fmt.Fprintf(os.Stderr, "coracle: no terminal unit %d\n", *ptyUnit)
			os.Exit(1)
		}
		bridge, err = NewPTYBridge(*ptyUnit, machine.Term[*ptyUnit])
		if err != nil {
			fmt.Fprintf(os.Stderr, "coracle: %v\n", err)
			os.Exit(1)
		}
		bridge.Start()
		defer bridge.Stop()
	}

	var ipcSrv *IPCServer
	if *ipc {
		ipcSrv, err = StartIPCServer(machine)
		if err != nil {
			fmt.Fprintf(os.Stderr, "coracle: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "coracle: control socket at %s\n", ipcSrv.SocketPath())
		defer ipcSrv.Stop()
	}

	machine.Start()
	defer machine.Stop()

	if *script != "" {
		if err := NewLuaWorkload(machine).RunFile("script", *script); err != nil {
			fmt.Fprintf(os.Stderr, "coracle: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !*console && !*ipc && *ptyUnit < 0 {
		runDemo(machine)
		return
	}

	// Serve until interrupted. With the console attached the tty is raw,
	// so the quit key ends the session instead of a signal.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	select {
	case <-sig:
	case <-quit:
	}
	fmt.Fprintln(os.Stderr, "\ncoracle: shutting down")
}

// runDemo exercises the three services without any frontend attached:
// a timed sleep, a write to unit 0, and a loopback read on unit 1.
func runDemo(m *Machine) {
	demo := m.Kern.Spawn("demo", 3, func(p *Proc) {
		start := m.Svc.Ticks()
		if status := Sleep(p, 1); status != 0 {
			fmt.Fprintf(os.Stderr, "demo: sleep failed: %d\n", status)
			return
		}
		fmt.Printf("slept 1s: tick %d -> %d\n", start, m.Svc.Ticks())

		msg := []byte("hello from the device services layer\n")
		n, status := TermWrite(p, 0, msg)
		fmt.Printf("term_write unit 0: n=%d status=%d output=%q\n",
			n, status, m.Term[0].DrainOutput())

		m.Term[1].EnqueueString("loopback line\n")
		buf := make([]byte, MAX_LINE_LENGTH)
		n, status = TermRead(p, 1, buf)
		fmt.Printf("term_read unit 1: n=%d status=%d line=%q\n", n, status, buf[:n])
	})
	<-demo.Done()
}
