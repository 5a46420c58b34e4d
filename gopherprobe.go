// This file is part of GopherProbe.
//
// GopherProbe is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherProbe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherProbe.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/hardware/cortexm"
	"github.com/jetsetilly/gopherprobe/hardware/dap"
	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/logger"
	"github.com/jetsetilly/gopherprobe/statsview"
	"github.com/jetsetilly/gopherprobe/terminal"
	"github.com/jetsetilly/gopherprobe/version"
)

// how often the cores are polled while the console waits for input.
const pollInterval = 100 * time.Millisecond

// breakpoints is a comparator slot manager for the simulated debug block.
// a manager for real hardware would program FP_COMP registers through the
// access port instead.
type breakpoints struct {
	sim   *dapsim.Sim
	slots int
	list  []*cortexm.Breakpoint
}

func newBreakpoints(sim *dapsim.Sim, slots int) *breakpoints {
	return &breakpoints{
		sim:   sim,
		slots: slots,
	}
}

func (b *breakpoints) Find(addr uint32) *cortexm.Breakpoint {
	for _, bp := range b.list {
		if bp.Address == addr {
			return bp
		}
	}
	return nil
}

func (b *breakpoints) Add(addr uint32, length int, typ cortexm.BreakpointType) error {
	if len(b.list) >= b.slots {
		return fmt.Errorf("no breakpoint slots available")
	}
	b.list = append(b.list, &cortexm.Breakpoint{
		Address: addr,
		Length:  length,
		Type:    typ,
	})
	b.sim.AddBreakpoint(addr)
	return nil
}

func (b *breakpoints) Remove(addr uint32) error {
	for i, bp := range b.list {
		if bp.Address == addr {
			b.sim.RemoveBreakpoint(addr)
			b.list = append(b.list[:i], b.list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no breakpoint at %#08x", addr)
}

func (b *breakpoints) Set(bp *cortexm.Breakpoint) error {
	b.sim.AddBreakpoint(bp.Address)
	return nil
}

func (b *breakpoints) Unset(bp *cortexm.Breakpoint) error {
	b.sim.RemoveBreakpoint(bp.Address)
	return nil
}

func (b *breakpoints) EnableAll() error {
	for _, bp := range b.list {
		b.sim.AddBreakpoint(bp.Address)
	}
	return nil
}

// session gathers everything the console works with. until a hardware
// probe driver lands the access ports are simulated.
type session struct {
	cores []*cortexm.Core
	sims  []*dapsim.Sim
	bps   []*breakpoints
	group *cortexm.Group
	trm   *terminal.Terminal
}

// the core the console addresses. group operations fan out from it.
func (s *session) current() *cortexm.Core {
	return s.cores[0]
}

func (s *session) poll() {
	var err error
	if s.group != nil {
		err = s.group.Poll()
	} else {
		err = s.current().Poll()
	}
	if err != nil {
		s.trm.Print("*** %v\r\n", err)
	}

	for _, c := range s.cores {
		if err := c.HandleTargetRequest(); err != nil {
			s.trm.Print("*** %v\r\n", err)
		}
	}
}

func newSession(numCores int, fpu bool, trm *terminal.Terminal) *session {
	s := &session{trm: trm}

	prof := cortexm.Profile{
		Arch:               cortexm.ArchV7M,
		FPU:                fpu,
		VectResetSupported: true,
		FPBRev:             1,
		SoftResetMechanism: cortexm.SysResetReq,
	}

	for i := 0; i < numCores; i++ {
		sim := dapsim.NewSim()
		sim.ResetVector = 0x08000000
		sim.DebugSurvivesReset = true
		sim.SetPC(0x08000000)

		bps := newBreakpoints(sim, 4)
		c := cortexm.NewCore(fmt.Sprintf("core%d", i), sim, nil, dap.ResetConfig{}, prof, bps, bps)

		c.EventHandler = func(c *cortexm.Core, ev cortexm.Event) {
			trm.Print("[%s] %s", c.Name(), ev)
			if ev == cortexm.EventHalted {
				trm.Print(" (%s)", c.Reason())
			}
			trm.Print("\r\n")
		}
		c.TargetRequestHandler = func(c *cortexm.Core, req uint32) {
			trm.Print("[%s] target request %#08x\r\n", c.Name(), req)
		}

		s.sims = append(s.sims, sim)
		s.cores = append(s.cores, c)
		s.bps = append(s.bps, bps)
	}

	if numCores > 1 {
		s.group = cortexm.NewGroup("smp", s.cores...)
	}

	return s
}

func (s *session) command(line string) (quit bool) {
	toks := strings.Fields(strings.ToUpper(line))
	if len(toks) == 0 {
		return false
	}

	c := s.current()

	arg := func(i int) (uint32, bool) {
		if i >= len(toks) {
			s.trm.Print("*** missing argument\r\n")
			return 0, false
		}
		v, err := strconv.ParseUint(strings.ToLower(toks[i]), 0, 32)
		if err != nil {
			s.trm.Print("*** bad argument: %s\r\n", toks[i])
			return 0, false
		}
		return uint32(v), true
	}

	report := func(err error) {
		if err != nil {
			s.trm.Print("*** %v\r\n", err)
		}
	}

	switch toks[0] {
	case "QUIT", "Q":
		return true

	case "HALT", "H":
		report(c.Halt())
		s.poll()

	case "RUN", "RESUME", "R":
		if len(toks) > 1 {
			addr, ok := arg(1)
			if !ok {
				return false
			}
			report(c.Resume(false, addr, true, false))
		} else {
			report(c.Resume(true, 0, true, false))
		}

	case "STEP", "S":
		report(c.Step(true, 0, true))

	case "RESET":
		halt := len(toks) < 2 || toks[1] != "RUN"
		report(c.AssertReset(halt))
		s.poll()
		s.poll()

	case "SOFTRESET":
		report(c.SoftResetHalt())
		s.poll()

	case "REGS":
		for id := armregs.R0; id <= armregs.XPSR; id++ {
			r := c.Registers().Reg(id)
			if !r.Valid {
				s.trm.Print("%10s: (invalid)\r\n", r.Name)
				continue
			}
			s.trm.Print("%10s: %08x\r\n", r.Name, r.Uint32())
		}

	case "STATUS":
		dhcsr, sticky := c.DebugStatus()
		s.trm.Print("%s\r\n", c)
		s.trm.Print("  reason: %s, transfer: %s, mask: %s\r\n", c.Reason(), c.TransferMode(), c.MaskMode())
		s.trm.Print("  DHCSR: %08x, sticky: %08x\r\n", dhcsr, sticky)

	case "MASK":
		if len(toks) < 2 {
			s.trm.Print("mask policy: %s\r\n", c.MaskMode())
			return false
		}
		modes := map[string]cortexm.MaskMode{
			"AUTO":     cortexm.MaskAuto,
			"OFF":      cortexm.MaskOff,
			"ON":       cortexm.MaskOn,
			"STEPONLY": cortexm.MaskStepOnly,
		}
		mode, ok := modes[toks[1]]
		if !ok {
			s.trm.Print("*** unknown mask policy: %s\r\n", toks[1])
			return false
		}
		for _, c := range s.cores {
			c.SetMaskMode(mode)
		}

	case "BREAK", "B":
		addr, ok := arg(1)
		if !ok {
			return false
		}
		report(s.bps[0].Add(addr, 2, cortexm.BreakpointHard))

	case "READ":
		addr, ok := arg(1)
		if !ok {
			return false
		}
		var data [4]byte
		if err := c.ReadMemory(addr, 4, 1, data[:]); err != nil {
			report(err)
			return false
		}
		s.trm.Print("%08x: %02x%02x%02x%02x\r\n", addr, data[3], data[2], data[1], data[0])

	case "WRITE":
		addr, ok := arg(1)
		if !ok {
			return false
		}
		val, ok := arg(2)
		if !ok {
			return false
		}
		var data [4]byte
		data[0] = byte(val)
		data[1] = byte(val >> 8)
		data[2] = byte(val >> 16)
		data[3] = byte(val >> 24)
		report(c.WriteMemory(addr, 4, 1, data[:]))

	case "LOG":
		logger.Write(os.Stdout)

	default:
		s.trm.Print("*** unknown command: %s\r\n", toks[0])
	}

	return false
}

func run(numCores int, fpu bool) error {
	trm, err := terminal.NewTerminal(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer trm.CleanUp()

	s := newSession(numCores, fpu, trm)

	// the console reader feeds the control loop. the cores themselves are
	// only ever touched from the control loop below
	lines := make(chan string)
	readErr := make(chan error)
	go func() {
		for {
			line, err := trm.ReadLine("(probe) ")
			if err != nil {
				readErr <- err
				return
			}
			lines <- line
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case line := <-lines:
			if s.command(line) {
				return nil
			}
		case err := <-readErr:
			if curated.Is(err, terminal.UserInterrupt) {
				return nil
			}
			return err
		case <-ticker.C:
			s.poll()
		}
	}
}

func main() {
	numCores := flag.Int("smp", 1, "number of simulated cores")
	fpu := flag.Bool("fpu", false, "simulated cores have an FPU")
	echo := flag.Bool("log", false, "echo log entries to stderr")
	stats := flag.Bool("stats", false, "launch the statistics server")
	showVersion := flag.Bool("version", false, "print version and quit")
	flag.Parse()

	if *showVersion {
		ver, rev, _ := version.Version()
		fmt.Printf("%s %s (%s)\n", version.ApplicationName, ver, rev)
		return
	}

	if *echo {
		logger.SetEcho(os.Stderr)
	}

	if *stats {
		if statsview.Available() {
			statsview.Launch(os.Stderr)
		} else {
			fmt.Println("statsview is not available in this build")
		}
	}

	if err := run(*numCores, *fpu); err != nil {
		fmt.Fprintf(os.Stderr, "*** %v\n", err)
		os.Exit(1)
	}
}
