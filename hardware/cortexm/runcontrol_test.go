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

package cortexm

import (
	"testing"
	"time"

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/hardware/dap"
	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/test"
)

func TestHaltAndDebugEntry(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	var events []Event
	c.EventHandler = func(_ *Core, ev Event) {
		events = append(events, ev)
	}

	sim.SetPC(0x08000100)

	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Running))

	test.ExpectedSuccess(t, c.Halt())
	test.ExpectedSuccess(t, c.Poll())

	test.Equate(t, int(c.State()), int(Halted))
	test.Equate(t, int(c.Reason()), int(ReasonDebugRequest))
	test.Equate(t, len(events), 1)
	test.Equate(t, int(events[0]), int(EventHalted))

	// registers were fetched on debug entry
	test.Equate(t, c.regs.Reg(armregs.PC).Valid, true)
}

func TestHaltIsIdempotent(t *testing.T) {
	sim := dapsim.NewSim()
	count := &countingAP{MemAP: sim}
	bps := newSimBreakpoints(sim, 4)
	c := NewCore("core0", count, nil, dap.ResetConfig{}, Profile{Arch: ArchV7M}, bps, nullWatchpoints{})
	c.regReadyTimeout = 10 * time.Millisecond

	test.ExpectedSuccess(t, c.Poll())
	test.ExpectedSuccess(t, c.Halt())
	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Halted))

	// a second halt is a no-op all the way down to the wire
	writes := count.writes
	test.ExpectedSuccess(t, c.Halt())
	test.Equate(t, count.writes, writes)
}

func TestResume(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	var events []Event
	c.EventHandler = func(_ *Core, ev Event) {
		events = append(events, ev)
	}

	test.ExpectedSuccess(t, haltAndEnter(c))

	test.ExpectedSuccess(t, c.Resume(true, 0, true, false))
	test.Equate(t, int(c.State()), int(Running))
	test.Equate(t, int(c.Reason()), int(ReasonNotHalted))
	test.Equate(t, int(events[len(events)-1]), int(EventResumed))

	// the register cache does not survive a resume
	test.Equate(t, c.regs.Reg(armregs.PC).Valid, false)
}

func TestResumeAtAddress(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, haltAndEnter(c))

	test.ExpectedSuccess(t, c.Resume(false, 0x08000200, true, false))
	test.Equate(t, sim.PC(), 0x08000200)
	test.Equate(t, sim.ProcessorRunning(), true)
}

func TestResumeNotHalted(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, c.Poll())

	err := c.Resume(true, 0, true, false)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, NotHalted))
}

func TestResumeOverBreakpoint(t *testing.T) {
	sim := dapsim.NewSim()
	c, bps := newTestCore(sim, Profile{Arch: ArchV7M})

	sim.SetPC(0x100)
	test.ExpectedSuccess(t, haltAndEnter(c))

	pc, err := c.ReadRegister(armregs.PC)
	test.ExpectedSuccess(t, err)

	// a breakpoint at the resume address must be stepped over or the core
	// would halt again without executing anything
	test.ExpectedSuccess(t, bps.Add(pc, 2, BreakpointHard))

	test.ExpectedSuccess(t, c.Resume(true, 0, true, false))
	test.Equate(t, sim.ProcessorRunning(), true)
	test.Equate(t, sim.PC() > pc, true)

	// the breakpoint is still armed and hits on the next pass
	sim.SetPC(pc - 2)
	test.ExpectedSuccess(t, c.Poll())
	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Halted))
	test.Equate(t, int(c.Reason()), int(ReasonBreakpoint))
}

func TestResumeSkipsBkptInstruction(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	sim.SetPC(0x200)
	test.ExpectedSuccess(t, haltAndEnter(c))

	pc, err := c.ReadRegister(armregs.PC)
	test.ExpectedSuccess(t, err)
	sim.LoadMemory(pc, []byte{0x00, 0xbe}) // BKPT #0

	test.ExpectedSuccess(t, c.Resume(true, 0, true, false))

	// pc stepped over the BKPT before the core was released
	test.Equate(t, sim.PC() >= pc+2, true)
}

func TestExternalResumeDetected(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	var events []Event
	c.EventHandler = func(_ *Core, ev Event) {
		events = append(events, ev)
	}

	test.ExpectedSuccess(t, haltAndEnter(c))
	test.Equate(t, int(c.State()), int(Halted))

	sim.ExternalResume()
	test.ExpectedSuccess(t, c.Poll())

	test.Equate(t, int(c.State()), int(Running))
	test.Equate(t, int(events[len(events)-1]), int(EventResumed))
	test.Equate(t, c.regs.Reg(armregs.PC).Valid, false)
}

func TestExternalHaltDetected(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Running))

	sim.ExternalHalt()
	test.ExpectedSuccess(t, c.Poll())

	test.Equate(t, int(c.State()), int(Halted))
	test.Equate(t, int(c.Reason()), int(ReasonDebugRequest))
}

func TestLockupRecovery(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, c.Poll())

	sim.Lockup()
	err := c.Poll()

	// the poll recovers the core but still reports the fault
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, LockupRecovered))
	test.Equate(t, int(c.State()), int(Halted))
}

func TestDebugExecutionResume(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	var events []Event
	c.EventHandler = func(_ *Core, ev Event) {
		events = append(events, ev)
	}

	test.ExpectedSuccess(t, haltAndEnter(c))

	test.ExpectedSuccess(t, c.Resume(false, 0x20000000, false, true))
	test.Equate(t, int(c.State()), int(DebugRunning))
	test.Equate(t, int(events[len(events)-1]), int(EventDebugResumed))

	// interrupts were disabled through PRIMASK for the debugger's own code
	test.Equate(t, sim.Reg(0x14)&0xff, 0x01)

	sim.ExternalHalt()
	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Halted))
	test.Equate(t, int(events[len(events)-1]), int(EventDebugHalted))
}
