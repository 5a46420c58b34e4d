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
	"fmt"
	"time"

	"github.com/jetsetilly/gopherprobe/hardware/dap"
	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
)

// breakpoints backed by the simulated debug block. a fixed number of
// comparator slots is enforced so that slot exhaustion can be tested.
type simBreakpoints struct {
	sim   *dapsim.Sim
	slots int
	list  []*Breakpoint
}

func newSimBreakpoints(sim *dapsim.Sim, slots int) *simBreakpoints {
	return &simBreakpoints{
		sim:   sim,
		slots: slots,
	}
}

func (b *simBreakpoints) Find(addr uint32) *Breakpoint {
	for _, bp := range b.list {
		if bp.Address == addr {
			return bp
		}
	}
	return nil
}

func (b *simBreakpoints) Add(addr uint32, length int, typ BreakpointType) error {
	if len(b.list) >= b.slots {
		return fmt.Errorf("no breakpoint slots available")
	}
	b.list = append(b.list, &Breakpoint{
		Address: addr,
		Length:  length,
		Type:    typ,
	})
	b.sim.AddBreakpoint(addr)
	return nil
}

func (b *simBreakpoints) Remove(addr uint32) error {
	for i, bp := range b.list {
		if bp.Address == addr {
			b.sim.RemoveBreakpoint(addr)
			b.list = append(b.list[:i], b.list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no breakpoint at %#08x", addr)
}

func (b *simBreakpoints) Set(bp *Breakpoint) error {
	b.sim.AddBreakpoint(bp.Address)
	return nil
}

func (b *simBreakpoints) Unset(bp *Breakpoint) error {
	b.sim.RemoveBreakpoint(bp.Address)
	return nil
}

func (b *simBreakpoints) EnableAll() error {
	for _, bp := range b.list {
		b.sim.AddBreakpoint(bp.Address)
	}
	return nil
}

type nullWatchpoints struct{}

func (nullWatchpoints) EnableAll() error {
	return nil
}

// countingAP counts write transactions, for tests that check redundant
// writes are suppressed.
type countingAP struct {
	dap.MemAP
	writes int
}

func (ap *countingAP) WriteWord(addr uint32, value uint32) error {
	ap.writes++
	return ap.MemAP.WriteWord(addr, value)
}

func (ap *countingAP) WriteWordAtomic(addr uint32, value uint32) error {
	ap.writes++
	return ap.MemAP.WriteWordAtomic(addr, value)
}

// newTestCore creates a core session driving a simulated debug block, with
// timeouts shortened so that failure paths don't slow the test run down.
func newTestCore(sim *dapsim.Sim, prof Profile) (*Core, *simBreakpoints) {
	bps := newSimBreakpoints(sim, 4)
	c := NewCore("core0", sim, nil, dap.ResetConfig{}, prof, bps, nullWatchpoints{})
	c.regReadyTimeout = 10 * time.Millisecond
	c.isrDrainTimeout = 10 * time.Millisecond
	return c, bps
}

// haltAndEnter halts the core and polls until the halt has been classified.
func haltAndEnter(c *Core) error {
	// a poll from the initial unknown state notices the core running
	if err := c.Poll(); err != nil {
		return err
	}
	if err := c.Halt(); err != nil {
		return err
	}
	return c.Poll()
}
