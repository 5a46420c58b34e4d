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
	"testing"

	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/test"
)

// newTestGroup creates an SMP group of individually simulated cores.
func newTestGroup(n int) (*Group, []*dapsim.Sim) {
	sims := make([]*dapsim.Sim, n)
	cores := make([]*Core, n)
	for i := range sims {
		sims[i] = dapsim.NewSim()
		c, _ := newTestCore(sims[i], Profile{Arch: ArchV7M})
		c.name = fmt.Sprintf("core%d", i)
		cores[i] = c
	}
	return NewGroup("smp", cores...), sims
}

func TestGroupHaltReconciliation(t *testing.T) {
	g, sims := newTestGroup(3)

	// record every halted event and check, at delivery time, that the
	// whole group has already stopped
	var halted []*Core
	for _, c := range g.Cores() {
		c.EventHandler = func(c *Core, ev Event) {
			if ev != EventHalted {
				return
			}
			for _, peer := range g.Cores() {
				test.Equate(t, int(peer.State()), int(Halted))
			}
			halted = append(halted, c)
		}
	}

	test.ExpectedSuccess(t, g.Poll())
	for _, c := range g.Cores() {
		test.Equate(t, int(c.State()), int(Running))
	}

	// one core halts on its own
	sims[1].ExternalHalt()

	// a single group poll brings the whole group down and only then
	// delivers the events
	test.ExpectedSuccess(t, g.Poll())

	for _, c := range g.Cores() {
		test.Equate(t, int(c.State()), int(Halted))
	}
	test.Equate(t, len(halted), 3)
}

func TestGroupHaltFansOut(t *testing.T) {
	g, _ := newTestGroup(3)

	test.ExpectedSuccess(t, g.Poll())

	// a halt on any member is a halt of the group
	test.ExpectedSuccess(t, g.Cores()[2].Halt())
	test.ExpectedSuccess(t, g.Poll())

	for _, c := range g.Cores() {
		test.Equate(t, int(c.State()), int(Halted))
	}
}

func TestGroupResume(t *testing.T) {
	g, sims := newTestGroup(3)

	test.ExpectedSuccess(t, g.Poll())
	test.ExpectedSuccess(t, g.Cores()[0].Halt())
	test.ExpectedSuccess(t, g.Poll())

	for _, c := range g.Cores() {
		test.Equate(t, int(c.State()), int(Halted))
	}

	// resuming any member resumes the group
	test.ExpectedSuccess(t, g.Cores()[1].Resume(true, 0, true, false))

	for i, c := range g.Cores() {
		test.Equate(t, int(c.State()), int(Running))
		test.Equate(t, sims[i].ProcessorRunning(), true)
	}
}

func TestGroupSkipsUnprobedCores(t *testing.T) {
	g, sims := newTestGroup(3)

	g.Cores()[2].SetProbed(false)

	test.ExpectedSuccess(t, g.Poll())

	sims[0].ExternalHalt()
	test.ExpectedSuccess(t, g.Poll())

	test.Equate(t, int(g.Cores()[0].State()), int(Halted))
	test.Equate(t, int(g.Cores()[1].State()), int(Halted))

	// the unprobed core was left alone
	test.Equate(t, sims[2].ProcessorRunning(), true)
}

func TestGroupDebugExecutionStaysLocal(t *testing.T) {
	g, sims := newTestGroup(2)

	test.ExpectedSuccess(t, g.Poll())
	test.ExpectedSuccess(t, g.Cores()[0].Halt())
	test.ExpectedSuccess(t, g.Poll())

	// debugger-internal execution must not resume the peers
	test.ExpectedSuccess(t, g.Cores()[0].Resume(true, 0, false, true))

	test.Equate(t, int(g.Cores()[0].State()), int(DebugRunning))
	test.Equate(t, int(g.Cores()[1].State()), int(Halted))
	test.Equate(t, sims[1].ProcessorRunning(), false)
}
