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

	"github.com/jetsetilly/gopherprobe/hardware/dap"
	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/test"
)

func TestMaskOnPolicyAtHalt(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})
	c.SetMaskMode(MaskOn)

	test.ExpectedSuccess(t, haltAndEnter(c))

	dhcsr, _ := c.DebugStatus()
	test.Equate(t, dhcsr&C_MASKINTS, C_MASKINTS)
}

func TestMaskAutoPolicyAtHalt(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, haltAndEnter(c))

	dhcsr, _ := c.DebugStatus()
	test.Equate(t, dhcsr&C_MASKINTS, 0)
}

func TestMaskStepOnlyPolicyWithErratum(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M, MaskintsErratum: true})
	c.SetMaskMode(MaskStepOnly)

	test.ExpectedSuccess(t, haltAndEnter(c))

	// on an affected core the mask is applied at halt time, not at step
	// time, so that it is never toggled together with the halt bits
	dhcsr, _ := c.DebugStatus()
	test.Equate(t, dhcsr&C_MASKINTS, C_MASKINTS)

	// and removed again for free running
	test.ExpectedSuccess(t, c.Resume(true, 0, true, false))
	dhcsr, _ = c.DebugStatus()
	test.Equate(t, dhcsr&C_MASKINTS, 0)
}

func TestMaskStepOnlyPolicyWithoutErratum(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})
	c.SetMaskMode(MaskStepOnly)

	test.ExpectedSuccess(t, haltAndEnter(c))

	// on a healthy core nothing is masked while merely halted
	dhcsr, _ := c.DebugStatus()
	test.Equate(t, dhcsr&C_MASKINTS, 0)
}

func TestRedundantMaskWriteSuppressed(t *testing.T) {
	sim := dapsim.NewSim()
	count := &countingAP{MemAP: sim}
	bps := newSimBreakpoints(sim, 4)
	c := NewCore("core0", count, nil, dap.ResetConfig{}, Profile{Arch: ArchV7M}, bps, nullWatchpoints{})
	c.regReadyTimeout = 10 * time.Millisecond
	c.SetMaskMode(MaskOn)

	test.ExpectedSuccess(t, haltAndEnter(c))

	// the mask is already applied. asking again must not generate any
	// hardware write: a redundant toggle can retrigger the erratum
	writes := count.writes
	test.ExpectedSuccess(t, c.maskintsForHalt())
	test.Equate(t, count.writes, writes)

	test.ExpectedSuccess(t, c.setMaskints(true))
	test.Equate(t, count.writes, writes)

	// a genuine change does write
	test.ExpectedSuccess(t, c.setMaskints(false))
	test.Equate(t, count.writes, writes+1)
}

func TestStickyAccumulation(t *testing.T) {
	sim := dapsim.NewSim()
	sim.DebugSurvivesReset = true
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	test.ExpectedSuccess(t, c.Poll())

	// S_RETIRE was observed while running and accumulated
	_, sticky := c.DebugStatus()
	test.Equate(t, sticky&S_RETIRE, S_RETIRE)

	// a reset between polls is not lost even though the status bit clears
	// on read
	sim.ExternalReset()
	test.ExpectedSuccess(t, c.ReadAllRegisters())

	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Reset))
}
