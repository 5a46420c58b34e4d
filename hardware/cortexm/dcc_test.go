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

	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/test"
)

func TestTargetRequest(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})
	c.EnableDCC(true)

	var requests []uint32
	c.TargetRequestHandler = func(_ *Core, req uint32) {
		requests = append(requests, req)
	}

	test.ExpectedSuccess(t, c.Poll())
	test.Equate(t, int(c.State()), int(Running))

	// nothing pending
	test.ExpectedSuccess(t, c.HandleTargetRequest())
	test.Equate(t, len(requests), 0)

	// the target writes the first byte of a request into the channel
	sim.DCCSend(0x42)
	test.ExpectedSuccess(t, c.HandleTargetRequest())

	test.Equate(t, len(requests), 1)
	test.Equate(t, requests[0], 0x42)

	// the byte was acknowledged
	test.Equate(t, sim.DCCBusy(), false)
}

func TestTargetRequestOnlyWhileRunning(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})
	c.EnableDCC(true)

	var requests []uint32
	c.TargetRequestHandler = func(_ *Core, req uint32) {
		requests = append(requests, req)
	}

	test.ExpectedSuccess(t, haltAndEnter(c))

	// a halted core's channel is not serviced. the data register is in
	// use by the register transfer protocol
	sim.DCCSend(0x42)
	test.ExpectedSuccess(t, c.HandleTargetRequest())
	test.Equate(t, len(requests), 0)
}

func TestRegisterTransferPreservesChannel(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})
	c.EnableDCC(true)

	// an unacknowledged byte sits in the channel while the debugger reads
	// registers through the same hardware register
	sim.DCCSend(0x42)

	test.ExpectedSuccess(t, c.ReadAllRegisters())

	// the byte survived the transfer
	test.Equate(t, sim.DCCBusy(), true)

	v, _, err := c.dccRead()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(v), 0x42)
}
