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

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/dap/dapsim"
	"github.com/jetsetilly/gopherprobe/test"
)

func TestMemoryRoundTrip(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	wr := []byte{0xde, 0xad, 0xbe, 0xef}
	test.ExpectedSuccess(t, c.WriteMemory(0x20000000, 4, 1, wr))

	rd := make([]byte, 4)
	test.ExpectedSuccess(t, c.ReadMemory(0x20000000, 4, 1, rd))
	test.DeepEquate(t, rd, wr)
}

func TestUnalignedAccessV6M(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV6M})

	buf := make([]byte, 4)

	err := c.ReadMemory(0x20000001, 4, 1, buf)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, UnalignedAccess))

	err = c.WriteMemory(0x20000002, 4, 1, buf)
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, UnalignedAccess))

	err = c.ReadMemory(0x20000001, 2, 1, buf[:2])
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, UnalignedAccess))

	// byte access never needs alignment
	test.ExpectedSuccess(t, c.ReadMemory(0x20000001, 1, 4, buf))
}

func TestUnalignedAccessV7M(t *testing.T) {
	sim := dapsim.NewSim()
	c, _ := newTestCore(sim, Profile{Arch: ArchV7M})

	// v7-M handles unaligned transfers in hardware
	buf := make([]byte, 4)
	test.ExpectedSuccess(t, c.ReadMemory(0x20000001, 4, 1, buf))
}
