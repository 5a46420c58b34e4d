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
	"github.com/jetsetilly/gopherprobe/curated"
)

// checkAlignment rejects 16 and 32 bit accesses with a misaligned address
// on cores that cannot do unaligned transfers.
func (c *Core) checkAlignment(addr uint32, size int) error {
	if c.prof.Arch != ArchV6M {
		return nil
	}
	if (size == 4 && addr&0x3 != 0) || (size == 2 && addr&0x1 != 0) {
		return curated.Errorf(UnalignedAccess)
	}
	return nil
}

// ReadMemory reads count transfers of size bytes each from the target,
// starting at addr, into data. The address auto-increments for each
// transfer.
func (c *Core) ReadMemory(addr uint32, size int, count int, data []byte) error {
	if err := c.checkAlignment(addr, size); err != nil {
		return err
	}
	if err := c.ap.ReadBuffer(addr, size, count, data); err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	return nil
}

// WriteMemory writes count transfers of size bytes each from data to the
// target, starting at addr. The address auto-increments for each transfer.
func (c *Core) WriteMemory(addr uint32, size int, count int, data []byte) error {
	if err := c.checkAlignment(addr, size); err != nil {
		return err
	}
	if err := c.ap.WriteBuffer(addr, size, count, data); err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	return nil
}
