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

// accumulateSticky folds a freshly read DHCSR value into the session's
// sticky mask. S_RETIRE and S_RESET clear on read so this must be called
// for every observed DHCSR value or a transitional event is lost.
func (c *Core) accumulateSticky(dhcsr uint32) {
	c.sticky |= dhcsr
}

// readDHCSR reads the debug status register into the session shadow and
// accumulates the sticky bits.
func (c *Core) readDHCSR() error {
	dhcsr, err := c.ap.ReadWordAtomic(DHCSR)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	c.dhcsr = dhcsr
	c.accumulateSticky(dhcsr)
	return nil
}

// writeHaltMask updates the halt-control bits of the DHCSR shadow and
// writes the whole word back. The reserved key field and the bits being
// cleared are always removed before the write key, the debug enable bit
// and the bits being set are OR-ed in.
func (c *Core) writeHaltMask(setBits uint32, clearBits uint32) error {
	c.dhcsr &^= (0xffff << 16) | clearBits
	c.dhcsr |= DBGKEY | C_DEBUGEN | setBits

	if err := c.ap.WriteWordAtomic(DHCSR, c.dhcsr); err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	return nil
}

// setMaskints changes the C_MASKINTS bit. It is a no-op when the shadow
// already matches the requested state: a redundant write could retrigger
// the MASKINTS erratum.
func (c *Core) setMaskints(mask bool) error {
	if (c.dhcsr&C_MASKINTS != 0) == mask {
		return nil
	}
	if mask {
		return c.writeHaltMask(C_MASKINTS, 0)
	}
	return c.writeHaltMask(0, C_MASKINTS)
}

// maskintsForHalt applies the interrupt masking policy for a core that has
// just halted or is about to halt.
func (c *Core) maskintsForHalt() error {
	switch c.maskMode {
	case MaskAuto:
		// interrupts taken at resume, whether for step or run
		return c.setMaskints(false)
	case MaskOff:
		return c.setMaskints(false)
	case MaskOn:
		return c.setMaskints(true)
	case MaskStepOnly:
		// mask now if the MASKINTS erratum is present, otherwise only
		// mask immediately before stepping
		return c.setMaskints(c.prof.MaskintsErratum)
	}
	return nil
}

// maskintsForRun applies the interrupt masking policy for a core that is
// about to run freely.
func (c *Core) maskintsForRun() error {
	switch c.maskMode {
	case MaskAuto, MaskOff, MaskStepOnly:
		return c.setMaskints(false)
	case MaskOn:
		return c.setMaskints(true)
	}
	return nil
}

// maskintsForStep applies the interrupt masking policy for a core that is
// about to single-step.
func (c *Core) maskintsForStep() error {
	switch c.maskMode {
	case MaskAuto, MaskOn, MaskStepOnly:
		return c.setMaskints(true)
	case MaskOff:
		return c.setMaskints(false)
	}
	return nil
}
