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
	"encoding/binary"

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/logger"
)

// haltOne requests a halt of this core only.
func (c *Core) haltOne() error {
	logger.Logf(c.name, "halt requested in state: %s", c.state)

	if c.state == Halted {
		logger.Log(c.name, "core was already halted")
		return nil
	}

	if c.state == Unknown {
		logger.Log(c.name, "core was in unknown state when halt was requested")
	}

	if c.state == Reset {
		if !c.rstCfg.SRSTNoGating && c.srstAsserted {
			return curated.Errorf(HaltDuringGatedReset)
		}

		// we are in a reset-halt sequence. debug entry was already
		// prepared by AssertReset() and the halt completes as part of
		// end-of-reset handling
		c.reason = ReasonDebugRequest
		return nil
	}

	if err := c.writeHaltMask(C_HALT, 0); err != nil {
		return err
	}

	// do this really early to minimise the window where the MASKINTS
	// erratum can pile up pending interrupts
	if err := c.maskintsForHalt(); err != nil {
		return err
	}

	c.reason = ReasonDebugRequest
	return nil
}

// Halt requests a halt. Calling Halt on an already halted core is a no-op.
// A halt requested while the core is in reset is deferred and completes as
// part of end-of-reset handling.
//
// For a core in a Group the halt is fanned out to every peer.
func (c *Core) Halt() error {
	if c.group != nil {
		return c.group.HaltAll()
	}
	return c.haltOne()
}

// maybeSkipBkptInst advances PC over a literal BKPT instruction at the
// resume address. Without this the core would halt again immediately on
// resume.
func (c *Core) maybeSkipBkptInst() (bool, error) {
	pc := c.regs.Reg(armregs.PC)

	var instr [2]byte
	if err := c.ReadMemory(pc.Uint32(), 2, 1, instr[:]); err != nil {
		return false, err
	}

	// BKPT instruction encoding is 0xbe00 in the upper byte
	if binary.LittleEndian.Uint16(instr[:])&0xff00 != 0xbe00 {
		return false, nil
	}

	logger.Logf(c.name, "skipping BKPT instruction at %#08x", pc.Uint32())
	pc.SetUint32(pc.Uint32() + 2)
	pc.Dirty = true
	pc.Valid = true
	return true, nil
}

// restoreOne prepares this core to run: the register context is restored
// and, if the resume address carries a breakpoint, the core is single
// stepped over it with the breakpoint temporarily removed.
//
// When current is true the core resumes at the current PC and address is
// ignored.
func (c *Core) restoreOne(current bool, address uint32, handleBreakpoints bool, debugExecution bool) error {
	if c.state != Halted {
		logger.Log(c.name, "core not halted")
		return curated.Errorf(NotHalted)
	}

	if !debugExecution {
		if err := c.bps.EnableAll(); err != nil {
			return err
		}
		if err := c.wps.EnableAll(); err != nil {
			return err
		}
	}

	if debugExecution {
		// disable interrupts in the PRIMASK register instead of masking
		// with C_MASKINTS. C_MASKINTS in parallel with disabled
		// interrupts can cause local faults to not be taken (the same
		// issue as erratum 377493, fixed in r1p0)
		r := c.regs.Reg(armregs.PRIMASK)
		r.Value[0] = 1
		r.Dirty = true
		r.Valid = true

		// make sure we are in Thumb mode by setting the xPSR.T bit
		r = c.regs.Reg(armregs.XPSR)
		r.SetUint32(r.Uint32() | 1<<24)
		r.Dirty = true
		r.Valid = true
	}

	pc := c.regs.Reg(armregs.PC)
	if !current {
		pc.SetUint32(address)
		pc.Dirty = true
		pc.Valid = true
	}

	// if we halted on a literal BKPT instruction we have to manually
	// step over it, otherwise the core will break again immediately
	if c.bps.Find(pc.Uint32()) == nil && !debugExecution {
		if _, err := c.maybeSkipBkptInst(); err != nil {
			return err
		}
	}

	resumePC := pc.Uint32()

	if err := c.restoreContext(); err != nil {
		return err
	}

	// the front end may request us not to handle breakpoints
	if handleBreakpoints {
		// single step past a breakpoint at the resume address
		if bp := c.bps.Find(resumePC); bp != nil {
			logger.Logf(c.name, "unset breakpoint at %#08x", bp.Address)
			err := c.bps.Unset(bp)
			if err == nil {
				err = c.singleStepCore()
			}
			err2 := c.bps.Set(bp)
			if err != nil {
				return err
			}
			if err2 != nil {
				return err2
			}
		}
	}

	return nil
}

// restartOne clears the halt bit and lets this core run.
func (c *Core) restartOne(debugExecution bool) error {
	if err := c.maskintsForRun(); err != nil {
		return err
	}
	if err := c.writeHaltMask(0, C_HALT); err != nil {
		return err
	}

	c.reason = ReasonNotHalted

	// registers are now invalid
	c.regs.Invalidate()

	if debugExecution {
		c.state = DebugRunning
		c.event(EventDebugResumed)
	} else {
		c.state = Running
		c.event(EventResumed)
	}

	return nil
}

// Resume restores the register context and lets the core run. When current
// is true execution continues at the current PC and address is ignored.
//
// When handleBreakpoints is true a breakpoint at the resume address is
// single stepped over with the breakpoint temporarily removed.
//
// When debugExecution is true the core runs debugger-internal code: the
// resume is reported with EventDebugResumed, interrupts are disabled
// through PRIMASK and Thumb mode is forced.
//
// For a core in a Group every peer is resumed unless debugExecution is
// set.
func (c *Core) Resume(current bool, address uint32, handleBreakpoints bool, debugExecution bool) error {
	if err := c.restoreOne(current, address, handleBreakpoints, debugExecution); err != nil {
		logger.Log(c.name, "context restore failed, aborting resume")
		return err
	}

	if c.group != nil && !debugExecution {
		if err := c.group.restoreAll(c, handleBreakpoints); err != nil {
			logger.Log(c.name, "resume of group failed, trying to resume current core")
		}
	}

	if err := c.restartOne(debugExecution); err != nil {
		logger.Log(c.name, "resume failed")
		return err
	}

	logger.Logf(c.name, "resumed at %#08x", c.regs.Reg(armregs.PC).Uint32())
	return nil
}
