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
	"time"

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/logger"
)

// stepOverPendingInterrupts lets the core run with interrupts enabled until
// it hits a breakpoint at the step address, so that pending handlers retire
// without the debugger stepping through them. Returns true if the drain
// deadline expired and the core was left running.
func (c *Core) stepOverPendingInterrupts() (bool, error) {
	logger.Log(c.name, "starting core to serve pending interrupts")

	if err := c.maskintsForRun(); err != nil {
		return false, err
	}
	if err := c.writeHaltMask(0, C_HALT|C_STEP); err != nil {
		return false, err
	}

	deadline := time.Now().Add(c.isrDrainTimeout)
	for {
		if err := c.readDHCSR(); err != nil {
			c.state = Unknown
			return false, err
		}
		if c.dhcsr&S_HALT == S_HALT {
			return false, nil
		}
		if time.Now().After(deadline) {
			return true, nil
		}
		c.keepAlive()
	}
}

// stepMasked steps over exactly one instruction with interrupts forced off
// and then restores the halt-time masking policy.
func (c *Core) stepMasked() error {
	if err := c.writeHaltMask(C_HALT|C_MASKINTS, 0); err != nil {
		return err
	}
	if err := c.writeHaltMask(C_STEP, C_HALT); err != nil {
		return err
	}
	if err := c.writeHaltMask(C_HALT, C_STEP); err != nil {
		return err
	}
	return c.maskintsForHalt()
}

// Step executes one instruction. When current is true the step starts at
// the current PC and address is ignored.
//
// In the MaskAuto masking policy pending interrupt handlers are allowed to
// retire before the step, by running the core against a breakpoint at the
// step address. If the handlers don't retire before the drain deadline the
// core is deliberately left running and Step returns without error; the
// caller has to stop execution manually.
func (c *Core) Step(current bool, address uint32, handleBreakpoints bool) error {
	if c.state != Halted {
		logger.Log(c.name, "core not halted")
		return curated.Errorf(NotHalted)
	}

	pc := c.regs.Reg(armregs.PC)
	if !current {
		pc.SetUint32(address)
		pc.Dirty = true
		pc.Valid = true
	}

	// a breakpoint at the step address cannot stay programmed while we
	// step over it
	var bp *Breakpoint
	if handleBreakpoints {
		if bp = c.bps.Find(pc.Uint32()); bp != nil {
			if err := c.bps.Unset(bp); err != nil {
				return err
			}
		}
	}

	// a literal BKPT instruction at pc is "stepped" by simply advancing
	// past it
	bkptInstFound, err := c.maybeSkipBkptInst()
	if err != nil {
		return err
	}

	c.reason = ReasonSingleStep

	if err := c.restoreContext(); err != nil {
		return err
	}

	isrTimedOut := false

	if !bkptInstFound {
		pcValue := pc.Uint32()

		switch {
		case c.maskMode != MaskAuto:
			// just step over the next instruction, with interrupts on or
			// off as the policy dictates
			if err := c.maskintsForStep(); err != nil {
				return err
			}
			if err := c.writeHaltMask(C_STEP, C_HALT); err != nil {
				return err
			}
			if err := c.writeHaltMask(C_HALT, C_STEP); err != nil {
				return err
			}
			if err := c.maskintsForHalt(); err != nil {
				return err
			}

		case pcValue&0x02 != 0 && c.bps.Find(pcValue&^0x03) != nil:
			// a comparator watching the lower half word of this word won't
			// break again on the upper half word, so the drain trick can't
			// use a breakpoint here. step with interrupts disabled instead
			logger.Log(c.name, "stepping over next instruction with interrupts disabled")
			if err := c.stepMasked(); err != nil {
				return err
			}

		default:
			// put a breakpoint at the step address and let pending
			// interrupt handlers retire before the step proper
			if bp != nil {
				err = c.bps.Set(bp)
			} else {
				typ := BreakpointHard
				if c.prof.FPBRev == 0 && pcValue > 0x1fffffff {
					// FPB rev.1 can't compare such an address, try a soft
					// breakpoint
					typ = BreakpointSoft
				}
				err = c.bps.Add(pcValue, 2, typ)
			}

			if err != nil {
				// no more breakpoints left, just do a masked step
				logger.Log(c.name, "no breakpoint available, stepping with interrupts disabled")
				if err := c.stepMasked(); err != nil {
					return err
				}
			} else {
				isrTimedOut, err = c.stepOverPendingInterrupts()

				// remove the breakpoint whether the drain worked or not,
				// but only the one we created
				var err2 error
				if bp != nil {
					err2 = c.bps.Unset(bp)
				} else {
					err2 = c.bps.Remove(pcValue)
				}
				if err != nil {
					return err
				}
				if err2 != nil {
					return err2
				}

				if isrTimedOut {
					logger.Log(c.name, "interrupt handlers didn't complete within time, leaving core running")
				} else {
					// now step over the instruction itself, with
					// interrupts disabled
					if err := c.stepMasked(); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := c.readDHCSR(); err != nil {
		return err
	}

	// registers are now invalid
	c.regs.Invalidate()

	if bp != nil {
		if err := c.bps.Set(bp); err != nil {
			return err
		}
	}

	if isrTimedOut {
		// leave the core running. the user has to stop execution manually
		c.reason = ReasonNotHalted
		c.state = Running
		return nil
	}

	logger.Logf(c.name, "stepped with DHCSR %#08x", c.dhcsr)

	if err := c.debugEntry(); err != nil {
		return err
	}
	c.event(EventHalted)

	return nil
}
