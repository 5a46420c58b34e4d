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
	"github.com/jetsetilly/gopherprobe/logger"
)

// enableFPB enables the Flash Patch and Breakpoint unit and checks that
// the enable actually took.
func (c *Core) enableFPB() error {
	if err := c.ap.WriteWordAtomic(FP_CTRL, FP_CTRL_ENABLE); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	fpctrl, err := c.ap.ReadWordAtomic(FP_CTRL)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	if fpctrl&0x1 != 0x1 {
		return curated.Errorf(TransportFailure, "FPB did not enable")
	}
	return nil
}

// endResetEvent runs when a poll finds that a reset has completed. Debug
// is re-enabled if the reset destroyed it, the interrupt masking policy is
// restored, vector catches are rewritten and the breakpoint/watchpoint
// comparators are replayed. Some cores don't preserve any debug state
// across reset.
func (c *Core) endResetEvent() error {
	demcr, err := c.ap.ReadWordAtomic(DEMCR)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	logger.Logf(c.name, "DEMCR %#08x on end of reset", demcr)

	// this register is used for the emulated DCC channel
	if err := c.ap.WriteWordAtomic(DCRDR, 0); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	if err := c.readDHCSR(); err != nil {
		return err
	}

	if c.dhcsr&C_DEBUGEN == 0 {
		// enable debug requests
		if err := c.writeHaltMask(0, C_HALT|C_STEP|C_MASKINTS); err != nil {
			return err
		}
	}

	// restore proper interrupt masking setting for running CPU
	if err := c.maskintsForRun(); err != nil {
		return err
	}

	// catch only the vectors we were told to pay attention to
	if err := c.ap.WriteWordAtomic(DEMCR, TRCENA|c.demcr); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	if err := c.enableFPB(); err != nil {
		logger.Log(c.name, "failed to enable the FPB")
		return err
	}

	// replay comparator programming. the debug block's volatile state may
	// not have survived the reset
	for _, fp := range c.FPComparators {
		if err := c.ap.WriteWord(fp.Address, fp.Value); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}
	for _, dwt := range c.DWTComparators {
		if err := c.ap.WriteWord(dwt.Address, dwt.Comp); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
		if err := c.ap.WriteWord(dwt.Address+4, dwt.Mask); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
		if err := c.ap.WriteWord(dwt.Address+8, dwt.Function); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}
	if err := c.ap.Run(); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	c.regs.Invalidate()

	// make sure we have the latest status flags
	return c.readDHCSR()
}

// pollOne samples the debug status of this core and advances the state
// machine accordingly.
func (c *Core) pollOne() error {
	var detectedFailure error

	prev := c.state

	if err := c.readDHCSR(); err != nil {
		c.state = Unknown
		return err
	}

	// recover from lockup. see ARMv7-M architecture reference manual,
	// section B1.5.15
	// "Unrecoverable exception cases"
	if c.dhcsr&S_LOCKUP == S_LOCKUP {
		logger.Log(c.name, "clearing lockup after double fault")
		if err := c.writeHaltMask(C_HALT, 0); err != nil {
			return err
		}
		c.reason = ReasonDebugRequest

		// the rest of the poll still runs but the fault is reported to
		// the caller once it has
		detectedFailure = curated.Errorf(LockupRecovered)

		// refresh status bits
		if err := c.readDHCSR(); err != nil {
			return err
		}
	}

	if c.sticky&S_RESET == S_RESET {
		c.sticky &^= S_RESET
		if c.state != Reset {
			c.state = Reset
			logger.Log(c.name, "external reset detected")
			c.event(EventExternalReset)
		}
		// no further processing this cycle
		return nil
	}

	if c.state == Reset {
		// cannot switch context while running so end-of-reset handling
		// happens here, while the state is still Reset
		logger.Logf(c.name, "exit from reset with DHCSR %#08x", c.dhcsr)
		if err := c.endResetEvent(); err != nil {
			c.state = Unknown
			return err
		}
		c.state = Running
		prev = Running
	}

	if c.dhcsr&S_HALT == S_HALT {
		c.state = Halted

		if prev == Running || prev == Reset {
			if err := c.debugEntry(); err != nil {
				return err
			}

			if c.group != nil {
				// hold the halted event back until the whole group has
				// been polled for this cycle
				logger.Log(c.name, "postponing halted event")
				c.haltPostponed = true
			} else {
				c.event(EventHalted)
			}
		}

		if prev == DebugRunning {
			if err := c.debugEntry(); err != nil {
				return err
			}
			c.event(EventDebugHalted)
		}
	}

	if c.state == Unknown {
		// check if the processor is retiring instructions or sleeping.
		// unlike S_RESET this tests whether the core is running *now*,
		// not whether it has been running at some point since the last
		// poll, so the sticky mask is deliberately not consulted
		if c.dhcsr&S_RETIRE == S_RETIRE || c.dhcsr&S_SLEEP == S_SLEEP {
			c.state = Running
		}
	}

	// check that the core is truly halted. it could have been resumed by
	// an external agent
	if prev == Halted && c.dhcsr&S_HALT == 0 {
		// registers are now invalid
		c.regs.Invalidate()

		c.state = Running
		logger.Log(c.name, "external resume detected")
		c.event(EventResumed)
	}

	// did we detect a failure condition that we cleared?
	return detectedFailure
}

// Poll samples the hardware status of this core and performs any state
// transition the status demands. An external scheduler should call Poll
// periodically.
//
// Cores that belong to a Group should be polled with Group.Poll() instead
// so that halt events can be reconciled across the group.
func (c *Core) Poll() error {
	return c.pollOne()
}
