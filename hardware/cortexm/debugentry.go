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
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/logger"
)

// clearHalt clears the single-step control bit and captures the debug
// fault status register, writing the captured value back to clear the
// latched fault bits.
func (c *Core) clearHalt() error {
	// clear step if any
	if err := c.writeHaltMask(C_HALT, C_STEP); err != nil {
		return err
	}

	dfsr, err := c.ap.ReadWordAtomic(DFSR)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	c.dfsr = dfsr

	// every DFSR bit is cleared by writing one back
	if err := c.ap.WriteWordAtomic(DFSR, dfsr); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	logger.Logf(c.name, "DFSR %#08x", dfsr)
	return nil
}

// singleStepCore steps the core over exactly one instruction with
// interrupts masked.
func (c *Core) singleStepCore() error {
	// mask interrupts before clearing halt, if not done already. setting
	// MASKINTS while clearing HALT can put an r0p0 core into an unknown
	// state (erratum 377497, fixed in r1p0)
	if c.dhcsr&C_MASKINTS == 0 {
		if err := c.writeHaltMask(C_MASKINTS, 0); err != nil {
			return err
		}
	}
	if err := c.writeHaltMask(C_STEP, C_HALT); err != nil {
		return err
	}
	logger.Log(c.name, "single step")

	return c.clearHalt()
}

// examineDebugReason infers a coarse halt reason from the captured debug
// fault status. Definitive reasons recorded by the operation that caused
// the halt are never overridden.
func (c *Core) examineDebugReason() {
	if c.reason == ReasonDebugRequest || c.reason == ReasonSingleStep {
		return
	}

	switch {
	case c.dfsr&DFSR_BKPT == DFSR_BKPT:
		if c.dfsr&DFSR_DWTTRAP == DFSR_DWTTRAP {
			c.reason = ReasonWptAndBkpt
		} else {
			c.reason = ReasonBreakpoint
		}
	case c.dfsr&DFSR_DWTTRAP == DFSR_DWTTRAP:
		c.reason = ReasonWatchpoint
	case c.dfsr&DFSR_VCATCH == DFSR_VCATCH:
		c.reason = ReasonBreakpoint
	case c.dfsr&DFSR_EXTERNAL == DFSR_EXTERNAL:
		c.reason = ReasonDebugRequest
	default:
		c.reason = ReasonUndefined
	}
}

// examineExceptionReason reads the fault status and address registers
// associated with the active exception. This is diagnostic reporting only
// and takes no part in control flow decisions.
func (c *Core) examineExceptionReason() error {
	shcsr, err := c.ap.ReadWordAtomic(SHCSR)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	var statusReg uint32
	var addressReg uint32
	var cfsr uint32

	readWord := func(addr uint32) (uint32, error) {
		v, err := c.ap.ReadWordAtomic(addr)
		if err != nil {
			return 0, curated.Errorf(TransportFailure, err)
		}
		return v, nil
	}

	switch c.exceptionNumber {
	case ExcHardFault:
		if statusReg, err = readWord(HFSR); err != nil {
			return err
		}
		// forced hard fault escalated from a configurable fault
		if statusReg&0x40000000 != 0 {
			if cfsr, err = readWord(CFSR); err != nil {
				return err
			}
		}
	case ExcMemManage:
		if statusReg, err = readWord(CFSR); err != nil {
			return err
		}
		if addressReg, err = readWord(MMFAR); err != nil {
			return err
		}
	case ExcBusFault:
		if statusReg, err = readWord(CFSR); err != nil {
			return err
		}
		if addressReg, err = readWord(BFAR); err != nil {
			return err
		}
	case ExcUsageFault:
		if statusReg, err = readWord(CFSR); err != nil {
			return err
		}
	case ExcSecureFault:
		if statusReg, err = readWord(SFSR); err != nil {
			return err
		}
		if addressReg, err = readWord(SFAR); err != nil {
			return err
		}
	case ExcDebugMonitor:
		if statusReg, err = readWord(DFSR); err != nil {
			return err
		}
	}

	logger.Logf(c.name, "%s SHCSR %#08x, SR %#08x, CFSR %#08x, AR %#08x",
		ExceptionName(c.exceptionNumber), shcsr, statusReg, cfsr, addressReg)
	return nil
}

// MatchedWatchpoint scans the DWT comparators for one whose MATCHED bit is
// set and returns the address it was watching. The MATCHED bit clears on
// read so the result is only meaningful on the first call after a halt.
func (c *Core) MatchedWatchpoint() (uint32, bool, error) {
	for _, dwt := range c.DWTComparators {
		fn, err := c.ap.ReadWordAtomic(dwt.Address + 8)
		if err != nil {
			return 0, false, curated.Errorf(TransportFailure, err)
		}
		if fn&DWT_MATCHED == DWT_MATCHED {
			return dwt.Comp, true, nil
		}
	}
	return 0, false, nil
}

// debugEntry classifies a halt. Called once per halt transition from the
// poll loop or from Step().
func (c *Core) debugEntry() error {
	// do this really early to minimise the window where the MASKINTS
	// erratum can pile up pending interrupts
	if err := c.maskintsForHalt(); err != nil {
		return err
	}

	if err := c.clearHalt(); err != nil {
		return err
	}

	if err := c.readDHCSR(); err != nil {
		return err
	}

	c.examineDebugReason()

	// examine security state
	c.secure = false
	if c.prof.Arch == ArchV8M {
		dscsr, err := c.ap.ReadWordAtomic(DSCSR)
		if err != nil {
			return curated.Errorf(TransportFailure, err)
		}
		c.secure = dscsr&DSCSR_CDS == DSCSR_CDS
	}

	if err := c.ReadAllRegisters(); err != nil {
		return err
	}

	xpsr := c.regs.Reg(armregs.XPSR).Uint32()

	// are we in an exception handler
	if xpsr&0x1ff != 0 {
		c.exceptionNumber = int(xpsr & 0x1ff)
		c.coreMode = ModeHandler
	} else {
		c.exceptionNumber = 0

		control := c.regs.Reg(armregs.CONTROL).Uint32()

		// is this thread privileged
		if control&0x1 == 0x1 {
			c.coreMode = ModeUserThread
		} else {
			c.coreMode = ModeThread
		}
	}

	if c.exceptionNumber != 0 {
		if err := c.examineExceptionReason(); err != nil {
			return err
		}
	}

	secure := "non-secure"
	if c.secure {
		secure = "secure"
	}
	logger.Logf(c.name, "entered debug state in %s mode at PC %#08x, cpu in %s state, target state: %s",
		c.coreMode, c.regs.Reg(armregs.PC).Uint32(), secure, c.state)

	return nil
}
