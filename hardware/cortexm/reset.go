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
	"github.com/jetsetilly/gopherprobe/logger"
)

// settle time after a reset has been requested, before the debug port is
// touched again.
const resetSettleDelay = 50 * time.Millisecond

// AssertReset resets the core. The physical reset line is used when the
// adapter has one, otherwise the reset is requested in software through
// AIRCR using the profile's soft reset mechanism.
//
// When halt is true the core is arranged to halt as close to the reset
// vector as possible, by catching the reset vector in DEMCR before the
// reset is requested.
//
// Access port errors while the reset line is asserted are expected on
// targets where reset gates the debug port and don't fail the operation.
func (c *Core) AssertReset(halt bool) error {
	logger.Logf(c.name, "reset requested (halt: %v)", halt)

	if c.ResetAssertOverride != nil {
		// the target needs a custom reset sequence and has replaced this
		// one entirely
		return c.ResetAssertOverride(c)
	}

	// assert the reset line early if doing so doesn't gate the port, or if
	// there is no port to gate
	if c.rstCfg.HasSRST && (c.rstCfg.SRSTNoGating || c.ap == nil) {
		if c.rst != nil {
			if err := c.rst.Assert(); err != nil {
				return err
			}
			c.srstAsserted = true
		}
	}

	if c.ap == nil {
		if !c.srstAsserted {
			logger.Log(c.name, "debug port not available and no reset line, reset not asserted")
			return curated.Errorf(NoResetAvailable)
		}

		// nothing more can be done without a port. registers are now
		// invalid
		c.regs.Invalidate()
		c.state = Reset
		return nil
	}

	// enable debug requests. errors in this block are stored rather than
	// returned: when SRST is about to be asserted anyway the port may
	// already be unresponsive
	storedErr := c.readDHCSR()
	if storedErr == nil && c.dhcsr&C_DEBUGEN == 0 {
		storedErr = c.writeHaltMask(0, C_HALT|C_STEP|C_MASKINTS)
	}

	// a core sleeping in WFI or WFE only regains control if C_HALT is
	// asserted
	if storedErr == nil && c.dhcsr&S_SLEEP == S_SLEEP {
		storedErr = c.writeHaltMask(C_HALT, 0)
	}

	// this register is used for the emulated DCC channel
	if err := c.ap.WriteWordAtomic(DCRDR, 0); err != nil && storedErr == nil {
		storedErr = curated.Errorf(TransportFailure, err)
	}

	if !halt {
		// set/clear C_MASKINTS in a separate operation
		if err := c.maskintsForRun(); err != nil && storedErr == nil {
			storedErr = err
		}

		// clear any debug flags before resuming
		if err := c.clearHalt(); err != nil && storedErr == nil {
			storedErr = err
		}
		if err := c.writeHaltMask(0, C_HALT); err != nil && storedErr == nil {
			storedErr = err
		}
	} else {
		// halt in debug on reset. end-of-reset handling restores the
		// user's vector catch configuration
		err := c.ap.WriteWordAtomic(DEMCR, TRCENA|VC_HARDERR|VC_BUSERR|VC_CORERESET)
		if err != nil && storedErr == nil {
			storedErr = curated.Errorf(TransportFailure, err)
		}
	}

	if c.rstCfg.HasSRST {
		if !c.srstAsserted && c.rst != nil {
			if err := c.rst.Assert(); err != nil {
				return err
			}
			c.srstAsserted = true
		}

		// srst is asserted. access port errors from the debug-prep stage
		// are expected and ignored
		storedErr = nil
	} else {
		mechanism := c.prof.SoftResetMechanism
		if mechanism == VectReset && !c.prof.VectResetSupported {
			logger.Log(c.name, "VECTRESET is not supported on this core, using SYSRESETREQ instead")
			mechanism = SysResetReq
		}
		logger.Logf(c.name, "using %s", mechanism)

		var err error
		if mechanism == SysResetReq {
			err = c.ap.WriteWordAtomic(AIRCR, AIRCR_VECTKEY|AIRCR_SYSRESETREQ)
		} else {
			// core-only reset. peripherals keep running
			err = c.ap.WriteWordAtomic(AIRCR, AIRCR_VECTKEY|AIRCR_VECTRESET|AIRCR_VECTCLRACTIVE)
		}
		if err != nil {
			// the reset itself may have dropped the connection mid-write
			logger.Log(c.name, "ignoring access port error right after reset")
		}

		if err := c.ap.Reconnect(); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	c.state = Reset
	time.Sleep(resetSettleDelay)

	// registers are now invalid
	c.regs.Invalidate()

	if storedErr != nil {
		return storedErr
	}

	if halt && c.probed {
		return c.Halt()
	}

	return nil
}

// DeassertReset releases the physical reset line. If the line gates the
// debug port the port connection is reinitialised.
func (c *Core) DeassertReset() error {
	if !c.rstCfg.HasSRST {
		return nil
	}

	if c.rst != nil {
		if err := c.rst.Deassert(); err != nil {
			return err
		}
	}
	c.srstAsserted = false

	if !c.rstCfg.SRSTNoGating && c.ap != nil {
		if err := c.ap.Reconnect(); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	return nil
}

// SoftResetHalt resets the core only, without touching peripherals, and
// halts it at the reset vector. It depends on VECTRESET and therefore fails
// on cores that don't support it.
//
// If the core doesn't reach the reset vector catch before the wait loop is
// exhausted a warning is logged but no error is returned; a later Poll()
// picks the halt up whenever it lands.
func (c *Core) SoftResetHalt() error {
	if !c.prof.VectResetSupported {
		return curated.Errorf(VectResetUnsupported)
	}

	// enable debug, leave halt-control bits alone
	if err := c.writeHaltMask(0, C_STEP|C_MASKINTS); err != nil {
		return err
	}

	// this register is used for the emulated DCC channel
	if err := c.ap.WriteWordAtomic(DCRDR, 0); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	// catch the reset vector
	err := c.ap.WriteWordAtomic(DEMCR, TRCENA|VC_HARDERR|VC_BUSERR|VC_CORERESET)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	// request a core-only reset
	err = c.ap.WriteWordAtomic(AIRCR, AIRCR_VECTKEY|AIRCR_VECTRESET|AIRCR_VECTCLRACTIVE)
	if err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	c.state = Reset

	// registers are now invalid
	c.regs.Invalidate()

	for timeout := 0; timeout < 100; timeout++ {
		if err := c.readDHCSR(); err == nil {
			dfsr, err := c.ap.ReadWordAtomic(DFSR)
			if err != nil {
				return curated.Errorf(TransportFailure, err)
			}
			if c.dhcsr&S_HALT == S_HALT && dfsr&DFSR_VCATCH == DFSR_VCATCH {
				logger.Logf(c.name, "system reset-halted, DHCSR %#08x, DFSR %#08x", c.dhcsr, dfsr)
				return c.Poll()
			}
		}
		c.keepAlive()
		time.Sleep(time.Millisecond)
	}

	logger.Log(c.name, "core did not halt on the reset vector catch")
	return nil
}
