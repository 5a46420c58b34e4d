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
	"time"

	"github.com/jetsetilly/gopherprobe/curated"
	"github.com/jetsetilly/gopherprobe/hardware/armregs"
	"github.com/jetsetilly/gopherprobe/logger"
)

// loadReg transfers one 32-bit word from the core using the
// select/ready/data protocol. Every observed DHCSR value is folded into
// the sticky mask.
func (c *Core) loadReg(sel uint32) (uint32, error) {
	// the DCRDR register doubles as the emulated DCC channel. save it
	// now and restore it after the transfer. both must be separate
	// transactions or the channel breaks
	var dcrdr uint32
	if c.dccEnabled {
		var err error
		dcrdr, err = c.ap.ReadWordAtomic(DCRDR)
		if err != nil {
			return 0, curated.Errorf(TransportFailure, err)
		}
	}

	if err := c.ap.WriteWord(DCRSR, sel); err != nil {
		return 0, curated.Errorf(TransportFailure, err)
	}

	var value uint32
	deadline := time.Now().Add(c.regReadyTimeout)
	for {
		// read status and pre-read the data word in one batch
		var dhcsr uint32
		if err := c.ap.ReadWord(DHCSR, &dhcsr); err != nil {
			return 0, curated.Errorf(TransportFailure, err)
		}
		v, err := c.ap.ReadWordAtomic(DCRDR)
		if err != nil {
			return 0, curated.Errorf(TransportFailure, err)
		}

		c.dhcsr = dhcsr
		c.accumulateSticky(dhcsr)

		if dhcsr&S_REGRDY == S_REGRDY {
			value = v
			break
		}

		// polling (still) needed
		c.transfer = TransferSlow

		if time.Now().After(deadline) {
			logger.Log(c.name, "timeout waiting for DCRDR transfer ready")
			return 0, curated.Errorf(Timeout, "register ready")
		}
		c.keepAlive()
	}

	if c.dccEnabled {
		if err := c.ap.WriteWordAtomic(DCRDR, dcrdr); err != nil {
			return 0, curated.Errorf(TransportFailure, err)
		}
	}

	return value, nil
}

// storeReg transfers one 32-bit word to the core. The data register is
// written before the select register carries the write direction flag.
func (c *Core) storeReg(sel uint32, value uint32) error {
	var dcrdr uint32
	if c.dccEnabled {
		var err error
		dcrdr, err = c.ap.ReadWordAtomic(DCRDR)
		if err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	if err := c.ap.WriteWord(DCRDR, value); err != nil {
		return curated.Errorf(TransportFailure, err)
	}
	if err := c.ap.WriteWord(DCRSR, sel|DCRSR_WNR); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	deadline := time.Now().Add(c.regReadyTimeout)
	for {
		if err := c.readDHCSR(); err != nil {
			return err
		}
		if c.dhcsr&S_REGRDY == S_REGRDY {
			break
		}
		if time.Now().After(deadline) {
			logger.Log(c.name, "timeout waiting for DCRDR transfer ready")
			return curated.Errorf(Timeout, "register ready")
		}
		c.keepAlive()
	}

	if c.dccEnabled {
		if err := c.ap.WriteWordAtomic(DCRDR, dcrdr); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	return nil
}

// readReg reads one register into the register file, unpacking from the
// container register where necessary.
func (c *Core) readReg(id armregs.ID) error {
	r := c.regs.Reg(id)
	if !r.Exists {
		return nil
	}

	if container, offset, ok := armregs.Packing(id); ok {
		cr := c.regs.Reg(container)
		if !cr.Valid {
			if err := c.readReg(container); err != nil {
				return err
			}
		}
		r.Value[0] = cr.Value[offset]
		r.Valid = true
		r.Dirty = false
		return nil
	}

	sel, _ := armregs.Selector(id)
	v, err := c.loadReg(sel)
	if err != nil {
		return err
	}
	r.SetUint32(v)

	if r.Size == 64 {
		// the odd half of an FP register (S1, S3, ...)
		v, err = c.loadReg(sel + 1)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(r.Value[4:], v)
	}

	r.Valid = true
	r.Dirty = false
	return nil
}

// writeReg writes one register from the register file to the core,
// packing into the container register where necessary.
func (c *Core) writeReg(id armregs.ID) error {
	r := c.regs.Reg(id)
	if !r.Exists {
		return nil
	}

	if container, offset, ok := armregs.Packing(id); ok {
		cr := c.regs.Reg(container)
		if !cr.Valid {
			if err := c.readReg(container); err != nil {
				return err
			}
		}
		cr.Value[offset] = r.Value[0]
		if err := c.writeReg(container); err != nil {
			return err
		}
		r.Valid = true
		r.Dirty = false
		return nil
	}

	sel, _ := armregs.Selector(id)
	if err := c.storeReg(sel, r.Uint32()); err != nil {
		return err
	}

	if r.Size == 64 {
		if err := c.storeReg(sel+1, binary.LittleEndian.Uint32(r.Value[4:])); err != nil {
			return err
		}
	}

	r.Valid = true
	r.Dirty = false
	return nil
}

// slowReadAllRegs reads every existing register with the fully polled
// protocol. The fast path is restored opportunistically: it will revert to
// slow if any register needed polling in loadReg().
func (c *Core) slowReadAllRegs() error {
	c.transfer = TransferFast

	for id := armregs.R0; id < armregs.NumRegisters; id++ {
		if err := c.readReg(id); err != nil {
			return err
		}
	}

	if c.transfer == TransferFast {
		logger.Log(c.name, "switching back to fast register reads")
	}

	return nil
}

// fastReadAllRegs queues a select/status/data triplet for every existing
// register word without waiting for readiness and executes the whole queue
// as one batch. If any collected status word is missing the ready bit the
// function fails with a Timeout error and the caller falls back to the
// slow path.
func (c *Core) fastReadAllRegs() error {
	var dcrdr uint32
	if c.dccEnabled {
		var err error
		dcrdr, err = c.ap.ReadWordAtomic(DCRDR)
		if err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	// one 32-bit word for each register except the 64-bit FP registers,
	// which need two. the slices are sized up front because the queued
	// reads hold pointers into them until Run() completes
	vals := make([]uint32, int(armregs.NumRegisters)*2)
	stats := make([]uint32, int(armregs.NumRegisters)*2)

	wi := 0
	queue := func(sel uint32) error {
		if err := c.ap.WriteWord(DCRSR, sel); err != nil {
			return err
		}
		if err := c.ap.ReadWord(DHCSR, &stats[wi]); err != nil {
			return err
		}
		if err := c.ap.ReadWord(DCRDR, &vals[wi]); err != nil {
			return err
		}
		wi++
		return nil
	}

	for id := armregs.R0; id < armregs.NumRegisters; id++ {
		r := c.regs.Reg(id)
		if !r.Exists {
			continue
		}
		if _, _, packed := armregs.Packing(id); packed {
			// unpacked from a container register after the batch
			continue
		}

		sel, _ := armregs.Selector(id)
		if err := queue(sel); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
		if r.Size == 64 {
			if err := queue(sel + 1); err != nil {
				return curated.Errorf(TransportFailure, err)
			}
		}
	}
	vals = vals[:wi]
	stats = stats[:wi]

	if err := c.ap.Run(); err != nil {
		return curated.Errorf(TransportFailure, err)
	}

	if c.dccEnabled {
		// restore DCRDR. this needs to be a separate transaction
		// otherwise the emulated DCC channel breaks
		if err := c.ap.WriteWordAtomic(DCRDR, dcrdr); err != nil {
			return curated.Errorf(TransportFailure, err)
		}
	}

	notReady := false
	for i, s := range stats {
		if s&S_REGRDY == 0 {
			notReady = true
			logger.Logf(c.name, "register %d was not ready during fast read", i)
		}
		c.accumulateSticky(s)
	}

	if notReady {
		// fall back to slow read with S_REGRDY polling
		return curated.Errorf(Timeout, "register ready")
	}

	logger.Logf(c.name, "read %d 32-bit registers", len(vals))

	ri := 0
	for id := armregs.R0; id < armregs.NumRegisters; id++ {
		r := c.regs.Reg(id)
		if !r.Exists {
			continue
		}

		r.Dirty = false

		if container, offset, ok := armregs.Packing(id); ok {
			// the container precedes all registers unpacked from it so
			// its value is ready by the time we get here
			cr := c.regs.Reg(container)
			r.Value[0] = cr.Value[offset]
		} else {
			r.SetUint32(vals[ri])
			ri++
			if r.Size == 64 {
				binary.LittleEndian.PutUint32(r.Value[4:], vals[ri])
				ri++
			}
		}
		r.Valid = true
	}

	return nil
}

// ReadAllRegisters reads the entire register file from the core, using the
// fast batched path when the transfer sub-machine allows it and falling
// back to the slow polled path on timeout. The fallback is sticky for the
// remainder of the session unless a later bulk read completes with no
// timeouts.
func (c *Core) ReadAllRegisters() error {
	if c.transfer == TransferFast {
		err := c.fastReadAllRegs()
		if err == nil {
			return nil
		}
		if !curated.Has(err, Timeout) {
			return err
		}
		c.transfer = TransferSlow
		logger.Log(c.name, "switched to slow register read")
	}

	return c.slowReadAllRegs()
}

// ReadRegister returns the value of a core register. The cached value is
// used if it is valid, otherwise the register is read from the core.
func (c *Core) ReadRegister(id armregs.ID) (uint32, error) {
	r := c.regs.Reg(id)
	if !r.Valid {
		if err := c.readReg(id); err != nil {
			return 0, err
		}
	}
	return r.Uint32(), nil
}

// WriteRegister sets the value of a core register. The value is written
// through to the core immediately.
func (c *Core) WriteRegister(id armregs.ID, value uint32) error {
	r := c.regs.Reg(id)
	r.SetUint32(value)
	return c.writeReg(id)
}

// restoreContext writes every dirty register back to the core. Dirty
// aliases are packed into their container register first. Registers are
// restored in reverse file order so that the general purpose registers,
// which debugger-internal execution depends on, are written last.
func (c *Core) restoreContext() error {
	// pack dirty aliases into their containers
	for id := armregs.R0; id < armregs.NumRegisters; id++ {
		r := c.regs.Reg(id)
		if !r.Exists || !r.Dirty {
			continue
		}
		if container, offset, ok := armregs.Packing(id); ok {
			cr := c.regs.Reg(container)
			cr.Value[offset] = r.Value[0]
			cr.Dirty = true
			cr.Valid = true
			r.Dirty = false
		}
	}

	for id := armregs.NumRegisters - 1; id >= armregs.R0; id-- {
		r := c.regs.Reg(id)
		if !r.Exists || !r.Dirty {
			continue
		}
		if err := c.writeReg(id); err != nil {
			return err
		}
	}

	return nil
}
