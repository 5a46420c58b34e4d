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

// Package dapsim simulates the debug block of a Cortex-M processor behind
// the dap.MemAP interface. It exists so that run-control can be exercised
// without a physical probe attached: the simulation implements the halting
// and stepping behaviour of the DHCSR register, the select/ready/data
// register transfer protocol, the sticky fault status of the DFSR and the
// reset requests of the AIRCR.
//
// The processor model is deliberately crude. While "running", the program
// counter advances by one Thumb instruction for every observation of the
// debug status register. Execution is therefore driven entirely by the
// polling of the debugger, which is enough to exercise every state
// transition run-control cares about.
package dapsim

import (
	"encoding/binary"
	"fmt"
)

// debug register addresses. these mirror the fixed ARMv7-M memory map
const (
	addrDHCSR = 0xe000edf0
	addrDCRSR = 0xe000edf4
	addrDCRDR = 0xe000edf8
	addrDEMCR = 0xe000edfc
	addrAIRCR = 0xe000ed0c
	addrDFSR  = 0xe000ed30
)

// DHCSR fields
const (
	dbgkey     = 0xa05f << 16
	cDebugen   = 1 << 0
	cHalt      = 1 << 1
	cStep      = 1 << 2
	cMaskints  = 1 << 3
	sRegrdy    = 1 << 16
	sHalt      = 1 << 17
	sSleep     = 1 << 18
	sLockup    = 1 << 19
	sRetire    = 1 << 24
	sResetBit  = 1 << 25
	dcrsrWnr   = 1 << 16
	vcCatch    = 1 << 0 // VC_CORERESET
	vectkey    = 0x05fa << 16
	vectreset  = 1 << 0
	sysreset   = 1 << 2
	dfsrHalted = 1 << 0
	dfsrBkpt   = 1 << 1
	dfsrVcatch = 1 << 3
	dfsrExtern = 1 << 4
)

// instruction width of the simulated processor
const thumbInst = 2

type op func() error

// Sim is a simulated Cortex-M debug block. It implements dap.MemAP and,
// through ResetLine(), dap.ResetLine.
//
// The zero value is not usable; create with NewSim().
type Sim struct {
	// core registers indexed by DCRSR selector
	regs map[uint32]uint32

	// byte addressable target memory
	mem map[uint32]byte

	// debug registers
	dhcsr uint32
	dcrdr uint32
	demcr uint32
	dfsr  uint32

	// clear-on-read status, latched until the next DHCSR read
	retired   bool
	resetting bool

	// register transfer readiness. a DCRSR write starts the countdown and
	// every DHCSR read decrements it; the ready bit reports only when it
	// has run out
	regrdyCountdown int

	// RegReadyLatency is the number of DHCSR observations a register
	// transfer needs before it reports ready. zero means transfers are
	// ready immediately, as they are on silicon under a slow debug clock
	RegReadyLatency int

	// ResetVector is the value PC takes after any reset
	ResetVector uint32

	// DebugSurvivesReset leaves C_DEBUGEN and DEMCR intact across a
	// reset. many real cores lose both
	DebugSurvivesReset bool

	// breakpoint addresses the simulated processor halts on
	bkpts map[uint32]bool

	// a pending interrupt handler. while running unmasked the handler
	// occupies the core for isrCycles observations before returning to
	// the interrupted pc
	isrPending bool
	isrCycles  int

	// transactions queued but not yet run
	queue []op

	// addresses that fail on access, for fault injection
	failing map[uint32]bool

	// line state of the simulated SRST wire
	srstHeld bool

	// Reconnects counts how often the debug port was reinitialised
	Reconnects int
}

// NewSim creates a simulated debug block, halted at the reset vector with
// debug disabled.
func NewSim() *Sim {
	s := &Sim{
		regs:    make(map[uint32]uint32),
		mem:     make(map[uint32]byte),
		bkpts:   make(map[uint32]bool),
		failing: make(map[uint32]bool),
	}
	s.regs[15] = s.ResetVector
	return s
}

// ProcessorRunning returns whether the simulated processor is executing.
func (s *Sim) ProcessorRunning() bool {
	return s.dhcsr&sHalt != sHalt
}

// PC returns the simulated program counter.
func (s *Sim) PC() uint32 {
	return s.regs[15]
}

// SetPC sets the simulated program counter.
func (s *Sim) SetPC(pc uint32) {
	s.regs[15] = pc
}

// SetReg sets a core register by DCRSR selector.
func (s *Sim) SetReg(sel uint32, value uint32) {
	s.regs[sel] = value
}

// Reg returns a core register by DCRSR selector.
func (s *Sim) Reg(sel uint32) uint32 {
	return s.regs[sel]
}

// AddBreakpoint makes the simulated processor halt when PC reaches addr.
func (s *Sim) AddBreakpoint(addr uint32) {
	s.bkpts[addr] = true
}

// RemoveBreakpoint removes a simulated breakpoint.
func (s *Sim) RemoveBreakpoint(addr uint32) {
	delete(s.bkpts, addr)
}

// PendInterrupt registers a pending interrupt handler that occupies the
// core for cycles observations whenever the core runs unmasked.
func (s *Sim) PendInterrupt(cycles int) {
	s.isrPending = true
	s.isrCycles = cycles
}

// FailOn makes every access to addr return an error, for fault injection.
func (s *Sim) FailOn(addr uint32) {
	s.failing[addr] = true
}

// ClearFailures removes all injected access faults.
func (s *Sim) ClearFailures() {
	s.failing = make(map[uint32]bool)
}

// ExternalHalt halts the processor as an agent outside this debug session
// would, recording an external debug request in the fault status.
func (s *Sim) ExternalHalt() {
	s.dhcsr |= sHalt
	s.dfsr |= dfsrExtern
}

// ExternalResume lets the processor run as an agent outside this debug
// session would.
func (s *Sim) ExternalResume() {
	s.dhcsr &^= sHalt
}

// ExternalReset resets the processor as a reset source outside this debug
// session would (a watchdog, a power glitch).
func (s *Sim) ExternalReset() {
	s.doReset()
}

// Lockup puts the simulated processor into the unrecoverable exception
// state it enters on a fault inside the hard fault handler. A halt request
// clears the condition.
func (s *Sim) Lockup() {
	s.dhcsr |= sLockup
}

// doReset applies the effects of any reset source.
func (s *Sim) doReset() {
	s.resetting = true
	s.regs[15] = s.ResetVector

	if !s.DebugSurvivesReset {
		s.dhcsr &^= cDebugen | cHalt | cStep | cMaskints
		s.demcr = 0
	}

	if s.demcr&vcCatch == vcCatch && s.dhcsr&cDebugen == cDebugen {
		// reset vector catch
		s.dhcsr |= sHalt
		s.dfsr |= dfsrVcatch
	} else {
		s.dhcsr &^= sHalt
	}
}

// advance models one observation's worth of execution. called on every
// DHCSR read while the processor is running.
func (s *Sim) advance() {
	if s.dhcsr&sHalt == sHalt || s.srstHeld {
		return
	}

	if s.isrPending && s.dhcsr&cMaskints == 0 {
		// the handler runs instead of the interrupted instruction. pc is
		// not advanced; the handler returns to it
		s.isrCycles--
		s.retired = true
		if s.isrCycles > 0 {
			return
		}
		s.isrPending = false
	} else {
		s.regs[15] += thumbInst
		s.retired = true
	}

	if s.bkpts[s.regs[15]] && s.dhcsr&cDebugen == cDebugen {
		s.dhcsr |= sHalt
		s.dfsr |= dfsrBkpt
	}
}

// readDHCSR assembles the status word for a DHCSR read, including the
// clear-on-read bits.
func (s *Sim) readDHCSR() uint32 {
	s.advance()

	v := s.dhcsr & (cDebugen | cHalt | cStep | cMaskints | sHalt | sSleep | sLockup)

	if s.regrdyCountdown > 0 {
		s.regrdyCountdown--
	} else {
		v |= sRegrdy
	}

	if s.retired {
		v |= sRetire
		s.retired = false
	}
	if s.resetting {
		v |= sResetBit
		s.resetting = false
	}

	return v
}

// writeDHCSR applies a DHCSR write. Writes without the debug key in the
// upper halfword are ignored, as on silicon.
func (s *Sim) writeDHCSR(value uint32) {
	if value&0xffff0000 != dbgkey {
		return
	}

	wasHalted := s.dhcsr&sHalt == sHalt

	s.dhcsr &^= cDebugen | cHalt | cStep | cMaskints
	s.dhcsr |= value & (cDebugen | cHalt | cStep | cMaskints)

	if s.dhcsr&cDebugen == 0 {
		// halting is only possible with debug enabled
		return
	}

	if s.dhcsr&cHalt == cHalt && !wasHalted {
		s.dhcsr |= sHalt
		s.dhcsr &^= sLockup
		s.dfsr |= dfsrHalted
		return
	}

	if s.dhcsr&cHalt == 0 && wasHalted {
		if s.dhcsr&cStep == cStep {
			// single step. a pending unmasked interrupt would really divert
			// execution into the handler; the model simply retires the
			// instruction at pc
			s.regs[15] += thumbInst
			s.retired = true
			s.dhcsr |= sHalt
			s.dfsr |= dfsrHalted
		} else {
			s.dhcsr &^= sHalt
		}
	}
}

// writeDCRSR performs a register transfer. The data movement happens
// immediately; only the readiness reporting is delayed by RegReadyLatency.
func (s *Sim) writeDCRSR(value uint32) {
	sel := value &^ dcrsrWnr
	if value&dcrsrWnr == dcrsrWnr {
		s.regs[sel] = s.dcrdr
	} else {
		s.dcrdr = s.regs[sel]
	}
	s.regrdyCountdown = s.RegReadyLatency
}

// writeAIRCR applies a reset request. Writes without the vector key are
// ignored.
func (s *Sim) writeAIRCR(value uint32) {
	if value&0xffff0000 != vectkey {
		return
	}
	if value&(sysreset|vectreset) != 0 {
		s.doReset()
	}
}

func (s *Sim) readReg(addr uint32) (uint32, error) {
	if s.failing[addr] {
		return 0, fmt.Errorf("simulated fault reading %#08x", addr)
	}
	if s.srstHeld && addr >= 0xe0000000 {
		return 0, fmt.Errorf("debug port gated by reset")
	}

	switch addr {
	case addrDHCSR:
		return s.readDHCSR(), nil
	case addrDCRDR:
		return s.dcrdr, nil
	case addrDEMCR:
		return s.demcr, nil
	case addrDFSR:
		return s.dfsr, nil
	}

	// backed by plain memory
	return s.memWord(addr), nil
}

func (s *Sim) writeReg(addr uint32, value uint32) error {
	if s.failing[addr] {
		return fmt.Errorf("simulated fault writing %#08x", addr)
	}
	if s.srstHeld && addr >= 0xe0000000 {
		return fmt.Errorf("debug port gated by reset")
	}

	switch addr {
	case addrDHCSR:
		s.writeDHCSR(value)
	case addrDCRSR:
		s.writeDCRSR(value)
	case addrDCRDR:
		s.dcrdr = value
	case addrDEMCR:
		s.demcr = value
	case addrAIRCR:
		s.writeAIRCR(value)
	case addrDFSR:
		// every bit clears by writing one back
		s.dfsr &^= value
	default:
		s.setMemWord(addr, value)
	}
	return nil
}

func (s *Sim) memWord(addr uint32) uint32 {
	var b [4]byte
	for i := range b {
		b[i] = s.mem[addr+uint32(i)]
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (s *Sim) setMemWord(addr uint32, value uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], value)
	for i := range b {
		s.mem[addr+uint32(i)] = b[i]
	}
}

// LoadMemory preloads target memory with data at addr.
func (s *Sim) LoadMemory(addr uint32, data []byte) {
	for i, b := range data {
		s.mem[addr+uint32(i)] = b
	}
}

// ReadWord implements the dap.MemAP interface.
func (s *Sim) ReadWord(addr uint32, value *uint32) error {
	s.queue = append(s.queue, func() error {
		v, err := s.readReg(addr)
		if err != nil {
			return err
		}
		*value = v
		return nil
	})
	return nil
}

// WriteWord implements the dap.MemAP interface.
func (s *Sim) WriteWord(addr uint32, value uint32) error {
	s.queue = append(s.queue, func() error {
		return s.writeReg(addr, value)
	})
	return nil
}

// Run implements the dap.MemAP interface.
func (s *Sim) Run() error {
	queue := s.queue
	s.queue = nil

	for _, o := range queue {
		if err := o(); err != nil {
			return err
		}
	}
	return nil
}

// ReadWordAtomic implements the dap.MemAP interface.
func (s *Sim) ReadWordAtomic(addr uint32) (uint32, error) {
	var value uint32
	if err := s.ReadWord(addr, &value); err != nil {
		return 0, err
	}
	if err := s.Run(); err != nil {
		return 0, err
	}
	return value, nil
}

// WriteWordAtomic implements the dap.MemAP interface.
func (s *Sim) WriteWordAtomic(addr uint32, value uint32) error {
	if err := s.WriteWord(addr, value); err != nil {
		return err
	}
	return s.Run()
}

// ReadBuffer implements the dap.MemAP interface.
func (s *Sim) ReadBuffer(addr uint32, size int, count int, data []byte) error {
	for i := 0; i < size*count; i++ {
		a := addr + uint32(i)
		if s.failing[a&^0x3] {
			return fmt.Errorf("simulated fault reading %#08x", a)
		}
		data[i] = s.mem[a]
	}
	return nil
}

// WriteBuffer implements the dap.MemAP interface.
func (s *Sim) WriteBuffer(addr uint32, size int, count int, data []byte) error {
	for i := 0; i < size*count; i++ {
		a := addr + uint32(i)
		if s.failing[a&^0x3] {
			return fmt.Errorf("simulated fault writing %#08x", a)
		}
		s.mem[a] = data[i]
	}
	return nil
}

// ReadBufferNoIncr implements the dap.MemAP interface. Only the DCRDR is a
// meaningful destination for non-incrementing access: its low halfword
// carries the byte channel.
func (s *Sim) ReadBufferNoIncr(addr uint32, size int, count int, data []byte) error {
	if addr == addrDCRDR {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], s.dcrdr)
		for i := 0; i < size*count; i++ {
			data[i] = b[i%4]
		}
		return nil
	}
	for i := 0; i < size*count; i++ {
		data[i] = s.mem[addr]
	}
	return nil
}

// WriteBufferNoIncr implements the dap.MemAP interface.
func (s *Sim) WriteBufferNoIncr(addr uint32, size int, count int, data []byte) error {
	if addr == addrDCRDR {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], s.dcrdr)
		for i := 0; i < size*count; i++ {
			b[i%4] = data[i]
		}
		s.dcrdr = binary.LittleEndian.Uint32(b[:])
		return nil
	}
	for i := 0; i < size*count; i++ {
		s.mem[addr] = data[i]
	}
	return nil
}

// Reconnect implements the dap.MemAP interface.
func (s *Sim) Reconnect() error {
	s.queue = nil
	s.Reconnects++
	return nil
}
