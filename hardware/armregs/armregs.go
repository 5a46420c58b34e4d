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

// Package armregs is the register file for an ARMv7-M style processor as
// seen by the debugger. Each register is described by a descriptor carrying
// existence, size, validity and dirtiness attributes alongside the raw
// value bytes.
//
// The order of registers in the file matters. The special register
// CtrlStack is a 32-bit container backing the PRIMASK, BASEPRI, FAULTMASK
// and CONTROL aliases. The container always precedes its aliases so that a
// bulk read can unpack aliases from an already valid container value.
package armregs

import (
	"encoding/binary"
	"fmt"
)

// ID identifies a register in the File.
type ID int

// List of registers in file order.
//
// CtrlStack is the composite special register transferred by DCRSR selector
// 0x14. PRIMASK, BASEPRI, FAULTMASK and CONTROL are unpacked from it and
// have no selector of their own.
const (
	R0 ID = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
	XPSR
	MSP
	PSP
	CtrlStack
	PRIMASK
	BASEPRI
	FAULTMASK
	CONTROL
	FPSCR
	D0
	D1
	D2
	D3
	D4
	D5
	D6
	D7
	D8
	D9
	D10
	D11
	D12
	D13
	D14
	D15
	NumRegisters
)

func (id ID) String() string {
	switch {
	case id >= R0 && id <= R12:
		return fmt.Sprintf("R%d", int(id))
	case id >= D0 && id <= D15:
		return fmt.Sprintf("D%d", int(id-D0))
	}

	switch id {
	case SP:
		return "SP"
	case LR:
		return "LR"
	case PC:
		return "PC"
	case XPSR:
		return "xPSR"
	case MSP:
		return "MSP"
	case PSP:
		return "PSP"
	case CtrlStack:
		return "PRIMASK/BASEPRI/FAULTMASK/CONTROL"
	case PRIMASK:
		return "PRIMASK"
	case BASEPRI:
		return "BASEPRI"
	case FAULTMASK:
		return "FAULTMASK"
	case CONTROL:
		return "CONTROL"
	case FPSCR:
		return "FPSCR"
	}

	return "unknown"
}

// Selector returns the DCRSR register selector for the register. The second
// return value is false for registers that have no selector of their own
// because they are unpacked from a container register.
func Selector(id ID) (uint32, bool) {
	switch {
	case id >= R0 && id <= PSP:
		// R0-R12, SP, LR, PC (DebugReturnAddress), xPSR, MSP, PSP map
		// directly onto selectors 0 to 18
		return uint32(id), true
	case id == CtrlStack:
		return 0x14, true
	case id == FPSCR:
		return 0x21, true
	case id >= D0 && id <= D15:
		// each 64-bit FP register is transferred as two words, S(2n) at
		// the returned selector and S(2n+1) at the selector following
		return 0x40 + uint32(id-D0)*2, true
	}
	return 0, false
}

// Packing returns the container register and the byte offset within it for
// registers that are unpacked from a container rather than transferred
// directly.
func Packing(id ID) (ID, int, bool) {
	switch id {
	case PRIMASK:
		return CtrlStack, 0, true
	case BASEPRI:
		return CtrlStack, 1, true
	case FAULTMASK:
		return CtrlStack, 2, true
	case CONTROL:
		return CtrlStack, 3, true
	}
	return 0, 0, false
}

// Register is a single entry in the register file.
type Register struct {
	Name string

	// size of the register in bits. one of 8, 32 or 64
	Size int

	// whether the register exists on the probed core at all
	Exists bool

	// Valid means Value reflects what was last read from the core. Dirty
	// means Value has been changed by the debugger and must be written
	// back before the core runs again
	Valid bool
	Dirty bool

	// raw value bytes, little-endian. one, four or eight bytes according
	// to Size
	Value []byte
}

// Uint32 returns the first four bytes of the register value. For 8-bit
// registers the single byte is zero extended.
func (r *Register) Uint32() uint32 {
	switch len(r.Value) {
	case 1:
		return uint32(r.Value[0])
	default:
		return binary.LittleEndian.Uint32(r.Value)
	}
}

// SetUint32 sets the first four bytes of the register value. For 8-bit
// registers only the lowest byte is stored.
func (r *Register) SetUint32(v uint32) {
	switch len(r.Value) {
	case 1:
		r.Value[0] = uint8(v)
	default:
		binary.LittleEndian.PutUint32(r.Value, v)
	}
}

// Uint64 returns the full eight byte value of a 64-bit register.
func (r *Register) Uint64() uint64 {
	return binary.LittleEndian.Uint64(r.Value)
}

// SetUint64 sets the full eight byte value of a 64-bit register.
func (r *Register) SetUint64(v uint64) {
	binary.LittleEndian.PutUint64(r.Value, v)
}

// File is the ordered register file.
type File struct {
	regs [NumRegisters]Register
}

// NewFile creates a register file for a core. The FP registers only exist
// when the core has an FPU.
func NewFile(fpu bool) *File {
	f := &File{}

	for id := R0; id < NumRegisters; id++ {
		r := &f.regs[id]
		r.Name = id.String()
		r.Exists = true

		switch {
		case id >= PRIMASK && id <= CONTROL:
			r.Size = 8
		case id >= D0 && id <= D15:
			r.Size = 64
			r.Exists = fpu
		case id == FPSCR:
			r.Size = 32
			r.Exists = fpu
		default:
			r.Size = 32
		}

		r.Value = make([]byte, r.Size/8)
	}

	return f
}

// Reg returns the descriptor for the specified register. The returned
// pointer is owned by the File and remains valid for the File's lifetime.
func (f *File) Reg(id ID) *Register {
	return &f.regs[id]
}

// Invalidate marks every register as neither valid nor dirty. Called
// whenever the core has run and the cached values can no longer be trusted.
func (f *File) Invalidate() {
	for i := range f.regs {
		f.regs[i].Valid = false
		f.regs[i].Dirty = false
	}
}
