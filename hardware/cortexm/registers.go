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

// Debug Control Block registers. See ARMv7-M Architecture Reference
// Manual, section C1.6.
const (
	DHCSR = 0xe000edf0 // debug halting control and status
	DCRSR = 0xe000edf4 // debug core register selector
	DCRDR = 0xe000edf8 // debug core register data
	DEMCR = 0xe000edfc // debug exception and monitor control
	DSCSR = 0xe000ee08 // debug security control and status (v8-M only)
)

// DHCSR bits. The upper halfword is the write key on writes and status
// bits on reads. S_RETIRE_ST and S_RESET_ST clear on read and must be
// accumulated in the session's sticky mask.
const (
	DBGKEY     = 0xa05f << 16
	C_DEBUGEN  = 1 << 0
	C_HALT     = 1 << 1
	C_STEP     = 1 << 2
	C_MASKINTS = 1 << 3
	S_REGRDY   = 1 << 16
	S_HALT     = 1 << 17
	S_SLEEP    = 1 << 18
	S_LOCKUP   = 1 << 19
	S_RETIRE   = 1 << 24
	S_RESET    = 1 << 25
)

// DCRSR write-not-read direction bit.
const DCRSR_WNR = 1 << 16

// DSCSR current domain secure bit.
const DSCSR_CDS = 1 << 16

// DEMCR bits.
const (
	VC_CORERESET = 1 << 0
	VC_MMERR     = 1 << 4
	VC_NOCPERR   = 1 << 5
	VC_CHKERR    = 1 << 6
	VC_STATERR   = 1 << 7
	VC_BUSERR    = 1 << 8
	VC_INTERR    = 1 << 9
	VC_HARDERR   = 1 << 10
	TRCENA       = 1 << 24
)

// System Control Block registers.
const (
	ICSR  = 0xe000ed04 // interrupt control and state
	AIRCR = 0xe000ed0c // application interrupt and reset control
	SHCSR = 0xe000ed24 // system handler control and state
	CFSR  = 0xe000ed28 // configurable fault status
	HFSR  = 0xe000ed2c // hard fault status
	DFSR  = 0xe000ed30 // debug fault status
	MMFAR = 0xe000ed34 // memory management fault address
	BFAR  = 0xe000ed38 // bus fault address
	SFSR  = 0xe000ede4 // secure fault status (v8-M only)
	SFAR  = 0xe000ede8 // secure fault address (v8-M only)
)

// AIRCR bits. Writes must carry the vector key in the upper halfword.
const (
	AIRCR_VECTKEY        = 0x05fa << 16
	AIRCR_VECTRESET      = 1 << 0
	AIRCR_VECTCLRACTIVE  = 1 << 1
	AIRCR_SYSRESETREQ    = 1 << 2
)

// DFSR bits. Every bit is sticky and cleared by writing one back.
const (
	DFSR_HALTED   = 1 << 0
	DFSR_BKPT     = 1 << 1
	DFSR_DWTTRAP  = 1 << 2
	DFSR_VCATCH   = 1 << 3
	DFSR_EXTERNAL = 1 << 4
)

// Flash Patch and Breakpoint unit control register.
const FP_CTRL = 0xe0002000

// FP_CTRL value that sets ENABLE plus the write KEY bit.
const FP_CTRL_ENABLE = 3

// DWT comparator function MATCHED bit.
const DWT_MATCHED = 1 << 24

// Exception numbers as found in the low nine bits of xPSR.
const (
	ExcNMI          = 2
	ExcHardFault    = 3
	ExcMemManage    = 4
	ExcBusFault     = 5
	ExcUsageFault   = 6
	ExcSecureFault  = 7
	ExcSVCall       = 11
	ExcDebugMonitor = 12
	ExcPendSV       = 14
	ExcSysTick      = 15
)

// ExceptionName returns a human readable name for an exception number.
func ExceptionName(num int) string {
	switch num {
	case ExcNMI:
		return "NMI"
	case ExcHardFault:
		return "HardFault"
	case ExcMemManage:
		return "MemManage"
	case ExcBusFault:
		return "BusFault"
	case ExcUsageFault:
		return "UsageFault"
	case ExcSecureFault:
		return "SecureFault"
	case ExcSVCall:
		return "SVCall"
	case ExcDebugMonitor:
		return "DebugMonitor"
	case ExcPendSV:
		return "PendSV"
	case ExcSysTick:
		return "SysTick"
	}
	if num >= 16 {
		return "IRQ"
	}
	return "Reserved"
}
