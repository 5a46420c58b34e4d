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

// Arch is the architecture variant of the probed core.
type Arch int

// List of supported architecture variants.
const (
	ArchV6M Arch = iota
	ArchV7M
	ArchV8M
)

func (a Arch) String() string {
	switch a {
	case ArchV6M:
		return "ARMv6-M"
	case ArchV7M:
		return "ARMv7-M"
	case ArchV8M:
		return "ARMv8-M"
	}
	return ""
}

// SoftReset selects the software reset mechanism used when no physical
// reset line is available.
type SoftReset int

// List of soft reset mechanisms.
//
// VectReset resets the core only, leaving peripherals untouched. It is not
// supported on ARMv6-M cores. SysResetReq resets the whole system.
const (
	VectReset SoftReset = iota
	SysResetReq
)

func (r SoftReset) String() string {
	switch r {
	case VectReset:
		return "VECTRESET"
	case SysResetReq:
		return "SYSRESETREQ"
	}
	return ""
}

// Profile describes the capabilities of the probed core. It is filled in by
// device examination (outside this package) and injected into NewCore(),
// replacing any need for per-vendor driver variants.
type Profile struct {
	Arch Arch

	// core has a floating point unit. decides which registers exist in
	// the register file
	FPU bool

	// VECTRESET writes to AIRCR are supported. Cortex-M0, M0+ and M1
	// support SYSRESETREQ only
	VectResetSupported bool

	// revision of the Flash Patch and Breakpoint unit. revision 0
	// comparators cannot match addresses above 0x1fffffff
	FPBRev int

	// core suffers from the MASKINTS erratum (Cortex-M3 Errata 377493
	// and 377497, fixed in r1p0). changes when interrupt masking is
	// applied relative to halting
	MaskintsErratum bool

	// preferred soft reset mechanism. downgraded to SysResetReq with a
	// warning if VectReset is requested but not supported
	SoftResetMechanism SoftReset
}
